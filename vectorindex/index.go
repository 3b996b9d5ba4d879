// Package vectorindex holds the in-memory embedding collection a clustering
// run operates on.
//
// Vectors are stored in a single flat slice (n * dim) addressed by a dense
// ordinal; ids resolve to ordinals in O(1). The index has no business logic
// beyond validation and bulk distance computation.
package vectorindex

import (
	"fmt"
	"slices"

	"github.com/hupe1980/artlens/distance"
	"github.com/hupe1980/artlens/model"
)

// Index is an immutable collection of validated embedding records.
// It is safe for concurrent reads.
type Index struct {
	dim        int
	ids        []string
	ordinals   map[string]int
	vectors    []float32
	attributes []model.Attributes
	dimensions []string
}

// Build validates records and copies them into a new Index.
//
// Every record must pass model.Record.Validate, ids must be unique and all
// vectors must share the dimension of the first record. Attributes are
// normalized (see model.Attributes.Normalize).
func Build(records []model.Record) (*Index, error) {
	if len(records) == 0 {
		return nil, &model.DataError{Reason: "no records"}
	}

	dim := len(records[0].Vector)
	ix := &Index{
		dim:        dim,
		ids:        make([]string, 0, len(records)),
		ordinals:   make(map[string]int, len(records)),
		vectors:    make([]float32, 0, len(records)*dim),
		attributes: make([]model.Attributes, 0, len(records)),
	}

	dimSet := make(map[string]struct{})
	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if len(rec.Vector) != dim {
			return nil, model.ErrDimensionMismatch(rec.ID, dim, len(rec.Vector))
		}
		if _, dup := ix.ordinals[rec.ID]; dup {
			return nil, &model.DataError{RecordID: rec.ID, Field: "id", Reason: "duplicate record id"}
		}
		attrs, err := rec.Attributes.Normalize()
		if err != nil {
			return nil, err
		}
		for d := range attrs {
			dimSet[d] = struct{}{}
		}

		ix.ordinals[rec.ID] = len(ix.ids)
		ix.ids = append(ix.ids, rec.ID)
		ix.vectors = append(ix.vectors, rec.Vector...)
		ix.attributes = append(ix.attributes, attrs)
	}

	ix.dimensions = make([]string, 0, len(dimSet))
	for d := range dimSet {
		ix.dimensions = append(ix.dimensions, d)
	}
	slices.Sort(ix.dimensions)

	return ix, nil
}

// Len returns the number of records.
func (ix *Index) Len() int { return len(ix.ids) }

// Dimension returns the shared vector dimension D.
func (ix *Index) Dimension() int { return ix.dim }

// ID returns the record id stored at ordinal.
func (ix *Index) ID(ordinal int) string { return ix.ids[ordinal] }

// IDs returns all record ids in ordinal order.
func (ix *Index) IDs() []string { return slices.Clone(ix.ids) }

// Ordinal resolves a record id.
func (ix *Index) Ordinal(id string) (int, bool) {
	ord, ok := ix.ordinals[id]
	return ord, ok
}

// Vector returns the vector stored at ordinal.
// The returned slice aliases index memory and must not be modified.
func (ix *Index) Vector(ordinal int) []float32 {
	return ix.vectors[ordinal*ix.dim : (ordinal+1)*ix.dim : (ordinal+1)*ix.dim]
}

// Flat returns the flattened vectors (Len() * Dimension()).
// The returned slice aliases index memory and must not be modified.
func (ix *Index) Flat() []float32 { return ix.vectors }

// Attributes returns the normalized attributes stored at ordinal.
func (ix *Index) Attributes(ordinal int) model.Attributes { return ix.attributes[ordinal] }

// Dimensions returns the union of attribute dimensions across all records,
// sorted lexicographically.
func (ix *Index) Dimensions() []string { return ix.dimensions }

// Record returns a copy of the record with the given id.
func (ix *Index) Record(id string) (model.Record, bool) {
	ord, ok := ix.ordinals[id]
	if !ok {
		return model.Record{}, false
	}
	return model.Record{
		ID:         id,
		Vector:     slices.Clone(ix.Vector(ord)),
		Attributes: ix.attributes[ord].Clone(),
	}, true
}

// SizeBytes estimates the memory held by vectors.
func (ix *Index) SizeBytes() int64 {
	return int64(len(ix.vectors)) * 4
}

// Distances computes the distance from query to every record in ordinal
// order. dst is reused when it has enough capacity.
func (ix *Index) Distances(query []float32, metric distance.Metric, dst []float64) ([]float64, error) {
	if len(query) != ix.dim {
		return nil, model.ErrDimensionMismatch("", ix.dim, len(query))
	}
	fn, err := distance.Provider(metric)
	if err != nil {
		return nil, model.NewConfigurationError("metric", "%v", err)
	}
	if cap(dst) < len(ix.ids) {
		dst = make([]float64, len(ix.ids))
	}
	dst = dst[:len(ix.ids)]
	for i := range ix.ids {
		dst[i] = fn(query, ix.Vector(i))
	}
	return dst, nil
}

// String implements fmt.Stringer.
func (ix *Index) String() string {
	return fmt.Sprintf("vectorindex(n=%d, dim=%d, dimensions=%v)", len(ix.ids), ix.dim, ix.dimensions)
}
