package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Well-known attribute dimensions.
const (
	DimensionGenre = "genre"
	DimensionTopic = "topic"
	DimensionMedia = "media"
	DimensionStyle = "style"
	DimensionColor = "color"
)

// Attributes maps an attribute dimension name to a set of labels.
// A record may hold zero, one or several labels per dimension.
type Attributes map[string][]string

// Labels returns the labels held for dimension.
func (a Attributes) Labels(dimension string) []string {
	if a == nil {
		return nil
	}
	return a[dimension]
}

// Dimensions returns the dimension names in lexicographic order.
func (a Attributes) Dimensions() []string {
	dims := make([]string, 0, len(a))
	for d := range a {
		dims = append(dims, d)
	}
	slices.Sort(dims)
	return dims
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for d, labels := range a {
		out[d] = slices.Clone(labels)
	}
	return out
}

// Normalize returns a copy with dimension names lower-cased, labels trimmed,
// de-duplicated and sorted. Dimensions left without labels are dropped.
//
// Empty labels or dimension names are rejected.
func (a Attributes) Normalize() (Attributes, error) {
	if len(a) == 0 {
		return nil, nil
	}
	out := make(Attributes, len(a))
	for dim, labels := range a {
		name := NormalizeDimension(dim)
		if name == "" {
			return nil, &DataError{Field: "attributes", Reason: "empty dimension name"}
		}
		set := make([]string, 0, len(labels)+len(out[name]))
		set = append(set, out[name]...)
		for _, l := range labels {
			l = strings.TrimSpace(l)
			if l == "" {
				return nil, &DataError{Field: "attributes." + name, Reason: "empty label"}
			}
			set = append(set, l)
		}
		slices.Sort(set)
		set = slices.Compact(set)
		if len(set) > 0 {
			out[name] = set
		}
	}
	return out, nil
}

// Record is an embedding of a single artwork together with its labels.
type Record struct {
	ID         string     `json:"id" msgpack:"id"`
	Vector     []float32  `json:"vector" msgpack:"vector"`
	Attributes Attributes `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

// NormalizeDimension returns the canonical form of a dimension name:
// trimmed and lower-cased.
func NormalizeDimension(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the record in isolation: a non-empty id, a non-empty
// vector with finite components and well-formed attributes.
func (r *Record) Validate() error {
	if r.ID == "" {
		return &DataError{Field: "id", Reason: "empty record id"}
	}
	if err := ValidateVector(r.Vector); err != nil {
		return withRecordID(err, r.ID)
	}
	if _, err := r.Attributes.Normalize(); err != nil {
		return withRecordID(err, r.ID)
	}
	return nil
}

// ValidateVector rejects empty vectors and non-finite components.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return &DataError{Field: "vector", Reason: "empty vector"}
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &DataError{Field: "vector", Reason: fmt.Sprintf("non-finite component at %d", i)}
		}
	}
	return nil
}

func withRecordID(err error, id string) error {
	var de *DataError
	if errors.As(err, &de) {
		de.RecordID = id
	}
	return err
}
