package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/artlens/model"
)

const labelSeparator = "|"

// ReadCSV decodes and validates CSV records. The header must start with
// "id,vector"; every further column is an attribute dimension. Empty cells
// mean no label.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &model.DataError{Reason: "dataset contains no records"}
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(header[0], "id") || !strings.EqualFold(header[1], "vector") {
		return nil, &model.DataError{Field: "header", Reason: `header must start with "id,vector"`}
	}
	dims := make([]string, len(header)-2)
	for i, h := range header[2:] {
		dims[i] = strings.TrimSpace(h)
	}

	var records []model.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, &model.DataError{Field: fmt.Sprintf("line %d", pe.Line), Reason: pe.Err.Error()}
			}
			return nil, fmt.Errorf("dataset: read csv: %w", err)
		}

		id := strings.TrimSpace(row[0])
		vec, err := parseVector(row[1])
		if err != nil {
			return nil, &model.DataError{RecordID: id, Field: "vector", Reason: err.Error()}
		}

		var attrs model.Attributes
		for i, cell := range row[2:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if attrs == nil {
				attrs = make(model.Attributes, len(dims))
			}
			attrs[dims[i]] = strings.Split(cell, labelSeparator)
		}

		records = append(records, model.Record{ID: id, Vector: vec, Attributes: attrs})
	}

	return Validate(records)
}

func parseVector(s string) ([]float32, error) {
	fields := strings.Fields(s)
	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
