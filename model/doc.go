// Package model defines the core types shared by every artlens stage.
//
// # Data Types
//
//   - Record: an artwork embedding with its categorical attributes
//   - Attributes: attribute dimension name -> set of labels
//
// # Errors
//
// Two error kinds are surfaced by the pipeline:
//
//   - ConfigurationError: a caller contract violation (invalid k, metric
//     mismatch, top-k larger than the cluster count, invalid policy)
//   - DataError: malformed input data (dimension mismatch, non-finite vector
//     entries, empty labels, duplicate ids)
//
// Both unwrap to a sentinel so callers can use errors.Is:
//
//	if errors.Is(err, model.ErrData) { ... }
package model
