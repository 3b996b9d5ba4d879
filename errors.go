package artlens

import (
	"errors"
	"fmt"

	"github.com/hupe1980/artlens/blobstore"
	"github.com/hupe1980/artlens/model"
	"github.com/hupe1980/artlens/snapshot"
)

var (
	// ErrConfiguration matches every invalid-parameter error.
	ErrConfiguration = model.ErrConfiguration
	// ErrData matches every malformed-input error.
	ErrData = model.ErrData

	// ErrNotFound is returned when a record or cluster id is unknown.
	ErrNotFound = errors.New("not found")
	// ErrNoSnapshot is returned by Load when the store holds no saved model.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrCorruptSnapshot is returned when a saved model fails verification.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrBusy is returned by a non-blocking Build when no build slot or
	// memory budget is free.
	ErrBusy = errors.New("resources busy")
)

type (
	// ConfigurationError reports an invalid parameter.
	ConfigurationError = model.ConfigurationError
	// DataError reports malformed input, with the offending record when known.
	DataError = model.DataError
)

// ErrRecordNotFound indicates a subject id that is not part of the model.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrRecordNotFound struct {
	ID string
}

func (e *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("record %q: not found", e.ID)
}

func (e *ErrRecordNotFound) Unwrap() error { return ErrNotFound }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	if errors.Is(err, snapshot.ErrCorrupt) ||
		errors.Is(err, snapshot.ErrBadMagic) ||
		errors.Is(err, snapshot.ErrUnsupportedVersion) {
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	return err
}
