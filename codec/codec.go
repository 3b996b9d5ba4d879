// Package codec centralizes snapshot payload encoding.
//
// Snapshots record the codec name in their header, so a model written with
// one codec is always decoded with the same one. Changing a codec's wire
// format is a breaking change for persisted models.
package codec

import (
	"fmt"
	"sort"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "msgpack":
		return Msgpack{}, true
	default:
		return nil, false
	}
}

// Names returns the names of the built-in codecs, sorted.
func Names() []string {
	names := []string{JSON{}.Name(), GoJSON{}.Name(), Msgpack{}.Name()}
	sort.Strings(names)
	return names
}

// MustMarshal is a helper for tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
