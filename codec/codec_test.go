package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID       string              `json:"id"`
	Vector   []float32           `json:"vector"`
	Labels   map[string][]string `json:"labels,omitempty"`
	Score    float64             `json:"score"`
	Children []child             `json:"children"`
}

type child struct {
	K string `json:"k"`
	V int64  `json:"v"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	in := payload{
		ID:       "art-1",
		Vector:   []float32{0.25, -1, 3.5},
		Labels:   map[string][]string{"genre": {"portrait"}, "style": {"baroque", "realism"}},
		Score:    0.8,
		Children: []child{{K: "x", V: 1}, {K: "y", V: 2}},
	}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("protobuf")
	assert.False(t, ok)
}

func TestGoJSON_WireCompatible(t *testing.T) {
	in := child{K: "a", V: 3}
	data := MustMarshal(GoJSON{}, in)

	var out child
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	appended, err := GoJSON{}.Append([]byte("x"), in)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("x"), data...), appended)
}

func TestMsgpack_UsesJSONTags(t *testing.T) {
	data, err := Msgpack{}.Marshal(child{K: "a", V: 1})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, Msgpack{}.Unmarshal(data, &m))
	assert.Contains(t, m, "k")
	assert.Contains(t, m, "v")
}

func TestMustMarshal_DefaultCodec(t *testing.T) {
	assert.Equal(t, `{"k":"a","v":1}`, string(MustMarshal(nil, child{K: "a", V: 1})))
	assert.Panics(t, func() { MustMarshal(JSON{}, make(chan int)) })
}
