package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID     uint32    `json:"id"`
	Vector []float32 `json:"vector"`
	Tags   []string  `json:"tags,omitempty"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok)
		assert.Equal(t, name, c.Name())
	}
	_, ok := ByName("cbor")
	assert.False(t, ok)
}

func TestInterchangeable(t *testing.T) {
	in := payload{ID: 7, Vector: []float32{0.5, -1, 2.25}, Tags: []string{"a"}}

	for _, enc := range []Codec{JSON{}, GoJSON{}} {
		for _, dec := range []Codec{JSON{}, GoJSON{}} {
			b, err := enc.Marshal(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, dec.Unmarshal(b, &out))
			assert.Equal(t, in, out, "%s -> %s", enc.Name(), dec.Name())
		}
	}
}

func TestVerify(t *testing.T) {
	require.NoError(t, Verify(JSON{}, ""))
	require.NoError(t, Verify(GoJSON{}, "go-json"))

	err := Verify(GoJSON{}, "json")
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), `written with "json"`)

	err = Verify(JSON{}, "cbor")
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Contains(t, err.Error(), "unknown codec")
}
