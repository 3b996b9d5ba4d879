package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Standard check value for CRC32C.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))

	h := NewCRC32C()
	_, _ = h.Write([]byte("12345"))
	_, _ = h.Write([]byte("6789"))
	assert.Equal(t, uint32(0xE3069283), h.Sum32())
}

func TestCRC32CBase64(t *testing.T) {
	// 0xE3069283 big endian.
	assert.Equal(t, "4waSgw==", CRC32CBase64([]byte("123456789")))
}
