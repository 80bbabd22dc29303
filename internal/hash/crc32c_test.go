package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Known check value of CRC-32C for "123456789".
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
	assert.NotEqual(t, CRC32C([]byte("a")), CRC32C([]byte("b")))
}
