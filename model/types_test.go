package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileIndex(t *testing.T) {
	var zero FileIndex
	assert.False(t, zero.IsValid())
	assert.Equal(t, InvalidIndex(), zero)

	a := ValidIndex(12, 3)
	b := ValidIndex(12, 3)
	assert.True(t, a.IsValid())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ValidIndex(12, 4))
	assert.NotEqual(t, ValidIndex(0, 0), InvalidIndex())

	assert.Equal(t, "FileIndex(12@3)", a.String())
	assert.Equal(t, "FileIndex(invalid)", zero.String())

	m := map[FileIndex]int{a: 1}
	assert.Equal(t, 1, m[b])
}
