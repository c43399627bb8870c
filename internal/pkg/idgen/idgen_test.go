package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialGenerator(t *testing.T) {
	g := NewSequential("item")
	assert.Equal(t, "item_1", g.Generate())
	assert.Equal(t, "item_2", g.Generate())

	plain := NewSequential("")
	assert.Equal(t, "1", plain.Generate())
}

func TestUUIDGenerator(t *testing.T) {
	id := NewUUID("char").Generate()
	require.True(t, strings.HasPrefix(id, "char_"))

	_, err := uuid.Parse(strings.TrimPrefix(id, "char_"))
	assert.NoError(t, err)

	assert.NotEqual(t, NewUUID("").Generate(), NewUUID("").Generate())
}
