package memory_test

import (
	"testing"

	"github.com/ctremu/horizonfs/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSlice_Success tests that a resolved slice aliases guest memory.
func TestSlice_Success(t *testing.T) {
	t.Parallel()

	ram := memory.NewFlatRAM(0x1000, 0x100)

	s1, err := ram.Slice(0x1010, 4)
	require.NoError(t, err)
	copy(s1, []byte{1, 2, 3, 4})

	s2, err := ram.Slice(0x1010, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, s2)
}

// TestSlice_OutOfRange tests rejection of ranges outside the mapped region.
func TestSlice_OutOfRange(t *testing.T) {
	t.Parallel()

	ram := memory.NewFlatRAM(0x1000, 0x100)

	_, err := ram.Slice(0x0FFF, 4)
	require.ErrorIs(t, err, memory.ErrOutOfRange)

	_, err = ram.Slice(0x10FE, 4)
	require.ErrorIs(t, err, memory.ErrOutOfRange)

	_, err = ram.Slice(0x2000, 1)
	require.ErrorIs(t, err, memory.ErrOutOfRange)
}

// TestSlice_Boundaries tests the inclusive edges of the mapped region.
func TestSlice_Boundaries(t *testing.T) {
	t.Parallel()

	ram := memory.NewFlatRAM(0x1000, 0x100)

	_, err := ram.Slice(0x1000, 0x100)
	require.NoError(t, err)

	_, err = ram.Slice(0x10FF, 1)
	require.NoError(t, err)

	s, err := ram.Slice(0x1100, 0)
	require.NoError(t, err)
	assert.Empty(t, s)
}
