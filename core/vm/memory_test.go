package vm

import (
	"math"
	"testing"

	"github.com/clydemeng/yulvm/core/types"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimit(t *testing.T) {
	require.Equal(t, 32*1024*1024, MemoryLimit)

	m := newMemory()
	require.NoError(t, m.Set(MemoryLimit-1, []byte{0xaa}))
	require.Equal(t, MemoryLimit, m.Len())

	require.ErrorIs(t, m.Set(MemoryLimit, []byte{0xbb}), types.ErrExecution)
	require.ErrorIs(t, m.Set(MemoryLimit-1, []byte{1, 2}), types.ErrExecution)
	require.ErrorIs(t, m.Set(math.MaxUint64, []byte{1}), types.ErrExecution)
	require.Equal(t, MemoryLimit, m.Len(), "failed writes do not grow memory")

	b, err := m.GetCopy(MemoryLimit-1, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa}, b)
}

func TestMemoryGrowsZeroFilled(t *testing.T) {
	m := newMemory()
	require.NoError(t, m.Set(4, []byte{1}))
	b, err := m.GetCopy(0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0, 1}, b)

	_, err = m.GetCopy(3, 3)
	require.ErrorIs(t, err, types.ErrExecution)
	require.NoError(t, m.Set(0, nil))
}
