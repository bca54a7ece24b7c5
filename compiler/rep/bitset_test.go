package rep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitSetTracksMarkedPositions(t *testing.T) {
	s := newBitSet(4)

	require.False(t, s.IsSet(2))
	s.Set(2)
	require.True(t, s.IsSet(2))
	require.False(t, s.IsSet(1))
	require.False(t, s.IsSet(3))
}

func TestBitSetGrowsPastCapacityHint(t *testing.T) {
	s := newBitSet(1)

	s.Set(200)
	require.True(t, s.IsSet(200))
	require.False(t, s.IsSet(199))
}
