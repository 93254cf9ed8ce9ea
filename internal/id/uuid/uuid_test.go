package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	require.True(t, Valid(id1))
	require.True(t, Valid(id2))
	require.Less(t, id1, id2, "v7 ids sort by creation time")
}

func TestValid(t *testing.T) {
	t.Parallel()

	require.True(t, Valid("0190b5b4-3f7e-7cc2-9d3a-4a1f5b6c7d8e"))
	require.False(t, Valid("not-a-uuid"))
	require.False(t, Valid("{0190b5b4-3f7e-7cc2-9d3a-4a1f5b6c7d8e}"))
	require.False(t, Valid(""))
}
