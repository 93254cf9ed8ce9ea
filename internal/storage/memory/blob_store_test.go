package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte(`{"ok":true}`)

	uri, err := store.PutObject(context.Background(), "exports/job-1.json", "application/json", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://exports/job-1.json", uri)

	payload[0] = 'X'
	got, contentType, ok := store.Object("exports/job-1.json")
	require.True(t, ok)
	require.Equal(t, `{"ok":true}`, string(got))
	require.Equal(t, "application/json", contentType)

	_, err = store.PutObject(context.Background(), "  ", "", nil)
	require.Error(t, err)

	_, _, ok = store.Object("missing")
	require.False(t, ok)
}
