package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webextract/internal/crawler"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), crawler.EventJobCompleted, crawler.JobEvent{JobID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), crawler.EventJobFailed, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, crawler.EventJobCompleted, msgs[0].Topic)
	require.Contains(t, string(msgs[0].Data), `"job_id":"job-1"`)
	require.JSONEq(t, `{"k":"v"}`, string(msgs[1].Data))

	msgs[0].Topic = "modified"
	require.Equal(t, crawler.EventJobCompleted, pub.Messages()[0].Topic)
}

func TestPublisherRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := New().Publish(context.Background(), "topic", make(chan int))
	require.Error(t, err)
	require.Empty(t, New().Messages())
}

func TestPublisherKeepsOnlyRecentMessages(t *testing.T) {
	t.Parallel()

	pub := NewWithLimit(3)
	for i := 1; i <= 5; i++ {
		id, err := pub.Publish(context.Background(), crawler.EventJobCompleted, crawler.JobEvent{JobID: fmt.Sprintf("job-%d", i)})
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("memory-%d", i), id)
	}

	msgs := pub.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "memory-3", msgs[0].ID)
	require.Equal(t, "memory-5", msgs[2].ID)
	require.Contains(t, string(msgs[2].Data), `"job_id":"job-5"`)
}
