package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan crawler.CrawlTarget, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	require.NoError(t, q.Enqueue(context.Background(), crawler.CrawlTarget{URL: "https://scam.test/"}))
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		require.Equal(t, "https://scam.test/", got.URL)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return target")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewQueue(1).Dequeue(ctx)
	require.EqualError(t, err, "dequeue canceled: context canceled")

	full := NewQueue(1)
	require.NoError(t, full.Enqueue(context.Background(), crawler.CrawlTarget{URL: "primed"}))
	require.Equal(t, 1, full.Len())
	err = full.Enqueue(ctx, crawler.CrawlTarget{})
	require.EqualError(t, err, "enqueue canceled: context canceled")
}

func TestQueueCloseDrainsThenReportsClosed(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	require.NoError(t, q.Enqueue(context.Background(), crawler.CrawlTarget{URL: "a"}))
	q.Close()
	q.Close()

	require.ErrorIs(t, q.Enqueue(context.Background(), crawler.CrawlTarget{URL: "b"}), crawler.ErrQueueClosed)

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", got.URL)

	_, err = q.Dequeue(context.Background())
	require.ErrorIs(t, err, crawler.ErrQueueClosed)
}
