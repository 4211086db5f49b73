package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "pages/scam.test/abc.txt", "text/plain", bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, "memory://pages/scam.test/abc.txt", uri)

	payload[0] = 'C'
	got, ok := store.Object("pages/scam.test/abc.txt")
	require.True(t, ok)
	require.Equal(t, "content", string(got))
	require.Equal(t, 1, store.Len())

	_, ok = store.Object("missing")
	require.False(t, ok)
}

func TestBlobStorePutObjectReadError(t *testing.T) {
	t.Parallel()

	_, err := NewBlobStore().PutObject(context.Background(), "p", "text/plain", iotest.ErrReader(errors.New("boom")))
	require.ErrorContains(t, err, "read snapshot p")
}
