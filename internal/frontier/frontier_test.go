package frontier

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrontier_DepthBound(t *testing.T) {
	t.Parallel()

	f := New(2)
	require.True(t, f.ShouldVisit("https://example.test/a", 2))
	require.False(t, f.ShouldVisit("https://example.test/a", 3))
	require.False(t, f.ShouldVisit("https://example.test/a", -1))

	_, ok := f.MarkDispatched("https://example.test/deep", 3)
	require.False(t, ok)
	state, _ := f.Lookup("https://example.test/deep")
	require.Equal(t, StateUnseen, state)
}

func TestFrontier_AtMostOnceAcrossSpellings(t *testing.T) {
	t.Parallel()

	f := New(5)
	key, ok := f.MarkDispatched("https://Example.test:443/a#frag", 1)
	require.True(t, ok)
	require.Equal(t, "https://example.test/a", key)

	_, ok = f.MarkDispatched("https://example.test/a", 0)
	require.False(t, ok)
	require.False(t, f.ShouldVisit("https://example.test/a", 0))

	state, depth := f.Lookup("https://example.test/a")
	require.Equal(t, StateDispatched, state)
	require.Equal(t, 1, depth, "first-seen depth wins")
}

func TestFrontier_MarkResult(t *testing.T) {
	t.Parallel()

	f := New(1)
	okKey, _ := f.MarkDispatched("https://example.test/ok", 0)
	badKey, _ := f.MarkDispatched("https://example.test/bad", 0)
	f.MarkResult(okKey, nil)
	f.MarkResult(badKey, errors.New("404"))
	f.MarkResult("https://unknown.test/", nil)

	// a failed URL is never re-dispatched
	_, ok := f.MarkDispatched("https://example.test/bad", 0)
	require.False(t, ok)

	require.Equal(t, Stats{Dispatched: 2, Fetched: 1, Failed: 1}, f.Stats())
	state, _ := f.Lookup("https://example.test/bad")
	require.Equal(t, "failed", state.String())
}

func TestFrontier_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	f := New(3)
	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, ok := f.MarkDispatched(fmt.Sprintf("https://example.test/p%d", j), i%4); ok {
					wins.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 50, wins.Load())
	require.Equal(t, 50, f.Stats().Dispatched)
}

func TestFrontier_RejectsInvalidURL(t *testing.T) {
	t.Parallel()

	f := New(1)
	require.False(t, f.ShouldVisit("not a url", 0))
	_, ok := f.MarkDispatched("/relative", 0)
	require.False(t, ok)
}
