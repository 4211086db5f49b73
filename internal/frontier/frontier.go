// Package frontier tracks which URLs have been dispatched during a crawl run.
package frontier

import (
	"sync"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// State is the lifecycle position of a URL within one run.
type State int

// URL states. Unseen URLs are simply absent from the map.
const (
	StateUnseen State = iota
	StateDispatched
	StateFetched
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDispatched:
		return "dispatched"
	case StateFetched:
		return "fetched"
	case StateFailed:
		return "failed"
	default:
		return "unseen"
	}
}

type entry struct {
	state State
	depth int
}

// Stats summarizes the frontier at a point in time.
type Stats struct {
	Dispatched int
	Fetched    int
	Failed     int
}

// Frontier is a run-scoped visited set keyed by normalized URL.
// All methods are safe for concurrent use.
type Frontier struct {
	maxDepth int

	mu      sync.Mutex
	entries map[string]entry
}

// New returns a Frontier that refuses targets deeper than maxDepth.
func New(maxDepth int) *Frontier {
	return &Frontier{
		maxDepth: maxDepth,
		entries:  make(map[string]entry),
	}
}

// MaxDepth returns the configured depth bound.
func (f *Frontier) MaxDepth() int {
	return f.maxDepth
}

// ShouldVisit reports whether url is unseen and depth is within bounds.
// The answer may be stale by the time the caller acts on it; use MarkDispatched to claim a URL.
func (f *Frontier) ShouldVisit(url string, depth int) bool {
	if depth < 0 || depth > f.maxDepth {
		return false
	}
	key, ok := normalize(url)
	if !ok {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, seen := f.entries[key]
	return !seen
}

// MarkDispatched atomically claims url at depth. It returns the normalized key and
// true only for the first caller; later callers and out-of-bounds depths get false.
func (f *Frontier) MarkDispatched(url string, depth int) (string, bool) {
	if depth < 0 || depth > f.maxDepth {
		return "", false
	}
	key, ok := normalize(url)
	if !ok {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, seen := f.entries[key]; seen {
		return key, false
	}
	f.entries[key] = entry{state: StateDispatched, depth: depth}
	return key, true
}

// MarkResult records the outcome for a dispatched URL. Unknown keys are ignored.
func (f *Frontier) MarkResult(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok || e.state != StateDispatched {
		return
	}
	if err != nil {
		e.state = StateFailed
	} else {
		e.state = StateFetched
	}
	f.entries[key] = e
}

// Lookup returns the state and first-seen depth of url.
func (f *Frontier) Lookup(url string) (State, int) {
	key, ok := normalize(url)
	if !ok {
		return StateUnseen, 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return StateUnseen, 0
	}
	return e.state, e.depth
}

// Stats counts URLs by state. Dispatched includes URLs that have since completed.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s Stats
	for _, e := range f.entries {
		s.Dispatched++
		switch e.state {
		case StateFetched:
			s.Fetched++
		case StateFailed:
			s.Failed++
		}
	}
	return s
}

func normalize(url string) (string, bool) {
	key, err := crawler.NormalizeURL(url)
	if err != nil {
		return "", false
	}
	return key, true
}
