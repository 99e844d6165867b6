// Package slidecache keeps a bounded set of recently viewed slides keyed by
// slide index. The cache never fetches on its own: Request and Show hand out
// fetch tickets and the owner reports back through Complete.
package slidecache

import (
	"fmt"

	"github.com/dgallion1/stepdeck/internal/slide"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity is the number of slides kept when no capacity is given.
const DefaultCapacity = 10

// State of a cache entry.
type State int

const (
	Loading State = iota
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entry is the status of one slide.
type Entry struct {
	State State
	Slide *slide.Slide

	// Set for Error entries.
	Description string
	Cause       string
	Contents    string

	generation uint64
}

// Ticket identifies one fetch. A result is only accepted if its ticket still
// matches the entry's generation.
type Ticket struct {
	Index      int
	Generation uint64
}

// Result is the outcome of a fetch issued for a Ticket.
type Result struct {
	Ticket
	Body string
	Err  error
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefetch sets how many slides before and after the shown slide are
// requested by Show.
func WithPrefetch(behind, ahead int) Option {
	return func(c *Cache) {
		c.behind = max(0, behind)
		c.ahead = max(0, ahead)
	}
}

// WithOnLoaded registers a callback invoked with the step count of every
// slide that becomes Ready, and again when Show lands on a Ready slide.
func WithOnLoaded(fn func(index, numSteps int)) Option {
	return func(c *Cache) {
		c.onLoaded = fn
	}
}

// Cache is an LRU of slide entries. It is not safe for concurrent use; all
// calls are expected from a single event loop.
type Cache struct {
	entries  *simplelru.LRU[int, *Entry]
	nextGen  uint64
	current  int
	behind   int
	ahead    int
	onLoaded func(index, numSteps int)
}

// New creates a cache holding at most capacity entries.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// NewLRU only fails for a non-positive size.
	entries, _ := simplelru.NewLRU[int, *Entry](capacity, nil)

	c := &Cache{
		entries:  entries,
		behind:   1,
		ahead:    2,
		onLoaded: func(int, int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request asks for slide index. If an entry is already Loading or Ready no
// fetch is needed and ok is false. Error entries are re-fetched.
func (c *Cache) Request(index int) (t Ticket, ok bool) {
	if index < 1 {
		return Ticket{}, false
	}
	if e, found := c.entries.Get(index); found && e.State != Error {
		return Ticket{}, false
	}

	c.nextGen++
	c.entries.Add(index, &Entry{State: Loading, generation: c.nextGen})
	return Ticket{Index: index, Generation: c.nextGen}, true
}

// Show marks index as the displayed slide and returns the fetches needed for
// it and its prefetch window. An Error entry is re-fetched only when it is the
// shown slide. The shown slide is touched last so it is the
// most recently used entry.
func (c *Cache) Show(index int) []Ticket {
	c.current = index

	var tickets []Ticket
	for i := index - c.behind; i <= index+c.ahead; i++ {
		if i == index {
			continue
		}
		// Failed neighbours are only retried once they are shown.
		if e, found := c.entries.Peek(i); found && e.State == Error {
			continue
		}
		if t, ok := c.Request(i); ok {
			tickets = append(tickets, t)
		}
	}
	if t, ok := c.Request(index); ok {
		tickets = append([]Ticket{t}, tickets...)
	} else if e, found := c.entries.Get(index); found && e.State == Ready {
		c.onLoaded(index, e.Slide.NumSteps())
	}
	return tickets
}

// Current returns the index last passed to Show.
func (c *Cache) Current() int {
	return c.current
}

// Complete stores a fetch result. Results for evicted entries or superseded
// generations are dropped and Complete returns false.
func (c *Cache) Complete(res Result) bool {
	e, found := c.entries.Peek(res.Index)
	if !found || e.generation != res.Generation || e.State != Loading {
		return false
	}

	next := &Entry{generation: e.generation}
	switch {
	case res.Err != nil:
		next.State = Error
		next.Description = "Failed to download slide"
		next.Cause = res.Err.Error()
	default:
		s, err := slide.Parse(res.Body)
		if err != nil {
			next.State = Error
			next.Description = "Slide is not valid HTML"
			next.Cause = err.Error()
			next.Contents = res.Body
			break
		}
		next.State = Ready
		next.Slide = s
	}

	// Peek above kept recency untouched; replacing the value must too.
	*e = *next
	if e.State == Ready {
		c.onLoaded(res.Index, e.Slide.NumSteps())
	}
	return true
}

// Get returns the entry for index and marks it recently used.
func (c *Cache) Get(index int) (Entry, bool) {
	e, ok := c.entries.Get(index)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Peek returns the entry for index without touching recency.
func (c *Cache) Peek(index int) (Entry, bool) {
	e, ok := c.entries.Peek(index)
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Indexes returns cached slide indexes from oldest to newest use.
func (c *Cache) Indexes() []int {
	return c.entries.Keys()
}
