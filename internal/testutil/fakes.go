package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/zjrosen/iconlens/internal/fetch"
	"github.com/zjrosen/iconlens/internal/store"
)

// Store wraps store.Memory and counts calls.
type Store struct {
	*store.Memory

	mu      sync.Mutex
	reads   map[string]int
	writes  map[string]int
	deletes []string
}

var _ store.Store = (*Store)(nil)

// NewStore returns an empty counting store.
func NewStore() *Store {
	return &Store{
		Memory: store.NewMemory(),
		reads:  map[string]int{},
		writes: map[string]int{},
	}
}

func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.reads[key]++
	s.mu.Unlock()
	return s.Memory.Read(ctx, key)
}

func (s *Store) Write(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes[key]++
	s.mu.Unlock()
	return s.Memory.Write(ctx, key, value)
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	s.deletes = append(s.deletes, namespace)
	s.mu.Unlock()
	return s.Memory.DeleteNamespace(ctx, namespace)
}

// Reads returns how often key was read.
func (s *Store) Reads(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[key]
}

// Writes returns how often key was written.
func (s *Store) Writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[key]
}

// Deletes returns the namespaces passed to DeleteNamespace, in order.
func (s *Store) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// Fetcher serves canned bodies by URL and counts calls. Unknown URLs answer
// with a 404 StatusError.
type Fetcher struct {
	mu      sync.Mutex
	bodies  map[string][]byte
	errs    map[string]error
	calls   map[string]int
	gate    chan struct{}
	started chan string
}

var _ fetch.Fetcher = (*Fetcher)(nil)

// NewFetcher returns a fetcher with nothing to serve.
func NewFetcher() *Fetcher {
	return &Fetcher{
		bodies:  map[string][]byte{},
		errs:    map[string]error{},
		calls:   map[string]int{},
		started: make(chan string, 64),
	}
}

// Serve answers url with body.
func (f *Fetcher) Serve(url string, body []byte) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
	delete(f.errs, url)
	return f
}

// Fail answers url with err.
func (f *Fetcher) Fail(url string, err error) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

// Block makes every subsequent Fetch wait until release is called.
func (f *Fetcher) Block() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Started receives the URL of every Fetch as it begins.
func (f *Fetcher) Started() <-chan string {
	return f.started
}

// Fetch implements fetch.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	gate := f.gate
	f.mu.Unlock()

	select {
	case f.started <- url:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.bodies[url]; ok {
		return body, nil
	}
	return nil, &fetch.StatusError{URL: url, Code: http.StatusNotFound}
}

// Calls returns how often url was fetched.
func (f *Fetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// TotalCalls returns the number of Fetch calls for any URL.
func (f *Fetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
