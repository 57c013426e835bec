// Package datasource holds the graph the card displays. It owns the fetch
// parameters and the latest snapshot, and notifies listeners when a fetch
// completes.
//
// Fetching is split in two so a single event loop can own all mutation:
// Fetch performs I/O and may run on any goroutine, while Apply stores the
// result and fires the fetchSuccess or fetchError listeners on the
// caller's goroutine.
package datasource

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// Event names a data source notification.
type Event string

const (
	EventFetchSuccess Event = "fetchSuccess"
	EventFetchError   Event = "fetchError"
)

// ListenerID identifies a registered handler for removal.
type ListenerID uint64

// Handler is called with no arguments; it reads what it needs from the
// source.
type Handler func()

// Fetcher retrieves graph elements. collectors.Collector and
// collectors.Registry-backed adapters satisfy it.
type Fetcher interface {
	Collect(ctx context.Context, params graph.FetchParams) (*graph.Elements, error)
}

// FetchObserver is told how long every fetch took.
type FetchObserver interface {
	ObserveFetch(d time.Duration, err error)
}

// Result is the outcome of Fetch, waiting to be applied.
type Result struct {
	Seq      uint64
	Params   graph.FetchParams
	Elements *graph.Elements
	Err      error
	Fetched  time.Time
	Duration time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithClock overrides the clock used to stamp fetches.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// WithObserver reports fetch timings.
func WithObserver(o FetchObserver) Option {
	return func(s *Source) { s.observer = o }
}

type listener struct {
	id ListenerID
	fn Handler
}

// Source is safe for concurrent reads. Mutations and listener callbacks
// are expected to happen on one goroutine.
type Source struct {
	fetcher  Fetcher
	logger   *slog.Logger
	now      func() time.Time
	observer FetchObserver

	mu        sync.RWMutex
	params    graph.FetchParams
	elements  *graph.Elements
	loading   bool
	errMsg    string
	timestamp int64
	seq       uint64
	applied   uint64

	lmu       sync.Mutex
	listeners map[Event][]listener
	nextID    ListenerID
}

// New creates a source that fetches through f using params.
func New(f Fetcher, params graph.FetchParams, opts ...Option) *Source {
	s := &Source{
		fetcher:   f,
		params:    params,
		logger:    slog.Default(),
		now:       time.Now,
		listeners: make(map[Event][]listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GraphData returns the latest snapshot. The returned value is never
// mutated by the source; a new fetch replaces it.
func (s *Source) GraphData() *graph.Elements {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elements
}

// IsLoading reports whether a fetch is in flight.
func (s *Source) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ErrorMessage returns the error of the last fetch, or "".
func (s *Source) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// IsError reports whether the last fetch failed.
func (s *Source) IsError() bool {
	return s.ErrorMessage() != ""
}

// FetchParameters returns a copy of the current fetch parameters.
func (s *Source) FetchParameters() graph.FetchParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyParams(s.params)
}

// GraphTimestamp is the time of the last successful fetch in epoch
// seconds, or 0 before the first one.
func (s *Source) GraphTimestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamp
}

// GraphDuration is the metrics window of the fetch parameters in seconds.
func (s *Source) GraphDuration() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.params.Duration / time.Second)
}

// SetParameters replaces the fetch parameters used by the next fetch.
func (s *Source) SetParameters(p graph.FetchParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = copyParams(p)
}

// SetDuration changes only the metrics window.
func (s *Source) SetDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Duration = d
}

// Fetch marks the source as loading and retrieves a new graph with the
// current parameters. It does not change the snapshot; pass the result to
// Apply.
func (s *Source) Fetch(ctx context.Context) Result {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	params := copyParams(s.params)
	s.loading = true
	s.mu.Unlock()

	start := s.now()
	elems, err := s.fetcher.Collect(ctx, params)
	took := s.now().Sub(start)
	if s.observer != nil {
		s.observer.ObserveFetch(took, err)
	}

	return Result{
		Seq:      seq,
		Params:   params,
		Elements: elems,
		Err:      err,
		Fetched:  s.now(),
		Duration: took,
	}
}

// Apply stores a fetch result and notifies listeners. Results older than
// one already applied are dropped and reported as false.
func (s *Source) Apply(r Result) bool {
	s.mu.Lock()
	if r.Seq != 0 && r.Seq <= s.applied {
		s.mu.Unlock()
		s.logger.Debug("dropping stale graph fetch", "seq", r.Seq, "applied", s.applied)
		return false
	}
	s.applied = r.Seq
	if r.Seq >= s.seq {
		s.loading = false
	}

	event := EventFetchSuccess
	if r.Err != nil {
		event = EventFetchError
		s.errMsg = r.Err.Error()
	} else {
		s.errMsg = ""
		s.elements = r.Elements
		if s.elements == nil {
			s.elements = &graph.Elements{}
		}
		s.timestamp = r.Fetched.Unix()
	}
	s.mu.Unlock()

	if r.Err != nil {
		s.logger.Warn("graph fetch failed", "error", r.Err, "took", r.Duration)
	} else {
		s.logger.Debug("graph fetched", "nodes", nodeCount(r.Elements), "took", r.Duration)
	}
	s.emit(event)
	return true
}

// Refresh fetches and applies on the calling goroutine.
func (s *Source) Refresh(ctx context.Context) error {
	r := s.Fetch(ctx)
	s.Apply(r)
	return r.Err
}

// On registers h for event and returns an id for RemoveListener.
func (s *Source) On(event Event, h Handler) ListenerID {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[event] = append(s.listeners[event], listener{id: id, fn: h})
	return id
}

// RemoveListener unregisters a handler. Unknown ids are ignored.
func (s *Source) RemoveListener(event Event, id ListenerID) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	ls := s.listeners[event]
	for i, l := range ls {
		if l.id == id {
			s.listeners[event] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// ListenerCount returns how many handlers are registered for event.
func (s *Source) ListenerCount(event Event) int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return len(s.listeners[event])
}

// emit calls handlers in registration order outside the lock, so a
// handler may remove itself.
func (s *Source) emit(event Event) {
	s.lmu.Lock()
	ls := append([]listener(nil), s.listeners[event]...)
	s.lmu.Unlock()

	sort.Slice(ls, func(i, j int) bool { return ls[i].id < ls[j].id })
	for _, l := range ls {
		l.fn()
	}
}

func nodeCount(e *graph.Elements) int {
	if e == nil {
		return 0
	}
	return len(e.Nodes)
}

func copyParams(p graph.FetchParams) graph.FetchParams {
	out := p
	out.Namespaces = append([]graph.Namespace(nil), p.Namespaces...)
	out.EdgeLabels = append([]string(nil), p.EdgeLabels...)
	out.TrafficRates = append([]string(nil), p.TrafficRates...)
	if p.Node != nil {
		n := *p.Node
		out.Node = &n
	}
	return out
}
