package collectors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// DefaultUpdateBufferSize is the recommended capacity of the updates channel.
const DefaultUpdateBufferSize = 16

// ParamsFunc returns the fetch parameters for the next collection cycle.
type ParamsFunc func() graph.FetchParams

// Runner polls every registered collector on its own interval and sends
// the results to a single updates channel. Sends never block: when the
// consumer is behind, the update is dropped and the next tick retries.
type Runner struct {
	registry *Registry
	params   ParamsFunc
	updates  chan<- Update

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner creates a runner over registry. params is read at the start of
// every cycle.
func NewRunner(registry *Registry, params ParamsFunc, updates chan<- Update) *Runner {
	return &Runner{
		registry: registry,
		params:   params,
		updates:  updates,
	}
}

// Start launches one goroutine per registered collector. Each collector
// runs immediately and then on every tick of its interval.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	for _, name := range r.registry.List() {
		c, ok := r.registry.Get(name)
		if !ok {
			continue
		}
		r.wg.Add(1)
		go r.loop(ctx, c)
	}
	return nil
}

// Stop cancels all collector goroutines and waits for them to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
}

// RunOnce runs the named collector synchronously and returns its result.
// The result is also sent to the updates channel.
func (r *Runner) RunOnce(ctx context.Context, name string) (*graph.Elements, error) {
	if _, ok := r.registry.Get(name); !ok {
		return nil, fmt.Errorf("collector %q not registered", name)
	}
	params := r.params()
	elems, err := r.registry.Collect(ctx, name, params)
	r.send(Update{Source: name, Params: params, Elements: elems, Timestamp: time.Now(), Error: err})
	return elems, err
}

// Health returns the health of every registered collector keyed by name.
func (r *Runner) Health() map[string]bool {
	statuses := r.registry.AllStatus()
	health := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		health[s.Name] = s.Healthy
	}
	return health
}

func (r *Runner) loop(ctx context.Context, c Collector) {
	defer r.wg.Done()

	interval := c.Interval()
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		params := r.params()
		elems, err := r.registry.Collect(ctx, c.Name(), params)
		if ctx.Err() != nil {
			return
		}
		r.send(Update{Source: c.Name(), Params: params, Elements: elems, Timestamp: time.Now(), Error: err})

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) send(u Update) {
	if r.updates == nil {
		return
	}
	select {
	case r.updates <- u:
	default:
	}
}
