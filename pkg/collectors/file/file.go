// Package file serves graph snapshots stored on disk. A snapshot is a YAML
// (or JSON) document holding graph elements; it is useful for demos, for
// tests, and for replaying a graph captured from a live cluster.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

const defaultInterval = 30 * time.Second

// Snapshot is the on-disk document.
type Snapshot struct {
	// Captured is informational; the data source stamps its own timestamp.
	Captured time.Time      `yaml:"captured,omitempty" json:"captured,omitempty"`
	Elements graph.Elements `yaml:"elements" json:"elements"`
}

// Config holds the configuration for the file collector.
type Config struct {
	Path     string
	Interval time.Duration
}

// Collector implements the pkg/collectors.Collector interface over a
// snapshot file. The file is re-read on every collection so edits show up
// on the next refresh.
type Collector struct {
	cfg Config

	mu      sync.RWMutex
	healthy bool
}

// New creates a file collector.
func New(cfg Config) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Collector{cfg: cfg, healthy: true}
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "file" }

// Interval returns the configured polling interval.
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Healthy returns true if the last read succeeded.
func (c *Collector) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Collect reads the snapshot and narrows it to the requested namespaces,
// idle-node setting, and focused node.
func (c *Collector) Collect(ctx context.Context, params graph.FetchParams) (*graph.Elements, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := Load(c.cfg.Path)
	c.mu.Lock()
	c.healthy = err == nil
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e := &snap.Elements
	if len(params.Namespaces) > 0 {
		e = e.InNamespaces(params.Namespaces)
	}
	if !params.ShowIdleNodes {
		e = e.WithoutIdle()
	}
	return e.Focus(params.Node).Clone(), nil
}

// Load reads a snapshot file.
func Load(path string) (*Snapshot, error) {
	if path == "" {
		return nil, errors.New("snapshot path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Decode parses a snapshot document and checks that every edge endpoint
// names a node.
func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return &snap, nil
		}
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	seen := make(map[string]bool, len(snap.Elements.Nodes))
	for _, n := range snap.Elements.Nodes {
		if n.ID == "" {
			return nil, errors.New("node without id")
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range snap.Elements.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return nil, fmt.Errorf("edge %q references unknown node", e.ID)
		}
	}
	return &snap, nil
}

// Write encodes a snapshot as YAML.
func Write(w io.Writer, snap *Snapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}
