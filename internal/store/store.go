package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/config"
	"github.com/surstitch/leadboard/internal/leads"
)

// Loader produces a fresh table. *source.Loader implements it.
type Loader interface {
	Load(ctx context.Context) (*leads.Table, error)
}

// State is the dataset as of the last reload, together with its full-table
// KPIs. Tables are immutable, so a State can be shared freely.
type State struct {
	Table    *leads.Table
	Snapshot compute.Snapshot
	Health   compute.HealthScore
	LoadedAt time.Time

	// LoadError is the user-visible message of the last failed load, or ""
	// if the last load succeeded. After a failure Table is empty.
	LoadError string

	// Reloads counts every load attempt; Failures counts the failed ones.
	Reloads  int
	Failures int
}

// Rows returns the number of rows in the current table.
func (s State) Rows() int { return s.Table.Len() }

// Store is a thread-safe holder of the current dataset. Reload swaps the
// table atomically; readers never see a half-loaded state.
type Store struct {
	loader Loader
	engine *compute.Engine

	mu    sync.RWMutex
	state State
	subs  []func(State)
	now   func() time.Time // injectable for deterministic tests

	reloadMu sync.Mutex // serialises Reload
}

// New creates a Store that reads through loader and computes KPIs with
// engine. The store starts empty; call Reload to load the dataset.
func New(loader Loader, engine *compute.Engine) *Store {
	s := &Store{
		loader: loader,
		engine: engine,
		now:    time.Now,
	}
	s.state = State{
		Table:    leads.Select(nil, nil),
		Snapshot: compute.Empty(),
		Health:   compute.Health(compute.Empty()),
	}
	return s
}

// Engine returns the engine the store computes with.
func (s *Store) Engine() *compute.Engine { return s.engine }

// Current returns the state as of the last reload.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Process filters the current table and computes both snapshots.
func (s *Store) Process(f compute.Filters) *compute.Result {
	st := s.Current()
	return s.engine.Process(st.Table, f, s.now().UTC())
}

// OnReload registers fn to be called after every reload, successful or not.
// Callbacks run synchronously on the reloading goroutine, outside the lock.
func (s *Store) OnReload(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Reload reads the dataset and replaces the current state. On a load error
// the store keeps running on an empty table and records the message; the
// error is also returned to the caller.
func (s *Store) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	tbl, err := s.loader.Load(ctx)

	s.mu.Lock()
	prev := s.state
	next := State{
		LoadedAt: s.now().UTC(),
		Reloads:  prev.Reloads + 1,
		Failures: prev.Failures,
	}
	if err != nil {
		next.Table = leads.Select(nil, nil)
		next.LoadError = err.Error()
		next.Failures++
	} else {
		next.Table = tbl
	}
	next.Snapshot = s.engine.Metrics(next.Table)
	next.Health = compute.Health(next.Snapshot)
	s.state = next
	subs := append(([]func(State))(nil), s.subs...)
	s.mu.Unlock()

	if err != nil {
		slog.Error("store: reload failed", "err", err, "failures", next.Failures)
	} else {
		slog.Info("store: reloaded",
			"rows", next.Rows(),
			"columns", len(next.Table.Columns()),
			"health", next.Health.Score,
		)
	}

	for _, fn := range subs {
		fn(next)
	}
	return err
}

// Watch reloads the store every time the file at path changes. It blocks
// until ctx is cancelled.
func (s *Store) Watch(ctx context.Context, path string) error {
	return config.WatchFile(ctx, path, func() {
		_ = s.Reload(ctx)
	})
}

// Run reloads the store on every tick of interval. It blocks until ctx is
// cancelled. A non-positive interval returns immediately.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Reload(ctx)
		}
	}
}
