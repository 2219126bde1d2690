// Package readiness waits for a dependency to become usable, retrying a
// probe with bounded exponential backoff and caching the first success.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotReady is returned by Wait when the probe never succeeded.
var ErrNotReady = errors.New("readiness: not ready")

// Check probes a dependency. A nil error means ready.
type Check func(ctx context.Context) error

// Config bounds the retry schedule.
type Config struct {
	InitialInterval time.Duration `yaml:"initial_interval" toml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval" toml:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed" toml:"max_elapsed"`
}

// DefaultConfig returns the schedule used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsed:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = d.MaxElapsed
	}
	return c
}

// Gate blocks callers until its check passes once.
type Gate struct {
	name  string
	check Check
	cfg   Config

	mu      sync.Mutex
	pending *attempt
	ready   atomic.Bool
}

// attempt is one retry loop shared by every caller waiting on it. The loop
// is cancelled once its last waiter gives up.
type attempt struct {
	done    chan struct{}
	err     error
	cancel  context.CancelFunc
	waiters int
}

// New returns a gate named name that probes with check.
func New(name string, check Check, cfg Config) *Gate {
	return &Gate{name: name, check: check, cfg: cfg.withDefaults()}
}

// Always returns a gate that is already open.
func Always() *Gate {
	g := &Gate{name: "always"}
	g.ready.Store(true)
	return g
}

// Name returns the gate name.
func (g *Gate) Name() string { return g.name }

// Ready reports whether a previous Wait succeeded.
func (g *Gate) Ready() bool { return g.ready.Load() }

// Wait returns nil once the check has passed. Concurrent callers share a
// single retry loop, but each returns as soon as its own ctx is done. The
// loop gives up after MaxElapsed; a later Wait starts a fresh one.
func (g *Gate) Wait(ctx context.Context) error {
	if g.ready.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotReady, g.name, err)
	}

	g.mu.Lock()
	a := g.pending
	if a == nil {
		a = g.start()
	}
	a.waiters++
	g.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		g.mu.Lock()
		a.waiters--
		if a.waiters == 0 && g.pending == a {
			g.pending = nil
			a.cancel()
		}
		g.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ErrNotReady, g.name, ctx.Err())
	}
}

// start launches a retry loop. g.mu must be held.
func (g *Gate) start() *attempt {
	ctx, cancel := context.WithCancel(context.Background())
	a := &attempt{done: make(chan struct{}), cancel: cancel}
	g.pending = a

	go func() {
		defer cancel()
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = g.cfg.InitialInterval
		b.MaxInterval = g.cfg.MaxInterval
		b.MaxElapsedTime = g.cfg.MaxElapsed
		b.Reset()

		err := backoff.Retry(func() error { return g.check(ctx) }, backoff.WithContext(b, ctx))
		if err != nil {
			a.err = fmt.Errorf("%w: %s: %w", ErrNotReady, g.name, err)
		} else {
			g.ready.Store(true)
		}

		g.mu.Lock()
		if g.pending == a {
			g.pending = nil
		}
		g.mu.Unlock()
		close(a.done)
	}()
	return a
}
