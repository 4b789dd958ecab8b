package flags

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sources reported in Decision.Source.
const (
	SourceCache = "cache"
	SourceStore = "store"
	SourceError = "error"
)

var gateReads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feature_gate_reads_total",
		Help: "Feature gate reads by flag and source (cache, store, error).",
	},
	[]string{"flag", "source"},
)

func init() {
	prometheus.MustRegister(gateReads)
}

// Decision is the outcome of a gate check. Degraded is set when the gate
// failed closed because the store could not be read.
type Decision struct {
	Flag     string
	Enabled  bool
	Degraded bool
	Source   string
}

type entry struct {
	value     bool
	expiresAt time.Time
}

// Gate caches flag values for a fixed TTL. It is safe for concurrent use.
type Gate struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	// gen is bumped on every invalidation so a read that started before the
	// invalidation cannot repopulate the cache with the old value.
	gen map[string]uint64
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock overrides the clock used for TTL expiry.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithStoreTimeout bounds every store call made by the gate.
func WithStoreTimeout(d time.Duration) GateOption {
	return func(g *Gate) { g.timeout = d }
}

// WithLogger sets the logger used for fail-closed reports.
func WithLogger(l zerolog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate builds a gate over store with the given cache TTL.
func NewGate(store Store, ttl time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		store:   store,
		ttl:     ttl,
		timeout: 2 * time.Second,
		now:     time.Now,
		logger:  log.Logger,
		entries: make(map[string]entry),
		gen:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsEnabled reports whether flag is on. It never returns an error: store
// failures read as disabled.
func (g *Gate) IsEnabled(ctx context.Context, flag string) bool {
	return g.Check(ctx, flag).Enabled
}

// Check returns the full decision for flag, distinguishing a disabled flag
// from a store failure.
func (g *Gate) Check(ctx context.Context, flag string) Decision {
	now := g.now()

	g.mu.RLock()
	e, ok := g.entries[flag]
	gen := g.gen[flag]
	g.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		gateReads.WithLabelValues(flag, SourceCache).Inc()
		return Decision{Flag: flag, Enabled: e.value, Source: SourceCache}
	}

	v, err := g.read(ctx, flag)
	if err != nil {
		gateReads.WithLabelValues(flag, SourceError).Inc()
		g.logger.Warn().Err(err).Str("flag", flag).Msg("feature gate read failed; treating flag as disabled")
		return Decision{Flag: flag, Degraded: true, Source: SourceError}
	}

	g.mu.Lock()
	if g.gen[flag] == gen {
		g.entries[flag] = entry{value: v, expiresAt: now.Add(g.ttl)}
	}
	g.mu.Unlock()

	gateReads.WithLabelValues(flag, SourceStore).Inc()
	return Decision{Flag: flag, Enabled: v, Source: SourceStore}
}

func (g *Gate) read(ctx context.Context, flag string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		v   bool
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := g.store.Get(ctx, flag)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return false, fmt.Errorf("read flag %q: %w", flag, ctx.Err())
	}
}

// Set writes flag through to the store and then drops the cached entry, so
// the next check reads the new value. The entry is dropped even when the
// write fails because the stored value is then unknown.
func (g *Gate) Set(ctx context.Context, flag string, enabled bool, actor string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.store.Set(ctx, flag, enabled, actor)
	g.Invalidate(flag)
	if err != nil {
		return fmt.Errorf("write flag %q: %w", flag, err)
	}
	g.logger.Info().Str("flag", flag).Bool("enabled", enabled).Str("actor", actor).Msg("feature flag updated")
	return nil
}

// Invalidate drops the cached value of flag. External writers that bypass Set
// must call it after writing the store.
func (g *Gate) Invalidate(flag string) {
	g.mu.Lock()
	delete(g.entries, flag)
	g.gen[flag]++
	g.mu.Unlock()
}
