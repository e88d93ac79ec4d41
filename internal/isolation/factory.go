package isolation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"stratum/internal/isolation/metrics"
	"stratum/pkg/domain"
)

var tracer = otel.Tracer("stratum/internal/isolation")

// DBOpener opens a dedicated pool for a DatabaseLevel target. Wired from
// configuration so the control plane owns credentials, not descriptors.
type DBOpener func(descriptor TargetDescriptor) (*sql.DB, error)

// FactoryConfig bounds the adapter cache and its acquisition waits.
type FactoryConfig struct {
	// MaxAdapters caps the cache; inserting past it evicts the least
	// recently used entry.
	MaxAdapters int
	// IdleTTL marks an unused adapter idle; the next sweep evicts it.
	IdleTTL time.Duration
	// SweepInterval is how often Run scans for idle entries.
	SweepInterval time.Duration
	// AcquireTimeout bounds the wait for a pooled connection.
	AcquireTimeout time.Duration
}

func (c *FactoryConfig) withDefaults() {
	if c.MaxAdapters <= 0 {
		c.MaxAdapters = 256
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 15 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
}

// Cached adapter lifecycle. An entry is created in stateResolving, moves to
// stateActive on successful build, decays to stateIdle when the TTL passes
// without use, and is removed from the map when evicted. A failed build
// removes the entry so the next request resolves from scratch.
type entryState uint8

const (
	stateResolving entryState = iota + 1
	stateActive
	stateIdle
)

type adapterKey struct {
	tenantID domain.TenantID
	strategy Strategy
}

func (k adapterKey) String() string {
	return k.tenantID.String() + "/" + k.strategy.String()
}

type cacheEntry struct {
	adapter  Adapter
	state    entryState
	lastUsed time.Time
}

// Factory builds and caches one adapter per (tenant, strategy). Cache access
// is safe under concurrent calls for different tenants; builds for the same
// tenant are de-duplicated through singleflight so at most one is in flight
// per key.
type Factory struct {
	strategy Strategy
	registry Registry
	shared   *sql.DB
	opener   DBOpener
	rls      *RLSManager
	cfg      FactoryConfig

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[adapterKey]*cacheEntry
	sf      singleflight.Group

	builds    uint64
	evictions uint64
}

type FactoryOption func(*Factory)

func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = logger }
}

func WithFactoryMetrics(m *metrics.Metrics) FactoryOption {
	return func(f *Factory) { f.metrics = m }
}

// WithDBOpener wires the per-tenant pool opener used by DatabaseLevel.
func WithDBOpener(opener DBOpener) FactoryOption {
	return func(f *Factory) { f.opener = opener }
}

// NewFactory constructs the adapter factory for the active strategy. The
// shared handle serves TableLevel/SchemaLevel and elevated sessions; the RLS
// manager is required for strategies that bind sessions.
func NewFactory(strategy Strategy, registry Registry, shared *sql.DB, rls *RLSManager, cfg FactoryConfig, opts ...FactoryOption) *Factory {
	cfg.withDefaults()
	f := &Factory{
		strategy: strategy,
		registry: registry,
		shared:   shared,
		rls:      rls,
		cfg:      cfg,
		logger:   slog.Default(),
		entries:  make(map[adapterKey]*cacheEntry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Adapter returns the cached adapter for the tenant, building it on first
// use. The cache never returns an adapter for the wrong tenant: the key is
// the (tenant, strategy) pair and descriptors are checked after resolution.
func (f *Factory) Adapter(ctx context.Context, tenantID domain.TenantID) (Adapter, error) {
	key := adapterKey{tenantID: tenantID, strategy: f.strategy}

	f.mu.Lock()
	if entry, ok := f.entries[key]; ok && entry.state != stateResolving {
		entry.state = stateActive
		entry.lastUsed = time.Now()
		adapter := entry.adapter
		f.mu.Unlock()
		f.metrics.RecordCacheHit()
		return adapter, nil
	}
	f.mu.Unlock()

	f.metrics.RecordCacheMiss()
	built, err, _ := f.sf.Do(key.String(), func() (any, error) {
		return f.build(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return built.(Adapter), nil
}

func (f *Factory) build(ctx context.Context, key adapterKey) (Adapter, error) {
	ctx, span := tracer.Start(ctx, "factory.build")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", key.tenantID.String()),
		attribute.String("isolation.strategy", key.strategy.String()),
	)

	// Re-check under the lock: another singleflight round may have built it
	// between our miss and this call.
	f.mu.Lock()
	if entry, ok := f.entries[key]; ok && entry.state != stateResolving {
		entry.lastUsed = time.Now()
		adapter := entry.adapter
		f.mu.Unlock()
		return adapter, nil
	}
	f.entries[key] = &cacheEntry{state: stateResolving, lastUsed: time.Now()}
	f.mu.Unlock()

	start := time.Now()
	descriptor, err := f.registry.ResolveTarget(ctx, key.tenantID, key.strategy)
	f.metrics.ObserveRegistryResolve(start)
	if err != nil {
		f.dropEntry(key)
		return nil, &AdapterResolutionError{TenantID: key.tenantID, Err: err}
	}
	if descriptor.TenantID != key.tenantID {
		f.dropEntry(key)
		return nil, &AdapterResolutionError{
			TenantID: key.tenantID,
			Err:      fmt.Errorf("registry returned descriptor for tenant %s", descriptor.TenantID),
		}
	}

	adapter, err := f.newAdapter(descriptor)
	if err != nil {
		f.dropEntry(key)
		return nil, &AdapterResolutionError{TenantID: key.tenantID, Err: err}
	}

	f.mu.Lock()
	f.entries[key] = &cacheEntry{adapter: adapter, state: stateActive, lastUsed: time.Now()}
	f.builds++
	f.enforceCapLocked()
	size := len(f.entries)
	f.mu.Unlock()

	f.metrics.RecordBuild()
	f.metrics.SetActive(size)
	f.logger.InfoContext(ctx, "tenant adapter built",
		"tenant_id", key.tenantID.String(),
		"strategy", key.strategy.String(),
		"physical_target", descriptor.PhysicalTarget(),
	)
	return adapter, nil
}

// newAdapter is the strategy dispatch; the switch is exhaustive over the
// closed set.
func (f *Factory) newAdapter(descriptor TargetDescriptor) (Adapter, error) {
	switch f.strategy {
	case TableLevel:
		return &tableAdapter{
			tenantID: descriptor.TenantID,
			shared:   f.shared,
			rls:      f.rls,
			wait:     f.cfg.AcquireTimeout,
		}, nil
	case SchemaLevel:
		if descriptor.SchemaName == "" {
			return nil, fmt.Errorf("descriptor has no schema name")
		}
		return &schemaAdapter{
			tenantID: descriptor.TenantID,
			schema:   descriptor.SchemaName,
			shared:   f.shared,
			rls:      f.rls,
			wait:     f.cfg.AcquireTimeout,
		}, nil
	case DatabaseLevel:
		if descriptor.DatabaseName == "" {
			return nil, fmt.Errorf("descriptor has no database name")
		}
		if f.opener == nil {
			return nil, fmt.Errorf("database_level requires a DB opener")
		}
		db, err := f.opener(descriptor)
		if err != nil {
			return nil, fmt.Errorf("open tenant database %s: %w", descriptor.DatabaseName, err)
		}
		return &databaseAdapter{
			tenantID: descriptor.TenantID,
			db:       db,
			wait:     f.cfg.AcquireTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("unhandled isolation strategy %v", f.strategy)
	}
}

func (f *Factory) dropEntry(key adapterKey) {
	f.mu.Lock()
	delete(f.entries, key)
	f.mu.Unlock()
}

// enforceCapLocked evicts least-recently-used entries while over capacity.
// Caller holds f.mu.
func (f *Factory) enforceCapLocked() {
	for len(f.entries) > f.cfg.MaxAdapters {
		var oldestKey adapterKey
		var oldest *cacheEntry
		for key, entry := range f.entries {
			if entry.state == stateResolving {
				continue
			}
			if oldest == nil || entry.lastUsed.Before(oldest.lastUsed) {
				oldestKey, oldest = key, entry
			}
		}
		if oldest == nil {
			return
		}
		f.evictLocked(oldestKey, oldest, "lru")
	}
}

// evictLocked removes an entry and releases owned resources. Caller holds
// f.mu.
func (f *Factory) evictLocked(key adapterKey, entry *cacheEntry, reason string) {
	delete(f.entries, key)
	f.evictions++
	f.metrics.RecordEviction(reason)
	if entry.adapter != nil {
		if err := entry.adapter.Close(); err != nil {
			f.logger.Warn("adapter close failed",
				"tenant_id", key.tenantID.String(),
				"reason", reason,
				"error", err,
			)
		}
	}
}

// Evict removes the tenant's adapter immediately, closing owned resources.
// Called on tenant deactivation so a suspended tenant stops resolving.
func (f *Factory) Evict(tenantID domain.TenantID) {
	key := adapterKey{tenantID: tenantID, strategy: f.strategy}
	f.mu.Lock()
	if entry, ok := f.entries[key]; ok {
		f.evictLocked(key, entry, "explicit")
	}
	size := len(f.entries)
	f.mu.Unlock()
	f.metrics.SetActive(size)
}

// Run sweeps the cache on an interval: entries unused past the idle TTL are
// marked idle on one pass and evicted on the next. Blocks until the context
// is canceled.
func (f *Factory) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.sweep()
		}
	}
}

func (f *Factory) sweep() {
	cutoff := time.Now().Add(-f.cfg.IdleTTL)
	f.mu.Lock()
	for key, entry := range f.entries {
		if entry.state == stateResolving || entry.lastUsed.After(cutoff) {
			continue
		}
		switch entry.state {
		case stateActive:
			entry.state = stateIdle
		case stateIdle:
			f.evictLocked(key, entry, "idle")
		}
	}
	size := len(f.entries)
	f.mu.Unlock()
	f.metrics.SetActive(size)
}

// ElevatedSession hands out an unbound session on the shared pool for
// explicitly elevated operations. Only TableLevel keeps every tenant's rows
// reachable from a single unqualified query: SchemaLevel rows live in
// per-tenant schemas the default search_path never sees, and DatabaseLevel
// has no shared data plane at all. Both are refused rather than returning
// an answer that could not have covered any tenant.
func (f *Factory) ElevatedSession(ctx context.Context) (*Session, error) {
	if f.strategy != TableLevel {
		return nil, fmt.Errorf("cross-tenant queries are not available under %s isolation", f.strategy)
	}
	conn, err := acquireConn(ctx, f.shared, domain.TenantID{}, f.cfg.AcquireTimeout)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn}, nil
}

// Stats is the read-only ops surface: cache size, per-tenant connection
// counts, build and eviction totals.
type Stats struct {
	Strategy        string         `json:"strategy"`
	CacheSize       int            `json:"cache_size"`
	Builds          uint64         `json:"builds"`
	Evictions       uint64         `json:"evictions"`
	SharedOpenConns int            `json:"shared_open_conns"`
	SharedInUse     int            `json:"shared_in_use"`
	PerTenantConns  map[string]int `json:"per_tenant_conns,omitempty"`
}

func (f *Factory) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := Stats{
		Strategy:  f.strategy.String(),
		CacheSize: len(f.entries),
		Builds:    f.builds,
		Evictions: f.evictions,
	}
	if f.shared != nil {
		dbStats := f.shared.Stats()
		stats.SharedOpenConns = dbStats.OpenConnections
		stats.SharedInUse = dbStats.InUse
	}
	for key, entry := range f.entries {
		owned, ok := entry.adapter.(*databaseAdapter)
		if !ok {
			continue
		}
		if stats.PerTenantConns == nil {
			stats.PerTenantConns = make(map[string]int)
		}
		stats.PerTenantConns[key.tenantID.String()] = owned.Stats().OpenConnections
	}
	return stats
}

// HealthCheck pings the shared pool and every cached adapter concurrently.
func (f *Factory) HealthCheck(ctx context.Context) error {
	f.mu.Lock()
	adapters := make([]Adapter, 0, len(f.entries))
	for _, entry := range f.entries {
		if entry.adapter != nil {
			adapters = append(adapters, entry.adapter)
		}
	}
	f.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	if f.shared != nil {
		g.Go(func() error { return f.shared.PingContext(ctx) })
	}
	for _, adapter := range adapters {
		g.Go(func() error { return adapter.Healthy(ctx) })
	}
	return g.Wait()
}

// Close evicts everything, releasing all owned pools. Used on shutdown.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, entry := range f.entries {
		f.evictLocked(key, entry, "shutdown")
	}
	return nil
}
