package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// lookupTimeout bounds a single background profile fetch so a slow identity
// store can never pile up goroutines indefinitely.
const lookupTimeout = 2 * time.Second

// Module resolves profile decoration for chat usernames. It satisfies the
// chat module's ProfileSource: Title is a warm-cache read and never blocks;
// Warm triggers a background fetch.
type Module struct {
	source Directory // redis cache-aside when configured, else the directory itself
	rdb    *redis.Client
	warm   sync.Map // username -> Profile
	inWarm sync.Map // username -> struct{}, dedupes in-flight fetches
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a profiles module over dir. If redisAddr is non-empty,
// lookups go through a redis cache-aside layer at that address.
func NewModule(dir Directory, redisAddr string, ttl time.Duration, logger types.Logger) *Module {
	m := &Module{source: dir, logger: logger}
	if redisAddr != "" {
		m.rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		m.source = newRedisCache(m.rdb, dir, "profile:", ttl)
	}
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "profiles"
}

// Start verifies the cache connection when one is configured. A redis
// that is down only disables caching, it does not block startup.
func (m *Module) Start(ctx context.Context) error {
	if m.rdb != nil {
		if err := m.rdb.Ping(ctx).Err(); err != nil {
			m.logger.Warn("Profile cache unreachable, lookups go direct", "error", err)
		}
	}
	m.logger.Info("Profiles module started", "cached", m.rdb != nil)
	return nil
}

// Stop closes the cache connection.
func (m *Module) Stop(_ context.Context) error {
	if m.rdb != nil {
		if err := m.rdb.Close(); err != nil {
			m.logger.Warn("Failed to close profile cache", "error", err)
		}
	}
	m.logger.Info("Profiles module stopped")
	return nil
}

// Health reports cache reachability.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.rdb == nil {
		return mono.HealthStatus{Healthy: true, Message: "operational (no cache)"}
	}
	if err := m.rdb.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: true, Message: "cache unreachable", Details: map[string]any{"error": err.Error()}}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// Title returns the warmed display title for username, or "" when no
// profile has been fetched yet. Never blocks.
func (m *Module) Title(username string) string {
	if v, ok := m.warm.Load(username); ok {
		return v.(Profile).Title
	}
	return ""
}

// Warm starts a background fetch for username unless one is already warm or
// in flight. Returns immediately.
func (m *Module) Warm(username string) {
	if _, ok := m.warm.Load(username); ok {
		return
	}
	if _, inflight := m.inWarm.LoadOrStore(username, struct{}{}); inflight {
		return
	}

	go func() {
		defer m.inWarm.Delete(username)

		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()

		p, err := m.source.Lookup(ctx, username)
		if err != nil {
			// Absent or unreachable profile: no decoration, retry on a
			// later join.
			m.logger.Debug("Profile lookup failed", "username", username, "error", err)
			return
		}
		m.warm.Store(username, p)
	}()
}
