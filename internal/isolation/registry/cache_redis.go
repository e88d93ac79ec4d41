package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stratum/internal/isolation"
	"stratum/pkg/domain"
	"stratum/pkg/platform/circuit"
)

const redisKeyPrefix = "stratum:tenant-target:"

// RedisCached decorates a registry with a shared Redis cache so a fleet of
// nodes resolves each tenant once, not once per node. Same TTL discipline as
// the in-process cache; misses and errors fall through to the inner
// registry.
//
// Redis is an optimization, never a dependency: a circuit breaker skips it
// entirely after repeated failures so a dead cache does not add a timeout to
// every resolution.
type RedisCached struct {
	inner   isolation.Registry
	client  *redis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewRedisCached(inner isolation.Registry, client *redis.Client, ttl time.Duration) *RedisCached {
	return &RedisCached{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("registry-redis", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(2)),
		logger:  slog.Default(),
	}
}

type cachedDescriptor struct {
	TenantID     string `json:"tenant_id"`
	SchemaName   string `json:"schema_name,omitempty"`
	DatabaseName string `json:"database_name,omitempty"`
}

func (r *RedisCached) ResolveTarget(ctx context.Context, tenantID domain.TenantID, strategy isolation.Strategy) (isolation.TargetDescriptor, error) {
	key := redisKeyPrefix + tenantID.String() + ":" + strategy.String()

	if !r.breaker.IsOpen() {
		raw, err := r.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			r.recordSuccess()
			var cached cachedDescriptor
			if err := json.Unmarshal(raw, &cached); err == nil {
				return isolation.TargetDescriptor{
					TenantID:     tenantID,
					Strategy:     strategy,
					SchemaName:   cached.SchemaName,
					DatabaseName: cached.DatabaseName,
				}, nil
			}
			// Corrupt entry: fall through and rewrite it.
		case errors.Is(err, redis.Nil):
			r.recordSuccess()
		default:
			r.recordFailure(err)
		}
	}

	descriptor, err := r.inner.ResolveTarget(ctx, tenantID, strategy)
	if err != nil {
		return isolation.TargetDescriptor{}, err
	}

	// The write-back runs even while the circuit is open: it doubles as the
	// probe that closes the circuit once Redis heals, and its outcome is not
	// on the read path.
	payload, merr := json.Marshal(cachedDescriptor{
		TenantID:     descriptor.TenantID.String(),
		SchemaName:   descriptor.SchemaName,
		DatabaseName: descriptor.DatabaseName,
	})
	if merr == nil {
		if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			r.recordFailure(err)
		} else {
			r.recordSuccess()
		}
	}
	return descriptor, nil
}

// Invalidate drops a tenant's cached descriptors on all strategies.
func (r *RedisCached) Invalidate(ctx context.Context, tenantID domain.TenantID) error {
	keys := make([]string, 0, 3)
	for _, strategy := range []isolation.Strategy{isolation.TableLevel, isolation.SchemaLevel, isolation.DatabaseLevel} {
		keys = append(keys, redisKeyPrefix+tenantID.String()+":"+strategy.String())
	}
	err := r.client.Del(ctx, keys...).Err()
	if err != nil {
		r.recordFailure(err)
		return err
	}
	r.recordSuccess()
	return nil
}

func (r *RedisCached) recordFailure(err error) {
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.Warn("registry redis cache circuit opened, resolving direct",
			"breaker", r.breaker.Name(),
			"error", err.Error(),
		)
	}
}

func (r *RedisCached) recordSuccess() {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.Info("registry redis cache circuit closed",
			"breaker", r.breaker.Name(),
		)
	}
}
