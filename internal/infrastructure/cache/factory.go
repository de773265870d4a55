package cache

import (
	"fmt"

	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/farmlink/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore creates an idempotency store for payment callback
// deduplication. It tries Redis first and falls back to the in-memory store
// when Redis is unavailable, which is acceptable only for single-instance
// deployments.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("using Redis idempotency store")
		return store, nil
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
		"This may cause duplicate callback processing in distributed deployments.",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}

// NewRequiredIdempotencyStore creates a Redis idempotency store and fails
// when Redis is unavailable. Use in deployments with more than one instance.
func NewRequiredIdempotencyStore(cfg config.RedisConfig) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis required for callback deduplication: %w", err)
	}
	return store, nil
}
