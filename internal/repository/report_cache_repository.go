package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

// ReportKeyPrefix namespaces every cached report so invalidation never touches other Redis data.
const ReportKeyPrefix = "panel:report:"

// Cached report names.
const (
	ReportSummary = "summary"
)

const invalidateBatch = 100

// ReportCacheRepository stores rendered report aggregates in Redis under ReportKeyPrefix.
// A nil client behaves as an always-empty cache.
type ReportCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewReportCacheRepository constructs the report cache.
func NewReportCacheRepository(client *redis.Client, logger *zap.Logger) *ReportCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCacheRepository{client: client, logger: logger}
}

// ReportKey returns the Redis key of report name.
func ReportKey(name string) string {
	return ReportKeyPrefix + name
}

// Get decodes the cached report into dest. Entries that no longer decode (for example after
// the report shape changed) are dropped and reported as a miss.
func (r *ReportCacheRepository) Get(ctx context.Context, name string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}
	key := ReportKey(name)
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("read report %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("dropping undecodable report", zap.String("report", name), zap.Error(err))
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return fmt.Errorf("drop report %s: %w", name, delErr)
		}
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores report name for ttl.
func (r *ReportCacheRepository) Set(ctx context.Context, name string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", name, err)
	}
	if err := r.client.Set(ctx, ReportKey(name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store report %s: %w", name, err)
	}
	return nil
}

// Invalidate unlinks every cached report and returns how many keys were removed.
func (r *ReportCacheRepository) Invalidate(ctx context.Context) (int, error) {
	if r.client == nil {
		return 0, nil
	}
	removed := 0
	batch := make([]string, 0, invalidateBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("unlink reports: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, ReportKeyPrefix+"*", invalidateBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == invalidateBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan reports: %w", err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}
