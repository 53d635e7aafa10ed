// internal/repository/cache_repository.go
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telemetrygen/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	lastBatchKey   = "telemetry:last_batch"
	batchListKey   = "telemetry:batches"
	cycleCountKey  = "telemetry:cycles"
	batchListLimit = 50
)

// BatchCache keeps summaries of recent batches in Redis.
type BatchCache interface {
	RecordBatch(ctx context.Context, summary models.BatchSummary, ttl time.Duration) error
	LastBatch(ctx context.Context) (*models.BatchSummary, error)
	RecentBatches(ctx context.Context, limit int) ([]models.BatchSummary, error)
	CycleCount(ctx context.Context) (int64, error)
}

type cacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(client *redis.Client) BatchCache {
	return &cacheRepository{client: client}
}

func (r *cacheRepository) RecordBatch(ctx context.Context, summary models.BatchSummary, ttl time.Duration) error {
	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal batch summary: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lastBatchKey, jsonData, ttl)
		pipe.LPush(ctx, batchListKey, jsonData)
		pipe.LTrim(ctx, batchListKey, 0, batchListLimit-1)
		pipe.Incr(ctx, cycleCountKey)
		return nil
	})
	return err
}

// LastBatch returns nil without error when nothing has been recorded.
func (r *cacheRepository) LastBatch(ctx context.Context) (*models.BatchSummary, error) {
	val, err := r.client.Get(ctx, lastBatchKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Ключ не найден
		}
		return nil, err
	}

	var summary models.BatchSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *cacheRepository) RecentBatches(ctx context.Context, limit int) ([]models.BatchSummary, error) {
	if limit < 1 || limit > batchListLimit {
		limit = batchListLimit
	}

	vals, err := r.client.LRange(ctx, batchListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]models.BatchSummary, 0, len(vals))
	for _, val := range vals {
		var summary models.BatchSummary
		if err := json.Unmarshal([]byte(val), &summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *cacheRepository) CycleCount(ctx context.Context) (int64, error) {
	count, err := r.client.Get(ctx, cycleCountKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}
