package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vuxmai/budgetwatch/internal/core/domain"
)

// Dead letters expire after this TTL; the queue is an inspection buffer,
// not permanent archive storage.
const deadLetterTTL = 7 * 24 * time.Hour

// DeadLetterRepo implements storage.DeadLetterRepository using Redis.
type DeadLetterRepo struct {
	rdb       *redis.Client
	namespace string
}

// NewDeadLetterRepo creates a new Redis-backed dead-letter queue.
func NewDeadLetterRepo(client *Client, namespace string) *DeadLetterRepo {
	return &DeadLetterRepo{
		rdb:       client.rdb,
		namespace: namespace,
	}
}

// Key helpers
func (r *DeadLetterRepo) queueKey() string {
	return fmt.Sprintf("dead_letters:%s", r.namespace)
}

func (r *DeadLetterRepo) letterKey(id string) string {
	return fmt.Sprintf("dead_letter:%s:%s", r.namespace, id)
}

func (r *DeadLetterRepo) ignoredKey() string {
	return fmt.Sprintf("dead_letters_ignored:%s", r.namespace)
}

// Add adds a dead letter to the queue.
func (r *DeadLetterRepo) Add(ctx context.Context, dl *domain.DeadLetter) error {
	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := r.rdb.Set(ctx, r.letterKey(dl.ID), data, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}

	// Sorted set keyed by retry count, lower = replay first
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(dl.RetryCount),
		Member: dl.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// GetNext retrieves the next dead letter to replay.
func (r *DeadLetterRepo) GetNext(ctx context.Context) (*domain.DeadLetter, error) {
	results, err := r.rdb.ZRange(ctx, r.queueKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	id := results[0]

	data, err := r.rdb.Get(ctx, r.letterKey(id)).Bytes()
	if err == redis.Nil {
		// Data expired but ID still in queue, remove it
		r.rdb.ZRem(ctx, r.queueKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}

	return &dl, nil
}

// IncrementRetry increments retry count and updates last attempt.
func (r *DeadLetterRepo) IncrementRetry(ctx context.Context, id string) error {
	data, err := r.rdb.Get(ctx, r.letterKey(id)).Bytes()
	if err != nil {
		return fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}

	dl.RetryCount++
	dl.LastAttempt = uint64(time.Now().Unix())

	newData, err := json.Marshal(&dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := r.rdb.Set(ctx, r.letterKey(id), newData, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}

	// Higher retry count = lower replay priority
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(dl.RetryCount),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update queue: %w", err)
	}

	return nil
}

// MarkResolved removes a dead letter (successfully replayed).
func (r *DeadLetterRepo) MarkResolved(ctx context.Context, id string) error {
	if err := r.rdb.ZRem(ctx, r.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	r.rdb.ZRem(ctx, r.ignoredKey(), id)
	if err := r.rdb.Del(ctx, r.letterKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}
	return nil
}

// MarkIgnored moves a dead letter out of the replay queue. The record
// stays readable (until its TTL) so operators can inspect and resolve
// it; only the replay ordering forgets about it.
func (r *DeadLetterRepo) MarkIgnored(ctx context.Context, id string) error {
	data, err := r.rdb.Get(ctx, r.letterKey(id)).Bytes()
	if err != nil {
		return fmt.Errorf("failed to get dead letter: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}

	dl.Status = domain.DeadLetterStatusIgnored
	newData, err := json.Marshal(&dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := r.rdb.Set(ctx, r.letterKey(id), newData, deadLetterTTL).Err(); err != nil {
		return fmt.Errorf("failed to set dead letter: %w", err)
	}

	if err := r.rdb.ZAdd(ctx, r.ignoredKey(), redis.Z{
		Score:  float64(dl.CreatedAt),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to ignored set: %w", err)
	}
	if err := r.rdb.ZRem(ctx, r.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	return nil
}

// GetAll retrieves all dead letters, ignored ones included.
func (r *DeadLetterRepo) GetAll(ctx context.Context) ([]*domain.DeadLetter, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	ignored, err := r.rdb.ZRange(ctx, r.ignoredKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	ids = append(ids, ignored...)

	letters := make([]*domain.DeadLetter, 0, len(ids))
	for _, id := range ids {
		data, err := r.rdb.Get(ctx, r.letterKey(id)).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get dead letter: %w", err)
		}

		var dl domain.DeadLetter
		if err := json.Unmarshal(data, &dl); err != nil {
			continue
		}
		letters = append(letters, &dl)
	}

	return letters, nil
}

// Count returns the replay queue depth, excluding ignored entries.
func (r *DeadLetterRepo) Count(ctx context.Context) (int, error) {
	count, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
