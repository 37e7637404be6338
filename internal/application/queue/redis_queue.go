// Package queue provides a Redis-backed JobQueue implementation.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	pkgengine "github.com/theuselessai/pipelit/pkg/engine"
)

const (
	readyListKey  = "jobqueue:ready"
	delayedZSetKey = "jobqueue:delayed"
	jobHashPrefix  = "jobqueue:job:"
	dequeueTimeout = 2 * time.Second
)

// RedisQueue implements pkgengine.JobQueue on top of a Redis list (ready
// jobs, FIFO via LPUSH/BRPOP) and a sorted set (delayed jobs, scored by
// ready-at unix time). Dedup-by-id is enforced with a hash keyed by job id:
// Enqueue is a no-op if that key already exists.
type RedisQueue struct {
	client  *redis.Client
	timeout time.Duration
}

var _ pkgengine.JobQueue = (*RedisQueue)(nil)

// NewRedisQueue builds a RedisQueue backed by client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, timeout: dequeueTimeout}
}

func jobKey(id string) string { return jobHashPrefix + id }

// Enqueue schedules job for delivery, returning false if job.ID is already
// queued (dedup per §4.9).
func (q *RedisQueue) Enqueue(ctx context.Context, job pkgengine.Job) (bool, error) {
	blob, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshal job: %w", err)
	}

	set, err := q.client.SetNX(ctx, jobKey(job.ID), blob, 0).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	if !set {
		return false, nil
	}

	if job.NotBefore.After(time.Now()) {
		err = q.client.ZAdd(ctx, delayedZSetKey, redis.Z{
			Score:  float64(job.NotBefore.Unix()),
			Member: job.ID,
		}).Err()
	} else {
		err = q.client.LPush(ctx, readyListKey, job.ID).Err()
	}
	if err != nil {
		return false, fmt.Errorf("schedule job: %w", err)
	}
	return true, nil
}

// promoteDue moves any delayed jobs whose NotBefore has elapsed onto the
// ready list. Called opportunistically before every Dequeue.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := float64(time.Now().Unix())
	due, err := q.client.ZRangeByScore(ctx, delayedZSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed jobs: %w", err)
	}

	for _, id := range due {
		if err := q.client.ZRem(ctx, delayedZSetKey, id).Err(); err != nil {
			return fmt.Errorf("promote delayed job %s: %w", id, err)
		}
		if err := q.client.LPush(ctx, readyListKey, id).Err(); err != nil {
			return fmt.Errorf("promote delayed job %s: %w", id, err)
		}
	}
	return nil
}

// Dequeue blocks up to dequeueTimeout (or the context deadline, whichever
// is sooner) for the next ready job.
func (q *RedisQueue) Dequeue(ctx context.Context) (*pkgengine.Job, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	result, err := q.client.BRPop(ctx, q.timeout, readyListKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	id := result[1]
	blob, err := q.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("dequeued job %s has no stored payload", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	var job pkgengine.Job
	if err := json.Unmarshal(blob, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}

	if err := q.client.Del(ctx, jobKey(id)).Err(); err != nil {
		return nil, fmt.Errorf("clear dedup key for job %s: %w", id, err)
	}
	return &job, nil
}

// Cancel removes a not-yet-delivered job from both the ready list and the
// delayed set.
func (q *RedisQueue) Cancel(ctx context.Context, jobID string) error {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, readyListKey, 0, jobID)
	pipe.ZRem(ctx, delayedZSetKey, jobID)
	pipe.Del(ctx, jobKey(jobID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cancel job %s: %w", jobID, err)
	}
	return nil
}

// Len reports the number of jobs currently queued, ready or delayed.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	ready, err := q.client.LLen(ctx, readyListKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count ready jobs: %w", err)
	}
	delayed, err := q.client.ZCard(ctx, delayedZSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count delayed jobs: %w", err)
	}
	return int(ready + delayed), nil
}
