package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/seeclickbuy/backend/logger"
)

const pendingKey = "seeclickbuy:jobs"

// Redis implements Enqueuer and Consumer on a Redis list pair.
type Redis struct {
	rdb        *goredis.Client
	log        *logger.Logger
	processing string
}

// NewRedis dials Redis and pings it. workerID scopes the processing list; the
// API server, which only enqueues, can pass an empty one.
func NewRedis(addr, workerID string, log *logger.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	processing := ""
	if workerID != "" {
		processing = pendingKey + ":processing:" + workerID
	}
	return &Redis{
		rdb:        rdb,
		log:        log.With("service", "JobQueue"),
		processing: processing,
	}, nil
}

func (q *Redis) Close() error {
	return q.rdb.Close()
}

func (q *Redis) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.EnqueuedAt == 0 {
		job.EnqueuedAt = time.Now().Unix()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, pendingKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	q.log.Info("job enqueued", "job_id", job.ID, "kind", job.Kind, "click_id", job.ClickID)
	return nil
}

func (q *Redis) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	if q.processing == "" {
		return nil, fmt.Errorf("queue has no worker id, cannot consume")
	}
	raw, err := q.rdb.BLMove(ctx, pendingKey, q.processing, "RIGHT", "LEFT", timeout).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Drop the undecodable payload so it cannot wedge the list.
		_ = q.rdb.LRem(ctx, q.processing, 1, raw).Err()
		return nil, fmt.Errorf("failed to decode job payload: %w", err)
	}
	job.raw = raw
	return &job, nil
}

func (q *Redis) Ack(ctx context.Context, job *Job) error {
	if job == nil || job.raw == "" {
		return nil
	}
	if err := q.rdb.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, err)
	}
	return nil
}

func (q *Redis) Reclaim(ctx context.Context) (int, error) {
	if q.processing == "" {
		return 0, nil
	}
	moved := 0
	for {
		_, err := q.rdb.LMove(ctx, q.processing, pendingKey, "RIGHT", "LEFT").Result()
		if err == goredis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to reclaim jobs: %w", err)
		}
		moved++
	}
}
