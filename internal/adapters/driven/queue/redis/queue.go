// Package redis provides a job queue backed by Redis lists, for
// deployments where agents run in separate processes. Producers LPUSH a
// JSON envelope; consumers BRPOP, so each queue is FIFO.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// Default configuration values.
const (
	DefaultAddr = "localhost:6379"

	// keyPrefix namespaces the platform's queue keys.
	keyPrefix = "mediflow:queue:"

	// popTimeout bounds each BRPOP so context cancellation is noticed.
	popTimeout = 2 * time.Second
)

// Config holds configuration for the Redis-backed queue.
type Config struct {
	// Addr is the Redis server address (default: localhost:6379).
	Addr string

	// Password is the optional Redis password.
	Password string

	// DB is the Redis database index.
	DB int
}

// Queue is a Redis-backed job queue.
type Queue struct {
	client *redis.Client
}

// NewQueue creates a Redis-backed queue and verifies connectivity.
func NewQueue(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: connecting to %s: %w", cfg.Addr, err)
	}

	return &Queue{client: client}, nil
}

// envelope is the wire format stored in the Redis list.
type envelope struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Enqueue submits a payload to the named queue.
func (q *Queue) Enqueue(ctx context.Context, queue string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("redis: marshalling payload: %w", err)
	}

	env := envelope{
		ID:         uuid.New().String(),
		Payload:    body,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("redis: marshalling envelope: %w", err)
	}

	if err := q.client.LPush(ctx, keyPrefix+queue, data).Err(); err != nil {
		return "", fmt.Errorf("redis: enqueue to %s: %w", queue, err)
	}
	return env.ID, nil
}

// Dequeue blocks until a job is available on the named queue. BRPOP is
// issued in short rounds so a cancelled context returns promptly.
func (q *Queue) Dequeue(ctx context.Context, queue string) (*domain.Job, error) {
	key := keyPrefix + queue

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := q.client.BRPop(ctx, popTimeout, key).Result()
		if errors.Is(err, redis.Nil) {
			continue // timed out, poll again
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis: dequeue from %s: %w", queue, err)
		}

		// BRPOP returns [key, value].
		if len(result) != 2 {
			return nil, fmt.Errorf("redis: unexpected BRPOP reply length %d", len(result))
		}

		var env envelope
		if err := json.Unmarshal([]byte(result[1]), &env); err != nil {
			return nil, fmt.Errorf("redis: parsing envelope: %w", err)
		}

		return &domain.Job{
			ID:         env.ID,
			Queue:      queue,
			Payload:    env.Payload,
			EnqueuedAt: env.EnqueuedAt,
		}, nil
	}
}

// Close releases the Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
