// Package queue despacha tareas posteriores al commit por listas de Redis.
// La tabla followup_tasks sigue siendo la fuente de verdad; si Redis no está,
// el barrido periódico del worker las recoge igual.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
)

const (
	KeyFollowUp = "jobs:followup"
	DLQPrefix   = "dlq:"
)

var _ ports.TaskQueue = (*RedisQueue)(nil)

// DLQEntry tarea descartada, guardada para revisión manual.
type DLQEntry struct {
	TaskID   string `json:"task_id"`
	Reason   string `json:"reason"`
	FailedAt string `json:"failed_at"` // RFC 3339
}

// NewRedis crea el cliente y valida la conexión.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// RedisQueue implementa ports.TaskQueue con LPUSH/BRPOP.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue usa la lista KeyFollowUp.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: KeyFollowUp}
}

// Enqueue agrega la tarea a la cola.
func (q *RedisQueue) Enqueue(ctx context.Context, taskID string) error {
	if err := q.rdb.LPush(ctx, q.key, taskID).Err(); err != nil {
		return fmt.Errorf("redis: encolar: %w", err)
	}
	return nil
}

// Dequeue bloquea hasta timeout esperando una tarea. Devuelve "" sin error si no llegó nada.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: desencolar: %w", err)
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

// DeadLetter guarda la tarea agotada en dlq:jobs:followup.
func (q *RedisQueue) DeadLetter(ctx context.Context, taskID, reason string) error {
	data, err := json.Marshal(DLQEntry{
		TaskID:   taskID,
		Reason:   reason,
		FailedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, DLQPrefix+q.key, data).Err(); err != nil {
		return fmt.Errorf("redis: dlq: %w", err)
	}
	log.Warn().Str("task_id", taskID).Str("reason", reason).Msg("queue: tarea enviada a la cola de descartes")
	return nil
}

// DLQLength tamaño de la cola de descartes, para el health check.
func (q *RedisQueue) DLQLength(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, DLQPrefix+q.key).Result()
}

// Ping verifica la conexión.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
