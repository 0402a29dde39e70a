// Package worker ejecuta en segundo plano las tareas posteriores al commit
// (render y correo de actas): consumidores de la cola Redis y un barrido periódico
// de la tabla de tareas para reintentos.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

const dequeueTimeout = 5 * time.Second

// TaskExecutor ejecuta una tarea por ID (followup.Executor).
type TaskExecutor interface {
	Execute(ctx context.Context, taskID string) error
}

// TaskQueue cola de despacho (queue.RedisQueue).
type TaskQueue interface {
	Enqueue(ctx context.Context, taskID string) error
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
}

// Config parámetros del worker.
type Config struct {
	Interval  time.Duration // periodo del barrido
	BatchSize int           // tareas por barrido
	Workers   int           // consumidores de la cola
	Lease     time.Duration // tiempo que una tarea tomada queda reservada
}

// FollowUpWorker despacha y ejecuta tareas pendientes.
type FollowUpWorker struct {
	tasks    repository.FollowUpRepository
	executor TaskExecutor
	queue    TaskQueue // nil: el barrido ejecuta directamente
	cfg      Config
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewFollowUpWorker construye el worker. queue puede ser nil.
func NewFollowUpWorker(tasks repository.FollowUpRepository, executor TaskExecutor, queue TaskQueue, cfg Config) *FollowUpWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 5 * time.Minute
	}
	return &FollowUpWorker{tasks: tasks, executor: executor, queue: queue, cfg: cfg, now: time.Now}
}

// Start lanza los consumidores y el barrido. Terminan cuando ctx se cancela; Wait espera su salida.
func (w *FollowUpWorker) Start(ctx context.Context) {
	if w.queue != nil {
		for i := 0; i < w.cfg.Workers; i++ {
			w.wg.Add(1)
			go w.consume(ctx, i)
		}
	}
	w.wg.Add(1)
	go w.sweepLoop(ctx)
	log.Info().
		Int("consumers", w.consumers()).
		Dur("interval", w.cfg.Interval).
		Msg("worker: tareas posteriores iniciado")
}

// Wait bloquea hasta que todas las goroutines terminen.
func (w *FollowUpWorker) Wait() {
	w.wg.Wait()
}

func (w *FollowUpWorker) consumers() int {
	if w.queue == nil {
		return 0
	}
	return w.cfg.Workers
}

func (w *FollowUpWorker) consume(ctx context.Context, id int) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("consumer", id).Msg("worker: consumidor detenido")
			return
		default:
		}
		taskID, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Int("consumer", id).Msg("worker: error leyendo la cola")
			sleep(ctx, time.Second)
			continue
		}
		if taskID == "" {
			continue
		}
		w.run(ctx, taskID)
	}
}

func (w *FollowUpWorker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker: barrido detenido")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep toma las tareas vencidas y las encola (o las ejecuta si no hay cola).
// Devuelve cuántas tomó.
func (w *FollowUpWorker) Sweep(ctx context.Context) int {
	due, err := w.tasks.ClaimDue(ctx, w.now().UTC(), w.cfg.Lease, w.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("worker: no se pudieron consultar tareas vencidas")
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	log.Info().Int("count", len(due)).Msg("worker: reintentando tareas")
	for _, t := range due {
		if w.queue != nil {
			err := w.queue.Enqueue(ctx, t.ID)
			if err == nil {
				continue
			}
			log.Warn().Err(err).Str("task_id", t.ID).Msg("worker: cola no disponible, ejecución directa")
		}
		w.run(ctx, t.ID)
	}
	return len(due)
}

func (w *FollowUpWorker) run(ctx context.Context, taskID string) {
	if err := w.executor.Execute(ctx, taskID); err != nil {
		log.Debug().Err(err).Str("task_id", taskID).Msg("worker: tarea fallida, queda para reintento")
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
