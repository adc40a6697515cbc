package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerTask es una unidad de trabajo; en el runner, un mercado.
type WorkerTask struct {
	Name string
	Run  func(ctx context.Context)
}

type WorkerPool struct {
	jobs    chan WorkerTask
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWorkerPool crea un pool con workers goroutines y una cola de queueSize.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &WorkerPool{
		jobs:    make(chan WorkerTask, queueSize),
		workers: workers,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Enqueue bloquea si la cola está llena.
func (wp *WorkerPool) Enqueue(task WorkerTask) {
	wp.jobs <- task
}

// Close deja de aceptar tareas; los workers terminan al vaciar la cola.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() { close(wp.jobs) })
}

// Wait espera a que todos los workers salgan.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	zap.L().Debug("worker iniciado", zap.Int("id", id))

	for {
		select {
		case <-ctx.Done():
			zap.L().Warn("worker apagado", zap.Int("id", id))
			return

		case task, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.run(ctx, id, task)
		}
	}
}

func (wp *WorkerPool) run(ctx context.Context, id int, task WorkerTask) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("worker task panicked",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Any("panic", rec),
			)
		}
	}()
	task.Run(ctx)
}
