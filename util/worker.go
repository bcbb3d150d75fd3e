package util

import (
	"context"
	"sync"

	"github.com/mohitkumar/loanwizard/logger"
	"go.uber.org/zap"
)

// Worker runs submitted tasks one at a time, in submission order, on a
// single goroutine. The context passed to the handler is cancelled by Stop.
type Worker[T any] struct {
	name     string
	wg       *sync.WaitGroup
	handler  func(context.Context, T) error
	taskChan chan T
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func NewWorker[T any](name string, wg *sync.WaitGroup, handler func(context.Context, T) error, capacity int) *Worker[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker[T]{
		name:     name,
		wg:       wg,
		handler:  handler,
		taskChan: make(chan T, capacity),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Worker[T]) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case task := <-w.taskChan:
				if err := w.handler(w.ctx, task); err != nil {
					logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Error(err))
				}
			case <-w.ctx.Done():
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

// Submit enqueues task and reports false when the queue is full or the
// worker has stopped.
func (w *Worker[T]) Submit(task T) bool {
	if w.ctx.Err() != nil {
		return false
	}
	select {
	case w.taskChan <- task:
		return true
	default:
		return false
	}
}

func (w *Worker[T]) Pending() int {
	return len(w.taskChan)
}

func (w *Worker[T]) Stop() {
	w.stopOnce.Do(w.cancel)
}
