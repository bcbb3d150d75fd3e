package util

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/loanwizard/logger"
	"go.uber.org/zap"
)

// TickWorker calls fn every interval until stopped. Ticks that arrive
// while fn is running are dropped.
type TickWorker struct {
	tickInterval time.Duration
	wg           *sync.WaitGroup
	name         string
	fn           func(ctx context.Context)
	ctx          context.Context
	cancel       context.CancelFunc
	stopOnce     sync.Once
}

func NewTickWorker(name string, interval time.Duration, fn func(ctx context.Context), wg *sync.WaitGroup) *TickWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &TickWorker{
		tickInterval: interval,
		wg:           wg,
		fn:           fn,
		name:         name,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (tw *TickWorker) Start() {
	ticker := time.NewTicker(tw.tickInterval)
	tw.wg.Add(1)
	go func() {
		defer tw.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tw.fn(tw.ctx)
			case <-tw.ctx.Done():
				logger.Info("stopping tick worker", zap.String("worker", tw.name))
				return
			}
		}
	}()
	logger.Info("tick worker started", zap.String("worker", tw.name), zap.Duration("interval", tw.tickInterval))
}

func (tw *TickWorker) Stop() error {
	tw.stopOnce.Do(tw.cancel)
	return nil
}
