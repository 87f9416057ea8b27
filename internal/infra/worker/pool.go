package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// ErrStopped is returned by RunAll once Stop has been called.
var ErrStopped = errors.New("worker pool stopped")

// Pool runs batches of reconcile work on a fixed set of goroutines so a large
// pass cannot open more database connections than there are workers.
type Pool struct {
	size  int
	queue chan func()
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
	log   *zerolog.Logger
}

func NewPool(size int, logger *zerolog.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	l := logger.With().Str("component", "WorkerPool").Int("size", size).Logger()
	return &Pool{size: size, queue: make(chan func()), quit: make(chan struct{}), log: &l}
}

// Start launches the workers; they exit when ctx ends or Stop is called.
// Tasks run under the context handed to RunAll, not this one.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case run := <-p.queue:
					run()
				}
			}
		}()
	}
	p.log.Debug().Msg("worker pool started")
}

func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Size() int { return p.size }

// RunAll blocks until every task has run and returns their errors joined.
// A panicking task is reported as an error instead of killing its worker.
func (p *Pool) RunAll(ctx context.Context, tasks ...func(context.Context) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i, task := range tasks {
		wg.Add(1)
		run := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error().Interface("panic", r).Int("task", i).Msg("task panicked")
					record(fmt.Errorf("task %d panicked: %v", i, r))
				}
			}()
			if err := task(ctx); err != nil {
				record(err)
			}
		}
		select {
		case p.queue <- run:
		case <-ctx.Done():
			wg.Done()
			wg.Wait()
			return ctx.Err()
		case <-p.quit:
			wg.Done()
			wg.Wait()
			return ErrStopped
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}
