package content

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"go-news-fetcher/internal/config"
	"go-news-fetcher/internal/model"
)

// Scheduler 负责把每个链接交给 fn 执行，全部结束后返回。
// 两种实现共享同一状态机与共享状态，只在调度方式上不同。
type Scheduler interface {
	Run(ctx context.Context, links model.UniqueLinkSet, fn func(context.Context, model.DiscoveredLink)) error
}

// Cooperative 以任务方式调度，同时运行的任务不超过 Limit。
type Cooperative struct {
	Limit int
}

func (c Cooperative) Run(ctx context.Context, links model.UniqueLinkSet, fn func(context.Context, model.DiscoveredLink)) error {
	var g errgroup.Group
	if c.Limit > 0 {
		g.SetLimit(c.Limit)
	}
	for _, l := range links {
		if ctx.Err() != nil {
			break
		}
		l := l
		g.Go(func() error {
			fn(ctx, l)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Parallel 为每个链接启动一个 goroutine，由 Workers 个许可限制真正并发执行的数量。
type Parallel struct {
	Workers int
}

func (p Parallel) Run(ctx context.Context, links model.UniqueLinkSet, fn func(context.Context, model.DiscoveredLink)) error {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	for _, l := range links {
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)
			fn(ctx, l)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// NewScheduler 按模式名创建调度器。
func NewScheduler(mode string, limit, workers int) (Scheduler, error) {
	switch mode {
	case config.ModeCooperative:
		return Cooperative{Limit: limit}, nil
	case config.ModeParallel, "":
		return Parallel{Workers: workers}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMode, mode)
	}
}
