// 包 content 负责正文抓取阶段：
// - 每个链接依次尝试主路径（抽取器直接抓取）与回退路径（浏览器 UA 抓取后抽取），均失败记为拒绝
// - 成功记录进入共享缓冲，达到批次大小即同步落盘
// - 调度方式（cooperative/parallel）可替换，状态机与共享状态不变
package content

import (
	"context"
	"errors"
	"time"

	"go-news-fetcher/internal/extract"
	"go-news-fetcher/internal/fetch"
	"go-news-fetcher/internal/logx"
	"go-news-fetcher/internal/model"
)

const pageLimit = 8 << 20

// Fetcher 正文抓取器。
type Fetcher struct {
	extractor extract.Extractor
	// fallback 为回退路径使用的客户端（浏览器 UA，单次尝试）。
	fallback  *fetch.Client
	scheduler Scheduler
	robots    Gate
	state     *state
	now       func() time.Time
}

// Gate 判断链接是否允许抓取（fetch.Robots）。
type Gate interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Options 为抓取器参数。
type Options struct {
	BatchSize int
	Scheduler Scheduler
	// Robots 为空时不检查 robots.txt。
	Robots Gate
	// Now 用于时间归一化，默认 time.Now。
	Now func() time.Time
}

// New 创建抓取器。
func New(ex extract.Extractor, fallback *fetch.Client, p Persister, opts Options) (*Fetcher, error) {
	if ex == nil || fallback == nil || p == nil {
		return nil, errors.New("content: extractor, fallback client and persister are required")
	}
	sch := opts.Scheduler
	if sch == nil {
		sch = Parallel{Workers: 5}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Fetcher{
		extractor: ex,
		fallback:  fallback,
		scheduler: sch,
		robots:    opts.Robots,
		state:     newState(opts.BatchSize, p),
		now:       now,
	}, nil
}

// FetchAll 处理全部链接；单个链接的失败不会中断运行，仅在 ctx 取消时返回错误。
func (f *Fetcher) FetchAll(ctx context.Context, links model.UniqueLinkSet) (Stats, error) {
	err := f.scheduler.Run(ctx, links, f.fetchOne)
	st, _ := f.state.snapshot()
	return st, err
}

// Finish 写出剩余记录与拒绝链接，返回最终计数。
func (f *Fetcher) Finish(ctx context.Context) (Stats, error) {
	return f.state.finish(ctx)
}

// Rejected 返回当前拒绝链接的副本。
func (f *Fetcher) Rejected() []model.RejectedURL {
	_, rej := f.state.snapshot()
	return rej
}

// fetchOne 为单个链接的状态机：Primary -> Fallback -> Rejected。
func (f *Fetcher) fetchOne(ctx context.Context, link model.DiscoveredLink) {
	if ctx.Err() != nil {
		return
	}
	if f.robots != nil && !f.robots.Allowed(ctx, link.URL) {
		logx.Info("url disallowed by robots.txt", "url", link.URL, "keyword", link.Keyword)
		f.state.settle(ctx, outcome{kind: outcomeRejected, disallowed: true, rejected: model.RejectedURL{URL: link.URL, Keyword: link.Keyword}})
		return
	}
	res, err := f.extractor.FromURL(ctx, link.URL)
	usedFallback := false
	if err != nil {
		logx.Debug("primary extraction failed", "url", link.URL, "err", err)
		if ctx.Err() != nil {
			return
		}
		usedFallback = true
		res, err = f.fetchFallback(ctx, link.URL)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logx.Warn("url rejected", "url", link.URL, "keyword", link.Keyword, "err", err)
			f.state.settle(ctx, outcome{kind: outcomeRejected, rejected: model.RejectedURL{URL: link.URL, Keyword: link.Keyword}})
			return
		}
	}
	rec, ok := extract.BuildRecord(res, link.URL, link.Keyword, f.now())
	if !ok {
		logx.Warn("empty extraction", "url", link.URL, "fallback", usedFallback, "has_title", res.Title != "", "has_text", res.Text != "")
		f.state.settle(ctx, outcome{kind: outcomeEmpty, fallback: usedFallback})
		return
	}
	f.state.settle(ctx, outcome{kind: outcomeRecord, fallback: usedFallback, record: rec})
}

// fetchFallback 以浏览器 UA 抓取页面并交给抽取器解析。
func (f *Fetcher) fetchFallback(ctx context.Context, pageURL string) (extract.Result, error) {
	body, _, err := f.fallback.FetchBody(ctx, pageURL, pageLimit)
	if err != nil {
		return extract.Result{}, err
	}
	return f.extractor.FromHTML(body, pageURL)
}
