// 包 discover 并发请求各时间窗口的订阅搜索，解码条目链接并按 URL 去重。
package discover

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-news-fetcher/internal/feeds"
	"go-news-fetcher/internal/fetch"
	"go-news-fetcher/internal/logx"
	"go-news-fetcher/internal/model"
)

// SimultaneousRequests 为默认的订阅请求并发上限。
const SimultaneousRequests = 50

const feedBodyLimit = 8 << 20

// Stats 为一次发现过程的计数。Succeeded 只计 HTTP 200，Failed 为请求失败（含非 2xx）。
type Stats struct {
	Queries     int
	Succeeded   int
	Failed      int
	RawLinks    int
	UniqueLinks int
}

// Fetcher 发现器，持有 HTTP 客户端与并发上限。
type Fetcher struct {
	client      *fetch.Client
	concurrency int
	limiter     *rate.Limiter

	mu    sync.Mutex
	stats Stats
}

// New 创建发现器；concurrency<=0 时使用 SimultaneousRequests。
// 重试次数由客户端的 Retry 决定。
func New(cl *fetch.Client, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = SimultaneousRequests
	}
	return &Fetcher{client: cl, concurrency: concurrency}
}

// SetRate 限制每秒发出的订阅请求数（含重试前的首次请求），rps<=0 表示不限速。
func (f *Fetcher) SetRate(rps float64) {
	if rps <= 0 {
		f.limiter = nil
		return
	}
	f.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
}

// Discover 对每个查询发起一次请求（传输失败按客户端配置重试），
// 全部完成后按查询顺序合并并去重。单个查询失败只记录日志。
func (f *Fetcher) Discover(ctx context.Context, queries []model.DatedQuery) (model.UniqueLinkSet, error) {
	perQuery := make([][]model.DiscoveredLink, len(queries))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup
	for i, q := range queries {
		if ctx.Err() != nil {
			break
		}
		i, q := i, q
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			perQuery[i] = f.fetchQuery(ctx, q)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []model.DiscoveredLink
	for _, links := range perQuery {
		raw = append(raw, links...)
	}
	unique := Dedup(raw)

	f.mu.Lock()
	f.stats.Queries += len(queries)
	f.stats.RawLinks += len(raw)
	f.stats.UniqueLinks += len(unique)
	f.mu.Unlock()
	return unique, nil
}

// fetchQuery 请求并解析单个查询，失败返回 nil。
func (f *Fetcher) fetchQuery(ctx context.Context, q model.DatedQuery) []model.DiscoveredLink {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			f.count(false)
			return nil
		}
	}
	page, err := f.client.Fetch(ctx, q.QueryURL, feedBodyLimit)
	if err != nil {
		f.count(false)
		logx.Warn("query dropped", "keyword", q.Keyword, "window_end", q.WindowEnd.Format("2006-01-02"), "attempts", page.Attempts, "err", err)
		return nil
	}
	// 其他 2xx 仍解析，但只有 200 计入成功数
	if page.Status == http.StatusOK {
		f.count(true)
	}
	entries, err := feeds.ParseFeed(bytes.NewReader(page.Body))
	if err != nil {
		logx.Warn("feed parse failed", "keyword", q.Keyword, "url", q.QueryURL, "err", err)
		return nil
	}
	links := make([]model.DiscoveredLink, 0, len(entries))
	for _, e := range entries {
		id := feeds.EncodedID(e)
		if id == "" && e.Link == "" {
			continue
		}
		u := feeds.DecodeRedirect(id, e.Link)
		if u == "" {
			continue
		}
		if id != "" && u == e.Link {
			pub := ""
			if e.Published != nil {
				pub = e.Published.UTC().Format(time.RFC3339)
			}
			logx.Debug("redirect not decoded, using feed link", "keyword", q.Keyword, "title", e.Title, "published", pub, "link", e.Link)
		}
		links = append(links, model.DiscoveredLink{URL: u, Keyword: q.Keyword})
	}
	logx.Debugf("[%s] 窗口 %s 解析到 %d 条链接", q.Keyword, q.WindowEnd.Format("2006-01-02"), len(links))
	return links
}

func (f *Fetcher) count(ok bool) {
	f.mu.Lock()
	if ok {
		f.stats.Succeeded++
	} else {
		f.stats.Failed++
	}
	f.mu.Unlock()
}

// Stats 返回当前计数副本。
func (f *Fetcher) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Dedup 按 URL 去重，保留首次出现的条目及其关键词，顺序不变。
func Dedup(in []model.DiscoveredLink) model.UniqueLinkSet {
	seen := make(map[string]struct{}, len(in))
	out := make(model.UniqueLinkSet, 0, len(in))
	for _, l := range in {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l)
	}
	return out
}
