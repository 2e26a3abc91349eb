// 包 aggregate 负责主流程编排：
// - 校验配置并生成查询窗口（配置错误在任何网络请求前返回）
// - 并发发现文章链接并去重
// - 并发抓取正文、分批落盘、写出拒绝链接与统计
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"go-news-fetcher/internal/config"
	"go-news-fetcher/internal/content"
	"go-news-fetcher/internal/discover"
	"go-news-fetcher/internal/export"
	"go-news-fetcher/internal/extract"
	"go-news-fetcher/internal/fetch"
	"go-news-fetcher/internal/logx"
	"go-news-fetcher/internal/model"
	"go-news-fetcher/internal/query"
	"go-news-fetcher/internal/rules"
	"go-news-fetcher/internal/store"
)

const (
	runDirLayout = "2006-01-02_15-04-05"
	dbFile       = "articles.db"
	robotsAgent  = "go-news-fetcher"
)

// Runner 执行器，持有配置与各阶段的 HTTP 客户端。
type Runner struct {
	cfg *config.Config
	// Now 为运行时钟，测试中可替换。
	Now func() time.Time

	rules    *rules.Rules
	feed     *fetch.Client
	article  *fetch.Client
	fallback *fetch.Client
}

// Result 为一次运行的产出。
type Result struct {
	RunDir  string
	Summary model.Summary
}

// New 校验配置并按配置创建三个客户端：订阅、正文主路径、正文回退路径。
// rl 为可选的站点抽取规则。
func New(cfg *config.Config, rl *rules.Rules) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("aggregate: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	feed, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.Feed.TimeoutSec) * time.Second,
		Retry:      *cfg.Feed.Retry,
		Backoff:    time.Duration(cfg.Feed.BackoffMS) * time.Millisecond,
		UserAgent:  fetch.BrowserUA,
	})
	if err != nil {
		return nil, err
	}
	contentTimeout := time.Duration(cfg.Content.TimeoutSec) * time.Second
	article, err := fetch.New(fetch.Options{ProxyHTTP: cfg.Proxy.HTTP, ProxyHTTPS: cfg.Proxy.HTTPS, Timeout: contentTimeout})
	if err != nil {
		return nil, err
	}
	fallback, err := fetch.New(fetch.Options{ProxyHTTP: cfg.Proxy.HTTP, ProxyHTTPS: cfg.Proxy.HTTPS, Timeout: contentTimeout, UserAgent: fetch.BrowserUA})
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, Now: time.Now, rules: rl, feed: feed, article: article, fallback: fallback}, nil
}

// Run 执行一轮：查询窗口→链接发现→正文抓取→收尾落盘。
func (r *Runner) Run(ctx context.Context) (Result, error) {
	cfg := r.cfg
	now := r.Now()
	start, end, err := cfg.Dates(now)
	if err != nil {
		return Result{}, err
	}
	specs, err := query.Specs(cfg.Keywords, cfg.Languages, cfg.Countries)
	if err != nil {
		return Result{}, err
	}
	queries, err := query.Generate(specs, start, end, cfg.Timedelta, cfg.Feed.BaseURL)
	if err != nil {
		return Result{}, err
	}
	logx.Infof("关键词=%d，语言/国家=%d，查询窗口=%d，区间 %s → %s",
		len(cfg.Keywords), len(cfg.Languages), len(queries), start.Format(config.DateLayout), end.Format(config.DateLayout))

	runDir, err := makeRunDir(cfg.Output.Dir, now)
	if err != nil {
		return Result{}, err
	}
	res := Result{RunDir: runDir}

	var (
		sink export.Sink
		db   *store.SQLite
	)
	if cfg.Output.SQLite {
		if db, err = store.OpenSQLite(filepath.Join(runDir, dbFile)); err != nil {
			return res, err
		}
		defer db.Close()
		sink = db
	}
	persister, err := export.New(export.Options{Dir: runDir, JSON: *cfg.Output.JSON, XLSX: *cfg.Output.XLSX, Sink: sink})
	if err != nil {
		return res, err
	}
	meta := model.Metadata{
		RunID:     uuid.NewString(),
		Keywords:  cfg.Keywords,
		StartDate: start.Format(config.DateLayout),
		EndDate:   end.Format(config.DateLayout),
		Timedelta: cfg.Timedelta,
		Languages: cfg.Languages,
		Countries: cfg.Countries,
		Mode:      cfg.Mode,
		BatchSize: cfg.BatchSize,
		SavePath:  runDir,
		CreatedAt: now.UTC(),
	}
	if err := persister.WriteMetadata(meta); err != nil {
		return res, err
	}
	logx.Info("run started", "run_id", meta.RunID, "dir", runDir, "mode", cfg.Mode)

	// 链接发现
	disc := discover.New(r.feed, cfg.Feed.Concurrency)
	disc.SetRate(cfg.Feed.RatePerSec)
	links, err := disc.Discover(ctx, queries)
	ds := disc.Stats()
	res.Summary.Queries, res.Summary.FeedSucceeded = ds.Queries, ds.Succeeded
	res.Summary.RawLinks, res.Summary.UniqueLinks = ds.RawLinks, ds.UniqueLinks
	if err != nil {
		return res, fmt.Errorf("discover: %w", err)
	}
	logx.Infof("订阅成功 %d/%d，原始链接 %d，去重后 %d", ds.Succeeded, len(queries), ds.RawLinks, ds.UniqueLinks)
	if *cfg.Output.RawURLs {
		if err := persister.WriteRawLinks(links); err != nil {
			logx.Warnf("写入原始链接失败：%v", err)
		}
	}

	// 正文抓取
	sch, err := content.NewScheduler(cfg.Mode, cfg.Content.Concurrency, cfg.Content.Workers)
	if err != nil {
		return res, err
	}
	opts := content.Options{BatchSize: cfg.BatchSize, Scheduler: sch, Now: r.Now}
	if cfg.Content.RespectRobots {
		opts.Robots = fetch.NewRobots(r.fallback, robotsAgent)
	}
	cf, err := content.New(extract.NewReadability(r.article, r.rules), r.fallback, persister, opts)
	if err != nil {
		return res, err
	}
	var runErr error
	if _, err := cf.FetchAll(ctx, links); err != nil {
		runErr = fmt.Errorf("fetch content: %w", err)
	}
	// 取消后仍写出已缓冲的记录与拒绝链接
	st, finErr := cf.Finish(context.WithoutCancel(ctx))
	res.Summary.Extracted = st.Extracted
	res.Summary.FallbackRecovered = st.FallbackRecovered
	res.Summary.EmptyExtracted = st.EmptyExtracted
	res.Summary.Rejected = st.Rejected
	res.Summary.Disallowed = st.Disallowed
	res.Summary.Batches = persister.Batches()
	if finErr != nil {
		logx.Errorf("写入拒绝链接失败：%v", finErr)
	}

	if db != nil {
		if dbs, err := db.Stats(context.WithoutCancel(ctx)); err != nil {
			logx.Warnf("读取库内统计失败：%v", err)
		} else {
			res.Summary.StoredArticles, res.Summary.StoredRejected = dbs.Articles, dbs.Rejected
		}
	}

	s := res.Summary
	if err := persister.WriteSummary(meta.RunID, s); err != nil {
		logx.Warnf("写入统计表失败：%v", err)
	}
	logx.Info("run finished",
		"queries", s.Queries, "feed_ok", s.FeedSucceeded, "unique_links", s.UniqueLinks,
		"extracted", s.Extracted, "fallback", s.FallbackRecovered, "empty", s.EmptyExtracted,
		"rejected", s.Rejected, "batches", s.Batches)
	return res, errors.Join(runErr, finErr)
}

// makeRunDir 创建 <dir>/run_<时间>；同名目录已存在时追加短 id。
func makeRunDir(base string, now time.Time) (string, error) {
	dir := filepath.Join(base, "run_"+now.Format(runDirLayout))
	if _, err := os.Stat(dir); err == nil {
		dir += "_" + uuid.NewString()[:8]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}
