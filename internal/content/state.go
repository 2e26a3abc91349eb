package content

import (
	"context"
	"sync"

	"go-news-fetcher/internal/logx"
	"go-news-fetcher/internal/model"
)

// Persister 为批次与拒绝链接的落盘目标（export.Persister）。
type Persister interface {
	Flush(ctx context.Context, records []model.ArticleRecord) (int, error)
	WriteRejected(ctx context.Context, rejected []model.RejectedURL) error
}

// Stats 为正文阶段计数。
type Stats struct {
	Attempted         int
	Extracted         int
	FallbackRecovered int
	EmptyExtracted    int
	Rejected          int
	Disallowed        int // 被 robots.txt 拦截，已计入 Rejected
	Flushes           int
	FlushErrors       int
}

type outcomeKind int

const (
	outcomeRecord outcomeKind = iota
	outcomeEmpty
	outcomeRejected
)

// outcome 为单个链接处理结束后的结果。
type outcome struct {
	kind       outcomeKind
	fallback   bool
	disallowed bool // 被 robots.txt 拦截，未发起抓取
	record     model.ArticleRecord
	rejected   model.RejectedURL
}

// state 为所有并发任务共享的可变状态，全部字段由 mu 保护。
// 记录入缓冲与批次检查在同一临界区内完成，缓冲长度不会超过 batchSize。
type state struct {
	mu        sync.Mutex
	batchSize int
	persister Persister
	buffer    []model.ArticleRecord
	rejected  []model.RejectedURL
	stats     Stats
}

func newState(batchSize int, p Persister) *state {
	if batchSize < 1 {
		batchSize = 1
	}
	return &state{batchSize: batchSize, persister: p, buffer: make([]model.ArticleRecord, 0, batchSize)}
}

// settle 记录结果，并在缓冲达到 batchSize 时同步落盘。
func (s *state) settle(ctx context.Context, o outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Attempted++
	switch o.kind {
	case outcomeRecord:
		s.buffer = append(s.buffer, o.record)
		s.stats.Extracted++
		if o.fallback {
			s.stats.FallbackRecovered++
		}
	case outcomeEmpty:
		s.stats.EmptyExtracted++
	case outcomeRejected:
		s.rejected = append(s.rejected, o.rejected)
		s.stats.Rejected++
		if o.disallowed {
			s.stats.Disallowed++
		}
	}
	if len(s.buffer) >= s.batchSize {
		s.flushLocked(ctx)
	}
}

// flushLocked 写出当前缓冲并清空；写入失败只记录日志，编号不复用。
func (s *state) flushLocked(ctx context.Context) {
	if len(s.buffer) == 0 {
		return
	}
	n, err := s.persister.Flush(ctx, s.buffer)
	s.stats.Flushes++
	if err != nil {
		s.stats.FlushErrors++
		logx.Error("batch flush failed", "batch", n, "records", len(s.buffer), "err", err)
	} else {
		logx.Info("batch flushed", "batch", n, "records", len(s.buffer))
	}
	s.buffer = make([]model.ArticleRecord, 0, s.batchSize)
}

// finish 写出剩余缓冲（非空时）与拒绝链接。
func (s *state) finish(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked(ctx)
	err := s.persister.WriteRejected(ctx, s.rejected)
	return s.stats, err
}

func (s *state) snapshot() (Stats, []model.RejectedURL) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, append([]model.RejectedURL(nil), s.rejected...)
}
