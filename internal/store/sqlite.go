// 包 store 提供单次运行的 SQLite 存储：文章批次与拒绝链接的迁移/写入/统计。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-news-fetcher/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// Stats 为库内汇总。
type Stats struct {
	Articles  int
	Rejected  int
	Batches   int
	UpdatedAt time.Time
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// migrate 执行建表语句，保持幂等。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS articles (
            url TEXT UNIQUE,
            keyword TEXT,
            title TEXT,
            content TEXT,
            time TEXT,
            batch INTEGER,
            created_at TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS rejected (
            url TEXT UNIQUE,
            keyword TEXT,
            created_at TIMESTAMP
        );`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// InsertArticles 在单个事务内写入一批文章（url 唯一，重复时更新）。
func (s *SQLite) InsertArticles(ctx context.Context, batch int, records []model.ArticleRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now()
	for _, r := range records {
		if r.URL == "" {
			return errors.New("article.url required")
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO articles(url, keyword, title, content, time, batch, created_at)
            VALUES(?,?,?,?,?,?,?)
            ON CONFLICT(url) DO UPDATE SET keyword=excluded.keyword, title=excluded.title, content=excluded.content, time=excluded.time, batch=excluded.batch`,
			r.URL, r.Keyword, r.Title, r.Content, r.Time, batch, now)
		if err != nil {
			return fmt.Errorf("insert article %s: %w", r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %d: %w", batch, err)
	}
	return nil
}

// InsertRejected 写入拒绝链接，已存在的 url 忽略。
func (s *SQLite) InsertRejected(ctx context.Context, rejected []model.RejectedURL) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now()
	for _, r := range rejected {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rejected(url, keyword, created_at) VALUES(?,?,?)
            ON CONFLICT(url) DO NOTHING`, r.URL, r.Keyword, now); err != nil {
			return fmt.Errorf("insert rejected %s: %w", r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rejected: %w", err)
	}
	return nil
}

// Stats 统计文章数、拒绝数与批次数。
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COUNT(DISTINCT batch) FROM articles`).Scan(&st.Articles, &st.Batches); err != nil {
		return st, fmt.Errorf("count articles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rejected`).Scan(&st.Rejected); err != nil {
		return st, fmt.Errorf("count rejected: %w", err)
	}
	st.UpdatedAt = time.Now()
	return st, nil
}
