package store_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"go-news-fetcher/internal/model"
	"go-news-fetcher/internal/store"
)

func open(t *testing.T) (*store.SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "articles.db")
	s, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

// titles 直接读库，返回 url -> (title, keyword, batch)。
func titles(t *testing.T, path string) map[string][3]any {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer db.Close()
	rows, err := db.Query(`SELECT url, title, keyword, batch FROM articles`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	out := map[string][3]any{}
	for rows.Next() {
		var url, title, kw string
		var batch int
		if err := rows.Scan(&url, &title, &kw, &batch); err != nil {
			t.Fatalf("scan: %v", err)
		}
		out[url] = [3]any{title, kw, batch}
	}
	return out
}

func TestSQLite_InsertArticlesUpsert(t *testing.T) {
	s, path := open(t)
	ctx := context.Background()
	batch0 := []model.ArticleRecord{
		{URL: "https://e/a", Keyword: "Google", Title: "A", Content: "a.", Time: "2024-04-16 07:30"},
		{URL: "https://e/b", Keyword: "Google", Title: "B", Content: "b.", Time: "2024-04-16 08:00"},
	}
	if err := s.InsertArticles(ctx, 0, batch0); err != nil {
		t.Fatalf("insert batch 0: %v", err)
	}
	if err := s.InsertArticles(ctx, 1, []model.ArticleRecord{{URL: "https://e/a", Keyword: "Apple", Title: "A2", Content: "a2.", Time: "2024-04-17 00:00"}}); err != nil {
		t.Fatalf("insert batch 1: %v", err)
	}
	got := titles(t, path)
	if len(got) != 2 || got["https://e/a"] != [3]any{"A2", "Apple", 1} || got["https://e/b"] != [3]any{"B", "Google", 0} {
		t.Fatalf("unexpected articles: %+v", got)
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Articles != 2 || st.Batches != 2 || st.Rejected != 0 {
		t.Fatalf("stats mismatch: %+v", st)
	}
}

func TestSQLite_InsertArticlesRequiresURL(t *testing.T) {
	s, _ := open(t)
	ctx := context.Background()
	err := s.InsertArticles(ctx, 0, []model.ArticleRecord{{URL: "https://e/ok", Title: "t"}, {Title: "no url"}})
	if err == nil {
		t.Fatal("expected error for missing url")
	}
	st, _ := s.Stats(ctx)
	if st.Articles != 0 {
		t.Fatalf("batch must roll back, got %d rows", st.Articles)
	}
}

func TestSQLite_RejectedIgnoresDuplicates(t *testing.T) {
	s, _ := open(t)
	ctx := context.Background()
	rej := []model.RejectedURL{{URL: "https://e/x", Keyword: "k"}, {URL: "https://e/x", Keyword: "k2"}, {URL: "https://e/y", Keyword: "k"}}
	if err := s.InsertRejected(ctx, rej); err != nil {
		t.Fatalf("insert rejected: %v", err)
	}
	if err := s.InsertRejected(ctx, rej[:1]); err != nil {
		t.Fatalf("insert rejected again: %v", err)
	}
	st, err := s.Stats(ctx)
	if err != nil || st.Rejected != 2 || st.Articles != 0 {
		t.Fatalf("stats=%+v err=%v", st, err)
	}
}
