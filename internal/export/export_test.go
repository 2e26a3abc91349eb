package export_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"go-news-fetcher/internal/export"
	"go-news-fetcher/internal/model"
)

type fakeSink struct {
	batches  []int
	rejected int
}

func (s *fakeSink) InsertArticles(_ context.Context, batch int, _ []model.ArticleRecord) error {
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeSink) InsertRejected(_ context.Context, r []model.RejectedURL) error {
	s.rejected += len(r)
	return nil
}

func records(n int) []model.ArticleRecord {
	out := make([]model.ArticleRecord, n)
	for i := range out {
		out[i] = model.ArticleRecord{Content: "Body text.", URL: "https://e/" + string(rune('a'+i)), Title: "T", Keyword: "Google", Time: "2024-04-16 07:30"}
	}
	return out
}

func TestPersister_FlushWritesNumberedBatches(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}
	p, err := export.New(export.Options{Dir: dir, JSON: true, XLSX: true, Sink: sink})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		n, err := p.Flush(ctx, records(2))
		if err != nil || n != i {
			t.Fatalf("flush %d: n=%d err=%v", i, n, err)
		}
	}
	if p.Batches() != 2 || len(sink.batches) != 2 || sink.batches[1] != 1 {
		t.Fatalf("batches=%d sink=%v", p.Batches(), sink.batches)
	}

	b, err := os.ReadFile(filepath.Join(dir, "json", "1.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	if !strings.Contains(string(b), "\n        \"Content\"") {
		t.Fatalf("expected 4-space indent, got %s", b)
	}
	var got []model.ArticleRecord
	if err := json.Unmarshal(b, &got); err != nil || len(got) != 2 || got[0].Keyword != "Google" {
		t.Fatalf("json content: %v %+v", err, got)
	}
	if !strings.Contains(string(b), `"keyword": "Google"`) {
		t.Fatalf("expected lowercase keyword key: %s", b)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "csv", "0.xlsx"))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 || strings.Join(rows[0], ",") != "Content,URL,Title,keyword,Time" || rows[1][1] != "https://e/a" {
		t.Fatalf("xlsx rows: %v", rows)
	}
}

func TestPersister_NumberNeverReused(t *testing.T) {
	dir := t.TempDir()
	p, err := export.New(export.Options{Dir: dir, JSON: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "json", "0.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := p.Flush(context.Background(), records(1)); err == nil {
		t.Fatal("expected error when batch file exists")
	}
	n, err := p.Flush(context.Background(), records(1))
	if err != nil || n != 1 {
		t.Fatalf("second flush: n=%d err=%v", n, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "csv")); !os.IsNotExist(err) {
		t.Fatalf("csv dir should not exist when xlsx disabled")
	}
}

func TestPersister_RunFiles(t *testing.T) {
	dir := t.TempDir()
	sink := &fakeSink{}
	p, _ := export.New(export.Options{Dir: dir, Sink: sink})
	ctx := context.Background()
	if err := p.WriteRejected(ctx, nil); err != nil {
		t.Fatalf("write empty rejected: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, export.RejectedFile))
	if strings.TrimSpace(string(b)) != "[]" {
		t.Fatalf("empty rejected file = %q", b)
	}
	if err := p.WriteRejected(ctx, []model.RejectedURL{{URL: "https://e/x", Keyword: "k"}}); err != nil {
		t.Fatalf("write rejected: %v", err)
	}
	b, _ = os.ReadFile(filepath.Join(dir, export.RejectedFile))
	if !strings.Contains(string(b), `"url": "https://e/x"`) || sink.rejected != 1 {
		t.Fatalf("rejected file = %s sink=%d", b, sink.rejected)
	}
	if err := p.WriteRawLinks([]model.DiscoveredLink{{URL: "https://e/a", Keyword: "k"}}); err != nil {
		t.Fatalf("raw links: %v", err)
	}
	b, _ = os.ReadFile(filepath.Join(dir, export.RawLinksFile))
	if !strings.Contains(string(b), `"link": "https://e/a"`) {
		t.Fatalf("raw links file = %s", b)
	}
	if err := p.WriteMetadata(model.Metadata{RunID: "r1", Keywords: []string{"Google"}, BatchSize: 500}); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, export.MetadataFile)); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}
}

func TestRenderTable_AlignsWideRunes(t *testing.T) {
	lines := export.RenderTable(export.SummaryRows(model.Summary{Queries: 12, Extracted: 3, Batches: 1}))
	if len(lines) != 14 {
		t.Fatalf("lines=%d want 14", len(lines))
	}
	w := runewidth.StringWidth(lines[0])
	for i, l := range lines {
		if runewidth.StringWidth(l) != w {
			t.Fatalf("line %d width %d != %d: %q", i, runewidth.StringWidth(l), w, l)
		}
	}
	if !strings.HasPrefix(lines[2], "| 查询窗口") || !strings.Contains(lines[2], "| 12 ") {
		t.Fatalf("first row = %q", lines[2])
	}
}
