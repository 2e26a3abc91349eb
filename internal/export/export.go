// 包 export 负责批次落盘：
// - Flush：按递增编号写入 json/<n>.json 与 csv/<n>.xlsx，可选写入 SQLite
// - WriteRejected / WriteMetadata / WriteRawLinks：运行级文件
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"go-news-fetcher/internal/model"
)

const (
	MetadataFile = "metadata.json"
	RejectedFile = "rejected_urls.json"
	RawLinksFile = "scrapped_raw_url.json"
	sheetName    = "Sheet1"
)

var header = []string{"Content", "URL", "Title", "keyword", "Time"}

// Sink 为批次的附加落库目标（如 store.SQLite）。
type Sink interface {
	InsertArticles(ctx context.Context, batch int, records []model.ArticleRecord) error
	InsertRejected(ctx context.Context, rejected []model.RejectedURL) error
}

// Options 为落盘配置。
type Options struct {
	Dir  string
	JSON bool
	XLSX bool
	// Sink 为空时不落库。
	Sink Sink
}

// Persister 批次写入器。编号从 0 开始，每次 Flush 递增一次，同一编号最多写入一次。
type Persister struct {
	dir  string
	json bool
	xlsx bool
	sink Sink

	mu   sync.Mutex
	next int
}

// New 创建写入器并建立所需目录。
func New(opts Options) (*Persister, error) {
	if opts.Dir == "" {
		return nil, errors.New("export: dir required")
	}
	dirs := []string{opts.Dir}
	if opts.JSON {
		dirs = append(dirs, filepath.Join(opts.Dir, "json"))
	}
	if opts.XLSX {
		dirs = append(dirs, filepath.Join(opts.Dir, "csv"))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return &Persister{dir: opts.Dir, json: opts.JSON, xlsx: opts.XLSX, sink: opts.Sink}, nil
}

// Batches 返回已占用的批次编号数量。
func (p *Persister) Batches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// Flush 写入一个批次并返回其编号。编号在写入前占用，写入失败也不会复用。
func (p *Persister) Flush(ctx context.Context, records []model.ArticleRecord) (int, error) {
	p.mu.Lock()
	n := p.next
	p.next++
	p.mu.Unlock()

	var errs []error
	if p.json {
		path := filepath.Join(p.dir, "json", fmt.Sprintf("%d.json", n))
		if err := writeJSON(path, records, true); err != nil {
			errs = append(errs, err)
		}
	}
	if p.xlsx {
		path := filepath.Join(p.dir, "csv", fmt.Sprintf("%d.xlsx", n))
		if err := writeXLSX(path, records); err != nil {
			errs = append(errs, err)
		}
	}
	if p.sink != nil {
		if err := p.sink.InsertArticles(ctx, n, records); err != nil {
			errs = append(errs, fmt.Errorf("store batch %d: %w", n, err))
		}
	}
	return n, errors.Join(errs...)
}

// WriteRejected 在运行结束时一次性写出拒绝链接。
func (p *Persister) WriteRejected(ctx context.Context, rejected []model.RejectedURL) error {
	if rejected == nil {
		rejected = []model.RejectedURL{}
	}
	err := writeJSON(filepath.Join(p.dir, RejectedFile), rejected, false)
	if p.sink != nil && len(rejected) > 0 {
		if serr := p.sink.InsertRejected(ctx, rejected); serr != nil {
			err = errors.Join(err, fmt.Errorf("store rejected: %w", serr))
		}
	}
	return err
}

// WriteMetadata 写出运行参数。
func (p *Persister) WriteMetadata(meta model.Metadata) error {
	return writeJSON(filepath.Join(p.dir, MetadataFile), meta, false)
}

// WriteRawLinks 写出发现阶段的链接清单。
func (p *Persister) WriteRawLinks(links []model.DiscoveredLink) error {
	if links == nil {
		links = []model.DiscoveredLink{}
	}
	return writeJSON(filepath.Join(p.dir, RawLinksFile), links, false)
}

// writeJSON 以 4 空格缩进写出；exclusive 时文件已存在即报错。
func writeJSON(path string, v any, exclusive bool) error {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// writeXLSX 写出表头与记录行，超长单元格按 Excel 上限截断。
func writeXLSX(path string, records []model.ArticleRecord) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}
	for r, rec := range records {
		row := []string{rec.Content, rec.URL, rec.Title, rec.Keyword, rec.Time}
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, clip(v)); err != nil {
				return fmt.Errorf("xlsx row %d: %w", r+2, err)
			}
		}
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func clip(s string) string {
	if len(s) <= excelize.TotalCellChars {
		return s
	}
	rs := []rune(s)
	if len(rs) <= excelize.TotalCellChars {
		return s
	}
	return string(rs[:excelize.TotalCellChars])
}
