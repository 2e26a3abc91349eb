package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"go-news-fetcher/internal/model"
)

const SummaryFile = "summary.md"

// SummaryRows 将运行统计展开为 [指标, 数值] 表格，首行为表头。
func SummaryRows(s model.Summary) [][]string {
	rows := [][]string{{"指标", "数值"}}
	for _, kv := range []struct {
		k string
		v int
	}{
		{"查询窗口", s.Queries},
		{"订阅成功", s.FeedSucceeded},
		{"原始链接", s.RawLinks},
		{"去重链接", s.UniqueLinks},
		{"抽取成功", s.Extracted},
		{"回退恢复", s.FallbackRecovered},
		{"空内容", s.EmptyExtracted},
		{"拒绝", s.Rejected},
		{"robots 拦截", s.Disallowed},
		{"批次", s.Batches},
		{"库内文章", s.StoredArticles},
		{"库内拒绝", s.StoredRejected},
	} {
		rows = append(rows, []string{kv.k, strconv.Itoa(kv.v)})
	}
	return rows
}

// RenderTable 按显示宽度对齐渲染 Markdown 表格，第一行为表头。
func RenderTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	line := func(cells []string, sep bool) string {
		var sb strings.Builder
		sb.WriteString("|")
		for i := 0; i < cols; i++ {
			sb.WriteString(" ")
			if sep {
				sb.WriteString(strings.Repeat("-", widths[i]))
			} else {
				c := ""
				if i < len(cells) {
					c = cells[i]
				}
				sb.WriteString(runewidth.FillRight(c, widths[i]))
			}
			sb.WriteString(" |")
		}
		return sb.String()
	}
	out := []string{line(rows[0], false), line(nil, true)}
	for _, r := range rows[1:] {
		out = append(out, line(r, false))
	}
	return out
}

// WriteSummary 写出运行统计表。
func (p *Persister) WriteSummary(runID string, s model.Summary) error {
	body := fmt.Sprintf("# run %s\n\n%s\n", runID, strings.Join(RenderTable(SummaryRows(s)), "\n"))
	path := filepath.Join(p.dir, SummaryFile)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
