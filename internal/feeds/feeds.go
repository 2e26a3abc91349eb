// 包 feeds 负责订阅解析与重定向链接解码：
// - ParseFeed：使用 gofeed 解析 RSS/Atom/JSON Feed 并归一化为 Entry
// - DecodeRedirect：将条目的混淆标识还原为真实文章地址
package feeds

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Entry 为解析后的订阅条目。
type Entry struct {
	ID        string
	Link      string
	Title     string
	Published *time.Time
}

// ParseFeed 解析订阅内容，返回条目（保持订阅中的顺序）。
func ParseFeed(r io.Reader) ([]Entry, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		entries = append(entries, Entry{
			ID:        safe(it.GUID),
			Link:      safe(it.Link),
			Title:     safe(it.Title),
			Published: pickTime(it.PublishedParsed, it.UpdatedParsed),
		})
	}
	return entries, nil
}

// EncodedID 返回条目的混淆标识：优先 GUID，否则取链接路径的最后一段（/rss/articles/<id>）。
func EncodedID(e Entry) string {
	if e.ID != "" && !strings.Contains(e.ID, "/") {
		return e.ID
	}
	raw := e.Link
	if raw == "" {
		raw = e.ID
	}
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return e.ID
	}
	seg := path.Base(u.Path)
	if seg == "/" || seg == "." {
		return ""
	}
	return seg
}

func pickTime(a, b *time.Time) *time.Time {
	if a != nil {
		return a
	}
	return b
}

func safe(s string) string { return strings.TrimSpace(s) }
