// 包 extract 负责正文抽取：
// - Readability：基于 go-readability 的抽取器，支持按 URL（主路径）与按 HTML（回退路径）两种方式，可按站点规则（rules.yaml）优先抽取
// - NormalizeText / NormalizeTime：正文与发布时间的归一化
// - BuildRecord：由抽取结果构造文章记录
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go-news-fetcher/internal/fetch"
	"go-news-fetcher/internal/rules"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
)

const pageLimit = 8 << 20

// Result 为抽取结果，空字符串与 nil 表示缺失。
type Result struct {
	Text        string
	Title       string
	PublishedAt *time.Time
}

// Empty 判断结果是否缺少正文或标题。
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Text) == "" || strings.TrimSpace(r.Title) == ""
}

// Extractor 为正文抽取接口。
type Extractor interface {
	// FromURL 由抽取器自行抓取并解析页面。
	FromURL(ctx context.Context, pageURL string) (Result, error)
	// FromHTML 解析调用方已抓取的页面。
	FromHTML(html []byte, pageURL string) (Result, error)
}

// Readability 为基于 go-readability 的抽取器，可选按站点规则优先抽取。
type Readability struct {
	client *fetch.Client
	rules  *rules.Rules
}

// NewReadability 创建抽取器；cl 用于 FromURL 的直接抓取，rl 可为 nil。
func NewReadability(cl *fetch.Client, rl *rules.Rules) *Readability {
	return &Readability{client: cl, rules: rl}
}

// FromURL 抓取并解析页面，任何失败（传输/状态码/解析）都返回错误。
func (x *Readability) FromURL(ctx context.Context, pageURL string) (Result, error) {
	if x.client == nil {
		return Result{}, fmt.Errorf("extract %s: no http client", pageURL)
	}
	body, _, err := x.client.FetchBody(ctx, pageURL, pageLimit)
	if err != nil {
		return Result{}, err
	}
	return x.FromHTML(body, pageURL)
}

// FromHTML 先按站点规则抽取，缺失的字段由 readability 补齐；正文仍为空时回退到页面描述。
// 发布时间依次取站点规则、readability（含 JSON-LD）、常见 meta。
func (x *Readability) FromHTML(html []byte, pageURL string) (Result, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Result{}, fmt.Errorf("parse url %s: %w", pageURL, err)
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Result{}, fmt.Errorf("parse html %s: %w", pageURL, err)
	}

	var res Result
	if p, ok := x.rules.GetPreset(u.Host); ok {
		res = fromRules(page, p.Article)
	}
	if res.Empty() {
		article, err := readability.FromReader(bytes.NewReader(html), u)
		if err != nil {
			if res.Text == "" && res.Title == "" {
				return Result{}, fmt.Errorf("readability %s: %w", pageURL, err)
			}
		} else {
			if res.Text == "" && article.Content != "" {
				res.Text = htmlText(article.Content)
			}
			if res.Text == "" {
				res.Text = collapseSpace(firstMeta(page, `meta[name="description"]`, `meta[property="og:description"]`))
			}
			if res.Text == "" {
				res.Text = collapseSpace(article.Excerpt)
			}
			if res.Title == "" {
				res.Title = strings.TrimSpace(article.Title)
			}
			if res.PublishedAt == nil && article.PublishedTime != nil {
				t := *article.PublishedTime
				res.PublishedAt = &t
			}
		}
	}
	if res.Title == "" {
		res.Title = strings.TrimSpace(firstMeta(page, `meta[property="og:title"]`))
	}
	if res.Title == "" {
		res.Title = strings.TrimSpace(page.Find("title").First().Text())
	}
	if res.PublishedAt == nil {
		res.PublishedAt = publishedAt(page)
	}
	return res, nil
}

// fromRules 按站点规则读取标题/正文/发布时间。
func fromRules(page *goquery.Document, a *rules.ArticlePage) Result {
	for _, sel := range a.Remove {
		page.Find(sel).Remove()
	}
	res := Result{Title: rules.Value(page.Selection, a.Title)}
	for _, alt := range strings.Split(a.Content, "||") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if strings.Contains(alt, "@") {
			res.Text = collapseSpace(rules.Value(page.Selection, alt))
		} else if found := page.Find(alt); found.Length() > 0 {
			var b strings.Builder
			found.Each(func(_ int, s *goquery.Selection) {
				if h, err := goquery.OuterHtml(s); err == nil {
					b.WriteString(h)
				}
			})
			res.Text = htmlText(b.String())
		}
		if res.Text != "" {
			break
		}
	}
	if a.Published != "" {
		res.PublishedAt = ParseTime(rules.Value(page.Selection, a.Published))
	}
	return res
}

// htmlText 返回 HTML 片段的纯文本，块级元素之间保留空格。
func htmlText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(addBlockSpacing(fragment)))
	if err != nil {
		return ""
	}
	return collapseSpace(doc.Text())
}

// firstMeta 返回第一个非空的 content 属性。
func firstMeta(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var publishedSelectors = []struct{ sel, attr string }{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publishdate"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`time[datetime]`, "datetime"},
}

// publishedAt 从常见 meta 中读取发布时间，均无法解析时返回 nil。
func publishedAt(doc *goquery.Document) *time.Time {
	for _, p := range publishedSelectors {
		v, ok := doc.Find(p.sel).First().Attr(p.attr)
		if !ok {
			continue
		}
		if t := ParseTime(v); t != nil {
			return t
		}
	}
	return nil
}

// ParseTime 宽松解析时间字符串，失败返回 nil。
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	return &t
}

var blockTags = []string{"div", "p", "br", "li", "td", "tr", "h1", "h2", "h3", "h4", "h5", "h6"}

var blockPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(blockTags)*2)
	for _, tag := range blockTags {
		out = append(out, regexp.MustCompile(`<`+tag+`\b[^>]*>`), regexp.MustCompile(`</`+tag+`>`))
	}
	return out
}()

// addBlockSpacing 在块级标签两侧补空格，避免相邻段落文字粘连。
func addBlockSpacing(html string) string {
	for i, re := range blockPatterns {
		if i%2 == 0 {
			html = re.ReplaceAllStringFunc(html, func(m string) string { return " " + m })
		} else {
			html = re.ReplaceAllStringFunc(html, func(m string) string { return m + " " })
		}
	}
	return html
}

var reSpace = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}
