package extract

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"go-news-fetcher/internal/model"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// TimeLayout 为记录中发布时间的格式（UTC）。
const TimeLayout = "2006-01-02 15:04"

var (
	tokOnce sync.Once
	tok     *sentences.DefaultSentenceTokenizer
	tokErr  error
)

func tokenizer() (*sentences.DefaultSentenceTokenizer, error) {
	tokOnce.Do(func() {
		tok, tokErr = english.NewSentenceTokenizer(nil)
	})
	return tok, tokErr
}

// NormalizeText 分句并补齐句末标点，再做标点与空白修正。
// 分词器不可用时按整段处理。
func NormalizeText(text string) string {
	text = collapseSpace(text)
	if text == "" {
		return ""
	}
	var parts []string
	if t, err := tokenizer(); err == nil {
		for _, s := range t.Tokenize(text) {
			parts = append(parts, s.Text)
		}
	} else {
		parts = []string{text}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// 仅含标点的片段不补句号，否则再次分句会多出孤立的 "."
		if hasWordRune(p) && !strings.ContainsRune(".!?", rune(p[len(p)-1])) {
			p += "."
		}
		out = append(out, p)
	}
	return Punctuate(strings.Join(out, " "))
}

// Punctuate 依次应用四条修正，每条都基于上一步结果整体匹配：
//  1. 非数字之间的 .!?,;: 后补空格（"a.b" -> "a. b"）
//  2. 数字后空格再跟恰好三位数字时改为千分位（"1 000" -> "1,000"）
//  3. 单词间的 " - " 合并为连字符（"well - known" -> "well-known"）
//  4. 数字后的 . - / 紧跟非数字非空白时补空格（"5.x" -> "5. x"）
//
// 对已修正的文本再次调用结果不变。
func Punctuate(text string) string {
	return spaceAfterDigitMark(joinHyphens(groupThousands(spaceAfterPunct(text))))
}

func hasWordRune(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isWord(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func spaceAfterPunct(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range rs {
		b.WriteRune(r)
		if !strings.ContainsRune(".!?,;:", r) || i == 0 || i+1 >= len(rs) {
			continue
		}
		prev, next := rs[i-1], rs[i+1]
		if !unicode.IsSpace(prev) && !isDigit(prev) && !unicode.IsSpace(next) && !isDigit(next) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func groupThousands(s string) string {
	rs := []rune(s)
	out := make([]rune, len(rs))
	copy(out, rs)
	for i := 1; i+3 < len(rs); i++ {
		if rs[i] != ' ' || !isDigit(rs[i-1]) {
			continue
		}
		if !isDigit(rs[i+1]) || !isDigit(rs[i+2]) || !isDigit(rs[i+3]) {
			continue
		}
		if i+4 < len(rs) && isDigit(rs[i+4]) {
			continue
		}
		out[i] = ','
	}
	return string(out)
}

func joinHyphens(s string) string {
	rs := []rune(s)
	drop := make([]bool, len(rs))
	for i := 1; i+3 < len(rs); i++ {
		if rs[i] == ' ' && rs[i+1] == '-' && rs[i+2] == ' ' && isWord(rs[i-1]) && isWord(rs[i+3]) {
			drop[i], drop[i+2] = true, true
		}
	}
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		if !drop[i] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func spaceAfterDigitMark(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i, r := range rs {
		b.WriteRune(r)
		if i == 0 || i+1 >= len(rs) || !strings.ContainsRune(".-/", r) || !isDigit(rs[i-1]) {
			continue
		}
		if next := rs[i+1]; !isDigit(next) && !unicode.IsSpace(next) {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// NormalizeTime 校验并格式化发布时间：
// 年份需在 (2000, 9999]、月份 1-12、日 1-31，否则使用 now；
// 有效时间转为 UTC，晚于 now 时截断为 now。
func NormalizeTime(t *time.Time, now time.Time) string {
	now = now.UTC()
	if t == nil || !validDate(*t) {
		return now.Format(TimeLayout)
	}
	u := t.UTC()
	if u.After(now) {
		u = now
	}
	return u.Format(TimeLayout)
}

func validDate(t time.Time) bool {
	y, m, d := t.Date()
	return y > 2000 && y <= 9999 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// BuildRecord 由抽取结果构造文章记录；缺少正文或标题时返回 false。
func BuildRecord(res Result, pageURL, keyword string, now time.Time) (model.ArticleRecord, bool) {
	if res.Empty() {
		return model.ArticleRecord{}, false
	}
	content := NormalizeText(res.Text)
	if content == "" {
		return model.ArticleRecord{}, false
	}
	return model.ArticleRecord{
		Content: content,
		URL:     pageURL,
		Title:   strings.TrimSpace(res.Title),
		Keyword: keyword,
		Time:    NormalizeTime(res.PublishedAt, now),
	}, true
}
