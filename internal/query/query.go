// 包 query 将关键词与日期区间展开为按时间窗口划分的订阅搜索查询。
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-news-fetcher/internal/model"
)

// MaxWindows 为单个关键词允许生成的窗口上限，超出视为配置错误。
const MaxWindows = 10000

const dateLayout = "2006-01-02"

var (
	ErrInvalidRange            = errors.New("query: start must be after end")
	ErrInvalidWindow           = errors.New("query: window must be at least one day")
	ErrRunawayWindows          = errors.New("query: window generation did not reach end date")
	ErrLanguageCountryMismatch = errors.New("query: languages and countries must pair up")
)

// Specs 将语言与国家按位置配对，再与关键词做笛卡尔积；语言/国家对为外层循环。
func Specs(keywords, languages, countries []string) ([]model.KeywordSpec, error) {
	if len(languages) != len(countries) {
		return nil, ErrLanguageCountryMismatch
	}
	out := make([]model.KeywordSpec, 0, len(keywords)*len(languages))
	for i, lang := range languages {
		for _, kw := range keywords {
			out = append(out, model.KeywordSpec{Keyword: kw, Language: lang, Country: countries[i]})
		}
	}
	return out, nil
}

// Generate 从 start 起按 windowDays 向前回退，直到窗口起点不再晚于 end。
// 每个关键词独立遍历同一区间。
func Generate(specs []model.KeywordSpec, start, end time.Time, windowDays int, baseURL string) ([]model.DatedQuery, error) {
	if windowDays < 1 {
		return nil, ErrInvalidWindow
	}
	if !start.After(end) {
		return nil, fmt.Errorf("%w: start=%s end=%s", ErrInvalidRange, start.Format(dateLayout), end.Format(dateLayout))
	}
	var out []model.DatedQuery
	for _, spec := range specs {
		cur := start
		n := 0
		for cur.After(end) {
			if n == MaxWindows {
				return nil, fmt.Errorf("%w: keyword %q exceeded %d windows", ErrRunawayWindows, spec.Keyword, MaxWindows)
			}
			prior := cur.AddDate(0, 0, -windowDays)
			out = append(out, model.DatedQuery{
				QueryURL:    SearchURL(baseURL, spec, prior, cur),
				Keyword:     spec.Keyword,
				WindowStart: cur,
				WindowEnd:   prior,
			})
			cur = prior
			n++
		}
	}
	return out, nil
}

// SearchURL 构造 <base>/search?q=...&ceid=C:L&hl=L&gl=C，仅 q 参数做百分号编码。
func SearchURL(baseURL string, spec model.KeywordSpec, after, before time.Time) string {
	q := fmt.Sprintf("%s after:%s before:%s", spec.Keyword, after.Format(dateLayout), before.Format(dateLayout))
	return fmt.Sprintf("%s/search?q=%s&ceid=%s:%s&hl=%s&gl=%s",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(q),
		spec.Country, spec.Language, spec.Language, spec.Country)
}
