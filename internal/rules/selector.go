package rules

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Value 解析表达式并支持使用 "||" 作为回退分隔，例如："meta[property='og:title']@content||h1"。
// 单个表达式：
// - "." 取当前范围文本
// - "sel@attr" 取首个匹配元素的属性，"@attr" 取当前范围属性
// - "sel" 取所有匹配元素的文本，以空格连接
func Value(scope *goquery.Selection, expr string) string {
	for _, p := range strings.Split(expr, "||") {
		if v := valueSingle(scope, strings.TrimSpace(p)); v != "" {
			return v
		}
	}
	return ""
}

func valueSingle(scope *goquery.Selection, expr string) string {
	if expr == "" {
		return ""
	}
	if expr == "." {
		return strings.TrimSpace(scope.Text())
	}
	if at := strings.LastIndex(expr, "@"); at != -1 {
		sel := strings.TrimSpace(expr[:at])
		attr := strings.TrimSpace(expr[at+1:])
		el := scope
		if sel != "" {
			el = scope.Find(sel).First()
		}
		val, _ := el.Attr(attr)
		return strings.TrimSpace(val)
	}
	var parts []string
	scope.Find(expr).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}
