package rules_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"go-news-fetcher/internal/rules"
)

func TestRules_LoadAndGetPreset(t *testing.T) {
	f := filepath.Join(t.TempDir(), "rules.yaml")
	_ = os.WriteFile(f, []byte(`
example.com:
  article:
    title: "h1"
    content: ".body"
    remove: [".ad", "aside"]
WWW.Other.org:
  article:
    title: "h2"
empty.net: {}
`), 0o644)
	r, err := rules.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := r.GetPreset("news.example.com:8080")
	if !ok || p.Article.Content != ".body" || len(p.Article.Remove) != 2 {
		t.Fatalf("subdomain lookup failed: %+v", p)
	}
	if p, ok := r.GetPreset("www.other.org"); !ok || p.Article.Title != "h2" {
		t.Fatalf("case-insensitive www lookup failed: %+v", p)
	}
	if _, ok := r.GetPreset("empty.net"); ok {
		t.Fatal("preset without article rules must not match")
	}
	if _, ok := r.GetPreset("com"); ok {
		t.Fatal("bare tld must not match")
	}
	var nilRules *rules.Rules
	if _, ok := nilRules.GetPreset("example.com"); ok {
		t.Fatal("nil rules must not match")
	}
}

func TestValue_FallbackAndAttr(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div class="it" data-ts="2024"><a class="nm2" href="/ok">NM</a><span class="nm1">X</span><p>a</p><p>b</p></div>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	scope := doc.Find(".it")
	if got := rules.Value(scope, ".nm0||.nm1||."); got != "X" {
		t.Fatalf("fallback text = %q", got)
	}
	if got := rules.Value(scope, "a@href||@data-ts"); got != "/ok" {
		t.Fatalf("attr = %q", got)
	}
	if got := rules.Value(scope, "img@src||@data-ts"); got != "2024" {
		t.Fatalf("scope attr = %q", got)
	}
	if got := rules.Value(scope, "p"); got != "a b" {
		t.Fatalf("joined text = %q", got)
	}
	if got := rules.Value(scope, ".missing||img@src"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
