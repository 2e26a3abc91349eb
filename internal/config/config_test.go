package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-news-fetcher/internal/config"
)

func TestConfig_DefaultsAndValidate(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "c.yaml")
	_ = os.WriteFile(f, []byte("KEYWORDS: [Google, ' ']\nSTART_DATE: 2024-04-20\nEND_DATE: 2024-04-15\n"), 0644)
	c, err := config.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(c.Keywords) != 1 || c.Keywords[0] != "Google" {
		t.Fatalf("keywords not trimmed: %#v", c.Keywords)
	}
	if c.Timedelta != 3 || c.BatchSize != 500 || c.Mode != config.ModeParallel {
		t.Fatalf("defaults not applied: timedelta=%d batch=%d mode=%s", c.Timedelta, c.BatchSize, c.Mode)
	}
	if len(c.Languages) != 1 || c.Languages[0] != "en" || c.Countries[0] != "US" {
		t.Fatalf("lang/country defaults: %v %v", c.Languages, c.Countries)
	}
	if !*c.Output.JSON || !*c.Output.XLSX || !*c.Output.RawURLs || c.Output.SQLite {
		t.Fatalf("output defaults: %+v", c.Output)
	}
	if c.Feed.Concurrency != 50 || *c.Feed.Retry != 3 || c.Feed.BackoffMS != 0 {
		t.Fatalf("feed defaults: %+v", c.Feed)
	}
	if c.Content.Workers != 5 || c.Content.TimeoutSec != 10 {
		t.Fatalf("content defaults: %+v", c.Content)
	}
	if c.LogFormat == "" || c.LogLocale == "" || c.LogColor == "" {
		t.Fatalf("log defaults missing")
	}
}

func TestConfig_ExplicitFalseKept(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "c.yaml")
	_ = os.WriteFile(f, []byte("KEYWORDS: [a]\nOUTPUT:\n  json: false\n  xlsx: false\n  sqlite: true\n"), 0644)
	c, err := config.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if *c.Output.JSON || *c.Output.XLSX {
		t.Fatalf("explicit false overwritten: %+v", c.Output)
	}

	c.Output.SQLite = false
	if err := c.Validate(); !errors.Is(err, config.ErrNoOutput) {
		t.Fatalf("want ErrNoOutput, got %v", err)
	}
}

func TestConfig_ValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want error
	}{
		{"no keywords", config.Config{}, config.ErrNoKeywords},
		{"mismatch", config.Config{Keywords: []string{"a"}, Languages: []string{"en", "de"}, Countries: []string{"US"}}, config.ErrLanguageCountryMismatch},
		{"bad mode", config.Config{Keywords: []string{"a"}, Mode: "threads"}, config.ErrInvalidMode},
		{"reversed range", config.Config{Keywords: []string{"a"}, StartDate: "2024-04-15", EndDate: "2024-04-20"}, config.ErrInvalidDateRange},
		{"equal range", config.Config{Keywords: []string{"a"}, StartDate: "2024-04-15", EndDate: "2024-04-15"}, config.ErrInvalidDateRange},
		{"negative batch", config.Config{Keywords: []string{"a"}, BatchSize: -1}, config.ErrInvalidBatchSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.cfg
			if err := c.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestConfig_DatesDefaultToNow(t *testing.T) {
	c := &config.Config{Keywords: []string{"a"}, Timedelta: 2}
	now := time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)
	start, end, err := c.Dates(now)
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if !start.Equal(now) || !end.Equal(now.AddDate(0, 0, -2)) {
		t.Fatalf("start=%v end=%v", start, end)
	}
}

func TestLoadOrEmpty_Missing(t *testing.T) {
	c, err := config.LoadOrEmpty(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Keywords) != 0 {
		t.Fatalf("expect empty config")
	}
}

func TestConfig_RateAndRobots(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "c.yaml")
	_ = os.WriteFile(f, []byte("KEYWORDS: [a]\nFEED:\n  rate_per_sec: -2\nCONTENT:\n  respect_robots: true\n"), 0644)
	c, err := config.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Feed.RatePerSec != 0 || !c.Content.RespectRobots {
		t.Fatalf("feed=%+v content=%+v", c.Feed, c.Content)
	}
}

func TestConfig_FeedRetryZeroKept(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "c.yaml")
	_ = os.WriteFile(f, []byte("KEYWORDS: [a]\nFEED:\n  retry: 0\n"), 0644)
	c, err := config.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.Feed.Retry == nil || *c.Feed.Retry != 0 {
		t.Fatalf("explicit retry 0 overwritten: %v", c.Feed.Retry)
	}
}
