// 包 config 负责加载与校验运行配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout 为配置中日期的书写格式。
const DateLayout = "2006-01-02"

// 并发模式
const (
	ModeCooperative = "cooperative"
	ModeParallel    = "parallel"
)

// 校验错误：均在发起任何网络请求前返回。
var (
	ErrNoKeywords              = errors.New("KEYWORDS must contain at least one keyword")
	ErrLanguageCountryMismatch = errors.New("LANGUAGES and COUNTRIES must have the same length")
	ErrInvalidTimedelta        = errors.New("TIMEDELTA must be >= 1")
	ErrInvalidBatchSize        = errors.New("BATCH_SIZE must be >= 1")
	ErrInvalidMode             = errors.New("MODE must be cooperative or parallel")
	ErrInvalidDateRange        = errors.New("START_DATE must be after END_DATE")
	ErrNoOutput                = errors.New("OUTPUT must enable at least one of json/xlsx/sqlite")
)

// Config 仅保留当前需要的字段（KISS/YAGNI）。
type Config struct {
	Keywords  []string `yaml:"KEYWORDS"`
	StartDate string   `yaml:"START_DATE"` // 2006-01-02，较新的一端
	EndDate   string   `yaml:"END_DATE"`   // 2006-01-02，较旧的一端
	Timedelta int      `yaml:"TIMEDELTA"`  // 窗口天数
	Languages []string `yaml:"LANGUAGES"`
	Countries []string `yaml:"COUNTRIES"`
	Mode      string   `yaml:"MODE"` // cooperative|parallel
	BatchSize int      `yaml:"BATCH_SIZE"`
	Output    Output   `yaml:"OUTPUT"`
	Feed      Feed     `yaml:"FEED"`
	Content   Content  `yaml:"CONTENT"`
	Proxy     Proxy    `yaml:"PROXY"`
	LogLevel  string   `yaml:"LOG_LEVEL"`
	LogFormat string   `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale string   `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor  string   `yaml:"LOG_COLOR"`  // auto|always|never
}

// Output 控制落盘格式与目录。指针字段用于区分"未配置"与显式 false。
type Output struct {
	Dir     string `yaml:"dir"`
	JSON    *bool  `yaml:"json"`
	XLSX    *bool  `yaml:"xlsx"`
	SQLite  bool   `yaml:"sqlite"`
	RawURLs *bool  `yaml:"raw_urls"`
}

// Feed 为链接发现阶段参数。
type Feed struct {
	BaseURL     string `yaml:"base_url"`
	Concurrency int    `yaml:"concurrency"`
	Retry       *int   `yaml:"retry"` // 未配置时为 3，0 表示不重试
	TimeoutSec  int    `yaml:"timeout_sec"`
	BackoffMS   int    `yaml:"backoff_ms"` // 0 表示不退避
	// RatePerSec 为每秒订阅请求上限，0 表示不限速。
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// Content 为正文抓取阶段参数。
type Content struct {
	Concurrency int `yaml:"concurrency"` // cooperative 模式的同时任务上限
	Workers     int `yaml:"workers"`     // parallel 模式的许可数
	TimeoutSec  int `yaml:"timeout_sec"`
	// RespectRobots 为 true 时跳过 robots.txt 禁止的链接并记为拒绝。
	RespectRobots bool `yaml:"respect_robots"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

func Load(path string) (*Config, error) {
	// Load 从文件读取 YAML 并反序列化为 Config。
	// 校验与默认值在命令行覆盖之后由 Validate 统一完成。
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return &c, nil
}

// LoadOrEmpty 在配置文件不存在时返回空配置，便于完全通过命令行参数运行。
func LoadOrEmpty(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}
	return Load(path)
}

func (c *Config) Validate() error {
	// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
	kws := c.Keywords[:0]
	for _, k := range c.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	c.Keywords = kws
	if len(c.Keywords) == 0 {
		return ErrNoKeywords
	}
	if len(c.Languages) == 0 && len(c.Countries) == 0 {
		c.Languages = []string{"en"}
		c.Countries = []string{"US"}
	}
	if len(c.Languages) != len(c.Countries) {
		return ErrLanguageCountryMismatch
	}
	if c.Timedelta == 0 {
		c.Timedelta = 3
	}
	if c.Timedelta < 1 {
		return ErrInvalidTimedelta
	}
	if c.BatchSize == 0 {
		c.BatchSize = 500
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeParallel
	}
	if c.Mode != ModeCooperative && c.Mode != ModeParallel {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if _, _, err := c.Dates(time.Now()); err != nil {
		return err
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./data"
	}
	c.Output.JSON = orTrue(c.Output.JSON)
	c.Output.XLSX = orTrue(c.Output.XLSX)
	c.Output.RawURLs = orTrue(c.Output.RawURLs)
	if !*c.Output.JSON && !*c.Output.XLSX && !c.Output.SQLite {
		return ErrNoOutput
	}

	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://news.google.com/rss"
	}
	c.Feed.BaseURL = strings.TrimRight(c.Feed.BaseURL, "/")
	if c.Feed.Concurrency <= 0 {
		c.Feed.Concurrency = 50
	}
	if c.Feed.Retry == nil || *c.Feed.Retry < 0 {
		v := 3
		c.Feed.Retry = &v
	}
	if c.Feed.TimeoutSec <= 0 {
		c.Feed.TimeoutSec = 30
	}
	if c.Feed.BackoffMS < 0 {
		c.Feed.BackoffMS = 0
	}
	if c.Feed.RatePerSec < 0 {
		c.Feed.RatePerSec = 0
	}
	if c.Content.Concurrency <= 0 {
		c.Content.Concurrency = 100
	}
	if c.Content.Workers <= 0 {
		c.Content.Workers = 5
	}
	if c.Content.TimeoutSec <= 0 {
		c.Content.TimeoutSec = 10
	}

	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	return nil
}

// Dates 解析起止日期。未配置 START_DATE 时以 now 为起点、向前 TIMEDELTA 天为终点。
func (c *Config) Dates(now time.Time) (start, end time.Time, err error) {
	if strings.TrimSpace(c.StartDate) == "" {
		days := c.Timedelta
		if days <= 0 {
			days = 3
		}
		return now, now.AddDate(0, 0, -days), nil
	}
	start, err = time.Parse(DateLayout, strings.TrimSpace(c.StartDate))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse START_DATE %q: %w", c.StartDate, err)
	}
	if strings.TrimSpace(c.EndDate) == "" {
		end = start.AddDate(0, 0, -max(1, c.Timedelta))
	} else {
		end, err = time.Parse(DateLayout, strings.TrimSpace(c.EndDate))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse END_DATE %q: %w", c.EndDate, err)
		}
	}
	if !start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidDateRange, c.StartDate, c.EndDate)
	}
	return start, end, nil
}

func orTrue(b *bool) *bool {
	if b != nil {
		return b
	}
	v := true
	return &v
}
