// 包 model 定义抓取流程中流转的数据模型（关键词/查询窗口/链接/文章/拒绝链接/元数据）。
package model

import "time"

// KeywordSpec 为一次运行中的 关键词 × 语言/国家 组合，运行开始时创建后不再修改。
type KeywordSpec struct {
	Keyword  string
	Language string
	Country  string
}

// DatedQuery 为单个关键词在一个日期窗口上的检索请求。
type DatedQuery struct {
	QueryURL    string
	Keyword     string
	WindowStart time.Time
	WindowEnd   time.Time
}

// DiscoveredLink 为订阅条目解码后的文章链接。
// URL 为解码结果；解码失败或为空时为订阅原始链接，永不为空。
type DiscoveredLink struct {
	URL     string `json:"link"`
	Keyword string `json:"keyword"`
}

// UniqueLinkSet 为按 URL 去重后的链接集合，重复 URL 保留首次出现的关键词。
type UniqueLinkSet []DiscoveredLink

// ArticleRecord 为归一化后的文章记录，字段名沿用落盘格式。
type ArticleRecord struct {
	Content string `json:"Content"`
	URL     string `json:"URL"`
	Title   string `json:"Title"`
	Keyword string `json:"keyword"`
	Time    string `json:"Time"` // UTC，格式 2006-01-02 15:04
}

// RejectedURL 为主路径与回退路径均失败的链接。
type RejectedURL struct {
	URL     string `json:"url"`
	Keyword string `json:"keyword"`
}

// Metadata 为运行参数快照（metadata.json）。
type Metadata struct {
	RunID     string    `json:"run_id"`
	Keywords  []string  `json:"keywords"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Timedelta int       `json:"timedelta"`
	Languages []string  `json:"languages"`
	Countries []string  `json:"countries"`
	Mode      string    `json:"mode"`
	BatchSize int       `json:"batch_size"`
	SavePath  string    `json:"save_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary 为一次运行结束时的统计。
type Summary struct {
	Queries           int `json:"queries"`
	FeedSucceeded     int `json:"feed_succeeded"`
	RawLinks          int `json:"raw_links"`
	UniqueLinks       int `json:"unique_links"`
	Extracted         int `json:"extracted"`
	FallbackRecovered int `json:"fallback_recovered"`
	EmptyExtracted    int `json:"empty_extracted"`
	Rejected          int `json:"rejected"`
	Disallowed        int `json:"disallowed"`
	Batches           int `json:"batches"`
	// 启用 SQLite 时为库内计数
	StoredArticles int `json:"stored_articles"`
	StoredRejected int `json:"stored_rejected"`
}
