package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

const robotsLimit = 512 << 10

// Robots 按站点缓存 robots.txt 规则。
// 获取失败、非 2xx 或无法解析时视为全部允许。
type Robots struct {
	client *Client
	agent  string

	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

type robotsEntry struct {
	once  sync.Once
	group *robotstxt.Group // nil 表示全部允许
}

// NewRobots 使用 cl 获取 robots.txt，按 agent 匹配规则组。
func NewRobots(cl *Client, agent string) *Robots {
	return &Robots{client: cl, agent: agent, hosts: make(map[string]*robotsEntry)}
}

// Allowed 判断 rawURL 是否允许抓取。同一站点的 robots.txt 在一次运行中只请求一次。
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	r.mu.Lock()
	e, ok := r.hosts[key]
	if !ok {
		e = &robotsEntry{}
		r.hosts[key] = e
	}
	r.mu.Unlock()

	e.once.Do(func() { e.group = r.load(ctx, key) })
	if e.group == nil {
		return true
	}
	return e.group.Test(u.RequestURI())
}

func (r *Robots) load(ctx context.Context, origin string) *robotstxt.Group {
	body, _, err := r.client.FetchBody(ctx, origin+"/robots.txt", robotsLimit)
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data.FindGroup(r.agent)
}
