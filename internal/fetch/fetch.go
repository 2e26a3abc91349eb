// 包 fetch 封装 HTTP 客户端（代理/超时/重试/UA），用于请求订阅与文章页面。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/net/html/charset"
)

// BrowserUA 为回退抓取使用的浏览器 UA；可用环境变量 NF_UA 覆盖。
const BrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// StatusError 表示服务端返回了非 2xx 状态码。此类错误不重试。
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: http status %d", e.URL, e.Code)
}

// Client 为带有限次重试的 HTTP 客户端。
type Client struct {
	http      *http.Client
	retry     int
	backoff   time.Duration
	userAgent string
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	// Retry 为传输层失败后的额外尝试次数。
	Retry int
	// Backoff 为两次尝试之间的固定等待，0 表示立即重试。
	Backoff time.Duration
	// UserAgent 为空时使用 Go 默认 UA。
	UserAgent string
}

// New 创建客户端，支持 http/https 代理与基础超时配置。
func New(opts Options) (*Client, error) {
	var proxyHTTP, proxyHTTPS *url.URL
	var err error
	if opts.ProxyHTTP != "" {
		if proxyHTTP, err = url.Parse(opts.ProxyHTTP); err != nil {
			return nil, fmt.Errorf("parse http proxy: %w", err)
		}
	}
	if opts.ProxyHTTPS != "" {
		if proxyHTTPS, err = url.Parse(opts.ProxyHTTPS); err != nil {
			return nil, fmt.Errorf("parse https proxy: %w", err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && proxyHTTPS != nil {
				return proxyHTTPS, nil
			}
			if req.URL.Scheme == "http" && proxyHTTP != nil {
				return proxyHTTP, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   16,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return &Client{
		http:      &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry:     opts.Retry,
		backoff:   opts.Backoff,
		userAgent: opts.UserAgent,
	}, nil
}

// Get 发起一次请求。非 2xx 时关闭响应体并返回 *StatusError。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if ua := c.ua(); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}

// Page 为一次请求的结果。Attempts 在失败时同样有效。
type Page struct {
	Body     []byte
	Status   int
	Attempts int
}

// Fetch 请求并读取响应体。仅在传输层失败（含读取中断）时重试，最多额外 retry 次；
// 状态码错误与 ctx 取消立即返回。
func (c *Client) Fetch(ctx context.Context, rawURL string, limit int64) (Page, error) {
	var (
		p   Page
		err error
	)
	for p.Attempts < c.retry+1 {
		if p.Attempts > 0 && c.backoff > 0 {
			select {
			case <-ctx.Done():
				return p, ctx.Err()
			case <-time.After(c.backoff):
			}
		}
		p.Attempts++
		var resp *http.Response
		resp, err = c.Get(ctx, rawURL)
		if err == nil {
			p.Status = resp.StatusCode
			p.Body, err = ReadBody(resp, limit)
			if err == nil {
				return p, nil
			}
		}
		if !IsTransport(err) || ctx.Err() != nil {
			return Page{Attempts: p.Attempts}, err
		}
	}
	return Page{Attempts: p.Attempts}, err
}

// FetchBody 为 Fetch 的简化形式，只返回响应体与请求次数。
func (c *Client) FetchBody(ctx context.Context, rawURL string, limit int64) (body []byte, attempts int, err error) {
	p, err := c.Fetch(ctx, rawURL, limit)
	return p.Body, p.Attempts, err
}

// ua 返回请求使用的 UA；NF_UA 只覆盖显式设置了 UA 的客户端。
func (c *Client) ua() string {
	if v := os.Getenv("NF_UA"); v != "" && c.userAgent != "" {
		return v
	}
	return c.userAgent
}

// IsTransport 判断错误是否为传输层失败（连接/DNS/超时/读取中断），此类错误可重试。
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ue *url.Error
	var ne net.Error
	return errors.As(err, &ue) || errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}

// ReadBody 读取至多 limit 字节并按 Content-Type/meta 声明转码为 UTF-8。
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	var r io.Reader = io.LimitReader(resp.Body, limit)
	if cr, err := charset.NewReader(r, resp.Header.Get("Content-Type")); err == nil {
		r = cr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
