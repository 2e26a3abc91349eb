// 包 rules 负责加载站点抽取规则（rules.yaml），
// 以站点主机名组织 CSS 选择器，命中时优先于通用正文抽取。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 表示全部规则集合：键为主机名（如 example.com），值为具体规则。
type Rules struct {
	Presets map[string]Preset `yaml:",inline"`
}

// Preset 为单个站点的抽取规则。
type Preset struct {
	Article *ArticlePage `yaml:"article"`
}

// ArticlePage 描述文章页的选择器，表达式语法见 Value：
// - title/content/published：取文本或属性
// - remove：抽取正文前移除的元素
type ArticlePage struct {
	Title     string   `yaml:"title"`
	Content   string   `yaml:"content"`
	Published string   `yaml:"published"`
	Remove    []string `yaml:"remove"`
}

func Load(path string) (*Rules, error) {
	// 从文件加载 YAML 到 Rules.Presets
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r.Presets); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	return &r, nil
}

// GetPreset 按主机名获取规则（不区分大小写，忽略 www.），
// 未命中时逐级尝试上级域名（news.example.com → example.com）。
func (r *Rules) GetPreset(host string) (Preset, bool) {
	if r == nil || len(r.Presets) == 0 {
		return Preset{}, false
	}
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	for host != "" {
		for k, v := range r.Presets {
			if strings.TrimPrefix(strings.ToLower(k), "www.") == host && v.Article != nil {
				return v, true
			}
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 || !strings.Contains(host[dot+1:], ".") {
			break
		}
		host = host[dot+1:]
	}
	return Preset{}, false
}
