// 命令行入口：
// - 解析 flags、可选 .env 与 settings.yaml（flags 覆盖文件中的同名项），可选加载 rules.yaml
// - 初始化日志，监听 SIGINT/SIGTERM 以取消运行
// - 执行一轮 链接发现 → 正文抓取 → 分批落盘
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"go-news-fetcher/internal/aggregate"
	"go-news-fetcher/internal/config"
	"go-news-fetcher/internal/logx"
	"go-news-fetcher/internal/rules"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml (optional)")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml with per-site selectors (optional)")
		keywords   = flag.String("keywords", "", "comma separated keywords, overrides KEYWORDS")
		start      = flag.String("start", "", "start date YYYY-MM-DD (newer end of the range)")
		end        = flag.String("end", "", "end date YYYY-MM-DD (older end of the range)")
		timedelta  = flag.Int("timedelta", 0, "window size in days")
		mode       = flag.String("mode", "", "content fetch mode: cooperative|parallel")
		batch      = flag.Int("batch", 0, "records per persisted batch")
		out        = flag.String("out", "", "output directory")
	)
	flag.Parse()

	// 可选 .env：提供 NF_UA、HTTP(S)_PROXY 等环境变量，已存在的变量不被覆盖
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	// 1) 加载配置，命令行参数覆盖
	cfg, err := config.LoadOrEmpty(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *keywords != "" {
		cfg.Keywords = splitList(*keywords)
	}
	if *start != "" {
		cfg.StartDate = *start
	}
	if *end != "" {
		cfg.EndDate = *end
	}
	if *timedelta != 0 {
		cfg.Timedelta = *timedelta
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *batch != 0 {
		cfg.BatchSize = *batch
	}
	if *out != "" {
		cfg.Output.Dir = *out
	}

	var rl *rules.Rules
	if *rulesPath != "" {
		if _, err := os.Stat(*rulesPath); err == nil {
			if rl, err = rules.Load(*rulesPath); err != nil {
				log.Printf("load rules failed: %v", err)
			}
		}
	}

	// 2) 校验配置（在任何网络请求之前）并初始化日志
	run, err := aggregate.New(cfg, rl)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)
	if rl != nil {
		logx.Infof("已加载站点规则：%d 条", len(rl.Presets))
	}

	// 3) 运行；收到信号时取消，已缓冲的记录仍会写出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := run.Run(ctx)
	if err != nil {
		logx.Errorf("运行失败：%v", err)
		stop()
		os.Exit(1)
	}
	logx.Infof("完成：文章 %d，拒绝 %d，批次 %d，目录 %s",
		res.Summary.Extracted, res.Summary.Rejected, res.Summary.Batches, res.RunDir)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
