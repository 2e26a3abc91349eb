package logx_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"go-news-fetcher/internal/logx"
)

func TestLogx_PrettyZH_Info(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "debug", "pretty", "zh-CN", "never")
	logx.Infof("hello %s", "world")
	if !strings.Contains(buf.String(), "[信息] hello world") {
		t.Fatalf("expect zh label [信息], got: %q", buf.String())
	}
}

func TestLogx_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "warn", "pretty", "zh-CN", "never")
	logx.Infof("should not print")
	logx.Warnf("warn on")
	out := buf.String()
	if strings.Contains(out, "should not print") {
		t.Fatalf("info should be filtered when level=warn")
	}
	if !strings.Contains(out, "[警告]") {
		t.Fatalf("expect warn label present, got: %q", out)
	}
}

func TestLogx_Silent(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "off", "pretty", "en", "never")
	logx.Errorf("nothing")
	if buf.Len() != 0 {
		t.Fatalf("expect no output, got: %q", buf.String())
	}
}

func TestLogx_StructuredEnglish(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "pretty", "en", "never")
	logx.Warn("query dropped", "keyword", "General Electric", "attempts", 4)
	out := buf.String()
	if !strings.Contains(out, "[WARN] query dropped") {
		t.Fatalf("expect en label, got: %q", out)
	}
	if !strings.Contains(out, `keyword="General Electric"`) || !strings.Contains(out, "attempts=4") {
		t.Fatalf("expect quoted attrs, got: %q", out)
	}
}

func TestLogx_ErrorColorAlways(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	var buf bytes.Buffer
	logx.InitWriter(&buf, "error", "pretty", "zh-CN", "always")
	logx.Errorf("boom %d", 1)
	if !strings.Contains(buf.String(), "[错误]") || !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expect colored error label, got: %q", buf.String())
	}
}

func TestLogx_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "pretty", "en", "always")
	logx.Infof("plain")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("NO_COLOR must disable ansi, got: %q", buf.String())
	}
}

func TestLogx_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := logx.NewPrettyHandler(&buf, slog.LevelInfo, "en", "never")
	logger := slog.New(h).With("k", "v").WithGroup("g")
	logger.Info("hello", "n", 1)
	s := buf.String()
	if !strings.Contains(s, "k=v") || !strings.Contains(s, "g.n=1") {
		t.Fatalf("expect flattened attrs, got: %q", s)
	}
}

func TestLogx_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logx.InitWriter(&buf, "info", "json", "en", "never")
	logx.Info("flushed", "batch", 2)
	if !strings.Contains(buf.String(), `"batch":2`) {
		t.Fatalf("expect json attrs, got: %q", buf.String())
	}
}
