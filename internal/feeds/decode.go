package feeds

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// DecodeRedirect 将订阅条目的混淆标识解码为真实文章地址。
// 标识为 URL 安全的 base64（补齐填充），按单字节字符解读，
// 从第一个 "http" 截取并剔除控制字符与高位字节；若 scheme 出现多次，取第二次出现处。
// 任意步骤失败或结果为空时返回 fallback，不会 panic。
func DecodeRedirect(encodedID, fallback string) string {
	if encodedID == "" {
		return fallback
	}
	if rem := len(encodedID) % 4; rem != 0 {
		encodedID += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(encodedID)
	if err != nil {
		return fallback
	}
	// 单字节解读：每个字节对应一个字符，直接在字节上查找
	i := bytes.Index(raw, []byte("http"))
	if i < 0 {
		return fallback
	}
	cleaned := stripControl(raw[i:])
	tag := cleaned
	if c := strings.IndexByte(cleaned, ':'); c >= 0 {
		tag = cleaned[:c]
	}
	if tag != "" {
		if first := strings.Index(cleaned, tag); first >= 0 {
			if next := strings.Index(cleaned[first+len(tag):], tag); next >= 0 {
				cleaned = cleaned[first+len(tag)+next:]
			}
		}
	}
	if cleaned == "" {
		return fallback
	}
	return cleaned
}

// stripControl 去除 0x00-0x08、0x0B-0x0C、0x0E-0x1F、0x7F-0xFF，剩余均为 ASCII。
func stripControl(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		switch {
		case c <= 0x08, c == 0x0B, c == 0x0C, c >= 0x0E && c <= 0x1F, c >= 0x7F:
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
