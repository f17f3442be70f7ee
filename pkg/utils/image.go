package utils

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== Data URI ====================

// ParseDataURI 解析 data URI（前端文件选择器产出的格式）
// 返回原始字节与 MIME 类型；不是 data URI 时 ok 为 false
func ParseDataURI(s string) (data []byte, mimeType string, ok bool) {
	if !strings.HasPrefix(s, "data:") {
		return nil, "", false
	}
	comma := strings.Index(s, ",")
	if comma < 0 {
		return nil, "", false
	}

	meta := s[len("data:"):comma]
	payload := s[comma+1:]

	if !strings.HasSuffix(meta, ";base64") {
		// 仅支持 base64 编码的图片
		return nil, "", false
	}
	mimeType = strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", false
	}
	return decoded, mimeType, true
}

// ==================== 网络下载 ====================

// DownloadImage 下载网络图片并返回字节切片与 MIME 类型
func DownloadImage(url string) ([]byte, string, error) {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	resp, err := client.R().Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("http get failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status: %d", resp.StatusCode())
	}

	data := resp.Body()
	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

// ResolveImageRef 将图片引用（data URI 或 http URL）解析为字节与 MIME 类型
func ResolveImageRef(ref string) ([]byte, string, error) {
	if data, mimeType, ok := ParseDataURI(ref); ok {
		return data, mimeType, nil
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return DownloadImage(ref)
	}
	return nil, "", fmt.Errorf("不支持的图片引用格式")
}
