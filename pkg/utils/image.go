package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var imageClient = &http.Client{Timeout: 30 * time.Second}

// DownloadImage 下载网络图片，返回字节与 Content-Type
// 生成图以 URL 形式落库，建品上传前需要重新取回字节
func DownloadImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("构建请求失败: %v", err)
	}

	resp, err := imageClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("下载失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("下载失败: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("读取失败: %v", err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}

// StripDataURLPrefix 去掉 data URL 前缀，返回纯 base64 内容
// 前端传来的种子图可能是 "data:image/png;base64,xxxx" 形式
func StripDataURLPrefix(data string) string {
	if idx := strings.Index(data, ","); idx != -1 && strings.HasPrefix(data, "data:") {
		return data[idx+1:]
	}
	return data
}

// MimeToExt 根据 MIME 类型推断文件扩展名
func MimeToExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
