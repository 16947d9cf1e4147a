package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewAPIClient 创建一个配置好基础地址、超时和 UA 的 Resty 客户端
// 它是全系统对外请求的统一入口（Shopify / Printify 客户端都从这里拿连接）
func NewAPIClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second // 默认超时（建品接口比较慢，给 20s）
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetDebug(false). // 排查问题时可打开
		SetTimeout(timeout).
		SetHeader("User-Agent", "POD-Studio-Go/1.0").
		SetHeader("Content-Type", "application/json")

	return client
}
