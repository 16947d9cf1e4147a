package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"pod_studio_v1_202608/pkg/shopify"
	"pod_studio_v1_202608/pkg/utils"
)

// ==================== 配置 ====================

// ShopifyConfig 目录服务配置
type ShopifyConfig struct {
	ShopDomain  string // 如 mystore.myshopify.com
	AccessToken string
	BaseURL     string // 留空时按 ShopDomain 拼接
}

// ==================== 服务 ====================

type ShopifyService struct {
	Config *ShopifyConfig
	client *resty.Client
}

// NewShopifyService 创建目录服务
func NewShopifyService(cfg *ShopifyConfig) *ShopifyService {
	if cfg.BaseURL == "" && cfg.ShopDomain != "" {
		cfg.BaseURL = fmt.Sprintf("https://%s/admin/api/2026-07", cfg.ShopDomain)
	}

	client := utils.NewAPIClient(cfg.BaseURL, 20*time.Second)

	return &ShopifyService{
		Config: cfg,
		client: client,
	}
}

// FetchProduct 拉取目录商品（含选项与变体）
func (s *ShopifyService) FetchProduct(ctx context.Context, productID int64) (*shopify.Product, error) {
	var res shopify.ProductResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", s.Config.AccessToken).
		SetResult(&res).
		Get(fmt.Sprintf("/products/%d.json", productID))

	if err != nil {
		return nil, fmt.Errorf("网络请求失败: %v", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("Shopify API 异常 [%d]: %s", resp.StatusCode(), resp.String())
	}

	return &res.Product, nil
}

// CommitAssignment 提交图片到变体的指派。
// 单次调用，不重试；失败原文返回给调用方。
func (s *ShopifyService) CommitAssignment(ctx context.Context, req *shopify.AssignmentReq) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", s.Config.AccessToken).
		SetBody(req).
		Post(fmt.Sprintf("/products/%d/assign_images.json", req.ProductID))

	if err != nil {
		return fmt.Errorf("网络请求失败: %v", err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		return fmt.Errorf("Shopify API 异常 [%d]: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
