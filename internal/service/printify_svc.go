package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"pod_studio_v1_202608/pkg/printify"
	"pod_studio_v1_202608/pkg/utils"
)

// ==================== 配置 ====================

// PrintifyConfig 打印服务商配置
type PrintifyConfig struct {
	APIToken string
	ShopID   string
	BaseURL  string // 默认 https://api.printify.com/v1
}

// ==================== 服务 ====================

type PrintifyService struct {
	Config *PrintifyConfig
	client *resty.Client
}

// NewPrintifyService 创建打印服务商客户端
func NewPrintifyService(cfg *PrintifyConfig) *PrintifyService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.printify.com/v1"
	}

	client := utils.NewAPIClient(cfg.BaseURL, 30*time.Second)

	return &PrintifyService{
		Config: cfg,
		client: client,
	}
}

// FetchTemplate 拉取模板产品（变体标题与自带 Mockup 图）。
// 模板在会话期间不变，短期缓存减少重复拉取。
func (s *PrintifyService) FetchTemplate(ctx context.Context, templateID string) (*printify.TemplateProduct, error) {
	cacheKey := "printify:template:" + templateID
	if cached, ok := utils.GetCache(cacheKey); ok {
		var tpl printify.TemplateProduct
		if err := json.Unmarshal([]byte(cached), &tpl); err == nil {
			return &tpl, nil
		}
		utils.DeleteCache(cacheKey)
	}

	var res printify.TemplateResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.Config.APIToken).
		SetResult(&res).
		Get(fmt.Sprintf("/shops/%s/products/%s.json", s.Config.ShopID, templateID))

	if err != nil {
		return nil, fmt.Errorf("网络请求失败: %v", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("Printify API 异常 [%d]: %s", resp.StatusCode(), resp.String())
	}

	if data, err := json.Marshal(res.Product); err == nil {
		utils.SetCache(cacheKey, string(data), 10*time.Minute)
	} else {
		log.Printf("缓存模板 %s 失败: %v", templateID, err)
	}

	return &res.Product, nil
}

// UploadAsset 上传图片素材，返回素材 ID
func (s *PrintifyService) UploadAsset(ctx context.Context, fileName, imageBase64 string) (string, error) {
	var res printify.UploadResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.Config.APIToken).
		SetBody(&printify.UploadReq{
			FileName: fileName,
			Contents: imageBase64,
		}).
		SetResult(&res).
		Post("/uploads/images.json")

	if err != nil {
		return "", fmt.Errorf("网络请求失败: %v", err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		return "", fmt.Errorf("Printify API 异常 [%d]: %s", resp.StatusCode(), resp.String())
	}
	if res.ID == "" {
		return "", fmt.Errorf("上传响应缺少素材 ID: %s", resp.String())
	}

	return res.ID, nil
}

// CreateMockupProduct 以模板加上传素材建品，返回产品与机位图列表
func (s *PrintifyService) CreateMockupProduct(ctx context.Context, template *printify.TemplateProduct, uploadedImageID, customTitle string) (*printify.CreatedProduct, error) {
	var res printify.CreateProductResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.Config.APIToken).
		SetBody(&printify.CreateProductReq{
			Template:        *template,
			UploadedImageID: uploadedImageID,
			CustomTitle:     customTitle,
		}).
		SetResult(&res).
		Post(fmt.Sprintf("/shops/%s/products.json", s.Config.ShopID))

	if err != nil {
		return nil, fmt.Errorf("网络请求失败: %v", err)
	}
	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		return nil, fmt.Errorf("Printify API 异常 [%d]: %s", resp.StatusCode(), resp.String())
	}
	if res.Product.ID == "" {
		return nil, fmt.Errorf("建品响应缺少产品 ID: %s", resp.String())
	}

	return &res.Product, nil
}
