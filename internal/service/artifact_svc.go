package service

import (
	"context"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"

	"pod_studio_v1_202608/internal/model"
)

// ==================== 配置 ====================

// ArtifactConfig 资产归档配置
type ArtifactConfig struct {
	SupabaseURL        string
	SupabaseServiceKey string
	GeneratedTable     string // 默认 pod_generated_image
	MockupTable        string // 默认 pod_mockup_record
}

// ==================== 服务 ====================

// ArtifactService 资产归档服务
// 提交时把本轮会话产出的生成图与 Mockup 记录写入 Supabase 归档表
type ArtifactService struct {
	config   *ArtifactConfig
	supabase *supabase.Client
}

// NewArtifactService 创建资产归档服务
func NewArtifactService(cfg *ArtifactConfig) (*ArtifactService, error) {
	if cfg.GeneratedTable == "" {
		cfg.GeneratedTable = "pod_generated_image"
	}
	if cfg.MockupTable == "" {
		cfg.MockupTable = "pod_mockup_record"
	}

	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("创建 Supabase 客户端失败: %v", err)
	}

	return &ArtifactService{
		config:   cfg,
		supabase: client,
	}, nil
}

// ==================== 归档 ====================

// SaveGeneratedArtifacts 归档本轮会话的全部产出
// 包含每个非种子颜色的生成图、全部 Mockup 渲染图记录（无论是否被选中），
// 以及种子模板自带的渲染图。任何一步失败立即返回，不回滚已写入的记录。
func (s *ArtifactService) SaveGeneratedArtifacts(ctx context.Context, session *model.PipelineSession, commitUUID string, tasks []model.GenerationTask, products []model.MockupProduct, images []model.MockupImage) error {
	generatedRows := s.buildGeneratedRows(session, commitUUID, tasks)
	mockupRows := s.buildMockupRows(session, commitUUID, products, images)

	templateRows, err := s.buildTemplateRows(session, commitUUID)
	if err != nil {
		return err
	}
	mockupRows = append(mockupRows, templateRows...)

	if len(generatedRows) > 0 {
		_, _, err := s.supabase.From(s.config.GeneratedTable).
			Insert(generatedRows, false, "", "", "").
			Execute()
		if err != nil {
			return fmt.Errorf("写入生成图归档失败: %v", err)
		}
	}

	if len(mockupRows) > 0 {
		_, _, err := s.supabase.From(s.config.MockupTable).
			Insert(mockupRows, false, "", "", "").
			Execute()
		if err != nil {
			return fmt.Errorf("写入 Mockup 归档失败: %v", err)
		}
	}

	log.Printf("[资产归档] 会话 %d 归档完成: 生成图 %d 张, Mockup 记录 %d 条", session.ID, len(generatedRows), len(mockupRows))
	return nil
}

// buildGeneratedRows 生成图归档行（仅生成成功的任务有图可归档）
func (s *ArtifactService) buildGeneratedRows(session *model.PipelineSession, commitUUID string, tasks []model.GenerationTask) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if t.State != model.GenStateDone || t.ImageURL == "" {
			continue
		}
		rows = append(rows, map[string]interface{}{
			"session_id":  session.ID,
			"commit_uuid": commitUUID,
			"product_id":  session.ShopifyProductID,
			"color":       t.Color,
			"hex_code":    t.HexCode,
			"image_url":   t.ImageURL,
			"image_mime":  t.ImageMime,
			"attempts":    t.Attempts,
		})
	}
	return rows
}

// buildMockupRows 操作员侧 Mockup 记录（选中与未选中都归档）
func (s *ArtifactService) buildMockupRows(session *model.PipelineSession, commitUUID string, products []model.MockupProduct, images []model.MockupImage) []map[string]interface{} {
	productIndex := make(map[int64]model.MockupProduct, len(products))
	for i := range products {
		productIndex[products[i].ID] = products[i]
	}

	rows := make([]map[string]interface{}, 0, len(images))
	for i := range images {
		img := images[i]
		p := productIndex[img.MockupProductID]
		rows = append(rows, map[string]interface{}{
			"session_id":          session.ID,
			"commit_uuid":         commitUUID,
			"product_id":          session.ShopifyProductID,
			"source":              "generated",
			"color":               p.Color,
			"provider_product_id": p.ProviderProductID,
			"position_index":      img.PositionIndex,
			"position_label":      PositionLabel(img.PositionIndex),
			"src":                 img.Src,
			"frame_keys":          []string(img.FrameKeys),
			"selected":            img.Selected,
		})
	}
	return rows
}

// buildTemplateRows 种子模板自带渲染图，无条件归档
func (s *ArtifactService) buildTemplateRows(session *model.PipelineSession, commitUUID string) ([]map[string]interface{}, error) {
	template, err := session.Template()
	if err != nil {
		return nil, fmt.Errorf("解析模板快照失败: %v", err)
	}

	frameIndex := TemplateFrameIndex(&template)
	rows := make([]map[string]interface{}, 0, len(template.Images))
	for i := range template.Images {
		img := template.Images[i]
		rows = append(rows, map[string]interface{}{
			"session_id":          session.ID,
			"commit_uuid":         commitUUID,
			"product_id":          session.ShopifyProductID,
			"source":              "template",
			"color":               session.SeedColor,
			"provider_product_id": session.PrintifyTemplateID,
			"position_index":      i,
			"position_label":      PositionLabel(i),
			"src":                 img.Src,
			"frame_keys":          ImageFrameKeys(img.VariantIDs, frameIndex),
			"selected":            false,
		})
	}
	return rows, nil
}
