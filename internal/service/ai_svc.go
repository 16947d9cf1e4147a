package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/internal/repository"
)

// ==================== 配置 ====================

// AIConfig 生成服务配置
type AIConfig struct {
	ApiKey     string
	BaseURL    string // 默认 https://generativelanguage.googleapis.com/v1beta
	ImageModel string
	TextModel  string
}

// ==================== 服务 ====================

type AIService struct {
	Config  *AIConfig
	logRepo repository.GenerationLogRepository
}

// NewAIService 创建生成服务
func NewAIService(cfg *AIConfig, logRepo repository.GenerationLogRepository) *AIService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-3-pro-image-preview-2k"
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-3-flash"
	}

	return &AIService{
		Config:  cfg,
		logRepo: logRepo,
	}
}

// ==================== 变体图生成 ====================

// VariantImageRequest 单个颜色的生成请求
type VariantImageRequest struct {
	SeedImageBase64   string
	SeedImageMimeType string
	BackgroundColor   string // #RRGGBB
	ColorName         string
	Breed             string
	PetName           string
	FeedbackText      string
}

// VariantImageResult 生成结果
type VariantImageResult struct {
	ImageBase64 string
	MimeType    string
}

// GenerateVariantImage 基于种子图生成换底色后的变体图
func (s *AIService) GenerateVariantImage(ctx context.Context, sessionID, taskID int64, req *VariantImageRequest) (*VariantImageResult, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}

	start := time.Now()
	result, err := s.callImageGeneration(ctx, req)
	s.logCall(sessionID, taskID, model.GenCallTypeGenerate, req.ColorName, start, err)
	return result, err
}

func (s *AIService) callImageGeneration(ctx context.Context, req *VariantImageRequest) (*VariantImageResult, error) {
	prompt := buildVariantImagePrompt(req)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		s.Config.BaseURL, s.Config.ImageModel, s.Config.ApiKey)

	parts := []map[string]interface{}{
		{"text": prompt},
		{
			"inline_data": map[string]interface{}{
				"mime_type": req.SeedImageMimeType,
				"data":      req.SeedImageBase64,
			},
		},
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"TEXT", "IMAGE"},
		},
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text,omitempty"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData,omitempty"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}

	if geminiResp.Error != nil {
		return nil, fmt.Errorf("API错误: %s", geminiResp.Error.Message)
	}

	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mimeType := part.InlineData.MimeType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &VariantImageResult{
					ImageBase64: part.InlineData.Data,
					MimeType:    mimeType,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("响应中未找到图片数据")
}

func buildVariantImagePrompt(req *VariantImageRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a professional product photographer for a print-on-demand poster shop.\n")
	sb.WriteString("Recreate the attached reference product photo with ONLY the poster background color changed.\n\n")
	fmt.Fprintf(&sb, "Target background color: %s (%s)\n", req.ColorName, req.BackgroundColor)
	if req.Breed != "" || req.PetName != "" {
		fmt.Fprintf(&sb, "The poster artwork features a %s named %s.\n", req.Breed, req.PetName)
	}
	sb.WriteString(`
Requirements:
- Keep framing, pose, lighting and print placement identical to the reference
- Change only the poster background to the target color
- High resolution, suitable for e-commerce`)
	if req.FeedbackText != "" {
		fmt.Fprintf(&sb, "\n\nOperator feedback from the previous attempt:\n%s", req.FeedbackText)
	}
	return sb.String()
}

// ==================== 命名组合 ====================

// NameCombo 用于多样化提示词的品种/名字组合
type NameCombo struct {
	Breed string `json:"breed"`
	Name  string `json:"name"`
}

// NameDescriptors 批量获取品种/名字组合，仅用于丰富生成提示词
func (s *AIService) NameDescriptors(ctx context.Context, sessionID int64, count int, subjectKind string) ([]NameCombo, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}
	if count <= 0 {
		return nil, nil
	}
	if subjectKind == "" {
		subjectKind = "pet"
	}

	start := time.Now()
	combos, err := s.callNameGeneration(ctx, count, subjectKind)
	s.logCall(sessionID, 0, model.GenCallTypeName, "", start, err)
	return combos, err
}

func (s *AIService) callNameGeneration(ctx context.Context, count int, subjectKind string) ([]NameCombo, error) {
	prompt := fmt.Sprintf(`Generate %d distinct %s breed and name combinations for product photo prompts.

Output Format (JSON only, no markdown):
{
  "combos": [
    {"breed": "Golden Retriever", "name": "Max"}
  ]
}`, count, subjectKind)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		s.Config.BaseURL, s.Config.TextModel, s.Config.ApiKey)

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]interface{}{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("无生成结果")
	}

	var jsonText string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				jsonText = part.Text
				break
			}
		}
	}

	var result struct {
		Combos []NameCombo `json:"combos"`
	}
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("解析生成结果失败: %v, raw: %s", err, jsonText)
	}
	if len(result.Combos) == 0 {
		return nil, fmt.Errorf("命名组合为空")
	}

	return result.Combos, nil
}

// ==================== 调用日志 ====================

func (s *AIService) logCall(sessionID, taskID int64, callType, color string, start time.Time, callErr error) {
	if s.logRepo == nil {
		return
	}

	entry := &model.GenerationLog{
		SessionID:  sessionID,
		TaskID:     taskID,
		CallType:   callType,
		Color:      color,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     model.GenCallStatusSuccess,
	}
	if callErr != nil {
		entry.Status = model.GenCallStatusFailed
		entry.ErrorMsg = callErr.Error()
	}

	// 日志写入失败不影响主流程
	if err := s.logRepo.Create(context.Background(), entry); err != nil {
		log.Printf("写入生成调用日志失败: %v", err)
	}
}
