package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pod_studio_v1_202608/internal/api/dto"
	"pod_studio_v1_202608/internal/middleware"
	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/internal/service"
)

// ==================== PipelineController 流水线控制器 ====================

// PipelineController 变体图片流水线控制器
type PipelineController struct {
	pipelineService *service.PipelineService
}

// NewPipelineController 创建流水线控制器
func NewPipelineController(pipelineService *service.PipelineService) *PipelineController {
	return &PipelineController{pipelineService: pipelineService}
}

// sessionIDParam 解析路径中的会话 ID
func sessionIDParam(c *gin.Context) (int64, bool) {
	idStr := c.Param("session_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的会话ID",
		})
		return 0, false
	}
	return id, true
}

// respondPipelineError 按错误类别映射状态码
func respondPipelineError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    400,
		"message": err.Error(),
	})
}

// ==================== 会话管理 ====================

// CreateSession 创建流水线会话
// @Summary 创建流水线会话
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSessionRequest true "会话信息"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/pipeline/sessions [post]
func (ctrl *PipelineController) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	operatorID := middleware.GetUserID(c)

	resp, err := ctrl.pipelineService.CreateSession(c.Request.Context(), operatorID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "创建会话失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "创建成功",
		"data":    resp,
	})
}

// ListSessions 会话列表
// @Summary 流水线会话列表
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态筛选"
// @Param stage query string false "阶段筛选"
// @Param created_by query int false "创建人"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} dto.SessionListResponse
// @Failure 500 {object} map[string]interface{}
// @Router /api/pipeline/sessions [get]
func (ctrl *PipelineController) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := ctrl.pipelineService.ListSessions(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// GetSession 获取会话详情
// @Summary 获取会话详情
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id} [get]
func (ctrl *PipelineController) GetSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// DeleteSession 删除会话
// @Summary 删除会话
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id} [delete]
func (ctrl *PipelineController) DeleteSession(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.pipelineService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}

// ==================== 配色与生成阶段 ====================

// SubmitColorPlan 提交配色方案
// @Summary 提交配色方案并启动生成
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Param request body dto.ColorPlanRequest true "配色方案"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/plan [post]
func (ctrl *PipelineController) SubmitColorPlan(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req dto.ColorPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := ctrl.pipelineService.SubmitColorPlan(c.Request.Context(), sessionID, &req)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "配色方案已提交，生成已启动",
		"data":    resp,
	})
}

// GenerationStatus 生成阶段状态
// @Summary 查询生成阶段状态
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.GenerationStatusResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/generation [get]
func (ctrl *PipelineController) GenerationStatus(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.GenerationStatus(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// Regenerate 单色重新生成
// @Summary 带反馈重新生成某个颜色
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Param request body dto.RegenerateRequest true "重生成请求"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/regenerate [post]
func (ctrl *PipelineController) Regenerate(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req dto.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	if err := ctrl.pipelineService.Regenerate(c.Request.Context(), sessionID, &req); err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "重新生成已启动",
	})
}

// ==================== Mockup 阶段 ====================

// AdvanceToMockup 进入建品阶段
// @Summary 生成完成后进入建品阶段
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.MockupStatusResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/advance-mockup [post]
func (ctrl *PipelineController) AdvanceToMockup(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.AdvanceToMockup(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已进入建品阶段",
		"data":    resp,
	})
}

// MockupStatus 建品阶段状态
// @Summary 查询建品阶段状态
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.MockupStatusResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/mockups [get]
func (ctrl *PipelineController) MockupStatus(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.MockupStatus(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// GetPositionGroups 位置分组
// @Summary 按渲染位置分组查看 Mockup 图
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.PositionGroupsResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/positions [get]
func (ctrl *PipelineController) GetPositionGroups(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.GetPositionGroups(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// ToggleMockupImage 勾选/取消单张渲染图
// @Summary 勾选或取消单张渲染图
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Param image_id path int true "渲染图ID"
// @Success 200 {object} dto.MockupImageVO
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/images/{image_id}/toggle [post]
func (ctrl *PipelineController) ToggleMockupImage(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	imageIDStr := c.Param("image_id")
	imageID, err := strconv.ParseInt(imageIDStr, 10, 64)
	if err != nil || imageID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "无效的渲染图ID",
		})
		return
	}

	resp, err := ctrl.pipelineService.ToggleMockupImage(c.Request.Context(), sessionID, imageID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// TogglePositionGroup 位置组批量选择
// @Summary 按位置组批量勾选或取消
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Param request body dto.TogglePositionRequest true "位置索引"
// @Success 200 {object} dto.PositionGroupsResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/positions/toggle [post]
func (ctrl *PipelineController) TogglePositionGroup(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req dto.TogglePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := ctrl.pipelineService.TogglePositionGroup(c.Request.Context(), sessionID, req.PositionIndex)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// ==================== 匹配与提交阶段 ====================

// AdvanceToMatching 进入匹配阶段
// @Summary 建品结束后进入匹配阶段
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.MatchingPreviewResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/advance-matching [post]
func (ctrl *PipelineController) AdvanceToMatching(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.AdvanceToMatching(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已进入匹配阶段",
		"data":    resp,
	})
}

// GetMatchingPreview 匹配预览
// @Summary 查看变体匹配预览
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.MatchingPreviewResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/matching [get]
func (ctrl *PipelineController) GetMatchingPreview(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	resp, err := ctrl.pipelineService.GetMatchingPreview(c.Request.Context(), sessionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// Commit 提交分配
// @Summary 提交图片分配并归档
// @Tags Pipeline
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Success 200 {object} dto.CommitResultResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/commit [post]
func (ctrl *PipelineController) Commit(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	operatorID := middleware.GetUserID(c)

	resp, err := ctrl.pipelineService.Commit(c.Request.Context(), sessionID, operatorID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "提交成功",
		"data":    resp,
	})
}

// GoBack 阶段回退
// @Summary 回退到生成或建品阶段
// @Tags Pipeline
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Param request body dto.GoBackRequest true "回退目标"
// @Success 200 {object} dto.SessionDetailResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/pipeline/sessions/{session_id}/back [post]
func (ctrl *PipelineController) GoBack(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	var req dto.GoBackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := ctrl.pipelineService.GoBack(c.Request.Context(), sessionID, &req)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已回退",
		"data":    resp,
	})
}

// ==================== 进度订阅 ====================

// StreamProgress SSE 订阅会话进度
// @Summary SSE 实时推送流水线进度
// @Tags Pipeline
// @Security BearerAuth
// @Param session_id path int true "会话ID"
// @Produce text/event-stream
// @Router /api/pipeline/sessions/{session_id}/stream [get]
func (ctrl *PipelineController) StreamProgress(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	// 订阅进度
	progressCh := ctrl.pipelineService.Subscribe(sessionID)
	defer ctrl.pipelineService.Unsubscribe(sessionID, progressCh)

	// 发送心跳和进度
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case <-ticker.C:
			// 心跳
			c.SSEvent("heartbeat", gin.H{"time": time.Now().Unix()})
			c.Writer.Flush()
		case event, ok := <-progressCh:
			if !ok {
				return
			}
			data, _ := json.Marshal(event)
			c.SSEvent("progress", string(data))
			c.Writer.Flush()

			// 提交完成后关闭连接
			if event.Stage == model.StageMatching && event.AllDone {
				return
			}
		}
	}
}
