package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 操作限流中间件 ====================

// ActionRateLimit 操作限流中间件
// 按会话 + 操作类型维度进行限流
//
// 使用示例:
//
//	router.POST("/api/pipeline/sessions/:session_id/regenerate",
//	    middleware.ActionRateLimit(middleware.ActionTypeGenerate, 0),
//	    controller.Regenerate,
//	)
//
// 参数:
//   - action: 操作类型
//   - interval: 冷却间隔，0 表示使用默认值
func ActionRateLimit(action ActionType, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		// 获取会话 ID
		sessionIDStr := c.Param("session_id")
		if sessionIDStr == "" {
			sessionIDStr = c.Query("session_id")
		}

		var key string
		if sessionIDStr != "" {
			sessionID, err := strconv.ParseInt(sessionIDStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":    400,
					"message": "无效的会话ID",
				})
				c.Abort()
				return
			}
			key = SessionActionKey(sessionID, action)
		} else {
			// 无会话 ID，使用全局限流
			key = GlobalActionKey(action)
		}

		// 检查限流
		result := GetLimiter().Check(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
					"action":      action,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GlobalActionRateLimit 全局操作限流中间件
// 用于跨会话的全局性操作
func GlobalActionRateLimit(action ActionType, interval time.Duration) gin.HandlerFunc {
	if interval == 0 {
		interval = GetInterval(action)
	}

	return func(c *gin.Context) {
		key := GlobalActionKey(action)

		result := GetLimiter().Check(key, interval)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfter,
					"action":      action,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())

	if seconds < 60 {
		return fmt.Sprintf("操作冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("操作冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("操作冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}

// ==================== 手动限流检查（供 Service 层使用）====================

// CheckActionAllowed 检查操作是否允许（不更新时间）
func CheckActionAllowed(sessionID int64, action ActionType) (bool, time.Duration) {
	key := SessionActionKey(sessionID, action)
	interval := GetInterval(action)
	result := GetLimiter().CheckOnly(key, interval)
	return result.Allowed, result.RetryAfter
}

// MarkActionExecuted 标记操作已执行
func MarkActionExecuted(sessionID int64, action ActionType) {
	key := SessionActionKey(sessionID, action)
	GetLimiter().MarkExecuted(key)
}

// ResetActionLimit 重置操作限流（管理员使用）
func ResetActionLimit(sessionID int64, action ActionType) {
	key := SessionActionKey(sessionID, action)
	GetLimiter().Reset(key)
}
