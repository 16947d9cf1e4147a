package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== ActionRateLimiter 操作限流器 ====================

// ActionRateLimiter 会话操作限流器
// 防止操作员频繁触发重生成/提交导致生成服务与打印服务商 API 限流
type ActionRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// 全局限流器实例
var globalLimiter = &ActionRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *ActionRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行
// key: 限流键，如 "session:123:generate"
// interval: 冷却间隔
func (r *ActionRateLimiter) Check(key string, interval time.Duration) CheckResult {
	// 获取或创建锁条目
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	// 更新最后执行时间
	entry.lastTime = now
	return CheckResult{
		Allowed:    true,
		RetryAfter: 0,
	}
}

// CheckOnly 仅检查，不更新时间
func (r *ActionRateLimiter) CheckOnly(key string, interval time.Duration) CheckResult {
	actual, ok := r.locks.Load(key)
	if !ok {
		return CheckResult{Allowed: true}
	}

	entry := actual.(*lockEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := time.Since(entry.lastTime)
	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	return CheckResult{Allowed: true}
}

// MarkExecuted 标记已执行（用于异步任务完成后标记）
func (r *ActionRateLimiter) MarkExecuted(key string) {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastTime = time.Now()
}

// Reset 重置指定 key 的限流
func (r *ActionRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// ActionType 操作类型
type ActionType string

const (
	ActionTypeGenerate ActionType = "generate"
	ActionTypeMockup   ActionType = "mockup"
	ActionTypeCommit   ActionType = "commit"
)

// SessionActionKey 生成会话级操作 Key
func SessionActionKey(sessionID int64, action ActionType) string {
	return fmt.Sprintf("session:%d:%s", sessionID, action)
}

// GlobalActionKey 生成全局操作 Key
func GlobalActionKey(action ActionType) string {
	return fmt.Sprintf("global:%s", action)
}

// ==================== 默认限流间隔 ====================

// DefaultIntervals 默认限流间隔配置
var DefaultIntervals = map[ActionType]time.Duration{
	ActionTypeGenerate: 15 * time.Second, // 重生成：给上一轮出站请求留出窗口
	ActionTypeMockup:   30 * time.Second, // 建品：上传素材 + 建品较重
	ActionTypeCommit:   10 * time.Second, // 提交：防止重复点击
}

// GetInterval 获取操作类型的默认间隔
func GetInterval(action ActionType) time.Duration {
	if interval, ok := DefaultIntervals[action]; ok {
		return interval
	}
	return 30 * time.Second
}
