package task

import (
	"context"
	"log"
	"time"

	"pod_studio_v1_202608/internal/repository"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理流水线的后台维护任务
// 管理范围：会话过期清理、生成日志清理
// 不包含：阶段内的生成/建品扇出（由 PipelineService 按阶段所有权管理）
type TaskManager struct {
	cleanupTask *SessionCleanupTask
	pruneTask   *GenLogPruneTask

	cleanupInterval time.Duration
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	// Services
	SessionExpirer SessionExpirer

	// Repositories
	GenLogRepo repository.GenerationLogRepository
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 会话清理
	CleanupEnabled  bool
	CleanupInterval time.Duration
	SessionTTL      time.Duration

	// 日志清理
	PruneEnabled bool
	PruneCron    string
	LogRetention time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled:  true,
		CleanupInterval: 10 * time.Minute,
		SessionTTL:      2 * time.Hour,

		PruneEnabled: true,
		PruneCron:    "0 0 4 * * *",
		LogRetention: 30 * 24 * time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{
		cleanupInterval: cfg.CleanupInterval,
	}

	// 会话过期清理
	if cfg.CleanupEnabled && deps.SessionExpirer != nil {
		tm.cleanupTask = NewSessionCleanupTask(deps.SessionExpirer, cfg.SessionTTL)
	}

	// 生成日志清理
	if cfg.PruneEnabled && deps.GenLogRepo != nil {
		tm.pruneTask = NewGenLogPruneTask(deps.GenLogRepo, cfg.LogRetention)
		tm.pruneTask.SetSchedule(cfg.PruneCron)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台维护任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Start(tm.cleanupInterval)
	}
	if tm.pruneTask != nil {
		tm.pruneTask.Start()
	}

	log.Println("[TaskManager] 后台维护任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台维护任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	if tm.pruneTask != nil {
		tm.pruneTask.Stop()
	}

	log.Println("[TaskManager] 后台维护任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerSessionCleanup 触发会话过期清理
func (tm *TaskManager) TriggerSessionCleanup(ctx context.Context) (int, error) {
	if tm.cleanupTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.cleanupTask.ExpireNow(ctx)
}

// TriggerLogPrune 触发日志清理
func (tm *TaskManager) TriggerLogPrune(ctx context.Context) (int64, error) {
	if tm.pruneTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.pruneTask.PruneNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务启用状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session_cleanup": tm.cleanupTask != nil,
		"log_prune":       tm.pruneTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
