package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"pod_studio_v1_202608/internal/repository"
)

// ==================== GenLogPruneTask 生成日志清理任务 ====================

// GenLogPruneTask 定期清理过期的生成调用日志
// 日志只用于短期排障与用量核对，超过保留期后整行物理删除
type GenLogPruneTask struct {
	logRepo repository.GenerationLogRepository
	cron    *cron.Cron

	retention time.Duration
	cronSpec  string
}

// NewGenLogPruneTask 创建日志清理任务
func NewGenLogPruneTask(logRepo repository.GenerationLogRepository, retention time.Duration) *GenLogPruneTask {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &GenLogPruneTask{
		logRepo:   logRepo,
		cron:      cron.New(cron.WithSeconds()),
		retention: retention,
		cronSpec:  "0 0 4 * * *", // 每天凌晨4点
	}
}

// SetSchedule 设置定时表达式
func (t *GenLogPruneTask) SetSchedule(spec string) {
	if spec != "" {
		t.cronSpec = spec
	}
}

// Start 启动定时任务
func (t *GenLogPruneTask) Start() {
	_, err := t.cron.AddFunc(t.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.pruneJob(ctx)
	})
	if err != nil {
		log.Printf("[GenLogPruneTask] 定时任务启动失败: %v", err)
		return
	}

	t.cron.Start()
	log.Printf("[GenLogPruneTask] 已启动 (保留 %v)", t.retention)
}

// Stop 停止任务
func (t *GenLogPruneTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[GenLogPruneTask] 已停止")
}

// pruneJob 清理一轮过期日志
func (t *GenLogPruneTask) pruneJob(ctx context.Context) {
	before := time.Now().Add(-t.retention)
	deleted, err := t.logRepo.DeleteBefore(ctx, before)
	if err != nil {
		log.Printf("[GenLogPruneTask] 日志清理失败: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[GenLogPruneTask] 已清理 %d 条过期日志", deleted)
	}
}

// ==================== 手动触发 ====================

// PruneNow 立即执行一次清理
func (t *GenLogPruneTask) PruneNow(ctx context.Context) (int64, error) {
	return t.logRepo.DeleteBefore(ctx, time.Now().Add(-t.retention))
}
