package task

import (
	"context"
	"log"
	"sync"
	"time"
)

// ==================== SessionCleanupTask 会话清理任务 ====================

// SessionExpirer 会话过期服务接口
type SessionExpirer interface {
	ExpireStaleSessions(ctx context.Context, ttl time.Duration) (int, error)
}

// SessionCleanupTask 定时扫描闲置会话并标记过期
// 活跃会话超过 TTL 未被操作时标记为 expired，其阶段任务所有权随之释放
type SessionCleanupTask struct {
	expirer SessionExpirer
	ttl     time.Duration

	running bool
	mutex   sync.Mutex
	stop    chan struct{}
}

// NewSessionCleanupTask 创建会话清理任务
func NewSessionCleanupTask(expirer SessionExpirer, ttl time.Duration) *SessionCleanupTask {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionCleanupTask{
		expirer: expirer,
		ttl:     ttl,
	}
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start(interval time.Duration) {
	t.mutex.Lock()
	if t.running {
		t.mutex.Unlock()
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.mutex.Unlock()

	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		// 启动时立即执行一次
		t.execute()

		for {
			select {
			case <-ticker.C:
				t.execute()
			case <-t.stop:
				return
			}
		}
	}()

	log.Printf("[SessionCleanupTask] 已启动 (间隔 %v, TTL %v)", interval, t.ttl)
}

// Stop 停止任务
func (t *SessionCleanupTask) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
	log.Println("[SessionCleanupTask] 已停止")
}

// execute 执行一次清理
func (t *SessionCleanupTask) execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := t.expirer.ExpireStaleSessions(ctx, t.ttl)
	if err != nil {
		log.Printf("[SessionCleanupTask] 过期检查失败: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[SessionCleanupTask] 已过期 %d 个闲置会话", count)
	}
}

// ==================== 手动触发 ====================

// ExpireNow 立即执行一次过期检查
func (t *SessionCleanupTask) ExpireNow(ctx context.Context) (int, error) {
	return t.expirer.ExpireStaleSessions(ctx, t.ttl)
}
