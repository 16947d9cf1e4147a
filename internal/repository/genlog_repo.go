package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"pod_studio_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// GenerationLogRepository 生成调用日志仓储接口
type GenerationLogRepository interface {
	Create(ctx context.Context, log *model.GenerationLog) error
	GetByID(ctx context.Context, id int64) (*model.GenerationLog, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]model.GenerationLog, error)

	// 统计查询
	GetUsageBySession(ctx context.Context, sessionID int64) (*GenerationUsageStats, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyGenerationStats, error)

	// 定期清理
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CommitRecordRepository 提交记录仓储接口
type CommitRecordRepository interface {
	Create(ctx context.Context, record *model.CommitRecord) error
	GetByID(ctx context.Context, id int64) (*model.CommitRecord, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]model.CommitRecord, error)
	GetLatestBySessionID(ctx context.Context, sessionID int64) (*model.CommitRecord, error)
}

// ==================== 统计结构 ====================

// GenerationUsageStats 会话内生成调用统计
type GenerationUsageStats struct {
	TotalCalls    int64   `json:"total_calls"`
	GenerateCalls int64   `json:"generate_calls"`
	NameCalls     int64   `json:"name_calls"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	SuccessCount  int64   `json:"success_count"`
	FailedCount   int64   `json:"failed_count"`
}

// DailyGenerationStats 每日生成调用统计
type DailyGenerationStats struct {
	Date          string  `json:"date"`
	TotalCalls    int64   `json:"total_calls"`
	FailedCount   int64   `json:"failed_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// ==================== 生成日志仓储实现 ====================

type generationLogRepo struct {
	db *gorm.DB
}

// NewGenerationLogRepository 创建生成调用日志仓储
func NewGenerationLogRepository(db *gorm.DB) GenerationLogRepository {
	return &generationLogRepo{db: db}
}

func (r *generationLogRepo) Create(ctx context.Context, log *model.GenerationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *generationLogRepo) GetByID(ctx context.Context, id int64) (*model.GenerationLog, error) {
	var log model.GenerationLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *generationLogRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]model.GenerationLog, error) {
	var logs []model.GenerationLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *generationLogRepo) GetUsageBySession(ctx context.Context, sessionID int64) (*GenerationUsageStats, error) {
	var stats GenerationUsageStats

	err := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("session_id = ?", sessionID).
		Select(`
			COUNT(*) as total_calls,
			SUM(CASE WHEN call_type = 'generate' THEN 1 ELSE 0 END) as generate_calls,
			SUM(CASE WHEN call_type = 'name' THEN 1 ELSE 0 END) as name_calls,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count
		`).Scan(&stats).Error

	return &stats, err
}

func (r *generationLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyGenerationStats, error) {
	var stats []DailyGenerationStats

	err := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}

// DeleteBefore 删除指定时间之前的日志，返回删除条数
func (r *generationLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", before).
		Delete(&model.GenerationLog{})
	return result.RowsAffected, result.Error
}

// ==================== 提交记录仓储实现 ====================

type commitRecordRepo struct {
	db *gorm.DB
}

// NewCommitRecordRepository 创建提交记录仓储
func NewCommitRecordRepository(db *gorm.DB) CommitRecordRepository {
	return &commitRecordRepo{db: db}
}

func (r *commitRecordRepo) Create(ctx context.Context, record *model.CommitRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *commitRecordRepo) GetByID(ctx context.Context, id int64) (*model.CommitRecord, error) {
	var record model.CommitRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *commitRecordRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]model.CommitRecord, error) {
	var records []model.CommitRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// GetLatestBySessionID 获取会话最近一次提交记录，不存在时返回 nil
func (r *commitRecordRepo) GetLatestBySessionID(ctx context.Context, sessionID int64) (*model.CommitRecord, error) {
	var record model.CommitRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
