package model

import "github.com/lib/pq"

// GenerationLog 生成服务调用日志
type GenerationLog struct {
	BaseModel

	// 关联
	SessionID int64 `gorm:"index;comment:会话ID"`
	TaskID    int64 `gorm:"index;comment:生成任务ID"`

	// 调用信息
	CallType string `gorm:"size:32;index;comment:调用类型(generate/name)"`
	Color    string `gorm:"size:64;comment:颜色名"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}

// CommitRecord 提交留痕
// 每次提交（含手动重试）写一条，幂等键可用于对账
type CommitRecord struct {
	BaseModel

	SessionID        int64  `gorm:"index;comment:会话ID"`
	ShopifyProductID int64  `gorm:"index;comment:Shopify商品ID"`
	IdempotencyKey   string `gorm:"size:36;index;comment:幂等键"`

	AssignmentCount int            `gorm:"default:0;comment:提交的分配条数"`
	Sources         pq.StringArray `gorm:"type:text[];comment:去重后的图片地址"`
	UnmappedTitles  pq.StringArray `gorm:"type:text[];comment:未匹配到图片的变体标题"`
	ArtifactCount   int            `gorm:"default:0;comment:归档的Mockup记录数"`

	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`
}

func (CommitRecord) TableName() string {
	return "commit_records"
}

// ==================== 调用类型常量 ====================

const (
	GenCallTypeGenerate = "generate"
	GenCallTypeName     = "name"
)

// ==================== 状态常量 ====================

const (
	GenCallStatusSuccess = "success"
	GenCallStatusFailed  = "failed"
)

const (
	CommitStatusSuccess = "success"
	CommitStatusFailed  = "failed"
)
