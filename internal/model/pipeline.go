package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pod_studio_v1_202608/pkg/printify"
	"pod_studio_v1_202608/pkg/shopify"
)

// ==================== 状态常量 ====================

const (
	// 会话状态
	SessionStatusActive    = "active"
	SessionStatusCommitted = "committed"
	SessionStatusExpired   = "expired"

	// 会话阶段
	StagePlan       = "plan"
	StageGeneration = "generation"
	StageMockup     = "mockup"
	StageMatching   = "matching"

	// 生成任务状态
	GenStatePending    = "pending"
	GenStateGenerating = "generating"
	GenStateDone       = "done"
	GenStateError      = "error"

	// Mockup 产品状态
	MockupStateUploading = "uploading"
	MockupStateCreating  = "creating"
	MockupStateDone      = "done"
	MockupStateError     = "error"
)

// ==================== JSON 类型 ====================

// StringSlice 字符串切片（JSON 存储）
type StringSlice []string

func (s *StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// Int64Slice 整型切片（JSON 存储）
type Int64Slice []int64

func (s *Int64Slice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *Int64Slice) Scan(value interface{}) error {
	if value == nil {
		*s = []int64{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

// JSONMap JSON对象（map 存储）
type JSONMap map[string]interface{}

func (m *JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

// ==================== 数据库模型 ====================

// PipelineSession 变体图片流水线会话
// 一个会话对应一个商品的一轮「配色 → 生成 → 建品 → 匹配 → 提交」流程
type PipelineSession struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
	CreatedBy int64          `gorm:"comment:创建人ID"`
	UpdatedBy int64          `gorm:"comment:更新人ID"`

	Title              string `gorm:"size:140;comment:会话标题"`
	ShopifyProductID   int64  `gorm:"index;not null;comment:Shopify商品ID"`
	PrintifyTemplateID string `gorm:"size:64;not null;comment:Printify模板产品ID"`
	SubjectKind        string `gorm:"size:32;default:pet;comment:主体类型（用于命名服务）"`

	SeedImageURL  string `gorm:"size:2048;comment:种子图存储URL"`
	SeedImageMime string `gorm:"size:64;comment:种子图MIME类型"`

	Stage  string `gorm:"size:32;index;default:plan;comment:当前阶段"`
	Status string `gorm:"size:32;index;default:active;comment:会话状态"`

	// 配色方案（plan 阶段提交后不可变）
	SeedColor     string      `gorm:"size:64;comment:种子颜色"`
	SizeShared    bool        `gorm:"default:false;comment:尺寸是否共用"`
	HexCodes      JSONMap     `gorm:"type:json;comment:颜色到HEX码映射"`
	NonSeedColors StringSlice `gorm:"type:json;comment:待生成的非种子颜色（有序）"`

	// 外部快照（创建会话时抓取，之后只读）
	CatalogSnapshot  datatypes.JSON `gorm:"comment:Shopify商品快照"`
	TemplateSnapshot datatypes.JSON `gorm:"comment:Printify模板快照"`

	ErrorMessage string `gorm:"size:1024;comment:最近一次错误信息"`
}

func (*PipelineSession) TableName() string {
	return "pipeline_sessions"
}

// GenerationTask 单个非种子颜色的生成任务
type GenerationTask struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	SessionID int64  `gorm:"uniqueIndex:uk_gen_session_color;not null;comment:会话ID"`
	Color     string `gorm:"uniqueIndex:uk_gen_session_color;size:64;not null;comment:颜色名"`
	HexCode   string `gorm:"size:7;comment:颜色HEX码"`
	State     string `gorm:"size:16;index;default:pending;comment:任务状态"`

	Breed    string `gorm:"size:64;comment:品种描述词"`
	PetName  string `gorm:"size:64;comment:名字描述词"`
	Feedback string `gorm:"type:text;comment:操作员重生成反馈"`

	ImageURL     string `gorm:"size:2048;comment:生成图存储URL"`
	ImageMime    string `gorm:"size:64;comment:生成图MIME类型"`
	ErrorMessage string `gorm:"size:1024;comment:错误信息"`
	Attempts     int    `gorm:"default:0;comment:尝试次数"`

	// 关联
	Session *PipelineSession `gorm:"foreignKey:SessionID"`
}

func (*GenerationTask) TableName() string {
	return "generation_tasks"
}

// MockupProduct 单个颜色在 Printify 侧的 Mockup 产品
type MockupProduct struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	SessionID int64  `gorm:"index;not null;comment:会话ID"`
	Color     string `gorm:"size:64;not null;comment:颜色名"`
	State     string `gorm:"size:16;index;default:uploading;comment:产品状态"`

	UploadedAssetID   string `gorm:"size:64;comment:上传素材ID"`
	ProviderProductID string `gorm:"size:64;index;comment:Printify产品ID"`
	ErrorMessage      string `gorm:"size:1024;comment:错误信息"`

	// 关联
	Session *PipelineSession `gorm:"foreignKey:SessionID"`
}

func (*MockupProduct) TableName() string {
	return "mockup_products"
}

// MockupImage 一张位置渲染图
type MockupImage struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`

	SessionID       int64 `gorm:"index;not null;comment:会话ID"`
	MockupProductID int64 `gorm:"index;not null;comment:Mockup产品ID"`

	PositionIndex      int         `gorm:"comment:位置索引（同产品内从0递增）"`
	Src                string      `gorm:"size:2048;not null;comment:图片地址"`
	ProviderVariantIDs Int64Slice  `gorm:"type:json;comment:覆盖的模板变体ID"`
	FrameKeys          StringSlice `gorm:"type:json;comment:归一化后的画框键"`
	Selected           bool        `gorm:"default:false;index;comment:是否被操作员选中"`

	// 关联
	Product *MockupProduct `gorm:"foreignKey:MockupProductID"`
}

func (*MockupImage) TableName() string {
	return "mockup_images"
}

// ==================== 辅助方法 ====================

// IsActive 会话是否仍可操作
func (s *PipelineSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// HasColorPlan 配色方案是否已提交
func (s *PipelineSession) HasColorPlan() bool {
	return s.Stage != StagePlan
}

// MarkCommitted 标记会话已提交
func (s *PipelineSession) MarkCommitted() {
	s.Status = SessionStatusCommitted
	s.ErrorMessage = ""
}

// MarkExpired 标记会话已过期
func (s *PipelineSession) MarkExpired() {
	s.Status = SessionStatusExpired
}

// Catalog 解析 Shopify 商品快照
func (s *PipelineSession) Catalog() (shopify.Product, error) {
	var p shopify.Product
	if len(s.CatalogSnapshot) == 0 {
		return p, errors.New("商品快照为空")
	}
	err := json.Unmarshal(s.CatalogSnapshot, &p)
	return p, err
}

// SetCatalog 写入 Shopify 商品快照
func (s *PipelineSession) SetCatalog(p shopify.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.CatalogSnapshot = datatypes.JSON(data)
	return nil
}

// Template 解析 Printify 模板快照
func (s *PipelineSession) Template() (printify.TemplateProduct, error) {
	var t printify.TemplateProduct
	if len(s.TemplateSnapshot) == 0 {
		return t, errors.New("模板快照为空")
	}
	err := json.Unmarshal(s.TemplateSnapshot, &t)
	return t, err
}

// SetTemplate 写入 Printify 模板快照
func (s *PipelineSession) SetTemplate(t printify.TemplateProduct) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	s.TemplateSnapshot = datatypes.JSON(data)
	return nil
}

// IsTerminal 生成任务是否已到终态
func (t *GenerationTask) IsTerminal() bool {
	return t.State == GenStateDone || t.State == GenStateError
}

// MarkGenerating 进入生成中
func (t *GenerationTask) MarkGenerating() {
	t.State = GenStateGenerating
	t.ErrorMessage = ""
	t.Attempts++
}

// MarkDone 生成成功
func (t *GenerationTask) MarkDone(url, mime string) {
	t.State = GenStateDone
	t.ImageURL = url
	t.ImageMime = mime
	t.ErrorMessage = ""
}

// MarkError 生成失败
func (t *GenerationTask) MarkError(msg string) {
	t.State = GenStateError
	t.ErrorMessage = msg
}

// IsTerminal Mockup 产品是否已到终态
func (m *MockupProduct) IsTerminal() bool {
	return m.State == MockupStateDone || m.State == MockupStateError
}

// IsDone Mockup 产品是否建品成功
func (m *MockupProduct) IsDone() bool {
	return m.State == MockupStateDone
}

// MarkCreating 素材上传完成，进入建品阶段
func (m *MockupProduct) MarkCreating(assetID string) {
	m.State = MockupStateCreating
	m.UploadedAssetID = assetID
}

// MarkDone 建品成功
func (m *MockupProduct) MarkDone(providerID string) {
	m.State = MockupStateDone
	m.ProviderProductID = providerID
	m.ErrorMessage = ""
}

// MarkError 建品失败
func (m *MockupProduct) MarkError(msg string) {
	m.State = MockupStateError
	m.ErrorMessage = msg
}
