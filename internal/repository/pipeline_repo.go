package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pod_studio_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// SessionRepository 流水线会话仓储接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.PipelineSession) error
	GetByID(ctx context.Context, id int64) (*model.PipelineSession, error)
	Update(ctx context.Context, session *model.PipelineSession) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter SessionFilter) ([]model.PipelineSession, int64, error)
	UpdateStage(ctx context.Context, id int64, stage string) error

	// 过期清理相关
	FindStale(ctx context.Context, before time.Time) ([]*model.PipelineSession, error)
	MarkExpired(ctx context.Context, id int64) error
}

// GenerationTaskRepository 生成任务仓储接口
type GenerationTaskRepository interface {
	Create(ctx context.Context, task *model.GenerationTask) error
	CreateBatch(ctx context.Context, tasks []model.GenerationTask) error
	GetByID(ctx context.Context, id int64) (*model.GenerationTask, error)
	GetBySessionAndColor(ctx context.Context, sessionID int64, color string) (*model.GenerationTask, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]model.GenerationTask, error)
	Update(ctx context.Context, task *model.GenerationTask) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	DeleteBySessionID(ctx context.Context, sessionID int64) error

	// 状态流转
	MarkGenerating(ctx context.Context, id int64) error
	MarkDone(ctx context.Context, id int64, imageURL, imageMime string) error
	MarkError(ctx context.Context, id int64, errMsg string) error
	UpdateDescriptor(ctx context.Context, id int64, breed, petName, feedback string) error
}

// MockupProductRepository Mockup 产品仓储接口
type MockupProductRepository interface {
	Create(ctx context.Context, product *model.MockupProduct) error
	CreateBatch(ctx context.Context, products []model.MockupProduct) error
	GetByID(ctx context.Context, id int64) (*model.MockupProduct, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]model.MockupProduct, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	DeleteBySessionID(ctx context.Context, sessionID int64) error

	// 状态流转
	MarkCreating(ctx context.Context, id int64, assetID string) error
	MarkDone(ctx context.Context, id int64, providerProductID string) error
	MarkError(ctx context.Context, id int64, errMsg string) error
}

// MockupImageRepository Mockup 图片仓储接口
type MockupImageRepository interface {
	CreateBatch(ctx context.Context, images []model.MockupImage) error
	GetByID(ctx context.Context, id int64) (*model.MockupImage, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]model.MockupImage, error)
	GetByProductID(ctx context.Context, productID int64) ([]model.MockupImage, error)
	GetByProductAndPosition(ctx context.Context, productID int64, positionIndex int) (*model.MockupImage, error)
	SetSelected(ctx context.Context, id int64, selected bool) error
	SetSelectedBatch(ctx context.Context, ids []int64, selected bool) error
	DeleteBySessionID(ctx context.Context, sessionID int64) error
}

// ==================== 过滤条件 ====================

// SessionFilter 会话过滤条件
type SessionFilter struct {
	Status    string
	Stage     string
	CreatedBy int64
	Page      int
	PageSize  int
}

// ==================== Session 仓储实现 ====================

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.PipelineSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id int64) (*model.PipelineSession, error) {
	var session model.PipelineSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Update(ctx context.Context, session *model.PipelineSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

func (r *sessionRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.PipelineSession{}).Where("id = ?", id).Updates(fields).Error
}

func (r *sessionRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.PipelineSession{}, id).Error
}

func (r *sessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.PipelineSession, int64, error) {
	var sessions []model.PipelineSession
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PipelineSession{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.CreatedBy > 0 {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.Order("created_at DESC").Limit(filter.PageSize).Offset(offset).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *sessionRepo) UpdateStage(ctx context.Context, id int64, stage string) error {
	return r.db.WithContext(ctx).
		Model(&model.PipelineSession{}).
		Where("id = ?", id).
		Update("stage", stage).Error
}

// FindStale 查找长期未操作的活跃会话
func (r *sessionRepo) FindStale(ctx context.Context, before time.Time) ([]*model.PipelineSession, error) {
	var sessions []*model.PipelineSession
	err := r.db.WithContext(ctx).
		Where("updated_at < ? AND status = ?", before, model.SessionStatusActive).
		Find(&sessions).Error
	return sessions, err
}

// MarkExpired 标记会话为过期
func (r *sessionRepo) MarkExpired(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.PipelineSession{}).
		Where("id = ?", id).
		Update("status", model.SessionStatusExpired).Error
}

// ==================== GenerationTask 仓储实现 ====================

type generationTaskRepo struct {
	db *gorm.DB
}

// NewGenerationTaskRepository 创建生成任务仓储
func NewGenerationTaskRepository(db *gorm.DB) GenerationTaskRepository {
	return &generationTaskRepo{db: db}
}

func (r *generationTaskRepo) Create(ctx context.Context, task *model.GenerationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *generationTaskRepo) CreateBatch(ctx context.Context, tasks []model.GenerationTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *generationTaskRepo) GetByID(ctx context.Context, id int64) (*model.GenerationTask, error) {
	var task model.GenerationTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *generationTaskRepo) GetBySessionAndColor(ctx context.Context, sessionID int64, color string) (*model.GenerationTask, error) {
	var task model.GenerationTask
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND color = ?", sessionID, color).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetBySessionID 按创建顺序返回（即非种子颜色的顺序）
func (r *generationTaskRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]model.GenerationTask, error) {
	var tasks []model.GenerationTask
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *generationTaskRepo) Update(ctx context.Context, task *model.GenerationTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *generationTaskRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.GenerationTask{}).Where("id = ?", id).Updates(fields).Error
}

func (r *generationTaskRepo) DeleteBySessionID(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.GenerationTask{}).Error
}

// MarkGenerating 进入生成中（尝试次数 +1）
func (r *generationTaskRepo) MarkGenerating(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         model.GenStateGenerating,
			"error_message": "",
			"attempts":      gorm.Expr("attempts + 1"),
		}).Error
}

// MarkDone 生成成功
func (r *generationTaskRepo) MarkDone(ctx context.Context, id int64, imageURL, imageMime string) error {
	return r.db.WithContext(ctx).
		Model(&model.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         model.GenStateDone,
			"image_url":     imageURL,
			"image_mime":    imageMime,
			"error_message": "",
		}).Error
}

// MarkError 生成失败
func (r *generationTaskRepo) MarkError(ctx context.Context, id int64, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&model.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         model.GenStateError,
			"error_message": errMsg,
		}).Error
}

// UpdateDescriptor 更新描述词和反馈
func (r *generationTaskRepo) UpdateDescriptor(ctx context.Context, id int64, breed, petName, feedback string) error {
	return r.db.WithContext(ctx).
		Model(&model.GenerationTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"breed":    breed,
			"pet_name": petName,
			"feedback": feedback,
		}).Error
}

// ==================== MockupProduct 仓储实现 ====================

type mockupProductRepo struct {
	db *gorm.DB
}

// NewMockupProductRepository 创建 Mockup 产品仓储
func NewMockupProductRepository(db *gorm.DB) MockupProductRepository {
	return &mockupProductRepo{db: db}
}

func (r *mockupProductRepo) Create(ctx context.Context, product *model.MockupProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *mockupProductRepo) CreateBatch(ctx context.Context, products []model.MockupProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&products).Error
}

func (r *mockupProductRepo) GetByID(ctx context.Context, id int64) (*model.MockupProduct, error) {
	var product model.MockupProduct
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *mockupProductRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]model.MockupProduct, error) {
	var products []model.MockupProduct
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *mockupProductRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.MockupProduct{}).Where("id = ?", id).Updates(fields).Error
}

func (r *mockupProductRepo) DeleteBySessionID(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.MockupProduct{}).Error
}

// MarkCreating 素材上传完成，进入建品阶段
func (r *mockupProductRepo) MarkCreating(ctx context.Context, id int64, assetID string) error {
	return r.db.WithContext(ctx).
		Model(&model.MockupProduct{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":             model.MockupStateCreating,
			"uploaded_asset_id": assetID,
		}).Error
}

// MarkDone 建品成功
func (r *mockupProductRepo) MarkDone(ctx context.Context, id int64, providerProductID string) error {
	return r.db.WithContext(ctx).
		Model(&model.MockupProduct{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":               model.MockupStateDone,
			"provider_product_id": providerProductID,
			"error_message":       "",
		}).Error
}

// MarkError 建品失败
func (r *mockupProductRepo) MarkError(ctx context.Context, id int64, errMsg string) error {
	return r.db.WithContext(ctx).
		Model(&model.MockupProduct{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":         model.MockupStateError,
			"error_message": errMsg,
		}).Error
}

// ==================== MockupImage 仓储实现 ====================

type mockupImageRepo struct {
	db *gorm.DB
}

// NewMockupImageRepository 创建 Mockup 图片仓储
func NewMockupImageRepository(db *gorm.DB) MockupImageRepository {
	return &mockupImageRepo{db: db}
}

func (r *mockupImageRepo) CreateBatch(ctx context.Context, images []model.MockupImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&images).Error
}

func (r *mockupImageRepo) GetByID(ctx context.Context, id int64) (*model.MockupImage, error) {
	var image model.MockupImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *mockupImageRepo) GetBySessionID(ctx context.Context, sessionID int64) ([]model.MockupImage, error) {
	var images []model.MockupImage
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("mockup_product_id ASC, position_index ASC").
		Find(&images).Error
	return images, err
}

func (r *mockupImageRepo) GetByProductID(ctx context.Context, productID int64) ([]model.MockupImage, error) {
	var images []model.MockupImage
	err := r.db.WithContext(ctx).
		Where("mockup_product_id = ?", productID).
		Order("position_index ASC").
		Find(&images).Error
	return images, err
}

func (r *mockupImageRepo) GetByProductAndPosition(ctx context.Context, productID int64, positionIndex int) (*model.MockupImage, error) {
	var image model.MockupImage
	err := r.db.WithContext(ctx).
		Where("mockup_product_id = ? AND position_index = ?", productID, positionIndex).
		First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *mockupImageRepo) SetSelected(ctx context.Context, id int64, selected bool) error {
	return r.db.WithContext(ctx).
		Model(&model.MockupImage{}).
		Where("id = ?", id).
		Update("selected", selected).Error
}

func (r *mockupImageRepo) SetSelectedBatch(ctx context.Context, ids []int64, selected bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.MockupImage{}).
		Where("id IN ?", ids).
		Update("selected", selected).Error
}

func (r *mockupImageRepo) DeleteBySessionID(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.MockupImage{}).Error
}

// ==================== 事务支持 ====================

// PipelineUnitOfWork 流水线工作单元（事务）
type PipelineUnitOfWork struct {
	db       *gorm.DB
	Sessions SessionRepository
	Tasks    GenerationTaskRepository
	Products MockupProductRepository
	Images   MockupImageRepository
}

// NewPipelineUnitOfWork 创建工作单元
func NewPipelineUnitOfWork(db *gorm.DB) *PipelineUnitOfWork {
	return &PipelineUnitOfWork{
		db:       db,
		Sessions: NewSessionRepository(db),
		Tasks:    NewGenerationTaskRepository(db),
		Products: NewMockupProductRepository(db),
		Images:   NewMockupImageRepository(db),
	}
}

// Transaction 执行事务
func (u *PipelineUnitOfWork) Transaction(ctx context.Context, fn func(uow *PipelineUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &PipelineUnitOfWork{
			db:       tx,
			Sessions: NewSessionRepository(tx),
			Tasks:    NewGenerationTaskRepository(tx),
			Products: NewMockupProductRepository(tx),
			Images:   NewMockupImageRepository(tx),
		}
		return fn(txUow)
	})
}
