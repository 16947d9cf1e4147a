package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pod_studio_v1_202608/internal/api/dto"
	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/internal/repository"
	"pod_studio_v1_202608/pkg/printify"
	"pod_studio_v1_202608/pkg/shopify"
)

// ==================== 外部服务依赖 ====================
// 以下接口引用同包中其他服务定义的类型：
// - VariantImageRequest / VariantImageResult / NameCombo: 定义于 ai_svc.go
// - SelectedMockup / MappingRow: 定义于 matcher_svc.go

// ShopifyServiceInterface 商品目录服务接口
type ShopifyServiceInterface interface {
	FetchProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	CommitAssignment(ctx context.Context, req *shopify.AssignmentReq) error
}

// PrintifyServiceInterface 打印供应商服务接口
type PrintifyServiceInterface interface {
	FetchTemplate(ctx context.Context, templateID string) (*printify.TemplateProduct, error)
	UploadAsset(ctx context.Context, fileName, imageBase64 string) (string, error)
	CreateMockupProduct(ctx context.Context, template *printify.TemplateProduct, uploadedImageID, customTitle string) (*printify.CreatedProduct, error)
}

// AIServiceInterface 生成服务接口
type AIServiceInterface interface {
	GenerateVariantImage(ctx context.Context, sessionID, taskID int64, req *VariantImageRequest) (*VariantImageResult, error)
	NameDescriptors(ctx context.Context, sessionID int64, count int, subjectKind string) ([]NameCombo, error)
}

// StorageServiceInterface 存储服务接口
type StorageServiceInterface interface {
	SaveBase64(ctx context.Context, base64Data, prefix, mimeType string) (string, error)
	FetchBase64(ctx context.Context, url string) (string, string, error)
}

// ArtifactServiceInterface 资产归档服务接口
type ArtifactServiceInterface interface {
	SaveGeneratedArtifacts(ctx context.Context, session *model.PipelineSession, commitUUID string, tasks []model.GenerationTask, products []model.MockupProduct, images []model.MockupImage) error
}

// ==================== 错误定义 ====================

var (
	ErrSessionNotFound   = errors.New("会话不存在")
	ErrSessionNotActive  = errors.New("会话已提交或已过期")
	ErrStageMismatch     = errors.New("当前阶段不支持该操作")
	ErrGenerationNotDone = errors.New("仍有颜色未生成完成")
	ErrMockupNotTerminal = errors.New("仍有颜色建品未结束")
)

// 阶段先后顺序，用于回退校验
var stageOrder = map[string]int{
	model.StagePlan:       0,
	model.StageGeneration: 1,
	model.StageMockup:     2,
	model.StageMatching:   3,
}

// ==================== 服务实现 ====================

// PipelineService 变体图片流水线服务
type PipelineService struct {
	uow        *repository.PipelineUnitOfWork
	commitRepo repository.CommitRecordRepository
	shopify    ShopifyServiceInterface
	printify   PrintifyServiceInterface
	ai         AIServiceInterface
	storage    StorageServiceInterface
	artifacts  ArtifactServiceInterface

	// 进度订阅管理
	subscribers     map[int64][]chan dto.ProgressEvent
	subscriberMutex sync.RWMutex

	// 阶段任务所有权
	runs     map[int64]*stageRun
	runMutex sync.Mutex
	epochSeq int64
}

// NewPipelineService 创建流水线服务
func NewPipelineService(
	uow *repository.PipelineUnitOfWork,
	commitRepo repository.CommitRecordRepository,
	shopifySvc ShopifyServiceInterface,
	printifySvc PrintifyServiceInterface,
	aiSvc AIServiceInterface,
	storageSvc StorageServiceInterface,
	artifactSvc ArtifactServiceInterface,
) *PipelineService {
	return &PipelineService{
		uow:         uow,
		commitRepo:  commitRepo,
		shopify:     shopifySvc,
		printify:    printifySvc,
		ai:          aiSvc,
		storage:     storageSvc,
		artifacts:   artifactSvc,
		subscribers: make(map[int64][]chan dto.ProgressEvent),
		runs:        make(map[int64]*stageRun),
	}
}

// ==================== 阶段任务所有权 ====================

// stageRun 一轮阶段任务的所有权凭据
// 离开阶段时 cancel 终止上一轮的出站请求，epoch 比对丢弃迟到的写入
type stageRun struct {
	stage  string
	epoch  int64
	ctx    context.Context
	cancel context.CancelFunc
}

// beginStage 开启新一轮阶段任务，并取消上一轮
func (s *PipelineService) beginStage(sessionID int64, stage string) *stageRun {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	if prev, ok := s.runs[sessionID]; ok {
		prev.cancel()
	}

	s.epochSeq++
	ctx, cancel := context.WithCancel(context.Background())
	run := &stageRun{
		stage:  stage,
		epoch:  s.epochSeq,
		ctx:    ctx,
		cancel: cancel,
	}
	s.runs[sessionID] = run
	return run
}

// currentRun 当前阶段凭据，没有则为 nil
func (s *PipelineService) currentRun(sessionID int64) *stageRun {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	return s.runs[sessionID]
}

// stillCurrent 异步任务写库前校验所有权，阶段已切换的写入直接丢弃
func (s *PipelineService) stillCurrent(sessionID, epoch int64) bool {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	run, ok := s.runs[sessionID]
	return ok && run.epoch == epoch
}

// endSession 会话终结时取消全部阶段任务
func (s *PipelineService) endSession(sessionID int64) {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()
	if run, ok := s.runs[sessionID]; ok {
		run.cancel()
		delete(s.runs, sessionID)
	}
}

// ==================== 进度订阅 ====================

// Subscribe 订阅会话进度
func (s *PipelineService) Subscribe(sessionID int64) chan dto.ProgressEvent {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	ch := make(chan dto.ProgressEvent, 10)
	s.subscribers[sessionID] = append(s.subscribers[sessionID], ch)
	return ch
}

// Unsubscribe 取消订阅
func (s *PipelineService) Unsubscribe(sessionID int64, ch chan dto.ProgressEvent) {
	s.subscriberMutex.Lock()
	defer s.subscriberMutex.Unlock()

	subs := s.subscribers[sessionID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(s.subscribers[sessionID]) == 0 {
		delete(s.subscribers, sessionID)
	}
}

// notifyProgress 通知进度
func (s *PipelineService) notifyProgress(sessionID int64, event dto.ProgressEvent) {
	s.subscriberMutex.RLock()
	defer s.subscriberMutex.RUnlock()

	for _, ch := range s.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			// channel 已满，跳过
		}
	}
}

// ==================== 会话生命周期 ====================

// CreateSession 创建会话：抓取商品与模板快照，保存种子图
func (s *PipelineService) CreateSession(ctx context.Context, operatorID int64, req *dto.CreateSessionRequest) (*dto.SessionDetailResponse, error) {
	catalog, err := s.shopify.FetchProduct(ctx, req.ShopifyProductID)
	if err != nil {
		return nil, fmt.Errorf("获取商品失败: %v", err)
	}

	template, err := s.printify.FetchTemplate(ctx, req.PrintifyTemplateID)
	if err != nil {
		return nil, fmt.Errorf("获取模板失败: %v", err)
	}

	seedURL, err := s.storage.SaveBase64(ctx, req.SeedImageBase64, fmt.Sprintf("seed/%d", req.ShopifyProductID), req.SeedImageMime)
	if err != nil {
		return nil, fmt.Errorf("保存种子图失败: %v", err)
	}

	title := req.Title
	if title == "" {
		title = catalog.Title
	}
	subjectKind := req.SubjectKind
	if subjectKind == "" {
		subjectKind = "pet"
	}

	session := &model.PipelineSession{
		Title:              title,
		ShopifyProductID:   req.ShopifyProductID,
		PrintifyTemplateID: req.PrintifyTemplateID,
		SubjectKind:        subjectKind,
		SeedImageURL:       seedURL,
		SeedImageMime:      req.SeedImageMime,
		Stage:              model.StagePlan,
		Status:             model.SessionStatusActive,
		CreatedBy:          operatorID,
		UpdatedBy:          operatorID,
	}
	if err := session.SetCatalog(*catalog); err != nil {
		return nil, fmt.Errorf("序列化商品快照失败: %v", err)
	}
	if err := session.SetTemplate(*template); err != nil {
		return nil, fmt.Errorf("序列化模板快照失败: %v", err)
	}

	if err := s.uow.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("创建会话失败: %v", err)
	}

	return s.toSessionDetail(session)
}

// GetSession 会话详情
func (s *PipelineService) GetSession(ctx context.Context, sessionID int64) (*dto.SessionDetailResponse, error) {
	session, err := s.uow.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return s.toSessionDetail(session)
}

// ListSessions 会话列表
func (s *PipelineService) ListSessions(ctx context.Context, req *dto.SessionListRequest) (*dto.SessionListResponse, error) {
	sessions, total, err := s.uow.Sessions.List(ctx, repository.SessionFilter{
		Status:    req.Status,
		Stage:     req.Stage,
		CreatedBy: req.CreatedBy,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*dto.SessionVO, len(sessions))
	for i := range sessions {
		list[i] = toSessionVO(&sessions[i])
	}
	return &dto.SessionListResponse{List: list, Total: total}, nil
}

// DeleteSession 删除会话及其派生数据
func (s *PipelineService) DeleteSession(ctx context.Context, sessionID int64) error {
	if _, err := s.uow.Sessions.GetByID(ctx, sessionID); err != nil {
		return ErrSessionNotFound
	}

	s.endSession(sessionID)

	return s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Images.DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		if err := uow.Products.DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		if err := uow.Tasks.DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		return uow.Sessions.Delete(ctx, sessionID)
	})
}

// ExpireStaleSessions 将长时间无活动的会话标记为过期并取消其任务
func (s *PipelineService) ExpireStaleSessions(ctx context.Context, ttl time.Duration) (int, error) {
	stale, err := s.uow.Sessions.FindStale(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, session := range stale {
		s.endSession(session.ID)
		if err := s.uow.Sessions.MarkExpired(ctx, session.ID); err != nil {
			log.Printf("[流水线] 标记会话 %d 过期失败: %v", session.ID, err)
			continue
		}
		count++
	}
	return count, nil
}

// getActiveSession 取会话并校验仍可操作
func (s *PipelineService) getActiveSession(ctx context.Context, sessionID int64) (*model.PipelineSession, error) {
	session, err := s.uow.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}
	return session, nil
}

// ==================== 配色方案 ====================

// SubmitColorPlan 提交配色方案并进入生成阶段
// 方案一经提交即冻结；商品没有背景色轴时提交空方案直接放行
func (s *PipelineService) SubmitColorPlan(ctx context.Context, sessionID int64, req *dto.ColorPlanRequest) (*dto.SessionDetailResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StagePlan {
		return nil, ErrStageMismatch
	}

	catalog, err := session.Catalog()
	if err != nil {
		return nil, err
	}

	axes := ResolveAxes(catalog.Options)
	plan, err := BuildColorPlan(axes, req.SeedColor, req.HexCodes)
	if err != nil {
		return nil, err
	}

	// 命名描述词：命名服务不可用时回退到内置组合池
	combos, err := s.ai.NameDescriptors(ctx, sessionID, len(plan.NonSeedColors), session.SubjectKind)
	if err != nil || len(combos) == 0 {
		combos = fallbackNameCombos(len(plan.NonSeedColors))
	}

	tasks := make([]model.GenerationTask, len(plan.NonSeedColors))
	for i, color := range plan.NonSeedColors {
		combo := combos[i%len(combos)]
		tasks[i] = model.GenerationTask{
			SessionID: sessionID,
			Color:     color,
			HexCode:   plan.HexCodes[color],
			State:     model.GenStatePending,
			Breed:     combo.Breed,
			PetName:   combo.Name,
		}
	}

	session.SeedColor = plan.SeedColor
	session.SizeShared = plan.SizeShared
	session.NonSeedColors = model.StringSlice(plan.NonSeedColors)
	session.HexCodes = model.JSONMap{}
	for color, hex := range plan.HexCodes {
		session.HexCodes[color] = hex
	}
	session.Stage = model.StageGeneration
	session.ErrorMessage = ""

	err = s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Sessions.Update(ctx, session); err != nil {
			return err
		}
		return uow.Tasks.CreateBatch(ctx, tasks)
	})
	if err != nil {
		return nil, fmt.Errorf("保存配色方案失败: %v", err)
	}

	run := s.beginStage(sessionID, model.StageGeneration)
	go s.runGeneration(run, session, tasks)

	return s.toSessionDetail(session)
}

// 内置命名组合池（命名服务不可用时的兜底）
var fallbackCombos = []NameCombo{
	{Breed: "Golden Retriever", Name: "Buddy"},
	{Breed: "Corgi", Name: "Mochi"},
	{Breed: "Samoyed", Name: "Snow"},
	{Breed: "Shiba Inu", Name: "Haru"},
	{Breed: "Border Collie", Name: "Pixel"},
	{Breed: "Ragdoll", Name: "Luna"},
}

func fallbackNameCombos(count int) []NameCombo {
	combos := make([]NameCombo, count)
	for i := 0; i < count; i++ {
		combos[i] = fallbackCombos[i%len(fallbackCombos)]
	}
	return combos
}

// ==================== 生成阶段 ====================

// runGeneration 生成阶段扇出：每个非种子色一个任务，全部收束后汇合广播
func (s *PipelineService) runGeneration(run *stageRun, session *model.PipelineSession, tasks []model.GenerationTask) {
	if len(tasks) == 0 {
		s.notifyProgress(session.ID, dto.ProgressEvent{
			SessionID: session.ID,
			Stage:     model.StageGeneration,
			Message:   "没有需要生成的颜色",
			AllDone:   true,
		})
		return
	}

	// 种子图只取一次，各任务共用
	seedBase64, seedMime, err := s.storage.FetchBase64(run.ctx, session.SeedImageURL)
	if err != nil {
		if !s.stillCurrent(session.ID, run.epoch) {
			return
		}
		ctx := context.Background()
		msg := "获取种子图失败: " + err.Error()
		for i := range tasks {
			_ = s.uow.Tasks.MarkError(ctx, tasks[i].ID, msg)
		}
		s.notifyProgress(session.ID, dto.ProgressEvent{
			SessionID: session.ID,
			Stage:     model.StageGeneration,
			State:     model.GenStateError,
			Message:   msg,
		})
		return
	}

	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		go func(task model.GenerationTask) {
			defer wg.Done()
			s.generateOne(run, session, &task, seedBase64, seedMime)
		}(tasks[i])
	}
	wg.Wait()

	// 汇合点：所有任务到达终态后统一判定一次
	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	all, err := s.uow.Tasks.GetBySessionID(context.Background(), session.ID)
	if err != nil {
		return
	}
	doneCount, errorCount := countGenerationStates(all)
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageGeneration,
		Message:   fmt.Sprintf("本轮生成结束: 成功 %d, 失败 %d", doneCount, errorCount),
		AllDone:   AllGenerationDone(all),
	})
}

// generateOne 单个颜色的生成流程
func (s *PipelineService) generateOne(run *stageRun, session *model.PipelineSession, task *model.GenerationTask, seedBase64, seedMime string) {
	ctx := context.Background()

	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	if err := s.uow.Tasks.MarkGenerating(ctx, task.ID); err != nil {
		return
	}
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageGeneration,
		Color:     task.Color,
		State:     model.GenStateGenerating,
		Message:   fmt.Sprintf("正在生成 %s", task.Color),
	})

	result, err := s.ai.GenerateVariantImage(run.ctx, session.ID, task.ID, &VariantImageRequest{
		SeedImageBase64:   seedBase64,
		SeedImageMimeType: seedMime,
		BackgroundColor:   task.HexCode,
		ColorName:         task.Color,
		Breed:             task.Breed,
		PetName:           task.PetName,
		FeedbackText:      task.Feedback,
	})
	if err != nil {
		s.failGeneration(run, session.ID, task, err.Error())
		return
	}

	url, err := s.storage.SaveBase64(run.ctx, result.ImageBase64, fmt.Sprintf("generated/%d/task_%d", session.ID, task.ID), result.MimeType)
	if err != nil {
		s.failGeneration(run, session.ID, task, "保存生成图失败: "+err.Error())
		return
	}

	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	if err := s.uow.Tasks.MarkDone(ctx, task.ID, url, result.MimeType); err != nil {
		return
	}
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageGeneration,
		Color:     task.Color,
		State:     model.GenStateDone,
		Message:   fmt.Sprintf("%s 生成完成", task.Color),
	})
}

// failGeneration 生成失败：颜色间互不影响，只记录该色的错误
func (s *PipelineService) failGeneration(run *stageRun, sessionID int64, task *model.GenerationTask, msg string) {
	if !s.stillCurrent(sessionID, run.epoch) {
		return
	}
	_ = s.uow.Tasks.MarkError(context.Background(), task.ID, msg)
	s.notifyProgress(sessionID, dto.ProgressEvent{
		SessionID: sessionID,
		Stage:     model.StageGeneration,
		Color:     task.Color,
		State:     model.GenStateError,
		Message:   msg,
	})
}

// Regenerate 单色重生成：优先取一组新的命名组合，失败则沿用旧的
// 不取消也不等待其他颜色的任务
func (s *PipelineService) Regenerate(ctx context.Context, sessionID int64, req *dto.RegenerateRequest) error {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Stage != model.StageGeneration {
		return ErrStageMismatch
	}

	task, err := s.uow.Tasks.GetBySessionAndColor(ctx, sessionID, req.Color)
	if err != nil {
		return fmt.Errorf("颜色 %s 没有生成任务", req.Color)
	}
	if task.State == model.GenStateGenerating {
		return fmt.Errorf("颜色 %s 正在生成中", req.Color)
	}

	breed, petName := task.Breed, task.PetName
	if combos, err := s.ai.NameDescriptors(ctx, sessionID, 1, session.SubjectKind); err == nil && len(combos) > 0 {
		breed, petName = combos[0].Breed, combos[0].Name
	}
	if err := s.uow.Tasks.UpdateDescriptor(ctx, task.ID, breed, petName, req.Feedback); err != nil {
		return err
	}
	task.Breed, task.PetName, task.Feedback = breed, petName, req.Feedback

	run := s.currentRun(sessionID)
	if run == nil || run.stage != model.StageGeneration {
		run = s.beginStage(sessionID, model.StageGeneration)
	}

	go func() {
		seedBase64, seedMime, err := s.storage.FetchBase64(run.ctx, session.SeedImageURL)
		if err != nil {
			s.failGeneration(run, sessionID, task, "获取种子图失败: "+err.Error())
			return
		}
		s.generateOne(run, session, task, seedBase64, seedMime)
	}()

	return nil
}

// GenerationStatus 生成阶段状态
func (s *PipelineService) GenerationStatus(ctx context.Context, sessionID int64) (*dto.GenerationStatusResponse, error) {
	if _, err := s.uow.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	tasks, err := s.uow.Tasks.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	vos := make([]dto.GenerationTaskVO, len(tasks))
	for i := range tasks {
		vos[i] = toGenerationTaskVO(&tasks[i])
	}
	doneCount, errorCount := countGenerationStates(tasks)

	return &dto.GenerationStatusResponse{
		Tasks:      vos,
		Total:      len(tasks),
		DoneCount:  doneCount,
		ErrorCount: errorCount,
		AllDone:    AllGenerationDone(tasks),
	}, nil
}

func countGenerationStates(tasks []model.GenerationTask) (done, errored int) {
	for i := range tasks {
		switch tasks[i].State {
		case model.GenStateDone:
			done++
		case model.GenStateError:
			errored++
		}
	}
	return done, errored
}

// ==================== 建品阶段 ====================

// AdvanceToMockup 进入建品阶段
// 每次进入都重建产品记录；上一阶段未完成的出站任务随阶段切换取消
func (s *PipelineService) AdvanceToMockup(ctx context.Context, sessionID int64) (*dto.MockupStatusResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StageGeneration {
		return nil, ErrStageMismatch
	}

	tasks, err := s.uow.Tasks.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !AllGenerationDone(tasks) {
		return nil, ErrGenerationNotDone
	}

	template, err := session.Template()
	if err != nil {
		return nil, err
	}

	products := make([]model.MockupProduct, len(tasks))
	for i := range tasks {
		products[i] = model.MockupProduct{
			SessionID: sessionID,
			Color:     tasks[i].Color,
			State:     model.MockupStateUploading,
		}
	}

	err = s.uow.Transaction(ctx, func(uow *repository.PipelineUnitOfWork) error {
		if err := uow.Images.DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		if err := uow.Products.DeleteBySessionID(ctx, sessionID); err != nil {
			return err
		}
		if err := uow.Products.CreateBatch(ctx, products); err != nil {
			return err
		}
		return uow.Sessions.UpdateStage(ctx, sessionID, model.StageMockup)
	})
	if err != nil {
		return nil, fmt.Errorf("进入建品阶段失败: %v", err)
	}
	session.Stage = model.StageMockup

	run := s.beginStage(sessionID, model.StageMockup)
	go s.runMockups(run, session, &template, tasks, products)

	return s.MockupStatus(ctx, sessionID)
}

// runMockups 建品阶段扇出：颜色间并发，单色内部上传、建品两段串行
func (s *PipelineService) runMockups(run *stageRun, session *model.PipelineSession, template *printify.TemplateProduct, tasks []model.GenerationTask, products []model.MockupProduct) {
	if len(products) == 0 {
		s.notifyProgress(session.ID, dto.ProgressEvent{
			SessionID: session.ID,
			Stage:     model.StageMockup,
			Message:   "没有需要建品的颜色",
			AllDone:   true,
		})
		return
	}

	taskByColor := make(map[string]model.GenerationTask, len(tasks))
	for i := range tasks {
		taskByColor[tasks[i].Color] = tasks[i]
	}
	frameIndex := TemplateFrameIndex(template)

	var wg sync.WaitGroup
	for i := range products {
		wg.Add(1)
		go func(product model.MockupProduct) {
			defer wg.Done()
			s.mockupOne(run, session, template, frameIndex, taskByColor[product.Color], product)
		}(products[i])
	}
	wg.Wait()

	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	all, err := s.uow.Products.GetBySessionID(context.Background(), session.ID)
	if err != nil {
		return
	}
	doneCount, errorCount := countMockupStates(all)
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageMockup,
		Message:   fmt.Sprintf("本轮建品结束: 成功 %d, 失败 %d", doneCount, errorCount),
		AllDone:   AllMockupsTerminal(all),
	})
}

// mockupOne 单个颜色的两段建品流程：上传素材 → 按模板建品
func (s *PipelineService) mockupOne(run *stageRun, session *model.PipelineSession, template *printify.TemplateProduct, frameIndex map[int64]string, task model.GenerationTask, product model.MockupProduct) {
	ctx := context.Background()

	imageBase64, _, err := s.storage.FetchBase64(run.ctx, task.ImageURL)
	if err != nil {
		s.failMockup(run, session.ID, product, "获取生成图失败: "+err.Error())
		return
	}

	fileName := fmt.Sprintf("session_%d_color_%d.png", session.ID, product.ID)
	assetID, err := s.printify.UploadAsset(run.ctx, fileName, imageBase64)
	if err != nil {
		s.failMockup(run, session.ID, product, err.Error())
		return
	}

	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	if err := s.uow.Products.MarkCreating(ctx, product.ID, assetID); err != nil {
		return
	}
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageMockup,
		Color:     product.Color,
		State:     model.MockupStateCreating,
		Message:   fmt.Sprintf("%s 素材已上传，正在建品", product.Color),
	})

	customTitle := fmt.Sprintf("%s - %s", template.Title, product.Color)
	created, err := s.printify.CreateMockupProduct(run.ctx, template, assetID, customTitle)
	if err != nil {
		s.failMockup(run, session.ID, product, err.Error())
		return
	}

	images := make([]model.MockupImage, len(created.Images))
	for i := range created.Images {
		img := created.Images[i]
		images[i] = model.MockupImage{
			SessionID:          session.ID,
			MockupProductID:    product.ID,
			PositionIndex:      i,
			Src:                img.Src,
			ProviderVariantIDs: model.Int64Slice(img.VariantIDs),
			FrameKeys:          model.StringSlice(ImageFrameKeys(img.VariantIDs, frameIndex)),
		}
	}

	if !s.stillCurrent(session.ID, run.epoch) {
		return
	}
	if err := s.uow.Images.CreateBatch(ctx, images); err != nil {
		s.failMockup(run, session.ID, product, "保存渲染图失败: "+err.Error())
		return
	}
	if err := s.uow.Products.MarkDone(ctx, product.ID, created.ID); err != nil {
		return
	}
	s.notifyProgress(session.ID, dto.ProgressEvent{
		SessionID: session.ID,
		Stage:     model.StageMockup,
		Color:     product.Color,
		State:     model.MockupStateDone,
		Message:   fmt.Sprintf("%s 建品完成，共 %d 张渲染图", product.Color, len(images)),
	})
}

// failMockup 建品失败：该色被后续分组与匹配排除，不阻塞其他颜色
func (s *PipelineService) failMockup(run *stageRun, sessionID int64, product model.MockupProduct, msg string) {
	if !s.stillCurrent(sessionID, run.epoch) {
		return
	}
	_ = s.uow.Products.MarkError(context.Background(), product.ID, msg)
	s.notifyProgress(sessionID, dto.ProgressEvent{
		SessionID: sessionID,
		Stage:     model.StageMockup,
		Color:     product.Color,
		State:     model.MockupStateError,
		Message:   msg,
	})
}

// MockupStatus 建品阶段状态
func (s *PipelineService) MockupStatus(ctx context.Context, sessionID int64) (*dto.MockupStatusResponse, error) {
	if _, err := s.uow.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	products, err := s.uow.Products.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.uow.Images.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	imageCounts := make(map[int64]int)
	for i := range images {
		imageCounts[images[i].MockupProductID]++
	}

	vos := make([]dto.MockupProductVO, len(products))
	for i := range products {
		vos[i] = toMockupProductVO(&products[i], imageCounts[products[i].ID])
	}
	doneCount, errorCount := countMockupStates(products)

	return &dto.MockupStatusResponse{
		Products:    vos,
		Total:       len(products),
		DoneCount:   doneCount,
		ErrorCount:  errorCount,
		AllTerminal: AllMockupsTerminal(products),
	}, nil
}

func countMockupStates(products []model.MockupProduct) (done, errored int) {
	for i := range products {
		switch products[i].State {
		case model.MockupStateDone:
			done++
		case model.MockupStateError:
			errored++
		}
	}
	return done, errored
}

// ==================== 位置分组与选择 ====================

// GetPositionGroups 按位置分组的渲染图（仅取建品成功的颜色）
func (s *PipelineService) GetPositionGroups(ctx context.Context, sessionID int64) (*dto.PositionGroupsResponse, error) {
	if _, err := s.uow.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	products, err := s.uow.Products.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.uow.Images.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return buildPositionGroupsResponse(products, images), nil
}

// ToggleMockupImage 切换单张渲染图的选中状态
func (s *PipelineService) ToggleMockupImage(ctx context.Context, sessionID, imageID int64) (*dto.MockupImageVO, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StageMockup {
		return nil, ErrStageMismatch
	}

	img, err := s.uow.Images.GetByID(ctx, imageID)
	if err != nil || img.SessionID != sessionID {
		return nil, errors.New("渲染图不存在")
	}

	product, err := s.uow.Products.GetByID(ctx, img.MockupProductID)
	if err != nil || !product.IsDone() {
		return nil, errors.New("该颜色建品未完成，不能选择")
	}

	if err := s.uow.Images.SetSelected(ctx, imageID, !img.Selected); err != nil {
		return nil, err
	}
	img.Selected = !img.Selected

	vo := toMockupImageVO(img, product.Color)
	return &vo, nil
}

// TogglePositionGroup 位置组批量切换：全部已选则全取消，否则全选中
func (s *PipelineService) TogglePositionGroup(ctx context.Context, sessionID int64, positionIndex int) (*dto.PositionGroupsResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StageMockup {
		return nil, ErrStageMismatch
	}

	products, err := s.uow.Products.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.uow.Images.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	groups := BuildPositionGroups(products, images)
	var group *PositionGroup
	for i := range groups {
		if groups[i].PositionIndex == positionIndex {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return nil, fmt.Errorf("位置 %d 没有可选的渲染图", positionIndex)
	}

	target := BulkToggleTarget(group.Images)
	ids := make([]int64, len(group.Images))
	for i := range group.Images {
		ids[i] = group.Images[i].ID
	}
	if err := s.uow.Images.SetSelectedBatch(ctx, ids, target); err != nil {
		return nil, err
	}

	return s.GetPositionGroups(ctx, sessionID)
}

// ==================== 匹配与提交 ====================

// AdvanceToMatching 进入匹配阶段
func (s *PipelineService) AdvanceToMatching(ctx context.Context, sessionID int64) (*dto.MatchingPreviewResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StageMockup {
		return nil, ErrStageMismatch
	}

	products, err := s.uow.Products.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !AllMockupsTerminal(products) {
		return nil, ErrMockupNotTerminal
	}

	// 离开建品阶段：取消其未完成的出站任务
	s.beginStage(sessionID, model.StageMatching)
	if err := s.uow.Sessions.UpdateStage(ctx, sessionID, model.StageMatching); err != nil {
		return nil, err
	}
	session.Stage = model.StageMatching

	return s.matchingPreview(ctx, session)
}

// GetMatchingPreview 匹配预览（纯读，随选择变化实时重算）
func (s *PipelineService) GetMatchingPreview(ctx context.Context, sessionID int64) (*dto.MatchingPreviewResponse, error) {
	session, err := s.uow.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.Stage != model.StageMatching {
		return nil, ErrStageMismatch
	}
	return s.matchingPreview(ctx, session)
}

// buildMatching 汇总匹配行与按图片地址去重后的分配
func (s *PipelineService) buildMatching(ctx context.Context, session *model.PipelineSession) ([]MappingRow, []shopify.ImageAssignment, []string, error) {
	catalog, err := session.Catalog()
	if err != nil {
		return nil, nil, nil, err
	}
	template, err := session.Template()
	if err != nil {
		return nil, nil, nil, err
	}

	products, err := s.uow.Products.GetBySessionID(ctx, session.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	images, err := s.uow.Images.GetBySessionID(ctx, session.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	productByID := make(map[int64]model.MockupProduct, len(products))
	for i := range products {
		productByID[products[i].ID] = products[i]
	}

	// 建品失败的颜色在此被排除，其变体将落入 unmapped
	var selected []SelectedMockup
	for i := range images {
		img := images[i]
		if !img.Selected {
			continue
		}
		product, ok := productByID[img.MockupProductID]
		if !ok || !product.IsDone() {
			continue
		}
		selected = append(selected, SelectedMockup{
			Color:     product.Color,
			Src:       img.Src,
			FrameKeys: img.FrameKeys,
		})
	}

	axes := ResolveAxes(catalog.Options)
	rows := BuildMappingRows(&catalog, axes, session.SeedColor, &template, selected)
	assignments, unmapped := BuildAssignments(rows)
	return rows, assignments, unmapped, nil
}

func (s *PipelineService) matchingPreview(ctx context.Context, session *model.PipelineSession) (*dto.MatchingPreviewResponse, error) {
	rows, assignments, unmapped, err := s.buildMatching(ctx, session)
	if err != nil {
		return nil, err
	}

	rowVOs := make([]dto.MappingRowVO, len(rows))
	for i, row := range rows {
		rowVOs[i] = dto.MappingRowVO{
			VariantID:       row.VariantID,
			VariantTitle:    row.VariantTitle,
			BackgroundColor: row.BackgroundColor,
			FrameColor:      row.FrameColor,
			IsSeed:          row.IsSeed,
			MockupSrcs:      row.MockupSrcs,
		}
	}

	assignmentVOs := make([]dto.AssignmentVO, len(assignments))
	for i, a := range assignments {
		assignmentVOs[i] = dto.AssignmentVO{ImageURL: a.ImageURL, VariantIDs: a.VariantIDs}
	}

	return &dto.MatchingPreviewResponse{
		Rows:            rowVOs,
		Assignments:     assignmentVOs,
		AssignmentCount: len(assignments),
		UnmappedTitles:  unmapped,
	}, nil
}

// Commit 提交：目录分配与资产归档两笔独立写入
// 目录分配为零条时整体跳过；归档无条件执行；两者都只发一次，失败原样上抛，不回滚另一笔
func (s *PipelineService) Commit(ctx context.Context, sessionID, operatorID int64) (*dto.CommitResultResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != model.StageMatching {
		return nil, ErrStageMismatch
	}

	_, assignments, unmapped, err := s.buildMatching(ctx, session)
	if err != nil {
		return nil, err
	}

	// 幂等键：上次失败的提交沿用同一个键，目录端据此去重
	idemKey := uuid.New().String()
	if latest, err := s.commitRepo.GetLatestBySessionID(ctx, sessionID); err == nil && latest != nil && latest.Status == model.CommitStatusFailed {
		idemKey = latest.IdempotencyKey
	}

	tasks, err := s.uow.Tasks.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	products, err := s.uow.Products.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	images, err := s.uow.Images.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	template, err := session.Template()
	if err != nil {
		return nil, err
	}
	artifactCount := len(images) + len(template.Images)

	sources := make(pq.StringArray, len(assignments))
	for i, a := range assignments {
		sources[i] = a.ImageURL
	}

	record := &model.CommitRecord{
		SessionID:        sessionID,
		ShopifyProductID: session.ShopifyProductID,
		IdempotencyKey:   idemKey,
		AssignmentCount:  len(assignments),
		Sources:          sources,
		UnmappedTitles:   pq.StringArray(unmapped),
		ArtifactCount:    artifactCount,
	}

	if len(assignments) > 0 {
		err := s.shopify.CommitAssignment(ctx, &shopify.AssignmentReq{
			ProductID:      session.ShopifyProductID,
			Assignments:    assignments,
			IdempotencyKey: idemKey,
		})
		if err != nil {
			s.recordCommitFailure(ctx, session, record, "提交目录分配失败: "+err.Error())
			return nil, fmt.Errorf("提交目录分配失败: %v", err)
		}
	}

	if err := s.artifacts.SaveGeneratedArtifacts(ctx, session, idemKey, tasks, products, images); err != nil {
		s.recordCommitFailure(ctx, session, record, err.Error())
		return nil, err
	}

	record.Status = model.CommitStatusSuccess
	if err := s.commitRepo.Create(ctx, record); err != nil {
		log.Printf("[流水线] 写入提交留痕失败: %v", err)
	}

	err = s.uow.Sessions.UpdateFields(ctx, sessionID, map[string]interface{}{
		"status":        model.SessionStatusCommitted,
		"error_message": "",
		"updated_by":    operatorID,
	})
	if err != nil {
		return nil, fmt.Errorf("更新会话状态失败: %v", err)
	}
	s.endSession(sessionID)

	s.notifyProgress(sessionID, dto.ProgressEvent{
		SessionID: sessionID,
		Stage:     model.StageMatching,
		Message:   fmt.Sprintf("提交完成: %d 条分配, %d 条归档", len(assignments), artifactCount),
		AllDone:   true,
	})

	return &dto.CommitResultResponse{
		IdempotencyKey:  idemKey,
		Status:          model.CommitStatusSuccess,
		AssignmentCount: len(assignments),
		ArtifactCount:   artifactCount,
		CatalogSkipped:  len(assignments) == 0,
		UnmappedTitles:  unmapped,
	}, nil
}

// recordCommitFailure 提交失败留痕并把错误写回会话
func (s *PipelineService) recordCommitFailure(ctx context.Context, session *model.PipelineSession, record *model.CommitRecord, msg string) {
	record.Status = model.CommitStatusFailed
	record.ErrorMsg = msg
	if err := s.commitRepo.Create(ctx, record); err != nil {
		log.Printf("[流水线] 写入提交留痕失败: %v", err)
	}
	_ = s.uow.Sessions.UpdateFields(ctx, session.ID, map[string]interface{}{
		"error_message": msg,
	})
}

// ==================== 阶段回退 ====================

// GoBack 回退到更早的阶段
// 回退即离开当前阶段，当前阶段未完成的出站任务全部取消；
// 生成任务保留原状，建品记录在下一次进入建品阶段时重建
func (s *PipelineService) GoBack(ctx context.Context, sessionID int64, req *dto.GoBackRequest) (*dto.SessionDetailResponse, error) {
	session, err := s.getActiveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if stageOrder[req.Target] >= stageOrder[session.Stage] {
		return nil, errors.New("只能回退到更早的阶段")
	}

	s.beginStage(sessionID, req.Target)
	if err := s.uow.Sessions.UpdateStage(ctx, sessionID, req.Target); err != nil {
		return nil, err
	}
	session.Stage = req.Target

	return s.toSessionDetail(session)
}

// ==================== 视图转换 ====================

func (s *PipelineService) toSessionDetail(session *model.PipelineSession) (*dto.SessionDetailResponse, error) {
	catalog, err := session.Catalog()
	if err != nil {
		return nil, err
	}
	axes := ResolveAxes(catalog.Options)

	return &dto.SessionDetailResponse{
		Session: toSessionVO(session),
		Axes:    toAxesVO(axes),
	}, nil
}

func toSessionVO(session *model.PipelineSession) *dto.SessionVO {
	hexCodes := make(map[string]string, len(session.HexCodes))
	for color, v := range session.HexCodes {
		if hex, ok := v.(string); ok {
			hexCodes[color] = hex
		}
	}

	return &dto.SessionVO{
		ID:                 session.ID,
		Title:              session.Title,
		ShopifyProductID:   session.ShopifyProductID,
		PrintifyTemplateID: session.PrintifyTemplateID,
		SubjectKind:        session.SubjectKind,
		SeedImageURL:       session.SeedImageURL,
		Stage:              session.Stage,
		Status:             session.Status,
		SeedColor:          session.SeedColor,
		NonSeedColors:      []string(session.NonSeedColors),
		HexCodes:           hexCodes,
		SizeShared:         session.SizeShared,
		ErrorMessage:       session.ErrorMessage,
		CreatedBy:          session.CreatedBy,
		CreatedAt:          session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          session.UpdatedAt.Format(time.RFC3339),
	}
}

func toAxesVO(axes ResolvedAxes) *dto.AxesVO {
	vo := &dto.AxesVO{}
	if axes.BackgroundColor != nil {
		vo.BackgroundColor = &dto.AxisVO{Name: axes.BackgroundColor.Name, Values: axes.BackgroundColor.Values}
	}
	if axes.Size != nil {
		vo.Size = &dto.AxisVO{Name: axes.Size.Name, Values: axes.Size.Values}
	}
	if axes.FrameColor != nil {
		vo.FrameColor = &dto.AxisVO{Name: axes.FrameColor.Name, Values: axes.FrameColor.Values}
	}
	return vo
}

func toGenerationTaskVO(task *model.GenerationTask) dto.GenerationTaskVO {
	return dto.GenerationTaskVO{
		ID:           task.ID,
		Color:        task.Color,
		HexCode:      task.HexCode,
		State:        task.State,
		Breed:        task.Breed,
		PetName:      task.PetName,
		Feedback:     task.Feedback,
		ImageURL:     task.ImageURL,
		ErrorMessage: task.ErrorMessage,
		Attempts:     task.Attempts,
		UpdatedAt:    task.UpdatedAt.Format(time.RFC3339),
	}
}

func toMockupProductVO(product *model.MockupProduct, imageCount int) dto.MockupProductVO {
	return dto.MockupProductVO{
		ID:                product.ID,
		Color:             product.Color,
		State:             product.State,
		UploadedAssetID:   product.UploadedAssetID,
		ProviderProductID: product.ProviderProductID,
		ErrorMessage:      product.ErrorMessage,
		ImageCount:        imageCount,
	}
}

func toMockupImageVO(img *model.MockupImage, color string) dto.MockupImageVO {
	return dto.MockupImageVO{
		ID:              img.ID,
		MockupProductID: img.MockupProductID,
		Color:           color,
		PositionIndex:   img.PositionIndex,
		Src:             img.Src,
		FrameKeys:       []string(img.FrameKeys),
		Selected:        img.Selected,
	}
}

func buildPositionGroupsResponse(products []model.MockupProduct, images []model.MockupImage) *dto.PositionGroupsResponse {
	colorByProduct := make(map[int64]string, len(products))
	for i := range products {
		colorByProduct[products[i].ID] = products[i].Color
	}

	groups := BuildPositionGroups(products, images)
	groupVOs := make([]dto.PositionGroupVO, len(groups))
	selectedCount := 0
	for i, group := range groups {
		entries := make([]dto.MockupImageVO, len(group.Images))
		for j := range group.Images {
			img := group.Images[j]
			entries[j] = toMockupImageVO(&img, colorByProduct[img.MockupProductID])
			if img.Selected {
				selectedCount++
			}
		}
		groupVOs[i] = dto.PositionGroupVO{
			PositionIndex: group.PositionIndex,
			Label:         group.Label,
			Entries:       entries,
		}
	}

	return &dto.PositionGroupsResponse{Groups: groupVOs, SelectedCount: selectedCount}
}
