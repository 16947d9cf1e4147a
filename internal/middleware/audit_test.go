package middleware

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pod_studio_v1_202608/internal/model"
)

func setupAuditTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	RegisterAuditCallbacks(db)

	if err := db.AutoMigrate(&model.PipelineSession{}, &model.GenerationTask{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func TestAuditCallbacks_CreateFillsOperator(t *testing.T) {
	db := setupAuditTestDB(t)
	ctx := WithAuditInfo(context.Background(), 42, "op42")

	session := model.PipelineSession{
		Title:  "审计测试",
		Stage:  model.StagePlan,
		Status: model.SessionStatusActive,
	}
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if session.CreatedBy != 42 {
		t.Errorf("CreatedBy = %d, want 42", session.CreatedBy)
	}
	if session.UpdatedBy != 42 {
		t.Errorf("UpdatedBy = %d, want 42", session.UpdatedBy)
	}
}

func TestAuditCallbacks_NoContextLeavesZero(t *testing.T) {
	db := setupAuditTestDB(t)

	session := model.PipelineSession{
		Title:  "无审计上下文",
		Stage:  model.StagePlan,
		Status: model.SessionStatusActive,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if session.CreatedBy != 0 {
		t.Errorf("CreatedBy = %d, want 0", session.CreatedBy)
	}
}

func TestAuditCallbacks_PresetValueKept(t *testing.T) {
	db := setupAuditTestDB(t)
	ctx := WithAuditInfo(context.Background(), 42, "op42")

	// 显式指定的创建人不被覆盖
	session := model.PipelineSession{
		Title:  "显式创建人",
		Stage:  model.StagePlan,
		Status: model.SessionStatusActive,
	}
	session.CreatedBy = 99
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	if session.CreatedBy != 99 {
		t.Errorf("CreatedBy = %d, want 99", session.CreatedBy)
	}
}

func TestAuditCallbacks_UpdateFillsUpdater(t *testing.T) {
	db := setupAuditTestDB(t)

	// 无上下文创建，UpdatedBy 为零
	session := model.PipelineSession{
		Title:  "更新审计",
		Stage:  model.StagePlan,
		Status: model.SessionStatusActive,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	ctx := WithAuditInfo(context.Background(), 43, "op43")
	session.Title = "更新后的标题"
	if err := db.WithContext(ctx).Save(&session).Error; err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	if session.UpdatedBy != 43 {
		t.Errorf("UpdatedBy = %d, want 43", session.UpdatedBy)
	}
}

func TestAuditCallbacks_BatchCreate(t *testing.T) {
	db := setupAuditTestDB(t)
	ctx := WithAuditInfo(context.Background(), 7, "op7")

	tasks := []model.GenerationTask{
		{SessionID: 1, Color: "Red", State: model.GenStatePending},
		{SessionID: 1, Color: "Blue", State: model.GenStatePending},
	}
	if err := db.WithContext(ctx).Create(&tasks).Error; err != nil {
		t.Fatalf("批量创建失败: %v", err)
	}

	for i, task := range tasks {
		if task.CreatedBy != 7 {
			t.Errorf("tasks[%d].CreatedBy = %d, want 7", i, task.CreatedBy)
		}
	}
}

func TestGetAuditInfo(t *testing.T) {
	ctx := WithAuditInfo(context.Background(), 5, "tester")

	info := GetAuditInfo(ctx)
	if info == nil {
		t.Fatal("应能取到审计信息")
	}
	if info.UserID != 5 || info.Username != "tester" {
		t.Errorf("info = %+v, want UserID=5 Username=tester", info)
	}

	if GetAuditUserID(context.Background()) != 0 {
		t.Error("空上下文应返回 0")
	}
}
