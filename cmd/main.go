package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"pod_studio_v1_202608/internal/controller"
	"pod_studio_v1_202608/internal/middleware"
	"pod_studio_v1_202608/internal/model"
	"pod_studio_v1_202608/internal/repository"
	"pod_studio_v1_202608/internal/router"
	"pod_studio_v1_202608/internal/service"
	"pod_studio_v1_202608/internal/task"
	"pod_studio_v1_202608/pkg/database"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// @title POD Studio API
// @version 1.0
// @description 打印定制商品变体图片流水线服务
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动后台任务
	tm := initTasks(deps)

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r, tm)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Controllers *router.Controllers
	Services    *Services
}

// Repositories 仓库集合
type Repositories struct {
	User          repository.UserRepository
	Session       repository.SessionRepository
	GenTask       repository.GenerationTaskRepository
	MockupProduct repository.MockupProductRepository
	MockupImage   repository.MockupImageRepository
	GenLog        repository.GenerationLogRepository
	Commit        repository.CommitRecordRepository
	PipelineUow   *repository.PipelineUnitOfWork
}

// Services 服务集合
type Services struct {
	User     *service.UserService
	Pipeline *service.PipelineService
	Shopify  *service.ShopifyService
	Printify *service.PrintifyService
	AI       *service.AIService
	Storage  *service.StorageService
	Artifact *service.ArtifactService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=postgres password=postgres dbname=pod_studio port=5432 sslmode=disable TimeZone=UTC")
	verbose := getEnv("DB_VERBOSE", "") == "true"

	db := database.InitDB(dsn, verbose,
		// Manager
		&model.SysUser{},
		// Pipeline
		&model.PipelineSession{}, &model.GenerationTask{},
		&model.MockupProduct{}, &model.MockupImage{},
		// Audit
		&model.GenerationLog{}, &model.CommitRecord{},
	)

	middleware.RegisterAuditCallbacks(db)
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT 配置 --------
	jwtCfg := middleware.DefaultJWTConfig()
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		jwtCfg.SecretKey = secret
	}
	middleware.SetJWTConfig(jwtCfg)

	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 外部服务 --------
	shopifySvc := service.NewShopifyService(&service.ShopifyConfig{
		ShopDomain:  getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		AccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
	})
	printifySvc := service.NewPrintifyService(&service.PrintifyConfig{
		APIToken: getEnv("PRINTIFY_API_TOKEN", ""),
		ShopID:   getEnv("PRINTIFY_SHOP_ID", ""),
	})
	aiSvc := service.NewAIService(&service.AIConfig{
		ApiKey: getEnv("GEMINI_API_KEY", ""),
	}, repos.GenLog)
	storageSvc := initStorageService()
	artifactSvc := initArtifactService()

	// -------- 业务服务 --------
	services := &Services{
		Shopify:  shopifySvc,
		Printify: printifySvc,
		AI:       aiSvc,
		Storage:  storageSvc,
		Artifact: artifactSvc,
	}

	services.Pipeline = service.NewPipelineService(
		repos.PipelineUow, repos.Commit,
		shopifySvc, printifySvc, aiSvc, storageSvc, artifactSvc,
	)
	services.User = service.NewUserService(repos.User)

	// 管理员账号引导
	if err := services.User.EnsureAdmin(context.Background(),
		getEnv("ADMIN_USERNAME", "admin"),
		getEnv("ADMIN_PASSWORD", ""),
	); err != nil {
		log.Printf("警告: 管理员账号初始化失败: %v", err)
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		User:     controller.NewUserController(services.User),
		Pipeline: controller.NewPipelineController(services.Pipeline),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Controllers: controllers,
		Services:    services,
	}
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          repository.NewUserRepository(db),
		Session:       repository.NewSessionRepository(db),
		GenTask:       repository.NewGenerationTaskRepository(db),
		MockupProduct: repository.NewMockupProductRepository(db),
		MockupImage:   repository.NewMockupImageRepository(db),
		GenLog:        repository.NewGenerationLogRepository(db),
		Commit:        repository.NewCommitRecordRepository(db),
		PipelineUow:   repository.NewPipelineUnitOfWork(db),
	}
}

// initStorageService 初始化存储服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "s3"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "pod-studio"),
	})
	if err != nil {
		// 流水线各阶段都依赖存储，起不来就直接退出
		log.Fatalf("存储服务初始化失败: %v", err)
	}
	return storageSvc
}

// initArtifactService 初始化归档服务
func initArtifactService() *service.ArtifactService {
	artifactSvc, err := service.NewArtifactService(&service.ArtifactConfig{
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
	})
	if err != nil {
		log.Fatalf("归档服务初始化失败: %v", err)
	}
	return artifactSvc
}

// ==================== 后台任务 ====================

// initTasks 启动后台任务
func initTasks(deps *Dependencies) *task.TaskManager {
	cfg := task.DefaultConfig()
	if v := getEnv("SESSION_TTL_MINUTES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Minute
		}
	}
	if v := getEnv("LOG_RETENTION_DAYS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogRetention = time.Duration(n) * 24 * time.Hour
		}
	}

	tm := task.NewTaskManager(&task.TaskManagerDeps{
		SessionExpirer: deps.Services.Pipeline,
		GenLogRepo:     deps.Repos.GenLog,
	}, cfg)
	tm.Start()

	log.Println("后台任务已启动")
	return tm
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine, tm *task.TaskManager) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	tm.Stop()

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
