package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"listing_studio_v1_202608/internal/controller"
	"listing_studio_v1_202608/internal/model"
	"listing_studio_v1_202608/internal/repository"
	"listing_studio_v1_202608/internal/router"
	"listing_studio_v1_202608/internal/service"
	"listing_studio_v1_202608/internal/task"
	"listing_studio_v1_202608/pkg/database"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	Snapshot repository.DraftSnapshotRepository
	Listing  repository.SavedListingRepository
}

// Services 服务集合
type Services struct {
	Suggest *service.SuggestService
	Storage *service.StorageService
	Draft   *service.DraftService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DB_DRIVER", "sqlite"),
		getEnv("DB_DSN", ""),
		// Draft
		&model.DraftSnapshot{},
		// Listing
		&model.SavedListing{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Snapshot: repository.NewDraftSnapshotRepository(db),
		Listing:  repository.NewSavedListingRepository(db),
	}

	// -------- 存储 & AI 服务 --------
	storageSvc := initStorageService()
	suggestSvc := service.NewSuggestService(&service.SuggestConfig{
		ApiKey: getEnv("GEMINI_API_KEY", ""),
	})

	// 存储服务初始化失败时照片保持内联，不能把带 nil 指针的接口传下去
	var storage service.StorageServiceInterface
	if storageSvc != nil {
		storage = storageSvc
	}

	// -------- 业务服务 --------
	services := &Services{
		Suggest: suggestSvc,
		Storage: storageSvc,
	}
	services.Draft = service.NewDraftService(repos.Snapshot, repos.Listing, suggestSvc, storage)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Suggest: controller.NewSuggestController(suggestSvc),
		Draft:   controller.NewDraftController(services.Draft),
		Listing: controller.NewListingController(services.Draft),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initStorageService 初始化存储服务
func initStorageService() *service.StorageService {
	storageSvc, err := service.NewStorageService(&service.StorageConfig{
		Provider:  getEnv("STORAGE_PROVIDER", "local"),
		Bucket:    getEnv("AWS_BUCKET", ""),
		Region:    getEnv("AWS_REGION", ""),
		AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
		BasePath:  getEnv("STORAGE_BASE_PATH", "listing-studio"),
		LocalDir:  getEnv("STORAGE_LOCAL_DIR", "uploads"),
		LocalBase: getEnv("STORAGE_LOCAL_BASE", "/uploads"),
	})
	if err != nil {
		log.Printf("警告: 存储服务初始化失败: %v", err)
		return nil
	}
	return storageSvc
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// 废弃草稿快照清理
	cleanupTask := task.NewCleanupTask(deps.Repos.Snapshot)
	cleanupTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
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
