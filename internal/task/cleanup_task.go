package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"listing_studio_v1_202608/internal/repository"
)

// CleanupTask 定期清理长期未更新的草稿快照
type CleanupTask struct {
	SnapshotRepo repository.DraftSnapshotRepository
	Cron         *cron.Cron

	// 超过该时长未更新的快照视为废弃草稿
	retention time.Duration
}

func NewCleanupTask(snapshotRepo repository.DraftSnapshotRepository) *CleanupTask {
	return &CleanupTask{
		SnapshotRepo: snapshotRepo,
		Cron:         cron.New(cron.WithSeconds()), // 支持秒级控制
		retention:    30 * 24 * time.Hour,          // 30 天
	}
}

// Start 启动定时任务
func (t *CleanupTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次快照清理...")
		t.cleanupJob(ctx)
	}()

	// 每天凌晨 4 点清理一次
	_, err := t.Cron.AddFunc("0 0 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		t.cleanupJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动快照清理定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("快照清理任务已启动 (每天凌晨 4 点执行)")
}

// 清理逻辑
func (t *CleanupTask) cleanupJob(ctx context.Context) {
	before := time.Now().Add(-t.retention)

	stale, err := t.SnapshotRepo.FindStale(ctx, before)
	if err != nil {
		log.Printf("[Cron] 废弃快照查询失败: %v", err)
		return
	}
	if len(stale) == 0 {
		log.Println("[Cron] 没有需要清理的快照")
		return
	}

	deleted, err := t.SnapshotRepo.DeleteStale(ctx, before)
	if err != nil {
		log.Printf("[Cron] 快照清理失败: %v", err)
		return
	}

	log.Printf("[Cron] 本轮快照清理完成，共删除 %d 条", deleted)
}
