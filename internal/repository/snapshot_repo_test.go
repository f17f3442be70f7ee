package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing_studio_v1_202608/internal/model"
)

func setupRepoTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.DraftSnapshot{}, &model.SavedListing{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

// ==================== 快照仓储测试 ====================

func TestSnapshotRepo_SaveUpsert(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDraftSnapshotRepository(db)
	ctx := context.Background()

	// 首次保存
	err := repo.Save(ctx, &model.DraftSnapshot{
		DeviceID: "device-1",
		Step:     1,
		Payload:  `{"title":"v1"}`,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// 同设备再次保存应覆盖而不是新增
	err = repo.Save(ctx, &model.DraftSnapshot{
		DeviceID: "device-1",
		Step:     3,
		Payload:  `{"title":"v2"}`,
	})
	if err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}

	var count int64
	db.Model(&model.DraftSnapshot{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	snap, err := repo.GetByDevice(ctx, "device-1")
	if err != nil {
		t.Fatalf("GetByDevice() error = %v", err)
	}
	if snap.Step != 3 || snap.Payload != `{"title":"v2"}` {
		t.Errorf("snap = %+v", snap)
	}
}

func TestSnapshotRepo_GetByDevice_NotFound(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDraftSnapshotRepository(db)

	if _, err := repo.GetByDevice(context.Background(), "missing"); err == nil {
		t.Error("不存在的设备应该返回错误")
	}
}

func TestSnapshotRepo_DeleteByDevice(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDraftSnapshotRepository(db)
	ctx := context.Background()

	_ = repo.Save(ctx, &model.DraftSnapshot{DeviceID: "device-1"})

	if err := repo.DeleteByDevice(ctx, "device-1"); err != nil {
		t.Fatalf("DeleteByDevice() error = %v", err)
	}
	if _, err := repo.GetByDevice(ctx, "device-1"); err == nil {
		t.Error("删除后仍能查到快照")
	}
}

func TestSnapshotRepo_Stale(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDraftSnapshotRepository(db)
	ctx := context.Background()

	old := time.Now().Add(-40 * 24 * time.Hour)
	db.Create(&model.DraftSnapshot{DeviceID: "stale-device", UpdatedAt: old, CreatedAt: old})
	_ = repo.Save(ctx, &model.DraftSnapshot{DeviceID: "fresh-device"})

	before := time.Now().Add(-30 * 24 * time.Hour)

	stale, err := repo.FindStale(ctx, before)
	if err != nil {
		t.Fatalf("FindStale() error = %v", err)
	}
	if len(stale) != 1 || stale[0].DeviceID != "stale-device" {
		t.Errorf("stale = %+v", stale)
	}

	deleted, err := repo.DeleteStale(ctx, before)
	if err != nil {
		t.Fatalf("DeleteStale() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// 新鲜快照不受影响
	if _, err := repo.GetByDevice(ctx, "fresh-device"); err != nil {
		t.Errorf("新鲜快照被误删: %v", err)
	}
}

// ==================== 商品仓储测试 ====================

func createListings(t *testing.T, repo SavedListingRepository, deviceID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := repo.Create(ctx, &model.SavedListing{
			ListingID: fmt.Sprintf("%s-listing-%d", deviceID, i),
			DeviceID:  deviceID,
			Title:     fmt.Sprintf("Listing %d", i),
			Tags:      datatypes.JSONSlice[string]{"handmade"},
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
}

func TestListingRepo_ListByDevice(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSavedListingRepository(db)
	ctx := context.Background()

	createListings(t, repo, "device-1", 3)
	createListings(t, repo, "device-2", 1)

	listings, err := repo.ListByDevice(ctx, "device-1")
	if err != nil {
		t.Fatalf("ListByDevice() error = %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("len = %d, want 3", len(listings))
	}
	// 按创建顺序
	for i, l := range listings {
		if l.Title != fmt.Sprintf("Listing %d", i) {
			t.Errorf("listings[%d].Title = %s", i, l.Title)
		}
	}
}

func TestListingRepo_LatestByDevice(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSavedListingRepository(db)
	ctx := context.Background()

	createListings(t, repo, "device-1", 8)

	latest, err := repo.LatestByDevice(ctx, "device-1", 5)
	if err != nil {
		t.Fatalf("LatestByDevice() error = %v", err)
	}
	if len(latest) != 5 {
		t.Fatalf("len = %d, want 5", len(latest))
	}
	// 取最近 5 条，且仍按创建顺序返回
	if latest[0].Title != "Listing 3" || latest[4].Title != "Listing 7" {
		t.Errorf("窗口错误: %s ... %s", latest[0].Title, latest[4].Title)
	}
}

func TestListingRepo_Delete(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSavedListingRepository(db)
	ctx := context.Background()

	createListings(t, repo, "device-1", 1)

	// 跨设备删除不生效
	if err := repo.Delete(ctx, "device-2", "device-1-listing-0"); err != gorm.ErrRecordNotFound {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}

	if err := repo.Delete(ctx, "device-1", "device-1-listing-0"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	count, _ := repo.CountByDevice(ctx, "device-1")
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestListingRepo_JSONColumnsRoundTrip(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewSavedListingRepository(db)
	ctx := context.Background()

	err := repo.Create(ctx, &model.SavedListing{
		ListingID:  "listing-json",
		DeviceID:   "device-1",
		Title:      "Mug",
		Tags:       datatypes.JSONSlice[string]{"a", "b"},
		Materials:  model.StringSlice{"clay"},
		Attributes: model.StringMap{"craftType": "Pottery"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByListingID(ctx, "device-1", "listing-json")
	if err != nil {
		t.Fatalf("GetByListingID() error = %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.Attributes["craftType"] != "Pottery" {
		t.Errorf("Attributes = %v", got.Attributes)
	}
}
