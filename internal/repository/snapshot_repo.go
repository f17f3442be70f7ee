package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"listing_studio_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// DraftSnapshotRepository 草稿快照仓储接口
type DraftSnapshotRepository interface {
	GetByDevice(ctx context.Context, deviceID string) (*model.DraftSnapshot, error)
	Save(ctx context.Context, snap *model.DraftSnapshot) error
	DeleteByDevice(ctx context.Context, deviceID string) error

	// 过期清理相关
	FindStale(ctx context.Context, before time.Time) ([]model.DraftSnapshot, error)
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type draftSnapshotRepo struct {
	db *gorm.DB
}

// NewDraftSnapshotRepository 创建草稿快照仓储
func NewDraftSnapshotRepository(db *gorm.DB) DraftSnapshotRepository {
	return &draftSnapshotRepo{db: db}
}

func (r *draftSnapshotRepo) GetByDevice(ctx context.Context, deviceID string) (*model.DraftSnapshot, error) {
	var snap model.DraftSnapshot
	if err := r.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&snap).Error; err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save 按设备号 upsert，每次字段更新都会落库
func (r *draftSnapshotRepo) Save(ctx context.Context, snap *model.DraftSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"step", "payload", "pending", "updated_at"}),
	}).Create(snap).Error
}

func (r *draftSnapshotRepo) DeleteByDevice(ctx context.Context, deviceID string) error {
	return r.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&model.DraftSnapshot{}).Error
}

// FindStale 查找长期未更新的快照
func (r *draftSnapshotRepo) FindStale(ctx context.Context, before time.Time) ([]model.DraftSnapshot, error) {
	var snaps []model.DraftSnapshot
	err := r.db.WithContext(ctx).Where("updated_at < ?", before).Find(&snaps).Error
	return snaps, err
}

// DeleteStale 删除长期未更新的快照
func (r *draftSnapshotRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("updated_at < ?", before).Delete(&model.DraftSnapshot{})
	return result.RowsAffected, result.Error
}
