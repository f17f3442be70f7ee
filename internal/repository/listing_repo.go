package repository

import (
	"context"

	"gorm.io/gorm"

	"listing_studio_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// SavedListingRepository 已发布商品仓储接口
// 商品创建后不可变：接口刻意不提供 Update
type SavedListingRepository interface {
	Create(ctx context.Context, listing *model.SavedListing) error
	GetByListingID(ctx context.Context, deviceID, listingID string) (*model.SavedListing, error)
	ListByDevice(ctx context.Context, deviceID string) ([]model.SavedListing, error)
	LatestByDevice(ctx context.Context, deviceID string, limit int) ([]model.SavedListing, error)
	Delete(ctx context.Context, deviceID, listingID string) error
	CountByDevice(ctx context.Context, deviceID string) (int64, error)
}

// ==================== 仓储实现 ====================

type savedListingRepo struct {
	db *gorm.DB
}

// NewSavedListingRepository 创建已发布商品仓储
func NewSavedListingRepository(db *gorm.DB) SavedListingRepository {
	return &savedListingRepo{db: db}
}

func (r *savedListingRepo) Create(ctx context.Context, listing *model.SavedListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *savedListingRepo) GetByListingID(ctx context.Context, deviceID, listingID string) (*model.SavedListing, error) {
	var listing model.SavedListing
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND listing_id = ?", deviceID, listingID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListByDevice 按插入顺序返回（插入顺序即创建顺序）
func (r *savedListingRepo) ListByDevice(ctx context.Context, deviceID string) ([]model.SavedListing, error) {
	var listings []model.SavedListing
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("id ASC").
		Find(&listings).Error
	return listings, err
}

// LatestByDevice 返回最近创建的 limit 条（结果仍按创建顺序排列）
func (r *savedListingRepo) LatestByDevice(ctx context.Context, deviceID string, limit int) ([]model.SavedListing, error) {
	var listings []model.SavedListing
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("id DESC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	// 倒序查询后翻转，保持创建顺序
	for i, j := 0, len(listings)-1; i < j; i, j = i+1, j-1 {
		listings[i], listings[j] = listings[j], listings[i]
	}
	return listings, nil
}

func (r *savedListingRepo) Delete(ctx context.Context, deviceID, listingID string) error {
	result := r.db.WithContext(ctx).
		Where("device_id = ? AND listing_id = ?", deviceID, listingID).
		Delete(&model.SavedListing{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *savedListingRepo) CountByDevice(ctx context.Context, deviceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SavedListing{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count, err
}
