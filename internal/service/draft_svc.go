package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"listing_studio_v1_202608/internal/api/dto"
	"listing_studio_v1_202608/internal/model"
	"listing_studio_v1_202608/internal/repository"
)

// ==================== 外部服务依赖 ====================

// SuggestServiceInterface 建议服务接口
type SuggestServiceInterface interface {
	Suggest(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error)
}

// StorageServiceInterface 存储服务接口（可选，未配置时照片保持内联）
type StorageServiceInterface interface {
	SaveBase64(base64Data, prefix string) (url string, err error)
}

// ==================== 错误 ====================

// ErrSuggestionBusy 同一草稿已有进行中的建议请求
var ErrSuggestionBusy = errors.New("当前草稿已有进行中的建议请求")

// ==================== 服务实现 ====================

// DraftService 草稿服务：持有每台设备的当前草稿，负责建议合并、
// 快照持久化与发布
type DraftService struct {
	snapshots repository.DraftSnapshotRepository
	listings  repository.SavedListingRepository
	suggester SuggestServiceInterface
	storage   StorageServiceInterface

	// 每设备同时最多一个在途建议请求
	busy sync.Map // deviceID -> struct{}
}

// NewDraftService 创建草稿服务
func NewDraftService(
	snapshots repository.DraftSnapshotRepository,
	listings repository.SavedListingRepository,
	suggester SuggestServiceInterface,
	storage StorageServiceInterface,
) *DraftService {
	return &DraftService{
		snapshots: snapshots,
		listings:  listings,
		suggester: suggester,
		storage:   storage,
	}
}

// ==================== 快照读写 ====================

// loadState 读取设备的草稿状态；没有快照或快照损坏时回到空草稿
// 快照损坏只记日志，绝不让向导打不开；读库出错必须上抛，
// 否则后续写回会用空草稿覆盖用户的真实快照
func (s *DraftService) loadState(ctx context.Context, deviceID string) (*model.ListingDraft, *model.PendingSuggestions, int, error) {
	snap, err := s.snapshots.GetByDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NewListingDraft(), model.NewPendingSuggestions(), model.MinStep, nil
		}
		return nil, nil, 0, fmt.Errorf("读取快照失败: %v", err)
	}

	draft, err := snap.DecodeDraft()
	if err != nil {
		log.Printf("[Draft] 设备 %s 的快照损坏，丢弃重建: %v", deviceID, err)
		_ = s.snapshots.DeleteByDevice(ctx, deviceID)
		return model.NewListingDraft(), model.NewPendingSuggestions(), model.MinStep, nil
	}

	step := snap.Step
	if step < model.MinStep || step > model.MaxStep {
		step = model.MinStep
	}

	return draft, snap.DecodePending(), step, nil
}

// saveState 每次变更都落库
func (s *DraftService) saveState(ctx context.Context, deviceID string, draft *model.ListingDraft, pending *model.PendingSuggestions, step int) error {
	snap := &model.DraftSnapshot{
		DeviceID: deviceID,
		Step:     step,
	}
	if err := snap.Encode(draft, pending); err != nil {
		return fmt.Errorf("序列化快照失败: %v", err)
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("保存快照失败: %v", err)
	}
	return nil
}

// toStateResponse 组装草稿状态视图
func toStateResponse(draft *model.ListingDraft, pending *model.PendingSuggestions, step int) *dto.DraftStateResponse {
	resp := &dto.DraftStateResponse{
		Step:  step,
		Draft: draft,
	}
	if len(pending.Fields) > 0 || len(pending.Attributes) > 0 {
		resp.Pending = &dto.PendingSuggestions{
			Fields:     pending.Fields,
			Attributes: pending.Attributes,
		}
	}
	return resp
}

// ==================== 草稿操作 ====================

// GetDraft 获取（或恢复）当前草稿
func (s *DraftService) GetDraft(ctx context.Context, deviceID string) (*dto.DraftStateResponse, error) {
	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return toStateResponse(draft, pending, step), nil
}

// UpdateDraft 按字段更新草稿并持久化
func (s *DraftService) UpdateDraft(ctx context.Context, deviceID string, req *dto.UpdateDraftRequest) (*dto.DraftStateResponse, error) {
	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if req.Photos != nil {
		if len(req.Photos) > model.MaxPhotos {
			return nil, fmt.Errorf("照片数量不能超过 %d 张", model.MaxPhotos)
		}
		draft.Photos = req.Photos
	}
	if req.Video != nil {
		draft.Video = *req.Video
	}
	if req.Category != nil {
		draft.Category = *req.Category
	}
	if req.Title != nil {
		draft.Title = *req.Title
	}
	if req.Price != nil {
		if *req.Price != "" && !model.IsValidPrice(*req.Price) {
			return nil, fmt.Errorf("价格必须是非负数字")
		}
		draft.Price = *req.Price
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, fmt.Errorf("库存数量必须大于等于 1")
		}
		draft.Quantity = *req.Quantity
	}
	if req.SKU != nil {
		draft.SKU = *req.SKU
	}
	if req.Personalization != nil {
		draft.Personalization = *req.Personalization
	}
	if req.ItemType != nil {
		if *req.ItemType != "" && *req.ItemType != model.ItemTypePhysical && *req.ItemType != model.ItemTypeDigital {
			return nil, fmt.Errorf("商品类型必须是 physical 或 digital")
		}
		draft.ItemType = *req.ItemType
	}
	if req.CoreDetails != nil {
		draft.CoreDetails = req.CoreDetails
	}
	if req.ShippingDetails != nil {
		draft.ShippingDetails = *req.ShippingDetails
	}
	if req.Materials != nil {
		draft.Materials = req.Materials
	}
	if req.Tags != nil {
		draft.Tags = MergeTags(req.Tags, nil)
	}
	if req.Attributes != nil {
		for key, value := range req.Attributes {
			if !model.IsKnownAttributeKey(key) {
				return nil, fmt.Errorf("不支持的属性键: %s", key)
			}
			if draft.Attributes == nil {
				draft.Attributes = make(map[string]string)
			}
			if value == "" {
				delete(draft.Attributes, key)
			} else {
				draft.Attributes[key] = value
			}
		}
	}
	if req.Description != nil {
		draft.Description = *req.Description
	}

	if err := s.saveState(ctx, deviceID, draft, pending, step); err != nil {
		return nil, err
	}

	return toStateResponse(draft, pending, step), nil
}

// DiscardDraft 丢弃当前草稿
func (s *DraftService) DiscardDraft(ctx context.Context, deviceID string) error {
	return s.snapshots.DeleteByDevice(ctx, deviceID)
}

// ==================== 建议请求 ====================

// RequestSuggestions 收集草稿上下文并请求一次建议，随后按策略合并
// 同一设备同时只允许一个在途请求；失败原样上抛，由用户决定是否重试
func (s *DraftService) RequestSuggestions(ctx context.Context, deviceID string) (*dto.SuggestOutcome, error) {
	if _, loaded := s.busy.LoadOrStore(deviceID, struct{}{}); loaded {
		return nil, ErrSuggestionBusy
	}
	defer s.busy.Delete(deviceID)

	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	// 历史商品取最近的一小段窗口
	priors, err := s.listings.LatestByDevice(ctx, deviceID, maxPriorListings)
	if err != nil {
		return nil, fmt.Errorf("读取历史商品失败: %v", err)
	}
	priorListings := make([]model.PriorListing, len(priors))
	for i, p := range priors {
		priorListings[i] = p.ToPriorListing()
	}

	in := &SuggestInput{
		CurrentTitle:       draft.Title,
		CurrentDescription: draft.Description,
		CurrentTags:        draft.Tags,
		PriorListings:      priorListings,
	}
	if len(draft.Photos) > 0 {
		in.ImageRef = draft.Photos[0]
	}

	suggestions, err := s.suggester.Suggest(ctx, in)
	if err != nil {
		return nil, err
	}

	applied := ApplySuggestions(draft, suggestions, pending)

	if err := s.saveState(ctx, deviceID, draft, pending, step); err != nil {
		return nil, err
	}

	outcome := &dto.SuggestOutcome{Applied: applied}
	if len(pending.Fields) > 0 || len(pending.Attributes) > 0 {
		outcome.Pending = &dto.PendingSuggestions{
			Fields:     pending.Fields,
			Attributes: pending.Attributes,
		}
	}
	return outcome, nil
}

// AcceptSuggestion 接受某字段的待确认建议
func (s *DraftService) AcceptSuggestion(ctx context.Context, deviceID, field string) (*dto.DraftStateResponse, error) {
	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := AcceptSuggestion(draft, pending, field); err != nil {
		return nil, err
	}
	if err := s.saveState(ctx, deviceID, draft, pending, step); err != nil {
		return nil, err
	}
	return toStateResponse(draft, pending, step), nil
}

// RejectSuggestion 拒绝某字段的待确认建议
func (s *DraftService) RejectSuggestion(ctx context.Context, deviceID, field string) (*dto.DraftStateResponse, error) {
	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := RejectSuggestion(pending, field); err != nil {
		return nil, err
	}
	if err := s.saveState(ctx, deviceID, draft, pending, step); err != nil {
		return nil, err
	}
	return toStateResponse(draft, pending, step), nil
}

// ==================== 向导步骤 ====================

// wizardSteps 七步线性流程（无分支）
var wizardSteps = []dto.StepInfo{
	{Number: 1, Title: "Photos & videos", Next: "Add category"},
	{Number: 2, Title: "Category", Next: "Add info like title and pricing"},
	{Number: 3, Title: "Basic info", Next: "Core details, shipping, and more"},
	{Number: 4, Title: "Details & shipping", Next: "Add tags and attributes"},
	{Number: 5, Title: "Tags & Attributes", Next: "Last step—final touches!"},
	{Number: 6, Title: "Final touches", Next: "Buyer Preview"},
	{Number: 7, Title: "Buyer Preview", Next: ""},
}

// Steps 步骤元信息
func (s *DraftService) Steps() []dto.StepInfo {
	return wizardSteps
}

// NextStep 前进一步，越界时停在最后一步
func (s *DraftService) NextStep(ctx context.Context, deviceID string) (int, error) {
	return s.moveStep(ctx, deviceID, 1)
}

// BackStep 后退一步，越界时停在第一步
func (s *DraftService) BackStep(ctx context.Context, deviceID string) (int, error) {
	return s.moveStep(ctx, deviceID, -1)
}

func (s *DraftService) moveStep(ctx context.Context, deviceID string, delta int) (int, error) {
	draft, pending, step, err := s.loadState(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	step += delta
	if step < model.MinStep {
		step = model.MinStep
	}
	if step > model.MaxStep {
		step = model.MaxStep
	}

	if err := s.saveState(ctx, deviceID, draft, pending, step); err != nil {
		return 0, err
	}
	return step, nil
}

// ==================== 发布 ====================

// Publish 将草稿提升为已发布商品：校验、落库、清空快照
// 发布后快照必须清空，避免旧草稿在完成后复活
func (s *DraftService) Publish(ctx context.Context, deviceID string) (*dto.SavedListingVO, error) {
	draft, _, _, err := s.loadState(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if err := draft.CanPublish(); err != nil {
		return nil, err
	}

	listingID := uuid.New().String()

	// 存储服务可用时，把内联照片转存为稳定 URL
	photos := draft.Photos
	if s.storage != nil {
		photos = s.offloadPhotos(draft.Photos, listingID)
	}

	listing := &model.SavedListing{
		ListingID:       listingID,
		DeviceID:        deviceID,
		Title:           draft.Title,
		Description:     draft.Description,
		Category:        draft.Category,
		Price:           draft.Price,
		Quantity:        draft.Quantity,
		SKU:             draft.SKU,
		Personalization: draft.Personalization,
		ItemType:        draft.ItemType,
		Photos:          model.StringSlice(photos),
		Video:           draft.Video,
		CoreDetails:     model.StringSlice(draft.CoreDetails),
		ShippingDetails: draft.ShippingDetails,
		Materials:       model.StringSlice(draft.Materials),
		Tags:            datatypes.JSONSlice[string](draft.Tags),
		Attributes:      model.StringMap(draft.Attributes),
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("保存商品失败: %v", err)
	}

	if err := s.snapshots.DeleteByDevice(ctx, deviceID); err != nil {
		// 商品已落库，快照清理失败只记日志
		log.Printf("[Draft] 设备 %s 发布后清理快照失败: %v", deviceID, err)
	}

	return toListingVO(listing), nil
}

// offloadPhotos 将 data URI 照片转存到对象存储；失败的照片保持内联
func (s *DraftService) offloadPhotos(photos []string, listingID string) []string {
	out := make([]string, len(photos))
	for i, photo := range photos {
		out[i] = photo
		if !strings.HasPrefix(photo, "data:") {
			continue
		}
		comma := strings.Index(photo, ",")
		if comma < 0 {
			continue
		}
		prefix := fmt.Sprintf("listings/%s/photo_%d", listingID, i)
		url, err := s.storage.SaveBase64(photo[comma+1:], prefix)
		if err != nil {
			log.Printf("[Draft] 转存第 %d 张照片失败: %v", i+1, err)
			continue
		}
		out[i] = url
	}
	return out
}

// ==================== 商品查询 ====================

// ListListings 按创建顺序返回设备的全部已发布商品
func (s *DraftService) ListListings(ctx context.Context, deviceID string) ([]dto.SavedListingVO, error) {
	listings, err := s.listings.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.SavedListingVO, len(listings))
	for i := range listings {
		result[i] = *toListingVO(&listings[i])
	}
	return result, nil
}

// GetListing 获取单个已发布商品
func (s *DraftService) GetListing(ctx context.Context, deviceID, listingID string) (*dto.SavedListingVO, error) {
	listing, err := s.listings.GetByListingID(ctx, deviceID, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("商品不存在")
		}
		return nil, err
	}
	return toListingVO(listing), nil
}

// DeleteListing 显式删除已发布商品
func (s *DraftService) DeleteListing(ctx context.Context, deviceID, listingID string) error {
	err := s.listings.Delete(ctx, deviceID, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("商品不存在")
	}
	return err
}

// toListingVO 转换为视图对象
func toListingVO(l *model.SavedListing) *dto.SavedListingVO {
	return &dto.SavedListingVO{
		ID:              l.ListingID,
		Title:           l.Title,
		Description:     l.Description,
		Category:        l.Category,
		Price:           l.Price,
		Quantity:        l.Quantity,
		SKU:             l.SKU,
		Personalization: l.Personalization,
		ItemType:        l.ItemType,
		Photos:          []string(l.Photos),
		Video:           l.Video,
		CoreDetails:     []string(l.CoreDetails),
		ShippingDetails: l.ShippingDetails,
		Materials:       []string(l.Materials),
		Tags:            []string(l.Tags),
		Attributes:      map[string]string(l.Attributes),
		CreatedAt:       l.CreatedAt.Format(time.RFC3339),
	}
}
