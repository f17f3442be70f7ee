package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"listing_studio_v1_202608/internal/api/dto"
	"listing_studio_v1_202608/internal/model"
	"listing_studio_v1_202608/internal/repository"
)

// ==================== Mock 实现 ====================

type mockSuggester struct {
	suggestFn func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error)
}

func (m *mockSuggester) Suggest(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, in)
	}
	title := "Suggested Title"
	return &model.AISuggestions{
		Title: &title,
		Tags:  []string{"handmade"},
	}, nil
}

type mockStorage struct {
	saveBase64Fn func(data, prefix string) (string, error)
}

func (m *mockStorage) SaveBase64(data, prefix string) (string, error) {
	if m.saveBase64Fn != nil {
		return m.saveBase64Fn(data, prefix)
	}
	return "https://storage.example.com/" + prefix + ".jpg", nil
}

// ==================== 测试辅助函数 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
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

func newTestService(t *testing.T, suggester SuggestServiceInterface, storage StorageServiceInterface) (*DraftService, *gorm.DB) {
	db := setupServiceTestDB(t)

	svc := NewDraftService(
		repository.NewDraftSnapshotRepository(db),
		repository.NewSavedListingRepository(db),
		suggester,
		storage,
	)

	return svc, db
}

func fillPublishable(t *testing.T, svc *DraftService, deviceID string) {
	t.Helper()
	title := "Handmade Mug"
	desc := "A mug."
	price := "25.00"
	_, err := svc.UpdateDraft(context.Background(), deviceID, &dto.UpdateDraftRequest{
		Title:       &title,
		Description: &desc,
		Price:       &price,
	})
	if err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}
}

// ==================== 草稿快照测试 ====================

func TestDraftService_GetDraft_Fresh(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)

	state, err := svc.GetDraft(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}

	if state.Step != model.MinStep {
		t.Errorf("Step = %d, want %d", state.Step, model.MinStep)
	}
	draft := state.Draft.(*model.ListingDraft)
	if draft.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", draft.Quantity)
	}
	if len(draft.Photos) != 0 || len(draft.Tags) != 0 {
		t.Errorf("新草稿不应有内容: %+v", draft)
	}
}

func TestDraftService_UpdateDraft_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()
	deviceID := "device-1"

	title := "Ceramic Mug"
	price := "34.50"
	quantity := 3
	itemType := model.ItemTypePhysical
	_, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{
		Title:       &title,
		Price:       &price,
		Quantity:    &quantity,
		ItemType:    &itemType,
		Photos:      []string{"data:image/jpeg;base64,abc"},
		Tags:        []string{"handmade", "ceramic"},
		CoreDetails: []string{"Hand thrown"},
		Attributes:  map[string]string{model.AttrPrimaryColor: "Blue"},
	})
	if err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	// 重新读取，内容应逐字段还原
	state, err := svc.GetDraft(ctx, deviceID)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}

	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != title || draft.Price != price || draft.Quantity != quantity {
		t.Errorf("draft = %+v", draft)
	}
	if !reflect.DeepEqual(draft.Tags, []string{"handmade", "ceramic"}) {
		t.Errorf("Tags = %v", draft.Tags)
	}
	if !reflect.DeepEqual(draft.Photos, []string{"data:image/jpeg;base64,abc"}) {
		t.Errorf("Photos = %v", draft.Photos)
	}
	if draft.Attributes[model.AttrPrimaryColor] != "Blue" {
		t.Errorf("Attributes = %v", draft.Attributes)
	}
}

func TestDraftService_UpdateDraft_Validation(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	badPrice := "abc"
	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{Price: &badPrice}); err == nil {
		t.Error("非法价格应该返回错误")
	}

	negPrice := "-5"
	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{Price: &negPrice}); err == nil {
		t.Error("负数价格应该返回错误")
	}

	zero := 0
	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{Quantity: &zero}); err == nil {
		t.Error("库存为 0 应该返回错误")
	}

	badType := "service"
	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{ItemType: &badType}); err == nil {
		t.Error("未知商品类型应该返回错误")
	}

	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{
		Attributes: map[string]string{"bogus": "x"},
	}); err == nil {
		t.Error("未知属性键应该返回错误")
	}

	tooMany := make([]string, model.MaxPhotos+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("photo-%d", i)
	}
	if _, err := svc.UpdateDraft(ctx, "d", &dto.UpdateDraftRequest{Photos: tooMany}); err == nil {
		t.Error("超出照片上限应该返回错误")
	}
}

func TestDraftService_UpdateDraft_TagsDeduped(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)

	state, err := svc.UpdateDraft(context.Background(), "d", &dto.UpdateDraftRequest{
		Tags: []string{"a", "a", "", "b"},
	})
	if err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	draft := state.Draft.(*model.ListingDraft)
	if !reflect.DeepEqual(draft.Tags, []string{"a", "b"}) {
		t.Errorf("Tags = %v", draft.Tags)
	}
}

func TestDraftService_CorruptSnapshotRecovery(t *testing.T) {
	svc, db := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()
	deviceID := "device-corrupt"

	db.Create(&model.DraftSnapshot{
		DeviceID: deviceID,
		Step:     3,
		Payload:  "{ this is not json",
	})

	// 损坏的快照丢弃重建，而不是报错
	state, err := svc.GetDraft(ctx, deviceID)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	if state.Step != model.MinStep {
		t.Errorf("Step = %d, want %d", state.Step, model.MinStep)
	}

	// 损坏的记录应已被删除
	var count int64
	db.Model(&model.DraftSnapshot{}).Where("device_id = ?", deviceID).Count(&count)
	if count != 0 {
		t.Errorf("损坏快照残留 %d 条", count)
	}
}

// flakySnapshotRepo 按开关让 GetByDevice 失败，模拟瞬时数据库故障
type flakySnapshotRepo struct {
	repository.DraftSnapshotRepository
	failGet bool
}

func (r *flakySnapshotRepo) GetByDevice(ctx context.Context, deviceID string) (*model.DraftSnapshot, error) {
	if r.failGet {
		return nil, errors.New("database is locked")
	}
	return r.DraftSnapshotRepository.GetByDevice(ctx, deviceID)
}

func TestDraftService_TransientReadErrorDoesNotWipeSnapshot(t *testing.T) {
	db := setupServiceTestDB(t)
	repo := &flakySnapshotRepo{DraftSnapshotRepository: repository.NewDraftSnapshotRepository(db)}
	svc := NewDraftService(repo, repository.NewSavedListingRepository(db), &mockSuggester{}, nil)
	ctx := context.Background()
	deviceID := "device-flaky"

	title := "Handmade Mug"
	if _, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{Title: &title}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	// 读库失败必须报错，而不是当成没有快照
	repo.failGet = true
	other := "Overwriting Title"
	if _, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{Title: &other}); err == nil {
		t.Fatal("读库失败时 UpdateDraft() 应返回错误")
	}
	if _, err := svc.GetDraft(ctx, deviceID); err == nil {
		t.Fatal("读库失败时 GetDraft() 应返回错误")
	}
	if _, err := svc.NextStep(ctx, deviceID); err == nil {
		t.Fatal("读库失败时 NextStep() 应返回错误")
	}

	// 故障恢复后原有草稿原样还在
	repo.failGet = false
	state, err := svc.GetDraft(ctx, deviceID)
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "Handmade Mug" {
		t.Errorf("快照被空草稿覆盖: Title = %q", draft.Title)
	}
}

func TestDraftService_DeviceIsolation(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	titleA := "Device A Mug"
	if _, err := svc.UpdateDraft(ctx, "device-a", &dto.UpdateDraftRequest{Title: &titleA}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	state, err := svc.GetDraft(ctx, "device-b")
	if err != nil {
		t.Fatalf("GetDraft() error = %v", err)
	}
	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "" {
		t.Errorf("设备间草稿串话: Title = %s", draft.Title)
	}
}

func TestDraftService_DiscardDraft(t *testing.T) {
	svc, db := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	fillPublishable(t, svc, "device-1")

	if err := svc.DiscardDraft(ctx, "device-1"); err != nil {
		t.Fatalf("DiscardDraft() error = %v", err)
	}

	var count int64
	db.Model(&model.DraftSnapshot{}).Count(&count)
	if count != 0 {
		t.Errorf("丢弃后快照残留 %d 条", count)
	}
}

// ==================== 建议请求测试 ====================

func TestDraftService_RequestSuggestions(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			title := "Suggested Title"
			return &model.AISuggestions{
				Title:      &title,
				Tags:       []string{"handmade", "gift"},
				Attributes: map[string]string{model.AttrCraftType: "Pottery"},
			}, nil
		},
	}, nil)
	ctx := context.Background()

	outcome, err := svc.RequestSuggestions(ctx, "device-1")
	if err != nil {
		t.Fatalf("RequestSuggestions() error = %v", err)
	}

	// 空草稿：标量和标签直接填入，属性进入待确认
	if len(outcome.Applied) != 2 {
		t.Errorf("Applied = %v", outcome.Applied)
	}
	if outcome.Pending == nil || outcome.Pending.Attributes[model.AttrCraftType] != "Pottery" {
		t.Errorf("Pending = %+v", outcome.Pending)
	}

	// 合并结果已持久化
	state, _ := svc.GetDraft(ctx, "device-1")
	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "Suggested Title" {
		t.Errorf("Title = %s", draft.Title)
	}
	if !reflect.DeepEqual(draft.Tags, []string{"handmade", "gift"}) {
		t.Errorf("Tags = %v", draft.Tags)
	}
}

func TestDraftService_RequestSuggestions_UsesContext(t *testing.T) {
	var captured *SuggestInput
	svc, db := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			captured = in
			return &model.AISuggestions{}, nil
		},
	}, nil)
	ctx := context.Background()

	// 历史商品
	for i := 0; i < 7; i++ {
		db.Create(&model.SavedListing{
			ListingID: fmt.Sprintf("listing-%d", i),
			DeviceID:  "device-1",
			Title:     fmt.Sprintf("Prior %d", i),
			Tags:      datatypes.JSONSlice[string]{"old"},
		})
	}

	title := "Current Mug"
	if _, err := svc.UpdateDraft(ctx, "device-1", &dto.UpdateDraftRequest{
		Title:  &title,
		Photos: []string{"data:image/png;base64,abc"},
	}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	if _, err := svc.RequestSuggestions(ctx, "device-1"); err != nil {
		t.Fatalf("RequestSuggestions() error = %v", err)
	}

	if captured == nil {
		t.Fatal("建议服务未被调用")
	}
	if captured.CurrentTitle != "Current Mug" {
		t.Errorf("CurrentTitle = %s", captured.CurrentTitle)
	}
	if captured.ImageRef != "data:image/png;base64,abc" {
		t.Errorf("ImageRef = %s", captured.ImageRef)
	}
	// 历史上下文限制在最近一段窗口内
	if len(captured.PriorListings) != maxPriorListings {
		t.Errorf("len(PriorListings) = %d, want %d", len(captured.PriorListings), maxPriorListings)
	}
}

func TestDraftService_RequestSuggestions_Busy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once

	svc, _ := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			startedOnce.Do(func() { close(started) })
			<-release
			return &model.AISuggestions{}, nil
		},
	}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.RequestSuggestions(ctx, "device-1")
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("超时等待首个请求启动")
	}

	// 在途请求未完成时，第二个请求立刻拒绝
	_, err := svc.RequestSuggestions(ctx, "device-1")
	if !errors.Is(err, ErrSuggestionBusy) {
		t.Errorf("err = %v, want ErrSuggestionBusy", err)
	}

	// 其他设备不受影响，但建议服务会阻塞在同一个 release 上，
	// 所以这里只验证同设备互斥，释放后再收尾
	close(release)
	wg.Wait()

	// 完成后同设备可以再次请求
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err != nil {
		t.Errorf("释放后再次请求失败: %v", err)
	}
}

func TestDraftService_RequestSuggestions_Failure(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			return nil, errors.New("模型超时")
		},
	}, nil)
	ctx := context.Background()

	fillPublishable(t, svc, "device-1")

	// 失败原样上抛，草稿保持不变
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err == nil {
		t.Fatal("建议失败时应该返回错误")
	}

	state, _ := svc.GetDraft(ctx, "device-1")
	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "Handmade Mug" {
		t.Errorf("失败后草稿被修改: %s", draft.Title)
	}

	// 失败后忙标志应已释放
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err == nil || errors.Is(err, ErrSuggestionBusy) {
		t.Errorf("忙标志未释放: %v", err)
	}
}

// ==================== 接受 / 拒绝测试 ====================

func TestDraftService_AcceptSuggestion(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			title := "Better Title"
			return &model.AISuggestions{Title: &title}, nil
		},
	}, nil)
	ctx := context.Background()

	fillPublishable(t, svc, "device-1")
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err != nil {
		t.Fatalf("RequestSuggestions() error = %v", err)
	}

	state, err := svc.AcceptSuggestion(ctx, "device-1", FieldTitle)
	if err != nil {
		t.Fatalf("AcceptSuggestion() error = %v", err)
	}

	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "Better Title" {
		t.Errorf("Title = %s", draft.Title)
	}
	if state.Pending != nil {
		t.Errorf("接受后 Pending 应清空: %+v", state.Pending)
	}

	// 决定应已持久化
	state, _ = svc.GetDraft(ctx, "device-1")
	if state.Draft.(*model.ListingDraft).Title != "Better Title" {
		t.Error("接受结果未持久化")
	}
}

func TestDraftService_RejectSuggestion(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{
		suggestFn: func(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
			title := "Better Title"
			return &model.AISuggestions{Title: &title}, nil
		},
	}, nil)
	ctx := context.Background()

	fillPublishable(t, svc, "device-1")
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err != nil {
		t.Fatalf("RequestSuggestions() error = %v", err)
	}

	state, err := svc.RejectSuggestion(ctx, "device-1", FieldTitle)
	if err != nil {
		t.Fatalf("RejectSuggestion() error = %v", err)
	}

	draft := state.Draft.(*model.ListingDraft)
	if draft.Title != "Handmade Mug" {
		t.Errorf("拒绝不应修改草稿: %s", draft.Title)
	}

	// 再次请求同一建议也不会重新出现
	if _, err := svc.RequestSuggestions(ctx, "device-1"); err != nil {
		t.Fatalf("RequestSuggestions() error = %v", err)
	}
	state, _ = svc.GetDraft(ctx, "device-1")
	if state.Pending != nil && state.Pending.Fields[FieldTitle] != "" {
		t.Error("已拒绝的字段不应再次进入待确认")
	}
}

func TestDraftService_AcceptSuggestion_NotFound(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)

	if _, err := svc.AcceptSuggestion(context.Background(), "device-1", FieldTitle); err == nil {
		t.Error("没有待确认建议时应该返回错误")
	}
}

// ==================== 向导步骤测试 ====================

func TestDraftService_Steps(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)

	steps := svc.Steps()
	if len(steps) != model.MaxStep {
		t.Fatalf("len(steps) = %d, want %d", len(steps), model.MaxStep)
	}
	if steps[0].Title != "Photos & videos" {
		t.Errorf("steps[0] = %+v", steps[0])
	}
	if steps[6].Title != "Buyer Preview" || steps[6].Next != "" {
		t.Errorf("steps[6] = %+v", steps[6])
	}
}

func TestDraftService_StepNavigation(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()
	deviceID := "device-1"

	// 第一步后退仍停在第一步
	step, err := svc.BackStep(ctx, deviceID)
	if err != nil {
		t.Fatalf("BackStep() error = %v", err)
	}
	if step != model.MinStep {
		t.Errorf("step = %d, want %d", step, model.MinStep)
	}

	// 一路前进到最后一步后不再越界
	for i := 0; i < 10; i++ {
		step, err = svc.NextStep(ctx, deviceID)
		if err != nil {
			t.Fatalf("NextStep() error = %v", err)
		}
	}
	if step != model.MaxStep {
		t.Errorf("step = %d, want %d", step, model.MaxStep)
	}

	// 步骤随快照持久化
	state, _ := svc.GetDraft(ctx, deviceID)
	if state.Step != model.MaxStep {
		t.Errorf("持久化步骤 = %d", state.Step)
	}
}

// ==================== 发布测试 ====================

func TestDraftService_Publish_Validation(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.UpdateDraftRequest
	}{
		{name: "空草稿"},
		{
			name: "缺少价格",
			req: dto.UpdateDraftRequest{
				Title:       strPtr("Mug"),
				Description: strPtr("Desc"),
			},
		},
		{
			name: "缺少描述",
			req: dto.UpdateDraftRequest{
				Title: strPtr("Mug"),
				Price: strPtr("10"),
			},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceID := fmt.Sprintf("device-%d", i)
			if _, err := svc.UpdateDraft(ctx, deviceID, &tt.req); err != nil {
				t.Fatalf("UpdateDraft() error = %v", err)
			}
			if _, err := svc.Publish(ctx, deviceID); err == nil {
				t.Error("不完整的草稿不应发布成功")
			}
		})
	}
}

func TestDraftService_Publish(t *testing.T) {
	svc, db := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()
	deviceID := "device-1"

	fillPublishable(t, svc, deviceID)
	if _, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{
		Tags:       []string{"handmade"},
		Attributes: map[string]string{model.AttrTheme: "Rustic"},
	}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	vo, err := svc.Publish(ctx, deviceID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if vo.ID == "" {
		t.Error("发布结果缺少商品 ID")
	}
	if vo.Title != "Handmade Mug" || vo.Price != "25.00" {
		t.Errorf("vo = %+v", vo)
	}
	if !reflect.DeepEqual(vo.Tags, []string{"handmade"}) {
		t.Errorf("Tags = %v", vo.Tags)
	}

	// 发布后快照必须清空
	var count int64
	db.Model(&model.DraftSnapshot{}).Where("device_id = ?", deviceID).Count(&count)
	if count != 0 {
		t.Errorf("发布后快照残留 %d 条", count)
	}

	// 新草稿从头开始
	state, _ := svc.GetDraft(ctx, deviceID)
	if state.Draft.(*model.ListingDraft).Title != "" {
		t.Error("发布后草稿未重置")
	}
}

func TestDraftService_Publish_OffloadsPhotos(t *testing.T) {
	var savedPrefix string
	storage := &mockStorage{
		saveBase64Fn: func(data, prefix string) (string, error) {
			savedPrefix = prefix
			return "https://cdn.example.com/" + prefix + ".jpg", nil
		},
	}
	svc, _ := newTestService(t, &mockSuggester{}, storage)
	ctx := context.Background()
	deviceID := "device-1"

	fillPublishable(t, svc, deviceID)
	inline := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	if _, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{
		Photos: []string{inline, "https://already.example.com/p.jpg"},
	}); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}

	vo, err := svc.Publish(ctx, deviceID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if !strings.HasPrefix(vo.Photos[0], "https://cdn.example.com/listings/") {
		t.Errorf("Photos[0] = %s", vo.Photos[0])
	}
	if !strings.Contains(savedPrefix, "photo_0") {
		t.Errorf("savedPrefix = %s", savedPrefix)
	}
	// 已是 URL 的照片原样保留
	if vo.Photos[1] != "https://already.example.com/p.jpg" {
		t.Errorf("Photos[1] = %s", vo.Photos[1])
	}
}

// ==================== 商品查询测试 ====================

func TestDraftService_ListAndGetListings(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	// 依次发布两件商品
	var ids []string
	for i := 0; i < 2; i++ {
		deviceID := "device-1"
		title := fmt.Sprintf("Mug %d", i)
		desc := "Desc"
		price := "10"
		if _, err := svc.UpdateDraft(ctx, deviceID, &dto.UpdateDraftRequest{
			Title: &title, Description: &desc, Price: &price,
		}); err != nil {
			t.Fatalf("UpdateDraft() error = %v", err)
		}
		vo, err := svc.Publish(ctx, deviceID)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		ids = append(ids, vo.ID)
	}

	listings, err := svc.ListListings(ctx, "device-1")
	if err != nil {
		t.Fatalf("ListListings() error = %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("len = %d, want 2", len(listings))
	}
	// 按创建顺序返回
	if listings[0].Title != "Mug 0" || listings[1].Title != "Mug 1" {
		t.Errorf("顺序错误: %s, %s", listings[0].Title, listings[1].Title)
	}

	got, err := svc.GetListing(ctx, "device-1", ids[0])
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if got.Title != "Mug 0" {
		t.Errorf("Title = %s", got.Title)
	}

	// 其他设备看不到
	if _, err := svc.GetListing(ctx, "device-2", ids[0]); err == nil {
		t.Error("跨设备查询应该失败")
	}
}

func TestDraftService_DeleteListing(t *testing.T) {
	svc, _ := newTestService(t, &mockSuggester{}, nil)
	ctx := context.Background()

	fillPublishable(t, svc, "device-1")
	vo, err := svc.Publish(ctx, "device-1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if err := svc.DeleteListing(ctx, "device-1", vo.ID); err != nil {
		t.Fatalf("DeleteListing() error = %v", err)
	}

	listings, _ := svc.ListListings(ctx, "device-1")
	if len(listings) != 0 {
		t.Errorf("删除后仍有 %d 件商品", len(listings))
	}

	// 重复删除
	if err := svc.DeleteListing(ctx, "device-1", vo.ID); err == nil {
		t.Error("删除不存在的商品应该返回错误")
	}
}
