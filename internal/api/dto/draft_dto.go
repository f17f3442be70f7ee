package dto

// ==================== 请求 DTO ====================

// UpdateDraftRequest 更新草稿请求（仅提供的字段会被写入）
type UpdateDraftRequest struct {
	Photos          []string          `json:"photos,omitempty"`
	Video           *string           `json:"video,omitempty"`
	Category        *string           `json:"category,omitempty"`
	Title           *string           `json:"title,omitempty"`
	Price           *string           `json:"price,omitempty"`
	Quantity        *int              `json:"quantity,omitempty"`
	SKU             *string           `json:"sku,omitempty"`
	Personalization *string           `json:"personalization,omitempty"`
	ItemType        *string           `json:"itemType,omitempty"`
	CoreDetails     []string          `json:"coreDetails,omitempty"`
	ShippingDetails *string           `json:"shippingDetails,omitempty"`
	Materials       []string          `json:"materials,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	Description     *string           `json:"description,omitempty"`

	// 首次上传照片后自动触发一次建议请求（向导第一步的行为）
	AutoSuggest bool `json:"autoSuggest,omitempty"`
}

// SuggestionDecisionRequest 接受/拒绝建议请求
// 属性字段以 "attributes.craftType" 形式寻址
type SuggestionDecisionRequest struct {
	Field string `json:"field" binding:"required"`
}

// ==================== 响应 DTO ====================

// DraftStateResponse 草稿当前状态
type DraftStateResponse struct {
	Step    int                 `json:"step"`
	Draft   interface{}         `json:"draft"`
	Pending *PendingSuggestions `json:"pending,omitempty"`
}

// PendingSuggestions 待确认建议视图
type PendingSuggestions struct {
	Fields     map[string]string `json:"fields,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SuggestOutcome 一次建议请求的合并结果
type SuggestOutcome struct {
	Applied []string            `json:"applied"` // 自动填入的字段
	Pending *PendingSuggestions `json:"pending,omitempty"`
}

// StepInfo 向导步骤元信息
type StepInfo struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Next   string `json:"next"`
}

// SavedListingVO 已发布商品视图对象
type SavedListingVO struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Category        string            `json:"category,omitempty"`
	Price           string            `json:"price"`
	Quantity        int               `json:"quantity"`
	SKU             string            `json:"sku,omitempty"`
	Personalization string            `json:"personalization,omitempty"`
	ItemType        string            `json:"itemType,omitempty"`
	Photos          []string          `json:"photos"`
	Video           string            `json:"video,omitempty"`
	CoreDetails     []string          `json:"coreDetails,omitempty"`
	ShippingDetails string            `json:"shippingDetails,omitempty"`
	Materials       []string          `json:"materials,omitempty"`
	Tags            []string          `json:"tags"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	CreatedAt       string            `json:"createdAt"`
}
