package dto

// ==================== 请求 DTO ====================

// SuggestRequest 建议接口请求
// 所有字段可选，空上下文也是合法输入（产出更泛化的建议）
type SuggestRequest struct {
	CurrentTitle       string                `json:"currentTitle,omitempty"`
	CurrentDescription string                `json:"currentDescription,omitempty"`
	CurrentTags        []string              `json:"currentTags,omitempty"`
	ImageURL           string                `json:"imageUrl,omitempty"`
	PreviousListings   []PreviousListingItem `json:"previousListings,omitempty"`
}

// PreviousListingItem 历史商品上下文条目
type PreviousListingItem struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category,omitempty"`
}

// ==================== 响应 DTO ====================

// SuggestResponse 建议接口响应，字段可空（null 表示无建议）
type SuggestResponse struct {
	Category        *string           `json:"category"`
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Tags            []string          `json:"tags"`
	Materials       []string          `json:"materials"`
	CoreDetails     []string          `json:"coreDetails"`
	ShippingDetails *string           `json:"shippingDetails"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// SuggestErrorResponse 建议接口错误响应
type SuggestErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}
