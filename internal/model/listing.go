package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ==================== 常量 ====================

const (
	// 草稿约束
	MaxTags   = 13 // 标签上限
	MaxPhotos = 20 // 照片上限

	// 向导步骤范围
	MinStep = 1
	MaxStep = 7

	// 商品类型
	ItemTypePhysical = "physical"
	ItemTypeDigital  = "digital"
)

// 属性键固定集合
const (
	AttrCraftType      = "craftType"
	AttrPrimaryColor   = "primaryColor"
	AttrSecondaryColor = "secondaryColor"
	AttrOccasion       = "occasion"
	AttrHoliday        = "holiday"
	AttrTheme          = "theme"
)

// KnownAttributeKeys 支持的属性键列表（顺序即展示顺序）
var KnownAttributeKeys = []string{
	AttrCraftType,
	AttrPrimaryColor,
	AttrSecondaryColor,
	AttrOccasion,
	AttrHoliday,
	AttrTheme,
}

// IsKnownAttributeKey 判断属性键是否在固定集合中
func IsKnownAttributeKey(key string) bool {
	for _, k := range KnownAttributeKeys {
		if k == key {
			return true
		}
	}
	return false
}

// 价格必须是非负十进制字符串
var priceRe = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// IsValidPrice 校验价格字符串
func IsValidPrice(price string) bool {
	return priceRe.MatchString(strings.TrimSpace(price))
}

// ==================== JSON 类型 ====================

// StringSlice 字符串切片（JSON 存储）
type StringSlice []string

// Value 必须声明在值接收者上，database/sql 只检查值自身的方法集
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, s)
}

// StringMap 字符串映射（JSON 存储）
type StringMap map[string]string

// Value 同样声明在值接收者上，否则 map 字段永远走不到这里
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]string)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, m)
}

// ==================== 草稿 ====================

// ListingDraft 进行中的商品草稿（每设备单份，单一持有者可变记录）
type ListingDraft struct {
	Photos          []string          `json:"photos"`
	Video           string            `json:"video,omitempty"`
	Category        string            `json:"category,omitempty"`
	Title           string            `json:"title"`
	Price           string            `json:"price"`
	Quantity        int               `json:"quantity"`
	SKU             string            `json:"sku,omitempty"`
	Personalization string            `json:"personalization,omitempty"`
	ItemType        string            `json:"itemType,omitempty"`
	CoreDetails     []string          `json:"coreDetails,omitempty"`
	ShippingDetails string            `json:"shippingDetails,omitempty"`
	Materials       []string          `json:"materials,omitempty"`
	Tags            []string          `json:"tags"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	Description     string            `json:"description"`
}

// NewListingDraft 创建空草稿（向导打开时的初始状态）
func NewListingDraft() *ListingDraft {
	return &ListingDraft{
		Photos:   []string{},
		Tags:     []string{},
		Quantity: 1,
	}
}

// CanPublish 检查草稿是否满足发布条件
func (d *ListingDraft) CanPublish() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("标题不能为空")
	}
	if strings.TrimSpace(d.Description) == "" {
		return errors.New("描述不能为空")
	}
	if strings.TrimSpace(d.Price) == "" {
		return errors.New("价格不能为空")
	}
	if !IsValidPrice(d.Price) {
		return errors.New("价格必须是非负数字")
	}
	if d.Quantity < 1 {
		return errors.New("库存数量必须大于等于 1")
	}
	return nil
}

// ==================== AI 建议 ====================

// AISuggestions 单次建议调用的结果，所有字段可空；nil 表示无建议
type AISuggestions struct {
	Category        *string           `json:"category"`
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Tags            []string          `json:"tags"`
	Materials       []string          `json:"materials"`
	CoreDetails     []string          `json:"coreDetails"`
	ShippingDetails *string           `json:"shippingDetails"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}

// IsEmpty 是否没有任何建议
func (s *AISuggestions) IsEmpty() bool {
	return s.Category == nil && s.Title == nil && s.Description == nil &&
		len(s.Tags) == 0 && len(s.Materials) == 0 && len(s.CoreDetails) == 0 &&
		s.ShippingDetails == nil && len(s.Attributes) == 0
}

// PriorListing 历史商品摘要（仅作为提示词上下文，只读）
type PriorListing struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Category    string   `json:"category,omitempty"`
}

// PendingSuggestions 等待用户确认的建议（标量字段与属性键各自独立）
type PendingSuggestions struct {
	Fields     map[string]string `json:"fields,omitempty"`     // 字段名 -> 建议值
	Attributes map[string]string `json:"attributes,omitempty"` // 属性键 -> 建议值
	Rejected   []string          `json:"rejected,omitempty"`   // 本次会话内已拒绝的字段
}

// NewPendingSuggestions 创建空的待确认集合
func NewPendingSuggestions() *PendingSuggestions {
	return &PendingSuggestions{
		Fields:     make(map[string]string),
		Attributes: make(map[string]string),
	}
}

// IsRejected 字段是否已被拒绝
func (p *PendingSuggestions) IsRejected(field string) bool {
	for _, f := range p.Rejected {
		if f == field {
			return true
		}
	}
	return false
}

// MarkRejected 标记字段为已拒绝（会话内不再提供）
func (p *PendingSuggestions) MarkRejected(field string) {
	if !p.IsRejected(field) {
		p.Rejected = append(p.Rejected, field)
	}
}

// ==================== 数据库模型 ====================

// DraftSnapshot 草稿快照（每设备一条，快照即草稿的 JSON 序列化）
type DraftSnapshot struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
	DeviceID  string    `gorm:"size:64;uniqueIndex;not null;comment:设备ID"`
	Step      int       `gorm:"default:1;comment:当前向导步骤"`
	Payload   string    `gorm:"type:text;comment:草稿JSON快照"`
	Pending   string    `gorm:"type:text;comment:待确认建议JSON"`
}

func (*DraftSnapshot) TableName() string {
	return "draft_snapshots"
}

// DecodeDraft 还原快照中的草稿；快照损坏返回错误，由调用方丢弃重建
func (s *DraftSnapshot) DecodeDraft() (*ListingDraft, error) {
	if s.Payload == "" {
		return NewListingDraft(), nil
	}
	var draft ListingDraft
	if err := json.Unmarshal([]byte(s.Payload), &draft); err != nil {
		return nil, err
	}
	if draft.Photos == nil {
		draft.Photos = []string{}
	}
	if draft.Tags == nil {
		draft.Tags = []string{}
	}
	if draft.Quantity < 1 {
		draft.Quantity = 1
	}
	return &draft, nil
}

// DecodePending 还原待确认建议；损坏时返回空集合
func (s *DraftSnapshot) DecodePending() *PendingSuggestions {
	pending := NewPendingSuggestions()
	if s.Pending == "" {
		return pending
	}
	if err := json.Unmarshal([]byte(s.Pending), pending); err != nil {
		return NewPendingSuggestions()
	}
	if pending.Fields == nil {
		pending.Fields = make(map[string]string)
	}
	if pending.Attributes == nil {
		pending.Attributes = make(map[string]string)
	}
	return pending
}

// Encode 将草稿与待确认建议写回快照
func (s *DraftSnapshot) Encode(draft *ListingDraft, pending *PendingSuggestions) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	pendingBytes, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	s.Payload = string(payload)
	s.Pending = string(pendingBytes)
	return nil
}

// SavedListing 已发布商品（创建后不可变，仅支持显式删除）
type SavedListing struct {
	ID              int64                       `gorm:"primaryKey;autoIncrement"`
	CreatedAt       time.Time                   `gorm:"index"`
	UpdatedAt       time.Time                   `gorm:"index"`
	DeletedAt       gorm.DeletedAt              `gorm:"index"`
	ListingID       string                      `gorm:"size:64;uniqueIndex;not null;comment:对外商品ID"`
	DeviceID        string                      `gorm:"size:64;index;not null;comment:设备ID"`
	Title           string                      `gorm:"size:140;comment:标题"`
	Description     string                      `gorm:"type:text;comment:描述"`
	Category        string                      `gorm:"size:255;comment:分类路径"`
	Price           string                      `gorm:"size:32;comment:价格"`
	Quantity        int                         `gorm:"default:1;comment:库存数量"`
	SKU             string                      `gorm:"size:64;comment:SKU"`
	Personalization string                      `gorm:"type:text;comment:个性化说明"`
	ItemType        string                      `gorm:"size:16;comment:商品类型"`
	Photos          StringSlice                 `gorm:"type:json;comment:照片"`
	Video           string                      `gorm:"type:text;comment:视频"`
	CoreDetails     StringSlice                 `gorm:"type:json;comment:核心卖点"`
	ShippingDetails string                      `gorm:"type:text;comment:物流说明"`
	Materials       StringSlice                 `gorm:"type:json;comment:材质"`
	Tags            datatypes.JSONSlice[string] `gorm:"comment:标签"`
	Attributes      StringMap                   `gorm:"type:json;comment:属性"`
}

func (*SavedListing) TableName() string {
	return "saved_listings"
}

// ToPriorListing 转换为提示词上下文摘要
func (l *SavedListing) ToPriorListing() PriorListing {
	return PriorListing{
		Title:       l.Title,
		Description: l.Description,
		Tags:        []string(l.Tags),
		Category:    l.Category,
	}
}
