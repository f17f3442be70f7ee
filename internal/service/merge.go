package service

import (
	"fmt"
	"strings"

	"listing_studio_v1_202608/internal/model"
)

// ==================== 字段名 ====================

const (
	FieldCategory        = "category"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldShippingDetails = "shippingDetails"
	FieldTags            = "tags"
	FieldMaterials       = "materials"
	FieldCoreDetails     = "coreDetails"

	// 属性字段寻址前缀，如 "attributes.craftType"
	attrFieldPrefix = "attributes."
)

// ==================== 合并策略 ====================
// 不同字段类型各用一条具名规则，而不是散落的条件判断：
// - 标量字段：replace-if-empty，已有内容时转入待确认
// - 标签：union-with-cap，增量合并去重后截断
// - 属性：key-wise-fill，键之间互不影响
// - 结构化列表：block-fill，整块填入且仅在完全缺失时

// MergeTags 标签并集合并：保持现有顺序在前、新标签按建议顺序在后，
// 去重后截断到上限
func MergeTags(existing, suggested []string) []string {
	merged := make([]string, 0, len(existing)+len(suggested))
	seen := make(map[string]bool)

	for _, tag := range existing {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		merged = append(merged, tag)
	}
	for _, tag := range suggested {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		merged = append(merged, tag)
	}

	if len(merged) > model.MaxTags {
		merged = merged[:model.MaxTags]
	}
	return merged
}

// ApplySuggestions 把一次建议合并进草稿
// 空字段自动填入；已有用户内容的标量/属性进入 pending 等待显式确认；
// 已拒绝的字段本会话内不再提供。返回自动填入的字段名列表
func ApplySuggestions(draft *model.ListingDraft, sug *model.AISuggestions, pending *model.PendingSuggestions) []string {
	var applied []string

	// 标量字段：replace-if-empty
	applyScalar := func(field string, suggestion *string, current string, set func(string)) {
		if suggestion == nil || pending.IsRejected(field) {
			return
		}
		if strings.TrimSpace(current) == "" {
			set(*suggestion)
			applied = append(applied, field)
			delete(pending.Fields, field)
			return
		}
		// 不无声覆盖用户输入，转入待确认
		pending.Fields[field] = *suggestion
	}

	applyScalar(FieldTitle, sug.Title, draft.Title, func(v string) { draft.Title = v })
	applyScalar(FieldDescription, sug.Description, draft.Description, func(v string) { draft.Description = v })
	applyScalar(FieldCategory, sug.Category, draft.Category, func(v string) { draft.Category = v })
	applyScalar(FieldShippingDetails, sug.ShippingDetails, draft.ShippingDetails, func(v string) { draft.ShippingDetails = v })

	// 标签：union-with-cap，增量而非覆盖
	if len(sug.Tags) > 0 {
		before := len(draft.Tags)
		draft.Tags = MergeTags(draft.Tags, sug.Tags)
		if len(draft.Tags) > before {
			applied = append(applied, FieldTags)
		}
	}

	// 结构化列表：block-fill，仅在完全缺失时整块填入
	if len(sug.CoreDetails) > 0 && len(draft.CoreDetails) == 0 && !pending.IsRejected(FieldCoreDetails) {
		draft.CoreDetails = append([]string{}, sug.CoreDetails...)
		applied = append(applied, FieldCoreDetails)
	}
	if len(sug.Materials) > 0 && len(draft.Materials) == 0 && !pending.IsRejected(FieldMaterials) {
		draft.Materials = append([]string{}, sug.Materials...)
		applied = append(applied, FieldMaterials)
	}

	// 属性：key-wise-fill，每个键独立，仅在该键无用户值时提供
	for key, value := range sug.Attributes {
		if !model.IsKnownAttributeKey(key) {
			continue
		}
		field := attrFieldPrefix + key
		if pending.IsRejected(field) {
			continue
		}
		if draft.Attributes[key] != "" {
			continue
		}
		pending.Attributes[key] = value
	}

	return applied
}

// ==================== 显式确认 ====================

// AcceptSuggestion 接受某字段的建议：覆盖草稿并清除该建议
func AcceptSuggestion(draft *model.ListingDraft, pending *model.PendingSuggestions, field string) error {
	if key, ok := strings.CutPrefix(field, attrFieldPrefix); ok {
		value, exists := pending.Attributes[key]
		if !exists {
			return fmt.Errorf("字段 %s 没有待确认的建议", field)
		}
		if draft.Attributes == nil {
			draft.Attributes = make(map[string]string)
		}
		draft.Attributes[key] = value
		delete(pending.Attributes, key)
		return nil
	}

	value, exists := pending.Fields[field]
	if !exists {
		return fmt.Errorf("字段 %s 没有待确认的建议", field)
	}

	switch field {
	case FieldTitle:
		draft.Title = value
	case FieldDescription:
		draft.Description = value
	case FieldCategory:
		draft.Category = value
	case FieldShippingDetails:
		draft.ShippingDetails = value
	default:
		return fmt.Errorf("不支持的建议字段: %s", field)
	}

	delete(pending.Fields, field)
	return nil
}

// RejectSuggestion 拒绝某字段的建议：丢弃并在本会话内不再提供
func RejectSuggestion(pending *model.PendingSuggestions, field string) error {
	if key, ok := strings.CutPrefix(field, attrFieldPrefix); ok {
		if _, exists := pending.Attributes[key]; !exists {
			return fmt.Errorf("字段 %s 没有待确认的建议", field)
		}
		delete(pending.Attributes, key)
		pending.MarkRejected(field)
		return nil
	}

	if _, exists := pending.Fields[field]; !exists {
		return fmt.Errorf("字段 %s 没有待确认的建议", field)
	}
	delete(pending.Fields, field)
	pending.MarkRejected(field)
	return nil
}
