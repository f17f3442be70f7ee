package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listing_studio_v1_202608/internal/model"
	"listing_studio_v1_202608/pkg/utils"
)

// ==================== 配置 ====================

// SuggestConfig 建议服务配置
type SuggestConfig struct {
	ApiKey  string
	Model   string
	BaseURL string
}

// ==================== 服务 ====================

// SuggestService 建议服务：构造提示词，调用 Gemini，解析结构化建议
// 无状态，不保留任何跨调用记忆
type SuggestService struct {
	Config *SuggestConfig
	client *http.Client
}

// NewSuggestService 创建建议服务
func NewSuggestService(cfg *SuggestConfig) *SuggestService {
	// 固定模型配置
	if cfg.Model == "" {
		cfg.Model = "gemini-3-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &SuggestService{
		Config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// ==================== 输入 ====================

const (
	// 历史商品上下文窗口，控制提示词体积
	maxPriorListings = 5
	// 历史描述摘要截断长度
	priorDescLimit = 100
)

// SuggestInput 一次建议调用的上下文
type SuggestInput struct {
	CurrentTitle       string
	CurrentDescription string
	CurrentTags        []string
	ImageRef           string // data URI 或可访问的 URL，可为空
	PriorListings      []model.PriorListing
}

// ==================== 建议生成 ====================

// Suggest 生成商品文案建议
// 失败即失败：网络、非 2xx、JSON 解析错误都作为单一错误返回，不重试、不返回半成品
func (s *SuggestService) Suggest(ctx context.Context, in *SuggestInput) (*model.AISuggestions, error) {
	if s.Config.ApiKey == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}

	prompt := s.buildPrompt(in)

	parts := []map[string]interface{}{
		{"text": prompt},
	}

	// 有图片时附加为多模态输入，让模型推断分类、材质与视觉属性
	if in.ImageRef != "" {
		imageData, mimeType, err := utils.ResolveImageRef(in.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("读取图片失败: %v", err)
		}
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]interface{}{
				"mime_type": mimeType,
				"data":      base64.StdEncoding.EncodeToString(imageData),
			},
		})
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			// 偏确定性采样，保证建议稳定
			"temperature":      0.4,
			"responseMimeType": "application/json",
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		s.Config.BaseURL, s.Config.Model, s.Config.ApiKey)

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	// 解析响应
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %v", err)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, fmt.Errorf("无生成结果")
	}

	// 提取 JSON 文本
	var jsonText string
	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				jsonText = part.Text
				break
			}
		}
	}

	return parseSuggestions(jsonText)
}

// ==================== 提示词构造 ====================

// buildPrompt 渲染自然语言指令：角色、已知信息、历史风格上下文、输出契约
func (s *SuggestService) buildPrompt(in *SuggestInput) string {
	var b strings.Builder

	b.WriteString(`You are an expert listing copywriting assistant helping a seller create an Etsy-style product listing. Based on the information provided, suggest improvements or fill in missing details.

`)

	// 历史商品摘要，保持卖家文风连续
	priors := in.PriorListings
	if len(priors) > maxPriorListings {
		priors = priors[len(priors)-maxPriorListings:]
	}
	if len(priors) > 0 {
		b.WriteString("Previous listings for context:\n")
		for _, p := range priors {
			b.WriteString(fmt.Sprintf("- Title: %s\n  Tags: %s\n  Description: %s...\n",
				p.Title, strings.Join(p.Tags, ", "), truncateRunes(p.Description, priorDescLimit)))
			if p.Category != "" {
				b.WriteString(fmt.Sprintf("  Category: %s\n", p.Category))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("Current listing information:\n")
	if in.CurrentTitle != "" {
		b.WriteString("Title: " + in.CurrentTitle + "\n")
	} else {
		b.WriteString("Title: not yet provided\n")
	}
	if in.CurrentDescription != "" {
		b.WriteString("Description: " + in.CurrentDescription + "\n")
	} else {
		b.WriteString("Description: not yet provided\n")
	}
	if len(in.CurrentTags) > 0 {
		b.WriteString("Tags: " + strings.Join(in.CurrentTags, ", ") + "\n")
	} else {
		b.WriteString("Tags: not yet provided\n")
	}

	b.WriteString(fmt.Sprintf(`
Please provide:
1. A product category as a hierarchical path, e.g. "Home & Living > Kitchen & Dining > Drinkware"
2. A catchy, SEO-friendly title (max 140 characters)
3. A compelling product description highlighting features and benefits
4. Relevant tags for searchability (maximum %d tags)
5. A list of materials the product appears to be made of
6. Three to five short core detail bullet points
7. A short shipping details sentence (processing time, shipping method)
8. Product attributes where they can be inferred

Consider:
- The seller's previous listing style and patterns
- SEO keywords that buyers might search for
- What makes the product unique and appealing
- Current trends in handmade/artisan products

Output Format (JSON only, no markdown):
{
  "category": "...",
  "title": "...",
  "description": "...",
  "tags": ["tag1", "tag2"],
  "materials": ["material1"],
  "coreDetails": ["detail1"],
  "shippingDetails": "...",
  "attributes": {"craftType": "...", "primaryColor": "...", "secondaryColor": "...", "occasion": "...", "holiday": "...", "theme": "..."}
}

If a field already has good content in the current listing information above, return null for that field instead of overwriting it. Omit attribute keys you cannot infer.`, model.MaxTags))

	return b.String()
}

// truncateRunes 按字符截断（历史描述仅作摘要）
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// ==================== 结果解析 ====================

// parseSuggestions 严格解析生成结果并归一化：
// 空字符串/空数组一律归为 nil（缺失），属性只保留已知键，标签截断到上限
func parseSuggestions(jsonText string) (*model.AISuggestions, error) {
	var raw struct {
		Category        *string           `json:"category"`
		Title           *string           `json:"title"`
		Description     *string           `json:"description"`
		Tags            []string          `json:"tags"`
		Materials       []string          `json:"materials"`
		CoreDetails     []string          `json:"coreDetails"`
		ShippingDetails *string           `json:"shippingDetails"`
		Attributes      map[string]string `json:"attributes"`
	}

	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("解析生成结果失败: %v, raw: %s", err, jsonText)
	}

	result := &model.AISuggestions{
		Category:        normalizeScalar(raw.Category),
		Title:           normalizeScalar(raw.Title),
		Description:     normalizeScalar(raw.Description),
		Tags:            normalizeList(raw.Tags),
		Materials:       normalizeList(raw.Materials),
		CoreDetails:     normalizeList(raw.CoreDetails),
		ShippingDetails: normalizeScalar(raw.ShippingDetails),
	}

	if len(result.Tags) > model.MaxTags {
		result.Tags = result.Tags[:model.MaxTags]
	}

	for key, value := range raw.Attributes {
		if !model.IsKnownAttributeKey(key) {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		if result.Attributes == nil {
			result.Attributes = make(map[string]string)
		}
		result.Attributes[key] = strings.TrimSpace(value)
	}

	return result, nil
}

// normalizeScalar 空白字符串视为无建议
func normalizeScalar(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeList 去掉空白项，空列表视为无建议
func normalizeList(items []string) []string {
	var out []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
