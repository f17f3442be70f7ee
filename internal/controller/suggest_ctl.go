package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"listing_studio_v1_202608/internal/api/dto"
	"listing_studio_v1_202608/internal/model"
	"listing_studio_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// SuggestController 建议控制器（无状态接口，不依赖草稿）
type SuggestController struct {
	suggestService *service.SuggestService
}

func NewSuggestController(suggestService *service.SuggestService) *SuggestController {
	return &SuggestController{suggestService: suggestService}
}

// ==================== API 方法 ====================

// Suggest 生成商品文案建议
// 该接口保持前端向导的原始调用契约：响应为可空字段对象，
// 错误为 {error, details} 加非 2xx 状态码，不套通用 envelope
// @Summary 根据当前草稿上下文生成 AI 建议
// @Tags Suggest
// @Accept json
// @Produce json
// @Param body body dto.SuggestRequest true "建议上下文"
// @Success 200 {object} dto.SuggestResponse
// @Failure 502 {object} dto.SuggestErrorResponse
// @Router /api/suggestions [post]
func (ctrl *SuggestController) Suggest(c *gin.Context) {
	var req dto.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.SuggestErrorResponse{
			Error:   "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	priors := make([]model.PriorListing, len(req.PreviousListings))
	for i, p := range req.PreviousListings {
		priors[i] = model.PriorListing{
			Title:       p.Title,
			Description: p.Description,
			Tags:        p.Tags,
			Category:    p.Category,
		}
	}

	ctx := c.Request.Context()
	suggestions, err := ctrl.suggestService.Suggest(ctx, &service.SuggestInput{
		CurrentTitle:       req.CurrentTitle,
		CurrentDescription: req.CurrentDescription,
		CurrentTags:        req.CurrentTags,
		ImageRef:           req.ImageURL,
		PriorListings:      priors,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.SuggestErrorResponse{
			Error:   "Failed to generate suggestions",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuggestResponse{
		Category:        suggestions.Category,
		Title:           suggestions.Title,
		Description:     suggestions.Description,
		Tags:            suggestions.Tags,
		Materials:       suggestions.Materials,
		CoreDetails:     suggestions.CoreDetails,
		ShippingDetails: suggestions.ShippingDetails,
		Attributes:      suggestions.Attributes,
	})
}
