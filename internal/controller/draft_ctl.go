package controller

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"listing_studio_v1_202608/internal/api/dto"
	"listing_studio_v1_202608/internal/middleware"
	"listing_studio_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// DraftController 草稿控制器
type DraftController struct {
	draftService *service.DraftService
}

func NewDraftController(draftService *service.DraftService) *DraftController {
	return &DraftController{draftService: draftService}
}

// ==================== API 方法 ====================

// GetDraft 获取当前草稿
// @Summary 获取（或恢复）当前设备的草稿
// @Tags Draft
// @Produce json
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {object} dto.DraftStateResponse
// @Router /api/draft [get]
func (ctrl *DraftController) GetDraft(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	ctx := c.Request.Context()
	state, err := ctrl.draftService.GetDraft(ctx, deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "读取草稿失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    state,
	})
}

// UpdateDraft 更新草稿字段
// @Summary 按字段更新草稿，每次更新都会持久化快照
// @Tags Draft
// @Accept json
// @Param X-Device-ID header string true "设备ID"
// @Param body body dto.UpdateDraftRequest true "更新内容"
// @Success 200 {object} dto.DraftStateResponse
// @Router /api/draft [put]
func (ctrl *DraftController) UpdateDraft(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	state, err := ctrl.draftService.UpdateDraft(ctx, deviceID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	// 首次上传照片后自动请求一次建议（向导第一步的行为）
	// 建议失败不阻塞字段更新，只在响应里带出错误信息
	var suggestErr string
	var outcome *dto.SuggestOutcome
	if req.AutoSuggest && len(req.Photos) > 0 {
		outcome, err = ctrl.draftService.RequestSuggestions(ctx, deviceID)
		if err != nil {
			if errors.Is(err, service.ErrSuggestionBusy) {
				suggestErr = err.Error()
			} else {
				suggestErr = "建议请求失败: " + err.Error()
			}
		} else {
			// 建议合并后重新读一次草稿，失败时退回合并前的状态
			merged, err := ctrl.draftService.GetDraft(ctx, deviceID)
			if err != nil {
				log.Printf("[Draft] 设备 %s 合并建议后读取草稿失败: %v", deviceID, err)
			} else {
				state = merged
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"state":        state,
			"suggestions":  outcome,
			"suggestError": suggestErr,
		},
	})
}

// DiscardDraft 丢弃当前草稿
// @Summary 清空当前设备的草稿快照
// @Tags Draft
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/draft [delete]
func (ctrl *DraftController) DiscardDraft(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	ctx := c.Request.Context()
	if err := ctrl.draftService.DiscardDraft(ctx, deviceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "丢弃草稿失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "草稿已丢弃",
	})
}

// RequestSuggestions 请求一次 AI 建议并合并
// @Summary 收集草稿上下文并请求建议，按策略合并进草稿
// @Tags Draft
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {object} dto.SuggestOutcome
// @Failure 409 {object} map[string]interface{} "已有进行中的建议请求"
// @Router /api/draft/suggestions [post]
func (ctrl *DraftController) RequestSuggestions(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	ctx := c.Request.Context()
	outcome, err := ctrl.draftService.RequestSuggestions(ctx, deviceID)
	if err != nil {
		if errors.Is(err, service.ErrSuggestionBusy) {
			c.JSON(http.StatusConflict, gin.H{
				"code":    409,
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    502,
			"message": "建议请求失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    outcome,
	})
}

// AcceptSuggestion 接受某字段的建议
// @Summary 接受待确认建议，覆盖草稿字段
// @Tags Draft
// @Accept json
// @Param X-Device-ID header string true "设备ID"
// @Param body body dto.SuggestionDecisionRequest true "字段名"
// @Success 200 {object} dto.DraftStateResponse
// @Router /api/draft/suggestions/accept [post]
func (ctrl *DraftController) AcceptSuggestion(c *gin.Context) {
	ctrl.decideSuggestion(c, ctrl.draftService.AcceptSuggestion)
}

// RejectSuggestion 拒绝某字段的建议
// @Summary 拒绝待确认建议，本会话内不再提供
// @Tags Draft
// @Accept json
// @Param X-Device-ID header string true "设备ID"
// @Param body body dto.SuggestionDecisionRequest true "字段名"
// @Success 200 {object} dto.DraftStateResponse
// @Router /api/draft/suggestions/reject [post]
func (ctrl *DraftController) RejectSuggestion(c *gin.Context) {
	ctrl.decideSuggestion(c, ctrl.draftService.RejectSuggestion)
}

func (ctrl *DraftController) decideSuggestion(
	c *gin.Context,
	decide func(ctx context.Context, deviceID, field string) (*dto.DraftStateResponse, error),
) {
	deviceID := middleware.GetDeviceID(c)

	var req dto.SuggestionDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	state, err := decide(c.Request.Context(), deviceID, req.Field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    state,
	})
}

// ==================== 向导步骤 ====================

// GetSteps 获取步骤元信息
// @Summary 获取向导七个步骤的标题与提示
// @Tags Draft
// @Success 200 {array} dto.StepInfo
// @Router /api/draft/steps [get]
func (ctrl *DraftController) GetSteps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    ctrl.draftService.Steps(),
	})
}

// NextStep 前进一步
// @Summary 向导前进一步（上限第 7 步）
// @Tags Draft
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/draft/step/next [post]
func (ctrl *DraftController) NextStep(c *gin.Context) {
	ctrl.moveStep(c, ctrl.draftService.NextStep)
}

// BackStep 后退一步
// @Summary 向导后退一步（下限第 1 步）
// @Tags Draft
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/draft/step/back [post]
func (ctrl *DraftController) BackStep(c *gin.Context) {
	ctrl.moveStep(c, ctrl.draftService.BackStep)
}

func (ctrl *DraftController) moveStep(c *gin.Context, move func(ctx context.Context, deviceID string) (int, error)) {
	deviceID := middleware.GetDeviceID(c)

	step, err := move(c.Request.Context(), deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "更新步骤失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    gin.H{"step": step},
	})
}

// ==================== 发布 ====================

// Publish 发布草稿
// @Summary 校验并发布草稿为商品，随后清空快照
// @Tags Draft
// @Param X-Device-ID header string true "设备ID"
// @Success 201 {object} dto.SavedListingVO
// @Router /api/draft/publish [post]
func (ctrl *DraftController) Publish(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	ctx := c.Request.Context()
	listing, err := ctrl.draftService.Publish(ctx, deviceID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "发布成功",
		"data":    listing,
	})
}
