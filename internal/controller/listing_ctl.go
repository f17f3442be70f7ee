package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"listing_studio_v1_202608/internal/middleware"
	"listing_studio_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// ListingController 已发布商品控制器
type ListingController struct {
	draftService *service.DraftService
}

func NewListingController(draftService *service.DraftService) *ListingController {
	return &ListingController{draftService: draftService}
}

// ==================== API 方法 ====================

// List 获取当前设备的商品列表
// @Summary 按创建顺序返回当前设备发布过的商品
// @Tags Listing
// @Produce json
// @Param X-Device-ID header string true "设备ID"
// @Success 200 {array} dto.SavedListingVO
// @Router /api/listings [get]
func (ctrl *ListingController) List(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)

	listings, err := ctrl.draftService.ListListings(c.Request.Context(), deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    500,
			"message": "获取商品列表失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    listings,
	})
}

// Get 获取单个商品
// @Summary 获取当前设备的单个已发布商品
// @Tags Listing
// @Produce json
// @Param X-Device-ID header string true "设备ID"
// @Param id path string true "商品ID"
// @Success 200 {object} dto.SavedListingVO
// @Failure 404 {object} map[string]interface{}
// @Router /api/listings/{id} [get]
func (ctrl *ListingController) Get(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)
	listingID := c.Param("id")

	listing, err := ctrl.draftService.GetListing(c.Request.Context(), deviceID, listingID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    listing,
	})
}

// Delete 删除商品
// @Summary 删除当前设备的单个已发布商品
// @Tags Listing
// @Param X-Device-ID header string true "设备ID"
// @Param id path string true "商品ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/listings/{id} [delete]
func (ctrl *ListingController) Delete(c *gin.Context) {
	deviceID := middleware.GetDeviceID(c)
	listingID := c.Param("id")

	if err := ctrl.draftService.DeleteListing(c.Request.Context(), deviceID, listingID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    404,
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}
