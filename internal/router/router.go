package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"listing_studio_v1_202608/internal/controller"
	"listing_studio_v1_202608/internal/middleware"

	_ "listing_studio_v1_202608/docs"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	Suggest *controller.SuggestController
	Draft   *controller.DraftController
	Listing *controller.ListingController
}

// SetupRouter 创建引擎并注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()
	InitRoutes(r, ctls.Suggest, ctls.Draft, ctls.Listing)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	suggestCtl *controller.SuggestController,
	draftCtl *controller.DraftController,
	listingCtl *controller.ListingController) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. API 路由组
	api := r.Group("/api")
	{
		// suggestions 建议生成（无状态，不要求设备标识）
		// POST /api/suggestions
		api.POST("/suggestions", suggestCtl.Suggest)

		// draft 草稿向导，所有接口按设备隔离
		draft := api.Group("/draft", middleware.DeviceContext())
		{
			// GET /api/draft
			draft.GET("", draftCtl.GetDraft)
			draft.PUT("", draftCtl.UpdateDraft)
			draft.DELETE("", draftCtl.DiscardDraft)

			// POST /api/draft/suggestions 触发 AI 建议并合并进草稿
			draft.POST("/suggestions", draftCtl.RequestSuggestions)
			draft.POST("/suggestions/accept", draftCtl.AcceptSuggestion)
			draft.POST("/suggestions/reject", draftCtl.RejectSuggestion)

			// 向导步骤导航
			draft.GET("/steps", draftCtl.GetSteps)
			draft.POST("/step/next", draftCtl.NextStep)
			draft.POST("/step/back", draftCtl.BackStep)

			// POST /api/draft/publish
			draft.POST("/publish", draftCtl.Publish)
		}

		// listings 已发布商品
		listings := api.Group("/listings", middleware.DeviceContext())
		{
			// GET /api/listings
			listings.GET("", listingCtl.List)
			listings.GET("/:id", listingCtl.Get)
			listings.DELETE("/:id", listingCtl.Delete)
		}
	}
}
