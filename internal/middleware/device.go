package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ==================== 设备上下文 ====================

// 草稿与商品集合都以设备为边界：一台设备等价于原先
// 浏览器里的一份 localStorage

const deviceIDHeader = "X-Device-ID"

const deviceIDKey = "deviceID"

// DeviceContext 设备上下文中间件
// 要求请求携带 X-Device-ID 头，并注入到 gin 上下文供控制器使用
func DeviceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(deviceIDHeader)
		if deviceID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "缺少 X-Device-ID 请求头",
			})
			return
		}
		if len(deviceID) > 64 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    400,
				"message": "X-Device-ID 过长",
			})
			return
		}

		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

// GetDeviceID 从 gin 上下文获取设备ID
func GetDeviceID(c *gin.Context) string {
	return c.GetString(deviceIDKey)
}
