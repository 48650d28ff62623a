package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"giftmarket/internal/logger"
)

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger(log))

	v1 := r.Group("/v1")
	{
		v1.GET("/health", h.health)
		v1.GET("/rates/ton", h.tonPrice)

		v1.POST("/accounts", h.upsertAccount)
		v1.GET("/accounts/:id", h.getAccount)
		v1.PUT("/accounts/:id/requisites", h.updateRequisites)
		v1.GET("/accounts/:id/orders", h.listAccountOrders)
		v1.GET("/accounts/:id/notifications", h.listAccountNotifications)
		v1.DELETE("/accounts/:id/notifications", h.purgeNotifications)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/join", h.joinOrder)
		v1.PUT("/orders/:id/status", h.setOrderStatus)
		v1.POST("/orders/:id/fast-track", h.fastTrackOrder)

		v1.PUT("/notifications/:id/read", h.markNotificationRead)
		v1.DELETE("/notifications/:id", h.deleteNotification)

		admin := v1.Group("/admin")
		{
			admin.POST("/operators", h.promoteOperator)
			admin.DELETE("/operators/:id", h.demoteOperator)
			admin.POST("/administrators", h.promoteAdministrator)
		}
	}

	return r
}
