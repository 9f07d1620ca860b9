package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/validation"
)

// NewRouter arma las rutas del servicio de órdenes.
func NewRouter(orders *OrderController, files *FileController, auth middleware.TokenValidator) *gin.Engine {
	validation.UseWithGin()
	r := gin.Default()

	// Rutas públicas
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/files/:fileId", files.Download)

	// Rutas protegidas (requieren token)
	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(auth))
	authed.GET("/orders/mine", orders.GetMyOrders)
	authed.GET("/orders/:orderId", orders.GetOrder)
	authed.GET("/orders/:orderId/history", orders.GetHistory)

	// Rutas admin
	admin := authed.Group("/")
	admin.Use(middleware.AdminOnly())
	admin.POST("/orders", orders.CreateOrder)
	admin.GET("/orders", orders.ListOrders)
	admin.PATCH("/orders/:orderId/status", orders.UpdateStatus)
	admin.PATCH("/orders/:orderId/payment", orders.UpdatePayment)
	admin.POST("/files", files.Upload)
	admin.DELETE("/files/:fileId", files.Delete)

	return r
}
