package console

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/validation"
)

// NewRouter arma las rutas de la consola. Todas requieren un operador admin;
// su token se reenvía al servicio de órdenes.
func NewRouter(h *Handler, auth middleware.TokenValidator) *gin.Engine {
	validation.UseWithGin()
	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	admin := r.Group("/")
	admin.Use(middleware.AuthMiddleware(auth), middleware.AdminOnly())

	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/:orderId", h.GetOrder)
	admin.GET("/orders/:orderId/next-statuses", h.NextStatuses)
	admin.POST("/orders/:orderId/transition", h.Transition)
	admin.POST("/orders/:orderId/payment", h.UpdatePayment)

	admin.POST("/uploads/:category", h.UploadBatch)

	admin.POST("/previews", h.CreatePreview)
	admin.GET("/previews/:handle", h.GetPreview)
	admin.DELETE("/previews/:handle", h.DeletePreview)

	return r
}
