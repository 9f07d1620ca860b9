package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
	"order-lifecycle-service/internal/service"
	"order-lifecycle-service/internal/storage"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /orders
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := ctl.Service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /orders?status= - admin
func (ctl *OrderController) ListOrders(c *gin.Context) {
	var (
		orders []*model.Order
		err    error
	)
	if s := c.Query("status"); s != "" {
		status := model.Status(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown order status", Field: "status"})
			return
		}
		orders, err = ctl.Service.GetByStatus(c.Request.Context(), status)
	} else {
		orders, err = ctl.Service.GetAll(c.Request.Context())
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/mine
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.GetByUserID(c.Request.Context(), c.GetString(middleware.KeyUserID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:orderId - dueño o admin
func (ctl *OrderController) GetOrder(c *gin.Context) {
	o, ok := ctl.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /orders/:orderId/history
func (ctl *OrderController) GetHistory(c *gin.Context) {
	o, ok := ctl.loadVisible(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.History)
}

func (ctl *OrderController) loadVisible(c *gin.Context) (*model.Order, bool) {
	o, err := ctl.Service.GetByOrderID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !middleware.IsAdmin(c) && o.UserID != c.GetString(middleware.KeyUserID) {
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "you cannot view another user's order"})
		return nil, false
	}
	return o, true
}

// PATCH /orders/:orderId/status - admin
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	version, ok := ifMatch(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := ctl.Service.UpdateStatus(c.Request.Context(), c.Param("orderId"), req, c.GetString(middleware.KeyUserID), version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// PATCH /orders/:orderId/payment - admin
func (ctl *OrderController) UpdatePayment(c *gin.Context) {
	version, ok := ifMatch(c)
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := ctl.Service.UpdatePayment(c.Request.Context(), c.Param("orderId"), req, c.GetString(middleware.KeyUserID), version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// ifMatch lee la versión esperada. Sin header devuelve 0.
func ifMatch(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" {
		return 0, true
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "If-Match must be an order version", Field: "If-Match"})
		return 0, false
	}
	return v, true
}

func writeError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrFileNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, repository.ErrOrderAlreadyExists):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrFinalState):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Field: "status"})
	case errors.Is(err, service.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

// bindError responde 400 ante JSON mal formado o que no pasa el esquema.
func bindError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Field: verr.Field})
		return
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}
