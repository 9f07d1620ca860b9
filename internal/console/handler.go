// Package console es el backend de la consola de administración: expone el
// motor de estados, el conciliador de pagos y las subidas por HTTP y habla con
// el servicio de órdenes en nombre del operador.
package console

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/client"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/orderstatus"
	"order-lifecycle-service/internal/payment"
	"order-lifecycle-service/internal/upload"
)

type Handler struct {
	Orders   *client.Client
	Previews *upload.Previews
	MaxBytes int64
}

func NewHandler(orders *client.Client, previews *upload.Previews, maxBytes int64) *Handler {
	return &Handler{Orders: orders, Previews: previews, MaxBytes: maxBytes}
}

// api devuelve el cliente con el token del operador que hizo el request.
func (h *Handler) api(c *gin.Context) *client.Client {
	return h.Orders.WithToken(c.GetString(middleware.KeyToken))
}

type NextStatusesResponse struct {
	Current dto.StatusOption   `json:"current"`
	Next    []dto.StatusOption `json:"next"`
}

type TransitionRequest struct {
	Status model.Status `json:"status" binding:"required,order_status"`
	Note   string       `json:"note" binding:"max=500"`
}

type UploadBatchResponse struct {
	URLs []string `json:"urls"`
}

type PreviewResponse struct {
	Handle upload.Handle `json:"handle"`
	URL    string        `json:"url"`
}

// GET /orders?status=
func (h *Handler) ListOrders(c *gin.Context) {
	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown order status", Field: "status"})
		return
	}
	orders, err := h.api(c).ListOrders(c.Request.Context(), status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/:orderId
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := orderstatus.NewEngine(h.api(c)).Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /orders/:orderId/next-statuses
func (h *Handler) NextStatuses(c *gin.Context) {
	o, err := orderstatus.NewEngine(h.api(c)).Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}

	next := orderstatus.NextStatuses(o.Status)
	res := NextStatusesResponse{Current: dto.NewStatusOption(o.Status), Next: make([]dto.StatusOption, 0, len(next))}
	for _, s := range next {
		res.Next = append(res.Next, dto.NewStatusOption(s))
	}
	c.JSON(http.StatusOK, res)
}

// POST /orders/:orderId/transition
func (h *Handler) Transition(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	engine := orderstatus.NewEngine(h.api(c))
	o, err := engine.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !orderstatus.CanTransition(o.Status, req.Status) {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: "cannot move order from " + o.Status.Label() + " to " + req.Status.Label(),
			Field: "status",
		})
		return
	}

	updated, err := engine.Transition(c.Request.Context(), o, req.Status, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("[Console] orden %s: %s -> %s por %s", updated.ID, o.Status, updated.Status, c.GetString(middleware.KeyUserID))
	c.JSON(http.StatusOK, updated)
}

// POST /orders/:orderId/payment - multipart
// receiptImages[] son URLs ya subidas y files[] archivos nuevos. Si no viene
// ninguno de los dos los comprobantes quedan como están.
func (h *Handler) UpdatePayment(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "expected a multipart form"})
		return
	}

	patch := payment.Patch{
		PaymentStatus: model.PaymentStatus(first(form.Value["paymentStatus"])),
		Amount:        first(form.Value["amount"]),
		Note:          first(form.Value["note"]),
	}
	urls, replace := form.Value["receiptImages[]"]
	files := toFiles(form.File["files[]"])

	// lo local se chequea antes de la primera llamada al servicio
	var queue *payment.ReceiptQueue
	if replace || len(files) > 0 {
		queue = payment.NewReceiptQueue(nonEmpty(urls), nil)
		defer queue.Close()
		if err := queue.Add(files...); err != nil {
			writeError(c, err)
			return
		}
	}
	if err := payment.Validate(patch, queue); err != nil {
		writeError(c, err)
		return
	}

	api := h.api(c)
	o, err := orderstatus.NewEngine(api).Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	coord := upload.NewCoordinator(api)
	reconciler := payment.NewReconciler(api, coord)

	if queue == nil {
		updated, err := reconciler.ApplyUpdate(c.Request.Context(), o, patch)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
		return
	}

	kept := len(queue.URLs())
	updated, err := reconciler.Submit(c.Request.Context(), o, patch, queue, logProgress(o.ID))
	if err != nil {
		// la cola muere con el request: lo recién subido no lo va a usar nadie
		if fresh := queue.URLs()[kept:]; len(fresh) > 0 {
			log.Printf("[Console] pago de %s rechazado, borrando %d comprobantes subidos", o.ID, len(fresh))
			coord.Discard(c.Request.Context(), fresh)
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// POST /uploads/:category - multipart files[]
func (h *Handler) UploadBatch(c *gin.Context) {
	category := upload.Category(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown upload category", Field: "category"})
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "expected a multipart form"})
		return
	}
	files := toFiles(form.File["files[]"])
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no files selected", Field: "files"})
		return
	}
	for i, f := range files {
		if err := h.checkImage(f); err != nil {
			err.Field = fmt.Sprintf("files[%d]", i)
			writeError(c, err)
			return
		}
	}

	api := h.api(c)
	res, err := upload.NewCoordinator(api).UploadBatch(c.Request.Context(), files, category, logProgress(string(category)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, UploadBatchResponse{URLs: res.URLs()})
}

// POST /previews - multipart file
func (h *Handler) CreatePreview(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing file", Field: "file"})
		return
	}
	f := toFile(fh)
	if verr := h.checkImage(f); verr != nil {
		writeError(c, verr)
		return
	}

	handle, err := h.Previews.Create(f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, PreviewResponse{Handle: handle, URL: "/previews/" + string(handle)})
}

// GET /previews/:handle
func (h *Handler) GetPreview(c *gin.Context) {
	pv, ok := h.Previews.Open(upload.Handle(c.Param("handle")))
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "preview not found"})
		return
	}
	c.Data(http.StatusOK, pv.ContentType, pv.Data)
}

// DELETE /previews/:handle - idempotente
func (h *Handler) DeletePreview(c *gin.Context) {
	h.Previews.Revoke(upload.Handle(c.Param("handle")))
	c.Status(http.StatusNoContent)
}

func (h *Handler) checkImage(f upload.File) *apperr.ValidationError {
	if !f.IsImage() {
		return apperr.Invalid("file", "%q is not an image", f.Name)
	}
	if h.MaxBytes > 0 && f.Size > h.MaxBytes {
		return apperr.Invalid("file", "%q is larger than %d bytes", f.Name, h.MaxBytes)
	}
	return nil
}

func toFiles(headers []*multipart.FileHeader) []upload.File {
	out := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		out = append(out, toFile(fh))
	}
	return out
}

func toFile(fh *multipart.FileHeader) upload.File {
	return upload.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func logProgress(what string) upload.ProgressFunc {
	return func(index, percent int) {
		if percent == 100 {
			log.Printf("[Console] %s: archivo %d subido", what, index)
		}
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func writeError(c *gin.Context, err error) {
	var (
		verr *apperr.ValidationError
		rerr *apperr.RemoteError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &rerr):
		res := dto.ErrorResponse{Error: apperr.Message(err)}
		switch {
		case rerr.NotFound():
			res.Field = "orderId"
		case rerr.Conflict():
			// otro operador cambió la orden; hay que recargarla
			res.Field = "version"
		}
		status := rerr.StatusCode
		if status == 0 || status >= 500 {
			status = http.StatusBadGateway
		}
		c.JSON(status, res)
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: apperr.Message(err)})
	}
}

func bindError(c *gin.Context, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: verr.Message, Field: verr.Field})
		return
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}
