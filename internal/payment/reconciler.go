// Package payment maneja el estado de pago de una orden, el monto confirmado y
// los comprobantes adjuntos. No depende del estado de preparación.
package payment

import (
	"context"
	"log"
	"slices"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/upload"
	"order-lifecycle-service/internal/validation"
)

// PaymentAPI es lo que el conciliador necesita del servicio de órdenes.
type PaymentAPI interface {
	UpdatePayment(ctx context.Context, orderID string, version int64, req dto.UpdatePaymentRequest) (*model.Order, error)
}

// Patch es lo que completa el operador. Amount llega como texto del formulario.
// ReceiptImages nil deja los comprobantes como están.
type Patch struct {
	PaymentStatus model.PaymentStatus
	Amount        string
	Note          string
	ReceiptImages []string
}

type Reconciler struct {
	api     PaymentAPI
	uploads *upload.Coordinator
}

func NewReconciler(api PaymentAPI, uploads *upload.Coordinator) *Reconciler {
	return &Reconciler{api: api, uploads: uploads}
}

// ApplyUpdate valida el patch localmente y recién entonces lo envía. Los
// comprobantes tienen que ser URLs ya subidas: acá no se sube nada.
func (r *Reconciler) ApplyUpdate(ctx context.Context, order *model.Order, patch Patch) (*model.Order, error) {
	req, err := buildRequest(patch)
	if err != nil {
		return nil, err
	}
	return r.send(ctx, order, req)
}

// Submit sube los comprobantes pendientes de queue y aplica el patch con todas
// las URLs de la cola. Todo se valida antes de subir nada.
func (r *Reconciler) Submit(ctx context.Context, order *model.Order, patch Patch, queue *ReceiptQueue, onProgress upload.ProgressFunc) (*model.Order, error) {
	req, err := prepare(patch, queue)
	if err != nil {
		return nil, err
	}

	if err := queue.Commit(ctx, r.uploads, onProgress); err != nil {
		return nil, err
	}

	req.ReceiptImages = queue.URLs()
	return r.send(ctx, order, req)
}

// Validate chequea el patch sin tocar la red. Con queue, los comprobantes son
// los de la cola y cada pendiente ocupa un lugar con una URL provisoria.
func Validate(patch Patch, queue *ReceiptQueue) error {
	_, err := prepare(patch, queue)
	return err
}

func prepare(patch Patch, queue *ReceiptQueue) (dto.UpdatePaymentRequest, error) {
	if queue != nil {
		patch.ReceiptImages = queue.plannedURLs()
	}
	return buildRequest(patch)
}

func (r *Reconciler) send(ctx context.Context, order *model.Order, req dto.UpdatePaymentRequest) (*model.Order, error) {
	ctx = context.WithoutCancel(ctx)

	updated, err := r.api.UpdatePayment(ctx, order.ID, order.Version, req)
	if err != nil {
		log.Printf("[Payment] actualización de pago de %s rechazada: %v", order.ID, err)
		return nil, err
	}
	return updated, nil
}

func buildRequest(patch Patch) (dto.UpdatePaymentRequest, error) {
	amount, err := validation.ParseAmount(patch.Amount)
	if err != nil {
		return dto.UpdatePaymentRequest{}, err
	}
	req := dto.UpdatePaymentRequest{
		PaymentStatus: patch.PaymentStatus,
		Amount:        amount,
		Note:          patch.Note,
		ReceiptImages: slices.Clone(patch.ReceiptImages),
	}
	if err := validation.Struct(req); err != nil {
		return dto.UpdatePaymentRequest{}, err
	}
	return req, nil
}
