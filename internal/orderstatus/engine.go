package orderstatus

import (
	"context"
	"log"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
)

// OrderAPI es lo que el motor necesita del servicio de órdenes.
type OrderAPI interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, version int64, req dto.UpdateStatusRequest) (*model.Order, error)
}

type Engine struct {
	api OrderAPI
}

func NewEngine(api OrderAPI) *Engine {
	return &Engine{api: api}
}

// Get es una lectura: respeta la cancelación del ctx.
func (e *Engine) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return e.api.GetOrder(ctx, orderID)
}

// Transition pide al servicio el cambio de estado y devuelve la orden que
// responde el servidor. No revalida contra la tabla: quien llama ya ofrece
// solo NextStatuses y el servidor es quien decide. Una vez enviada, la
// llamada no se cancela aunque se cancele ctx.
func (e *Engine) Transition(ctx context.Context, order *model.Order, target model.Status, note string) (*model.Order, error) {
	ctx = context.WithoutCancel(ctx)

	updated, err := e.api.UpdateStatus(ctx, order.ID, order.Version, dto.UpdateStatusRequest{
		Status: target,
		Notes:  note,
	})
	if err != nil {
		log.Printf("[Orders] transición %s %s -> %s rechazada: %v", order.ID, order.Status, target, err)
		return nil, err
	}
	return updated, nil
}
