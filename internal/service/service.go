package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/orderstatus"
	"order-lifecycle-service/internal/repository"
	"order-lifecycle-service/internal/validation"
)

// Interfaz que debe implementar repository
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID string, version int64, record model.StatusRecord) (*model.Order, error)
	UpdatePayment(ctx context.Context, orderID string, version int64, p repository.PaymentUpdate) (*model.Order, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	FindByStatus(ctx context.Context, status model.Status) ([]*model.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
}

// EventPublisher avisa a otros servicios de los cambios de una orden.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event dto.OrderEvent) error
}

const (
	EventStatusChanged  = "order.status_changed"
	EventPaymentUpdated = "order.payment_updated"
)

// Errores de negocio exportados (los usa el controller)
var (
	ErrInvalidTransition = errors.New("transición de estado inválida")
	ErrFinalState        = errors.New("no se puede cambiar el estado de una orden en estado final")
	ErrInvalidOrder      = errors.New("orden inválida")
)

type OrderService struct {
	repo      OrderRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewOrderService(r OrderRepository, p EventPublisher) *OrderService {
	return &OrderService{repo: r, publisher: p, now: func() time.Time { return time.Now().UTC() }}
}

func dtoToModelShipping(in dto.ShippingDTO) model.Shipping {
	return model.Shipping{
		AddressLine1: in.AddressLine1,
		City:         in.City,
		PostalCode:   in.PostalCode,
		Province:     in.Province,
		Country:      in.Country,
		Comments:     in.Comments,
	}
}

// CreateOrder da de alta una orden en pending/unpaid. Se invoca desde el
// consumer Rabbit (primario) o vía API. Si no viene total se calcula.
func (s *OrderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*model.Order, error) {
	// el mensaje de Rabbit no pasa por el binding de gin
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	id := req.OrderID
	if id == "" {
		id = uuid.NewString()
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice * it.Quantity,
		})
	}

	o := &model.Order{
		ID:            id,
		OrderNumber:   newOrderNumber(),
		UserID:        req.UserID,
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentUnpaid,
		Discount:      req.Discount,
		Total:         req.Total,
		Items:         items,
		Shipping:      dtoToModelShipping(req.Shipping),
	}
	if o.Total == 0 {
		o.Total = max(0, o.ItemsSum()-o.Discount)
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Getters
func (s *OrderService) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.FindByOrderID(ctx, orderID)
}

func (s *OrderService) GetAll(ctx context.Context) ([]*model.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrderService) GetByStatus(ctx context.Context, status model.Status) ([]*model.Order, error) {
	return s.repo.FindByStatus(ctx, status)
}

func (s *OrderService) GetByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.repo.FindByUserID(ctx, userID)
}

// UpdateStatus valida la transición contra la tabla y la registra.
// expectedVersion 0 significa que el cliente no mandó If-Match.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, req dto.UpdateStatusRequest, actorID string, expectedVersion int64) (*model.Order, error) {
	ord, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && expectedVersion != ord.Version {
		return nil, repository.ErrVersionConflict
	}

	current := ord.Status
	// Si el estado actual es final, no se puede cambiar
	if current.Terminal() {
		return nil, ErrFinalState
	}
	if !orderstatus.CanTransition(current, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, req.Status)
	}

	record := model.StatusRecord{
		From:      current,
		To:        req.Status,
		Note:      req.Notes,
		UserID:    actorID,
		Timestamp: s.now(),
		Current:   true,
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, ord.Version, record)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventStatusChanged, dto.OrderEvent{
		Type:        EventStatusChanged,
		OrderID:     updated.ID,
		OrderNumber: updated.OrderNumber,
		FromStatus:  current,
		ToStatus:    updated.Status,
		Note:        req.Notes,
		ActorID:     actorID,
		Version:     updated.Version,
		OccurredAt:  record.Timestamp,
	})
	return updated, nil
}

// UpdatePayment reemplaza estado de pago, monto y comprobantes. No mira Status.
func (s *OrderService) UpdatePayment(ctx context.Context, orderID string, req dto.UpdatePaymentRequest, actorID string, expectedVersion int64) (*model.Order, error) {
	version := expectedVersion
	if version == 0 {
		// sin If-Match: gana la última escritura
		ord, err := s.repo.FindByOrderID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		version = ord.Version
	}

	updated, err := s.repo.UpdatePayment(ctx, orderID, version, repository.PaymentUpdate{
		PaymentStatus: req.PaymentStatus,
		Amount:        req.Amount,
		Note:          req.Note,
		ReceiptImages: req.ReceiptImages,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventPaymentUpdated, dto.OrderEvent{
		Type:          EventPaymentUpdated,
		OrderID:       updated.ID,
		OrderNumber:   updated.OrderNumber,
		PaymentStatus: updated.PaymentStatus,
		Note:          req.Note,
		ActorID:       actorID,
		Version:       updated.Version,
		OccurredAt:    s.now(),
	})
	return updated, nil
}

// publish no hace fallar la operación: el cambio ya quedó guardado.
func (s *OrderService) publish(ctx context.Context, key string, ev dto.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, ev); err != nil {
		log.Printf("[Orders] no se pudo publicar %s de %s: %v", key, ev.OrderID, err)
	}
}
