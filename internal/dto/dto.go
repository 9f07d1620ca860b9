// dto.go
package dto

import (
	"time"

	"order-lifecycle-service/internal/model"
)

// Los tags `binding` son el único esquema de validación: gin los usa en el
// servidor y el cliente los chequea antes de enviar (ver internal/validation).

// CreateOrderRequest usado por la API y Rabbit para dar de alta una orden
type CreateOrderRequest struct {
	OrderID  string         `json:"orderId"`
	UserID   string         `json:"userId" binding:"required"`
	Items    []OrderItemDTO `json:"items" binding:"required,min=1,dive"`
	Discount int64          `json:"discount" binding:"gte=0"`
	Total    int64          `json:"total" binding:"gte=0"`
	Shipping ShippingDTO    `json:"shipping"`
}

type OrderItemDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity" binding:"gt=0"`
	UnitPrice int64  `json:"unitPrice" binding:"gte=0"`
}

// ShippingDTO para la dirección y comentario
type ShippingDTO struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Province     string `json:"province"`
	Country      string `json:"country"`
	Comments     string `json:"comments"`
}

type UpdateStatusRequest struct {
	Status model.Status `json:"status" binding:"required,order_status"`
	Notes  string       `json:"notes,omitempty" binding:"max=500"`
}

// UpdatePaymentRequest: ReceiptImages nil deja los comprobantes como están,
// un slice vacío los borra.
type UpdatePaymentRequest struct {
	PaymentStatus model.PaymentStatus `json:"paymentStatus" binding:"required,payment_status"`
	Amount        int64               `json:"amount" binding:"gte=0"`
	Note          string              `json:"note,omitempty" binding:"max=500"`
	ReceiptImages []string            `json:"receiptImages" binding:"omitempty,max=10,dive,http_url"`
}

type UploadResponse struct {
	URL         string `json:"url"`
	FileID      string `json:"fileId"`
	Category    string `json:"category"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// OrderEvent se publica en Rabbit ante cada cambio de estado o de pago.
type OrderEvent struct {
	Type          string              `json:"type"`
	OrderID       string              `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	FromStatus    model.Status        `json:"fromStatus,omitempty"`
	ToStatus      model.Status        `json:"toStatus,omitempty"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus,omitempty"`
	Note          string              `json:"note,omitempty"`
	ActorID       string              `json:"actorId"`
	Version       int64               `json:"version"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

// StatusOption describe una opción de estado para la consola.
type StatusOption struct {
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Icon   model.Icon   `json:"icon"`
}

func NewStatusOption(s model.Status) StatusOption {
	return StatusOption{Status: s, Label: s.Label(), Icon: s.Icon()}
}
