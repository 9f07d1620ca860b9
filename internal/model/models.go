// models.go
package model

import (
	"errors"
	"fmt"
	"time"
)

// MaxReceiptImages es el tope de comprobantes por orden.
const MaxReceiptImages = 10

var (
	ErrInvalidItem  = errors.New("item de orden inválido")
	ErrInvalidTotal = errors.New("total de orden inválido")
)

type Order struct {
	ID            string         `bson:"order_id" json:"id"`
	OrderNumber   string         `bson:"order_number" json:"orderNumber"`
	UserID        string         `bson:"user_id" json:"userId"`
	Status        Status         `bson:"status" json:"status"`               // estado de preparación
	PaymentStatus PaymentStatus  `bson:"payment_status" json:"paymentStatus"` // independiente de Status
	Total         int64          `bson:"total" json:"total"`                 // unidades menores (VND no tiene centavos)
	Discount      int64          `bson:"discount" json:"discount"`
	PaidAmount    int64          `bson:"paid_amount" json:"paidAmount"`
	PaymentNote   string         `bson:"payment_note" json:"paymentNote,omitempty"`
	ReceiptImages []string       `bson:"receipt_images" json:"receiptImages"`
	Items         []OrderItem    `bson:"items" json:"items"`
	Shipping      Shipping       `bson:"shipping" json:"shipping"`
	History       []StatusRecord `bson:"history" json:"statusHistory"`
	Version       int64          `bson:"version" json:"version"`
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updatedAt"`

	PaymentUpdatedAt *time.Time `bson:"payment_updated_at,omitempty" json:"paymentUpdatedAt,omitempty"`
}

type OrderItem struct {
	ProductID string `bson:"product_id" json:"productId"`
	Name      string `bson:"name" json:"name"`
	Quantity  int64  `bson:"quantity" json:"quantity"`
	UnitPrice int64  `bson:"unit_price" json:"unitPrice"`
	Subtotal  int64  `bson:"subtotal" json:"subtotal"`
}

type Shipping struct {
	AddressLine1 string `bson:"address_line1" json:"addressLine1"`
	City         string `bson:"city" json:"city"`
	PostalCode   string `bson:"postal_code" json:"postalCode"`
	Province     string `bson:"province" json:"province"`
	Country      string `bson:"country" json:"country"`
	Comments     string `bson:"comments" json:"comments"`
}

// StatusRecord lo agrega el servidor en cada transición; el reloj es el del servidor.
type StatusRecord struct {
	From      Status    `bson:"from" json:"fromStatus"`
	To        Status    `bson:"to" json:"toStatus"`
	Note      string    `bson:"note" json:"note,omitempty"`
	UserID    string    `bson:"user" json:"userId"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	// Para marcar cuál es el último
	Current bool `bson:"current" json:"current"`
}

// ItemsSum suma los subtotales de los items.
func (o *Order) ItemsSum() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Subtotal
	}
	return sum
}

// Validate chequea los invariantes de items y total.
func (o *Order) Validate() error {
	for i, it := range o.Items {
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			return fmt.Errorf("%w: items[%d]", ErrInvalidItem, i)
		}
		if it.Subtotal != it.UnitPrice*it.Quantity {
			return fmt.Errorf("%w: items[%d] subtotal %d != %d x %d", ErrInvalidItem, i, it.Subtotal, it.UnitPrice, it.Quantity)
		}
	}
	if o.Total < 0 || o.Discount < 0 {
		return ErrInvalidTotal
	}
	if o.Total < o.ItemsSum()-o.Discount {
		return fmt.Errorf("%w: %d < %d", ErrInvalidTotal, o.Total, o.ItemsSum()-o.Discount)
	}
	return nil
}

// CurrentRecord devuelve el último registro del historial, si existe.
func (o *Order) CurrentRecord() *StatusRecord {
	for i := range o.History {
		if o.History[i].Current {
			return &o.History[i]
		}
	}
	return nil
}
