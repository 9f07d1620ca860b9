package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/repository"
)

// OrderCreator lo implementa service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*model.Order, error)
}

type PlaceOrderConsumer struct {
	Service OrderCreator
}

func NewPlaceOrderConsumer(s OrderCreator) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{Service: s}
}

// Mensaje que publica el servicio de carrito en el exchange order_placed.
// shipping, unitPrice y total pueden no venir.
type PlacedOrderMessage struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       struct {
		OrderID  string `json:"orderId"`
		CartID   string `json:"cartId"`
		UserID   string `json:"userId"`
		Articles []struct {
			ArticleID string `json:"articleId"`
			Name      string `json:"name"`
			Quantity  int64  `json:"quantity"`
			UnitPrice int64  `json:"unitPrice"`
		} `json:"articles"`
		Discount int64           `json:"discount"`
		Total    int64           `json:"total"`
		Shipping dto.ShippingDTO `json:"shipping"`
	} `json:"message"`
}

func (m *PlacedOrderMessage) toRequest() dto.CreateOrderRequest {
	req := dto.CreateOrderRequest{
		OrderID:  m.Message.OrderID,
		UserID:   m.Message.UserID,
		Discount: m.Message.Discount,
		Total:    m.Message.Total,
		Shipping: m.Message.Shipping,
		Items:    make([]dto.OrderItemDTO, 0, len(m.Message.Articles)),
	}
	for _, a := range m.Message.Articles {
		req.Items = append(req.Items, dto.OrderItemDTO{
			ProductID: a.ArticleID,
			Name:      a.Name,
			Quantity:  a.Quantity,
			UnitPrice: a.UnitPrice,
		})
	}
	return req
}

func (c *PlaceOrderConsumer) Handle(ctx context.Context, msg []byte) error {
	log.Println("[Rabbit] Evento recibido: place_order")

	var event PlacedOrderMessage
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Println("[Rabbit] Error parseando mensaje:", err)
		return err
	}
	if event.Message.OrderID == "" {
		log.Println("[Rabbit] Mensaje sin orderId, se descarta")
		return errors.New("place_order sin orderId")
	}

	o, err := c.Service.CreateOrder(ctx, event.toRequest())
	if errors.Is(err, repository.ErrOrderAlreadyExists) {
		// redelivery: la orden ya está creada
		log.Println("[Rabbit] Orden ya registrada:", event.Message.OrderID)
		return nil
	}
	if err != nil {
		log.Println("[Rabbit] Error creando orden:", err)
		return err
	}

	log.Printf("[Rabbit] Orden %s creada (%s)", o.ID, o.OrderNumber)
	return nil
}
