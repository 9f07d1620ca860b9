// setup.go
package rabbit

import (
	"context"
	"log"

	"github.com/rabbitmq/amqp091-go"
)

const (
	placedExchange = "order_placed"
	placedQueue    = "order_lifecycle_service_orders"
)

func SetupConsumers(ch *amqp091.Channel, svc OrderCreator) error {
	consumer := NewPlaceOrderConsumer(svc)

	// 1. Declarar la queue
	q, err := ch.QueueDeclare(
		placedQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("[Rabbit] Error declarando queue:", err)
		return err
	}

	// 2. Bindear al exchange fanout
	err = ch.QueueBind(
		q.Name,
		"", // fanout ignora routing key
		placedExchange,
		false,
		nil,
	)
	if err != nil {
		log.Println("[Rabbit] Error binding exchange:", err)
		return err
	}

	// 3. Consumir
	msgs, err := ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Println("[Rabbit] Error al consumir queue:", err)
		return err
	}

	go func() {
		for m := range msgs {
			// el error ya quedó logueado en Handle
			_ = consumer.Handle(context.Background(), m.Body)
		}
	}()

	log.Printf("[Rabbit] Suscrito a exchange %s (fanout)", placedExchange)
	return nil
}
