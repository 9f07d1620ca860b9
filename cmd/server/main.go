package main

import (
	"context"
	"log"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-lifecycle-service/internal/config"
	"order-lifecycle-service/internal/controller"
	"order-lifecycle-service/internal/rabbit"
	"order-lifecycle-service/internal/repository"
	"order-lifecycle-service/internal/service"
	"order-lifecycle-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error leyendo configuración: %v", err)
	}

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorio y almacenamiento de archivos
	repo := repository.NewMongoOrderRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Error creando índices: %v", err)
	}
	files, err := storage.NewGridFSStore(db)
	if err != nil {
		log.Fatalf("Error creando bucket GridFS: %v", err)
	}

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("Error conectando a RabbitMQ: %v", err)
	}
	defer conn.Close()

	pubCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("Error creando canal en RabbitMQ: %v", err)
	}
	publisher, err := rabbit.NewPublisher(pubCh)
	if err != nil {
		log.Fatalf("Error creando publisher: %v", err)
	}

	// Servicios
	orderService := service.NewOrderService(repo, publisher)
	authService := service.NewAuthService(cfg.AuthURL)

	consCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("Error creando canal en RabbitMQ: %v", err)
	}
	if err := rabbit.SetupConsumers(consCh, orderService); err != nil {
		log.Fatalf("Error suscribiendo consumers: %v", err)
	}

	// Router
	r := controller.NewRouter(
		controller.NewOrderController(orderService),
		controller.NewFileController(files, cfg.PublicURL, cfg.UploadMaxBytes),
		authService,
	)

	// Ejecutar servidor
	log.Printf("Order Lifecycle Service ejecutándose en puerto %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
