package main

import (
	"log"

	"order-lifecycle-service/internal/client"
	"order-lifecycle-service/internal/config"
	"order-lifecycle-service/internal/console"
	"order-lifecycle-service/internal/payment"
	"order-lifecycle-service/internal/service"
	"order-lifecycle-service/internal/upload"
)

func main() {
	cfg, err := config.LoadConsole()
	if err != nil {
		log.Fatalf("Error leyendo configuración: %v", err)
	}

	orders := client.New(cfg.OrderServiceURL, cfg.HTTPTimeout)
	h := console.NewHandler(orders, upload.NewPreviews(), payment.MaxReceiptBytes)
	r := console.NewRouter(h, service.NewAuthService(cfg.AuthURL))

	log.Printf("Consola de órdenes en puerto %s (servicio de órdenes: %s)", cfg.Port, cfg.OrderServiceURL)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
