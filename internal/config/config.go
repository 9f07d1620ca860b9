// config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config del servicio de órdenes (cmd/server).
type Config struct {
	MongoURI    string `env:"MONGO_URI" envDefault:"mongodb://host.docker.internal:27017"`
	MongoDBName string `env:"MONGO_DB_NAME" envDefault:"order_lifecycle_db"`
	AuthURL     string `env:"AUTH_URL" envDefault:"http://host.docker.internal:3000"`
	RabbitURL   string `env:"RABBIT_URL" envDefault:"amqp://host.docker.internal"`
	Port        string `env:"PORT" envDefault:"8080"`
	// URL pública con la que se arman las URLs de archivos subidos
	PublicURL      string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
}

// ConsoleConfig de la consola de administración (cmd/console).
type ConsoleConfig struct {
	OrderServiceURL string        `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:8080"`
	Port            string        `env:"CONSOLE_PORT" envDefault:"8090"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	AuthURL         string        `env:"AUTH_URL" envDefault:"http://host.docker.internal:3000"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadConsole() (*ConsoleConfig, error) {
	cfg := &ConsoleConfig{}
	if err := parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(target any) error {
	// .env es opcional; en docker las variables vienen del entorno
	if err := godotenv.Load(); err != nil {
		log.Println("[Config] sin archivo .env, usando variables de entorno")
	}
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
