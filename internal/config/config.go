package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config drives the relay process.
type Config struct {
	RelayPort      uint16 `env:"RELAY_PORT"       envDefault:"8080" validate:"min=1000,max=65535"`
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535,nefield=RelayPort"`

	WsSendBuffer int           `env:"WS_SEND_BUFFER" envDefault:"256"   validate:"min=1"`
	WsReadLimit  int64         `env:"WS_READ_LIMIT"  envDefault:"104857600" validate:"min=512"`
	WsPingPeriod time.Duration `env:"WS_PING_PERIOD" envDefault:"30s"   validate:"min=1s"`

	PresenceMirrorEnabled bool   `env:"PRESENCE_MIRROR_ENABLED" envDefault:"false"`
	RedisPresenceHost     string `env:"REDIS_PRESENCE_HOST"     envDefault:"localhost"`
	RedisPresencePort     uint16 `env:"REDIS_PRESENCE_PORT"     envDefault:"6379" validate:"min=1000,max=65535"`
	RedisPresenceDb       int    `env:"REDIS_PRESENCE_DB"       envDefault:"0"    validate:"min=0,max=15"`
}

// ClientConfig drives cmd/chatclient.
type ClientConfig struct {
	RelayURL       string        `env:"RELAY_URL"       envDefault:"ws://localhost:8080" validate:"required,url"`
	Username       string        `env:"CHAT_USERNAME"   validate:"required"`
	Room           string        `env:"CHAT_ROOM"       envDefault:"general" validate:"required"`
	ReconnectDelay time.Duration `env:"RECONNECT_DELAY" envDefault:"3s" validate:"gt=0"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadClientConfig() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(cfg any) error {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return err
	}
	return nil
}
