package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	ErrEmptyBotToken   = errors.New("telegram bot token is required")
	ErrEmptyDBPassword = errors.New("database password is required")
)

type Config struct {
	App       AppConfig       `yaml:"app" env:"APP"`
	Database  DatabaseConfig  `yaml:"database" env:"DB"`
	Bot       BotConfig       `yaml:"bot" env:"BOT"`
	Responses ResponsesConfig `yaml:"responses" env:"RESPONSES"`
	NATS      NATSConfig      `yaml:"nats" env:"NATS"`
	Health    HealthConfig    `yaml:"health" env:"HEALTH"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"NAME" env-default:"hahornah-bot"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"production"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host" env:"HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PORT" env-default:"5432"`
	User           string `yaml:"user" env:"USER" env-default:"hahornah"`
	Password       string `yaml:"password" env:"PASSWORD"`
	Name           string `yaml:"name" env:"NAME" env-default:"hahornah"`
	MaxConnections int    `yaml:"max_connections" env:"MAX_CONNECTIONS" env-default:"25"`
	MinConnections int    `yaml:"min_connections" env:"MIN_CONNECTIONS" env-default:"5"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

type BotConfig struct {
	Token     string `yaml:"token" env:"TOKEN"`
	ParseMode string `yaml:"parse_mode" env:"PARSE_MODE" env-default:"Markdown"`
}

type ResponsesConfig struct {
	File string `yaml:"file" env:"FILE" env-default:"bot_responses/bot_responses.json"`
}

type HealthConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"8080"`
	Endpoint string `yaml:"endpoint" env:"ENDPOINT" env-default:"/healthz"`
}

type NATSConfig struct {
	URL        string `yaml:"url" env:"URL" env-default:"nats://localhost:4222"`
	StreamName string `yaml:"stream_name" env:"STREAM_NAME" env-default:"HAHORNAH"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.prod.yaml"
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}

	cleanenv.ReadEnv(&cfg)

	if cfg.Bot.Token == "" {
		return nil, ErrEmptyBotToken
	}

	if cfg.Database.Password == "" {
		return nil, ErrEmptyDBPassword
	}

	return &cfg, nil
}
