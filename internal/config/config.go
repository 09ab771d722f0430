package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Stripe       StripeConfig
	LemonSqueezy LemonSqueezyConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	FrontendURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type LemonSqueezyConfig struct {
	APIKey  string
	StoreID string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8080"
	}

	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid SERVER_PORT: %w", op, err)
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	serverCfg := ServerConfig{
		Host:        serverHost,
		Port:        serverPort,
		FrontendURL: frontendURL,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPortStr := os.Getenv("POSTGRES_PORT")
	if postgresPortStr == "" {
		postgresPortStr = "5432"
	}

	postgresPort, err := strconv.Atoi(postgresPortStr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid POSTGRES_PORT: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	authCfg := AuthConfig{
		JWTSecret: jwtSecret,
	}

	stripeSecretKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeSecretKey == "" {
		return nil, fmt.Errorf("%s: missing STRIPE_SECRET_KEY", op)
	}

	stripeWebhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if stripeWebhookSecret == "" {
		return nil, fmt.Errorf("%s: missing STRIPE_WEBHOOK_SECRET", op)
	}

	stripeCurrency := os.Getenv("STRIPE_CURRENCY")
	if stripeCurrency == "" {
		stripeCurrency = "usd"
	}

	stripeCfg := StripeConfig{
		SecretKey:     stripeSecretKey,
		WebhookSecret: stripeWebhookSecret,
		Currency:      stripeCurrency,
	}

	lsAPIKey := os.Getenv("LEMON_SQUEEZY_API_KEY")
	if lsAPIKey == "" {
		return nil, fmt.Errorf("%s: missing LEMON_SQUEEZY_API_KEY", op)
	}

	lsStoreID := os.Getenv("LEMON_SQUEEZY_STORE_ID")
	if lsStoreID == "" {
		return nil, fmt.Errorf("%s: missing LEMON_SQUEEZY_STORE_ID", op)
	}

	lsCfg := LemonSqueezyConfig{
		APIKey:  lsAPIKey,
		StoreID: lsStoreID,
	}

	return &Config{
		Server:       serverCfg,
		Postgres:     postgresCfg,
		Redis:        redisCfg,
		Auth:         authCfg,
		Stripe:       stripeCfg,
		LemonSqueezy: lsCfg,
	}, nil
}
