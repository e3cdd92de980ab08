/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	AuditExchange        string `mapstructure:"AUDIT_EXCHANGE"`

	GatewayBaseURL      string `mapstructure:"GATEWAY_BASE_URL"`
	ServiceID           string `mapstructure:"SERVICE_ID"`
	GatewayPartnerID    string `mapstructure:"GATEWAY_PARTNER_ID"`
	GatewaySharedSecret string `mapstructure:"GATEWAY_SHARED_SECRET"`

	SessionJWTSecret      string `mapstructure:"SESSION_JWT_SECRET"`
	TokenToleranceSeconds int64  `mapstructure:"TOKEN_TOLERANCE_SECONDS"`

	LinkRateLimitPerMinute     int `mapstructure:"LINK_RATE_LIMIT_PER_MINUTE"`
	TransferRateLimitPerMinute int `mapstructure:"TRANSFER_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AUDIT_EXCHANGE", "ledger.audit")
	viper.SetDefault("SERVICE_ID", "ledger-core")
	viper.SetDefault("GATEWAY_PARTNER_ID", "pay-gateway")
	viper.SetDefault("TOKEN_TOLERANCE_SECONDS", 60)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("LINK_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("TRANSFER_RATE_LIMIT_PER_MINUTE", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("AUDIT_EXCHANGE")
	_ = viper.BindEnv("GATEWAY_BASE_URL")
	_ = viper.BindEnv("SERVICE_ID")
	_ = viper.BindEnv("GATEWAY_PARTNER_ID")
	_ = viper.BindEnv("GATEWAY_SHARED_SECRET", "GATEWAY_SHARED_SECRET", "LEDGER_GATEWAY_SHARED_SECRET")
	_ = viper.BindEnv("SESSION_JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TOLERANCE_SECONDS")
	_ = viper.BindEnv("LINK_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("TRANSFER_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.GatewaySharedSecret) == "" {
		config.GatewaySharedSecret = strings.TrimSpace(os.Getenv("LEDGER_GATEWAY_SHARED_SECRET"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}

	if config.TokenToleranceSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"invalid token tolerance; using default\" tolerance=%d", config.TokenToleranceSeconds)
		config.TokenToleranceSeconds = 60
	}
	if config.LinkRateLimitPerMinute <= 0 {
		config.LinkRateLimitPerMinute = 10
	}
	if config.TransferRateLimitPerMinute <= 0 {
		config.TransferRateLimitPerMinute = 60
	}

	return
}
