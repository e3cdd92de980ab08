/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the partner gateway client, the audit event producer, the
 * repository, the core application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/joho/godotenv: Optional .env loading for local development.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/gatewayclient, pkg/rabbitmq, pkg/sharedtoken: External collaborators.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/finvault/ledger-service/internal/api"
	"github.com/finvault/ledger-service/internal/app"
	"github.com/finvault/ledger-service/internal/config"
	"github.com/finvault/ledger-service/internal/store"
	"github.com/finvault/ledger-service/pkg/gatewayclient"
	"github.com/finvault/ledger-service/pkg/rabbitmq"
	"github.com/finvault/ledger-service/pkg/sharedtoken"
)

func main() {
	// Load the optional .env file for local development. Environment variables
	// already set take precedence.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment values\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.GatewaySharedSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"gateway shared secret must be configured\" env=GATEWAY_SHARED_SECRET")
	}
	if strings.TrimSpace(cfg.SessionJWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"session jwt secret must be configured\" env=SESSION_JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the audit event producer. An unreachable broker degrades to a
	// no-op publisher; audit events are best-effort.
	var auditPublisher rabbitmq.AuditPublisher
	auditProducer, err := rabbitmq.NewAuditProducer(cfg.RabbitMQURL, cfg.AuditExchange)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		auditPublisher = &rabbitmq.AuditProducerFallback{}
	} else {
		defer auditProducer.Close()
		auditPublisher = auditProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// The shared-secret partnership with the payment gateway. Both the tokens
	// we mint and the service tokens the gateway presents run through it.
	partnership := sharedtoken.NewPartnership(
		cfg.ServiceID,
		cfg.GatewayPartnerID,
		cfg.GatewaySharedSecret,
		int(cfg.TokenToleranceSeconds),
	)

	gatewayClient := gatewayclient.NewClient(cfg.GatewayBaseURL, partnership)

	// Optional Redis-backed rate limiting for the credential-bearing endpoints.
	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
	} else {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelPing()
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
		}
	}

	repository := store.NewPostgresRepository(dbpool)

	ledgerService := app.NewService(repository, gatewayClient, partnership, auditPublisher)
	if redisClient != nil {
		ledgerService.SetRateLimiter(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.LinkRateLimitPerMinute,
			cfg.TransferRateLimitPerMinute,
		)
	}

	handlers := api.NewLedgerHandlers(ledgerService)
	router := api.LedgerRoutes(handlers, ledgerService, partnership, cfg.SessionJWTSecret)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
