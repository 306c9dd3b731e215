package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"atinuda-ticketing/internal/auth"
	"atinuda-ticketing/internal/checkin"
	"atinuda-ticketing/internal/config"
	"atinuda-ticketing/internal/database/migrations"
	"atinuda-ticketing/internal/gateway"
	"atinuda-ticketing/internal/kafka"
	"atinuda-ticketing/internal/logger"
	"atinuda-ticketing/internal/notify"
	orders_db "atinuda-ticketing/internal/orders/db"
	tickets_db "atinuda-ticketing/internal/tickets/db"
	qr "atinuda-ticketing/internal/tickets/qr_generator"
	tickets "atinuda-ticketing/internal/tickets/service"
	"atinuda-ticketing/internal/tickets/template"
	"atinuda-ticketing/internal/tickets/ticket_api"
)

func connectDatabase(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("Redis unavailable, verification caching disabled: %v", err))
		return nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Ticket Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectDatabase(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		if err := runner.Close(); err != nil {
			log.Warn("DATABASE", fmt.Sprintf("Failed to close migrator: %v", err))
		}
	}

	orderDB := orders_db.New(bunDB)
	ticketDB := tickets_db.New(bunDB)

	gatewayClient := gateway.NewClient(cfg.Gateway, &http.Client{Timeout: cfg.Gateway.Timeout})

	qrGen := qr.NewQRGenerator(cfg.Event.QRSecretKey)
	pdfGen := template.NewTicketPDFGenerator(cfg.Event.Name)

	ticketService := tickets.NewTicketService(orderDB, ticketDB, gatewayClient, log)
	ticketService.Location = cfg.Event.Location
	ticketService.Artifacts = tickets.NewPassArtifacts(qrGen, pdfGen, cfg.Event.TicketURLBase)

	if cfg.Email.SMTPUsername != "" {
		ticketService.Notifier = notify.NewMailer(cfg.Email)
		log.Info("NOTIFY", fmt.Sprintf("Email delivery enabled via %s:%d", cfg.Email.SMTPHost, cfg.Email.SMTPPort))
	} else {
		log.Warn("NOTIFY", "SMTP credentials not set, email delivery disabled")
	}

	if cfg.Redis.Enabled {
		if redisClient := connectRedis(ctx, cfg.Redis, log); redisClient != nil {
			defer redisClient.Close()
			ticketService.Cache = gateway.NewVerificationCache(redisClient)
		}
	}

	checkinService := checkin.NewService(ticketDB, cfg.CheckIn, log)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TicketIssued, cfg.Kafka.Topics.CheckinToggled)
		defer producer.Close()
		ticketService.Publisher = producer
		checkinService.Publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Kafka.Brokers))
	}

	handler := ticket_api.NewHandler(ticketService, checkinService, qrGen, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if os.Getenv("OIDC_ISSUER") != "" {
			r.Use(auth.Middleware())
			log.Info("AUTH", "OIDC middleware applied to API routes")
		} else {
			log.Warn("AUTH", "OIDC_ISSUER not set, API running without token verification")
		}

		r.Route("/api/v1", func(r chi.Router) {
			handler.Routes(r)
		})
		log.Info("ROUTER", "Ticket routes registered under /api/v1/tickets")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Ticket Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Ticket Service shutdown complete")
	}
}
