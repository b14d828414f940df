package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolbus-platform/backend/internal/audit"
	auditrepo "schoolbus-platform/backend/internal/audit/repository"
	"schoolbus-platform/backend/internal/config"
	"schoolbus-platform/backend/internal/coordinator"
	"schoolbus-platform/backend/internal/db"
	healthhandler "schoolbus-platform/backend/internal/health/handler"
	linkrepo "schoolbus-platform/backend/internal/link/repository"
	linkservice "schoolbus-platform/backend/internal/link/service"
	"schoolbus-platform/backend/internal/line"
	registryrepo "schoolbus-platform/backend/internal/registry/repository"
	"schoolbus-platform/backend/internal/security"
	"schoolbus-platform/backend/internal/server"
	"schoolbus-platform/backend/internal/session"
	"schoolbus-platform/backend/internal/telemetry"
	telemetryotel "schoolbus-platform/backend/internal/telemetry/otel"
	"schoolbus-platform/backend/internal/telemetry/producer"
	triprepo "schoolbus-platform/backend/internal/trip/repository"
	tripservice "schoolbus-platform/backend/internal/trip/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.LineChannelSecret == "" {
		log.Fatal("LINE_CHANNEL_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "busbot-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	emitters := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database))
	links := linkrepo.NewPostgresRepository(database)
	registry := registryrepo.NewPostgresRepository(database)
	hasher := security.NewLinkCodeHasher(cfg.LinkCodeBcryptCost)
	linkSvc := linkservice.NewLinkService(links, registry, hasher, auditLogger, cfg.RegistryTimeout())

	sessions := session.NewMemoryStore(cfg.SessionTTL())
	composer := tripservice.NewComposer(triprepo.NewPostgresRepository(database))
	messenger := line.NewClient(cfg.LineChannelAccessToken, cfg.LineAPIBaseURL)
	coord := coordinator.New(sessions, linkSvc, composer, messenger)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	webhook := server.NewWebhookHandler(
		[]byte(cfg.LineChannelSecret), logger, sessions, linkSvc, coord, emitters,
	)

	mux := http.NewServeMux()
	mux.Handle("/webhook", webhook)
	mux.Handle("/healthz", healthhandler.NewHandler(database))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("webhook server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down webhook server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before dropping the providers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("webhook server stopped")
}
