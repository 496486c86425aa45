// Command apdepo is the main entrypoint for the card-prediction service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally connects to Postgres for the terminal-prediction audit trail
//     and runs idempotent migrations.
//   - Starts the delivery queue worker and registers the Telegram webhook.
//   - Exposes a minimal HTTP server with /webhook, /healthz, /readyz,
//     /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/appolinair2355/Apdepo/config"
	"github.com/appolinair2355/Apdepo/db"
	"github.com/appolinair2355/Apdepo/dispatch"
	"github.com/appolinair2355/Apdepo/predictor"
	"github.com/appolinair2355/Apdepo/server"
	"github.com/appolinair2355/Apdepo/telegram"
	"github.com/appolinair2355/Apdepo/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("telegram credentials invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("apdepo", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Telegram client + startup credential check
	client := telegram.New(cfg.BotToken)
	client.BaseURL = cfg.APIBaseURL
	{
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if username, err := client.GetMe(ctx2); err != nil {
			slog.Warn("telegram identity check failed", slog.Any("err", err))
		} else {
			slog.Info("telegram bot ready", slog.String("username", username))
		}
		cancel()
	}

	// Optional audit DB
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = db.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		// Versioned migrations first; embedded SQL as fallback for
		// deployments without the migration files on disk.
		slog.Info("running database migrations", slog.String("component", "db_migrate"))
		if err := db.RunMigrations(database); err != nil {
			slog.Warn("versioned migrations failed, attempting embedded SQL fallback",
				slog.Any("err", err), slog.String("component", "db_migrate"))
			if err := db.Migrate(context.Background(), database); err != nil {
				slog.Error("failed to migrate db", slog.Any("err", err))
				os.Exit(1)
			}
		}
	} else {
		slog.Info("DB_DSN not set; audit store disabled, state is process-lifetime only")
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Core wiring: store -> queue -> engine
	store := predictor.NewStore()
	queue := dispatch.New(client, store, cfg.TargetChannelID, cfg.DefaultBackoff)
	engine := predictor.NewEngine(store, queue)
	if database != nil {
		engine = engine.WithAudit(&db.AuditStore{DB: database})
		db.Heartbeat(ctx, database, "service_started")
	}
	go queue.Run(ctx)

	// Webhook self-registration
	if endpoint := cfg.WebhookEndpoint(); endpoint != "" {
		wctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if err := client.SetWebhook(wctx, endpoint); err != nil {
			slog.Error("webhook registration failed", slog.Any("err", err), slog.String("url", endpoint))
		} else {
			slog.Info("webhook registered", slog.String("url", endpoint))
		}
		cancel()
	} else {
		slog.Warn("WEBHOOK_URL not set; webhook must be registered externally")
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (webhook/health/status/metrics)
	handlers := server.NewHandlers(engine, queue, database, cfg.TargetChannelID)
	go func() {
		slog.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.Start(ctx, handlers, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
