package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/greenbugenergy/outbound-caller/internal/api/router"
	"github.com/greenbugenergy/outbound-caller/internal/call"
	appconfig "github.com/greenbugenergy/outbound-caller/internal/config"
	"github.com/greenbugenergy/outbound-caller/internal/crm"
	"github.com/greenbugenergy/outbound-caller/internal/http/handlers"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/internal/llm"
	"github.com/greenbugenergy/outbound-caller/internal/observability/metrics"
	"github.com/greenbugenergy/outbound-caller/internal/schedule"
	"github.com/greenbugenergy/outbound-caller/internal/telephony"
	"github.com/greenbugenergy/outbound-caller/internal/tts"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

func main() {
	// Load .env for local development; in deployment the environment is real.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting outbound-caller API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := cfg.ValidateTelephony(); err != nil {
		// The server still starts so health checks and /metrics work, but
		// every lead intake will be rejected until credentials arrive.
		logger.Warn("telephony not fully configured", "error", err)
	}

	callMetrics := metrics.NewCallMetrics(nil)

	// Scheduling and conversation state, all in-process by design.
	ledger := schedule.NewMemoryLedger(cfg.SlotCapacity)
	resolver := schedule.NewResolver(ledger, cfg.LookaheadDays)
	store := call.NewStore()
	notifier := crm.NewNotifier(cfg.CRMWebhookURL, cfg.CRMTimeout, logger)

	var free call.FreeReplier
	if cfg.FreeChatEnabled {
		replier, err := llm.NewGeminiReplier(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID, logger)
		if err != nil {
			logger.Error("free chat enabled but gemini unavailable", "error", err)
			os.Exit(1)
		}
		defer replier.Close()
		free = replier
		logger.Info("free conversation mode enabled", "model", cfg.GeminiModelID)
	}

	machine := call.NewMachine(call.MachineConfig{
		AgentName:   cfg.AgentName,
		CompanyName: cfg.CompanyName,
		MaxTurns:    cfg.MaxTurns,
		MaxRetries:  cfg.MaxStateRetries,
		Resolver:    resolver,
		Notifier:    notifier,
		Free:        free,
		Logger:      logger,
	})

	// Speech synthesis with a cache in front; Redis when configured so
	// replicas and restarts share audio, in-memory otherwise.
	var cache tts.Cache
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		cache = tts.NewRedisCache(rdb, cfg.TTSCacheTTL)
		logger.Info("tts cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		cache = tts.NewMemoryCache()
	}
	synth := tts.NewCachingSynthesizer(
		tts.NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.TTSTimeout, logger),
		cache,
		callMetrics,
	)

	placer := telephony.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		LeadsHandler:    leads.NewHandler(cfg, placer, callMetrics, logger),
		VoiceWebhooks:   handlers.NewVoiceWebhookHandler(store, machine, cfg.PublicBaseURL, callMetrics, logger),
		SpeechAudio:     handlers.NewSpeechAudioHandler(synth, logger),
		TwilioAuthToken: cfg.TwilioWebhookSecret,
		PublicBaseURL:   cfg.PublicBaseURL,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
