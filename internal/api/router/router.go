package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/greenbugenergy/outbound-caller/internal/http/handlers"
	httpmiddleware "github.com/greenbugenergy/outbound-caller/internal/http/middleware"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	LeadsHandler  *leads.Handler
	VoiceWebhooks *handlers.VoiceWebhookHandler
	SpeechAudio   *handlers.SpeechAudioHandler

	// Twilio webhook signature verification. Empty token disables it.
	TwilioAuthToken string
	PublicBaseURL   string

	// Rate limit for the public lead intake endpoint, requests/sec per IP.
	LeadRatePerSec float64
	LeadBurst      int

	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)

	if cfg.LeadsHandler != nil {
		rate, burst := cfg.LeadRatePerSec, cfg.LeadBurst
		if rate <= 0 {
			rate = 1
		}
		if burst <= 0 {
			burst = 5
		}
		r.With(httpmiddleware.RateLimit(rate, burst)).Post("/lead", cfg.LeadsHandler.CreateLead)
	}

	if cfg.VoiceWebhooks != nil {
		r.Group(func(voice chi.Router) {
			voice.Use(httpmiddleware.TwilioAuth(cfg.TwilioAuthToken, cfg.PublicBaseURL, cfg.Logger))
			voice.Post("/call/answered", cfg.VoiceWebhooks.Answered)
			voice.Post("/call/utterance", cfg.VoiceWebhooks.Utterance)
			voice.Post("/call/status", cfg.VoiceWebhooks.Status)
		})
	}

	if cfg.SpeechAudio != nil {
		// Fetched by the carrier's media proxy; Play URLs are not signed.
		r.Get("/speech-audio", cfg.SpeechAudio.Serve)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Outbound caller is running"))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
