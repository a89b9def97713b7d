package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Telephony (Twilio)
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromNumber    string
	TwilioWebhookSecret string

	// Speech synthesis (ElevenLabs)
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	TTSTimeout        time.Duration

	// CRM booking webhook
	CRMWebhookURL string
	CRMTimeout    time.Duration

	// Conversation script
	AgentName   string
	CompanyName string

	// Conversation safety ceilings
	MaxTurns        int
	MaxStateRetries int

	// Slot catalog
	SlotCapacity  int
	LookaheadDays int

	// Optional Redis-backed TTS audio cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	TTSCacheTTL   time.Duration

	// Optional LLM free-conversation mode
	FreeChatEnabled bool
	GeminiAPIKey    string
	GeminiModelID   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
		TTSTimeout:        getEnvAsDuration("TTS_TIMEOUT", 15*time.Second),

		CRMWebhookURL: getEnv("CRM_WEBHOOK_URL", ""),
		CRMTimeout:    getEnvAsDuration("CRM_TIMEOUT", 10*time.Second),

		AgentName:   getEnv("AGENT_NAME", "Nicola"),
		CompanyName: getEnv("COMPANY_NAME", "Greenbug Energy"),

		MaxTurns:        getEnvAsInt("MAX_TURNS", 14),
		MaxStateRetries: getEnvAsInt("MAX_STATE_RETRIES", 3),

		SlotCapacity:  getEnvAsInt("SLOT_CAPACITY", 2),
		LookaheadDays: getEnvAsInt("LOOKAHEAD_DAYS", 14),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		TTSCacheTTL:   getEnvAsDuration("TTS_CACHE_TTL", 24*time.Hour),

		FreeChatEnabled: getEnvAsBool("FREE_CHAT_ENABLED", false),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
	}
}

// ErrTelephonyNotConfigured is returned when an outbound call is requested
// without the Twilio credentials needed to place it.
var ErrTelephonyNotConfigured = errors.New("config: twilio credentials or PUBLIC_BASE_URL missing")

// ValidateTelephony checks the settings required to place an outbound call.
func (c *Config) ValidateTelephony() error {
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" || c.PublicBaseURL == "" {
		return ErrTelephonyNotConfigured
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
