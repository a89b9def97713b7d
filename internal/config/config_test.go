package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.MaxTurns != 14 {
		t.Errorf("expected default max turns 14, got %d", cfg.MaxTurns)
	}
	if cfg.MaxStateRetries != 3 {
		t.Errorf("expected default state retries 3, got %d", cfg.MaxStateRetries)
	}
	if cfg.SlotCapacity != 2 {
		t.Errorf("expected default slot capacity 2, got %d", cfg.SlotCapacity)
	}
	if cfg.LookaheadDays != 14 {
		t.Errorf("expected default lookahead 14, got %d", cfg.LookaheadDays)
	}
	if cfg.TTSCacheTTL != 24*time.Hour {
		t.Errorf("expected default cache TTL 24h, got %s", cfg.TTSCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("PUBLIC_BASE_URL", "https://caller.example.com/")
	t.Setenv("MAX_TURNS", "8")
	t.Setenv("FREE_CHAT_ENABLED", "true")
	t.Setenv("TTS_TIMEOUT", "5s")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.PublicBaseURL != "https://caller.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.PublicBaseURL)
	}
	if cfg.MaxTurns != 8 {
		t.Errorf("expected max turns 8, got %d", cfg.MaxTurns)
	}
	if !cfg.FreeChatEnabled {
		t.Error("expected free chat enabled")
	}
	if cfg.TTSTimeout != 5*time.Second {
		t.Errorf("expected tts timeout 5s, got %s", cfg.TTSTimeout)
	}
}

func TestValidateTelephony(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateTelephony(); err == nil {
		t.Fatal("expected error for empty telephony config")
	}

	cfg = &Config{
		TwilioAccountSID: "AC123",
		TwilioAuthToken:  "token",
		TwilioFromNumber: "+15550000001",
		PublicBaseURL:    "https://caller.example.com",
	}
	if err := cfg.ValidateTelephony(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
