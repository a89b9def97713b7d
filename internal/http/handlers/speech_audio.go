package handlers

import (
	"net/http"
	"strings"

	"github.com/greenbugenergy/outbound-caller/internal/tts"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// SpeechAudioHandler serves GET /speech-audio?text=...; the TwiML documents
// point every Play verb here so the carrier fetches prompt audio from us
// rather than from the TTS provider directly.
type SpeechAudioHandler struct {
	synth  tts.Synthesizer
	logger *logging.Logger
}

// NewSpeechAudioHandler wires the audio proxy.
func NewSpeechAudioHandler(synth tts.Synthesizer, logger *logging.Logger) *SpeechAudioHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SpeechAudioHandler{synth: synth, logger: logger}
}

// Serve handles the audio request.
func (h *SpeechAudioHandler) Serve(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), text)
	if err != nil {
		h.logger.Error("speech synthesis failed", "error", err)
		http.Error(w, "synthesis failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(audio)
}
