package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

var synthTracer = otel.Tracer("caller.internal.tts.synthesize")

const defaultBaseURL = "https://api.elevenlabs.io"

// maxPromptChars clamps synthesis input; anything longer is never a prompt
// this service generated.
const maxPromptChars = 700

// ErrEmptyText is returned when synthesis is requested for blank input.
var ErrEmptyText = errors.New("tts: text required")

// Synthesizer converts prompt text to playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// voiceSettings tune the cloned voice; values match the voice profile the
// business recorded.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// ElevenLabsClient synthesizes speech through the ElevenLabs streaming API.
type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewElevenLabsClient builds a client with sane defaults.
func NewElevenLabsClient(apiKey, voiceID string, timeout time.Duration, logger *logging.Logger) *ElevenLabsClient {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ElevenLabsClient{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the API base URL, for tests.
func (c *ElevenLabsClient) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// Synthesize implements Synthesizer.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	if c.apiKey == "" || c.voiceID == "" {
		return nil, errors.New("tts: elevenlabs credentials missing")
	}

	ctx, span := synthTracer.Start(ctx, "tts.elevenlabs.synthesize")
	defer span.End()
	span.SetAttributes(attribute.Int("caller.text_len", len(text)))

	body, err := json.Marshal(synthRequest{
		Text: text,
		VoiceSettings: voiceSettings{
			Stability:       0.45,
			SimilarityBoost: 0.85,
			Style:           0.3,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, c.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tts: synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("tts: synthesis failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		span.RecordError(err)
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tts: read audio stream: %w", err)
	}

	c.logger.Debug("synthesized prompt audio", "bytes", len(audio))
	return audio, nil
}
