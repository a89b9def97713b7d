package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/greenbugenergy/outbound-caller/internal/call"
	"github.com/greenbugenergy/outbound-caller/internal/classify"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// maxHistoryTurns bounds how much transcript the model sees per request.
const maxHistoryTurns = 12

const systemPrompt = `You are Nicola, a friendly scheduling assistant for a renewable energy installer.
You are on a live phone call helping a homeowner book a free survey visit.
The caller just said something the booking system could not interpret.

Respond with ONLY a JSON object, no markdown, in this exact shape:
{"reply": "<one or two short spoken sentences>", "intent": "<continue|book|decline>", "day": "<weekday, tomorrow, next week, or empty>", "window": "<morning, afternoon, or empty>"}

Rules:
- "intent" is "decline" only when the caller clearly does not want the visit.
- "intent" is "book" only when the caller names a day or a time of day.
- Otherwise "intent" is "continue" and "reply" gently steers back to booking.
- Keep "reply" under 40 words, warm and plain spoken. Never invent appointment details.`

// verdict is the JSON shape the model is instructed to return.
type verdict struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
	Day    string `json:"day"`
	Window string `json:"window"`
}

// GeminiReplier answers off-script utterances with a Gemini model and folds
// the answer back into a structured verdict. It implements call.FreeReplier.
type GeminiReplier struct {
	client  *genai.Client
	modelID string
	logger  *logging.Logger
}

// NewGeminiReplier creates a replier backed by the Gemini API.
func NewGeminiReplier(ctx context.Context, apiKey, modelID string, logger *logging.Logger) (*GeminiReplier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &GeminiReplier{client: client, modelID: modelID, logger: logger}, nil
}

// Reply implements call.FreeReplier.
func (g *GeminiReplier) Reply(ctx context.Context, lead *leads.Lead, transcript []call.Turn, utterance string) (call.FreeReply, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0.4)
	model.SetMaxOutputTokens(256)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt + leadContext(lead)))

	cs := model.StartChat()
	history := transcript
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		role := "user"
		if turn.Speaker == call.SpeakerAgent {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(utterance))
	if err != nil {
		return call.FreeReply{}, fmt.Errorf("llm: gemini completion failed: %w", err)
	}

	text, err := candidateText(resp)
	if err != nil {
		return call.FreeReply{}, err
	}

	reply, err := parseVerdict(text)
	if err != nil {
		g.logger.Warn("gemini verdict unparsable", "error", err, "raw", text)
		return call.FreeReply{}, err
	}
	return reply, nil
}

// Close releases the underlying API client.
func (g *GeminiReplier) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func leadContext(lead *leads.Lead) string {
	if lead == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nCaller context:")
	if lead.Name != "" {
		fmt.Fprintf(&b, " name %s.", lead.Name)
	}
	if lead.AddressLine() != "" {
		fmt.Fprintf(&b, " address on file %s.", lead.AddressLine())
	}
	return b.String()
}

func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", errors.New("llm: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("llm: gemini returned empty content")
	}
	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// parseVerdict decodes the model's JSON verdict, tolerating markdown fences
// and re-checking extracted fields with the deterministic classifiers so a
// hallucinated day or window never reaches the scheduler.
func parseVerdict(text string) (call.FreeReply, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return call.FreeReply{}, fmt.Errorf("llm: decode verdict: %w", err)
	}
	if strings.TrimSpace(v.Reply) == "" {
		return call.FreeReply{}, errors.New("llm: verdict missing reply")
	}

	reply := call.FreeReply{Text: strings.TrimSpace(v.Reply)}

	switch strings.ToLower(strings.TrimSpace(v.Intent)) {
	case "decline":
		reply.Intent = call.IntentDecline
	case "book":
		reply.Intent = call.IntentBook
	default:
		reply.Intent = call.IntentContinue
	}

	if v.Day != "" {
		if req, res := classify.Weekday(v.Day); res == classify.ResultMatch {
			reply.Day = &req
			reply.DaySpoken = spokenDay(req)
		}
	}
	if v.Window != "" {
		if w, res := classify.TimeWindow(v.Window); res == classify.ResultMatch {
			reply.Window = w
		}
	}

	// A "book" verdict without any usable field is just a continue.
	if reply.Intent == call.IntentBook && reply.Day == nil && reply.Window == "" {
		reply.Intent = call.IntentContinue
	}

	return reply, nil
}

func spokenDay(req classify.DayRequest) string {
	switch req.Relative {
	case classify.RelativeTomorrow:
		return "tomorrow"
	case classify.RelativeNextWeek:
		return "next week"
	}
	return req.Weekday.String()
}
