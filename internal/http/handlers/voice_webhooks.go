package handlers

import (
	"net/http"
	"time"

	"github.com/greenbugenergy/outbound-caller/internal/call"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/internal/observability/metrics"
	"github.com/greenbugenergy/outbound-caller/internal/telephony"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// VoiceWebhookHandler turns Twilio voice callbacks into state machine steps
// and answers every one with valid TwiML. A malformed or failing turn still
// produces playable TwiML; a broken response here strands a live phone call.
type VoiceWebhookHandler struct {
	store   *call.Store
	machine *call.Machine
	baseURL string
	metrics *metrics.CallMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewVoiceWebhookHandler wires the webhook handler.
func NewVoiceWebhookHandler(store *call.Store, machine *call.Machine, publicBaseURL string, m *metrics.CallMetrics, logger *logging.Logger) *VoiceWebhookHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceWebhookHandler{
		store:   store,
		machine: machine,
		baseURL: publicBaseURL,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Answered handles POST /call/answered: the callee picked up. The lead rides
// in on the query string the call was placed with.
func (h *VoiceWebhookHandler) Answered(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	defer func() {
		h.metrics.ObserveWebhookLatency("/call/answered", time.Since(start).Seconds())
	}()

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse answer webhook", "error", err)
		h.writeFailsafe(w)
		return
	}

	callSID := r.PostFormValue("CallSid")
	if callSID == "" {
		h.logger.Error("answer webhook missing CallSid")
		h.writeFailsafe(w)
		return
	}

	lead := leadFromRequest(r)
	sess := h.store.Create(callSID, lead, h.now())
	out := h.machine.Open(sess)

	h.logger.WithCall(callSID).Info("call answered",
		"name", lead.Name,
		"live_sessions", h.store.Len(),
	)
	h.writeStep(w, callSID, out)
}

// Utterance handles POST /call/utterance: the result of a speech Gather.
func (h *VoiceWebhookHandler) Utterance(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	defer func() {
		h.metrics.ObserveWebhookLatency("/call/utterance", time.Since(start).Seconds())
	}()

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse utterance webhook", "error", err)
		h.writeFailsafe(w)
		return
	}

	callSID := r.PostFormValue("CallSid")
	speech := r.PostFormValue("SpeechResult")
	confidence := r.PostFormValue("Confidence")

	sess := h.store.Get(callSID)
	if sess == nil {
		// Restarted mid-call, or a callback for a call we never answered.
		h.logger.Warn("utterance for unknown call", "call_sid", callSID)
		h.writeFailsafe(w)
		return
	}

	out := h.machine.Step(r.Context(), sess, speech)
	h.metrics.ObserveTurn()

	sess.Lock()
	state := sess.State
	turn := sess.TurnCount
	sess.Unlock()

	h.logger.WithCall(callSID).Info("call turn",
		"state", string(state),
		"turn", turn,
		"confidence", confidence,
	)
	if state.Terminal() {
		h.metrics.ObserveOutcome(string(state))
	}
	h.writeStep(w, callSID, out)
}

// Status handles POST /call/status: lifecycle callbacks for the call leg.
// Terminal statuses tear the session down; everything else is just logged.
func (h *VoiceWebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse status webhook", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	callSID := r.PostFormValue("CallSid")
	status := r.PostFormValue("CallStatus")

	h.logger.Info("call status",
		"call_sid", callSID,
		"status", status,
		"to", r.PostFormValue("To"),
		"duration", r.PostFormValue("CallDuration"),
	)

	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		if sess := h.store.Get(callSID); sess != nil {
			sess.Lock()
			state := sess.State
			sess.Unlock()
			if !state.Terminal() {
				h.metrics.ObserveOutcome(string(call.StateClosedTimeout))
				h.logger.Info("call ended before close", "call_sid", callSID, "state", string(state))
			}
			h.store.Delete(callSID)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// leadFromRequest rebuilds the lead from the query parameters the call was
// placed with. Twilio echoes the full answer URL back, query string included.
func leadFromRequest(r *http.Request) *leads.Lead {
	return leads.FromQuery(r.URL.Query())
}

// writeStep renders a machine step as TwiML.
func (h *VoiceWebhookHandler) writeStep(w http.ResponseWriter, callSID string, out call.StepOutput) {
	doc := telephony.VoiceDocument{
		BaseURL: h.baseURL,
		Say:     out.Say,
		Listen:  out.Listen,
	}
	if out.Listen {
		doc.NoInputText = "Sorry, I didn't hear anything there. I'll try you another time. Bye for now."
	}
	body, err := doc.Render()
	if err != nil {
		h.logger.Error("failed to render twiml", "call_sid", callSID, "error", err)
		h.writeFailsafe(w)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(body)
}

// writeFailsafe answers with an apology-and-hangup document so the caller is
// never left on a dead line.
func (h *VoiceWebhookHandler) writeFailsafe(w http.ResponseWriter) {
	doc := telephony.VoiceDocument{
		BaseURL: h.baseURL,
		Say:     []string{"Sorry, we've hit a technical problem. We'll call you back shortly. Bye for now."},
	}
	body, err := doc.Render()
	if err != nil {
		// Hand-rolled minimal document as the last resort.
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`))
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(body)
}
