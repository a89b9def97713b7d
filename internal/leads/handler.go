package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/greenbugenergy/outbound-caller/internal/config"
	"github.com/greenbugenergy/outbound-caller/internal/observability/metrics"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// CallPlacer starts an outbound call whose conversation is driven by the
// answer/utterance/status webhooks at the given URLs.
type CallPlacer interface {
	PlaceCall(ctx context.Context, to, answerURL, statusURL string) (string, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	cfg     *config.Config
	placer  CallPlacer
	metrics *metrics.CallMetrics
	logger  *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(cfg *config.Config, placer CallPlacer, m *metrics.CallMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		cfg:     cfg,
		placer:  placer,
		metrics: m,
		logger:  logger,
	}
}

// CreateLeadResponse is returned after an outbound call has been triggered.
type CreateLeadResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	CallSID string `json:"call_sid,omitempty"`
	Error   string `json:"error,omitempty"`
	Got     string `json:"got,omitempty"`
}

// CreateLead handles POST /lead. It normalizes the CRM payload, validates the
// phone number, and triggers the outbound call.
func (h *Handler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("failed to decode lead payload", "error", err)
		writeJSON(w, http.StatusBadRequest, CreateLeadResponse{OK: false, Error: "invalid request body"})
		return
	}

	lead, err := Normalize(payload)
	if err != nil {
		h.metrics.ObserveCallPlaced("rejected")
		if errors.Is(err, ErrInvalidPhone) {
			raw := firstString(pick(payload, "phone", "Phone", "phone_number", "phoneNumber", "mobile"))
			writeJSON(w, http.StatusBadRequest, CreateLeadResponse{OK: false, Error: err.Error(), Got: raw})
			return
		}
		writeJSON(w, http.StatusBadRequest, CreateLeadResponse{OK: false, Error: err.Error()})
		return
	}

	if err := h.cfg.ValidateTelephony(); err != nil {
		h.logger.Error("telephony not configured", "error", err)
		writeJSON(w, http.StatusInternalServerError, CreateLeadResponse{OK: false, Error: err.Error()})
		return
	}

	answerURL := h.cfg.PublicBaseURL + "/call/answered?" + EncodeQuery(lead)
	statusURL := h.cfg.PublicBaseURL + "/call/status"

	sid, err := h.placer.PlaceCall(r.Context(), lead.Phone, answerURL, statusURL)
	if err != nil {
		h.metrics.ObserveCallPlaced("failed")
		h.logger.Error("failed to place outbound call", "error", err, "to", lead.Phone)
		writeJSON(w, http.StatusInternalServerError, CreateLeadResponse{OK: false, Error: err.Error()})
		return
	}

	h.metrics.ObserveCallPlaced("placed")
	h.logger.Info("outbound call triggered", "call_sid", sid, "name", lead.Name)
	writeJSON(w, http.StatusOK, CreateLeadResponse{OK: true, Message: "Call triggered", CallSID: sid})
}

// EncodeQuery serializes lead fields into the answer-webhook query string so
// the session can be rebuilt when the carrier calls back at answer time.
func EncodeQuery(lead *Lead) string {
	q := url.Values{}
	q.Set("name", lead.Name)
	q.Set("phone", lead.Phone)
	if lead.Email != "" {
		q.Set("email", lead.Email)
	}
	if lead.Address != "" {
		q.Set("address", lead.Address)
	}
	if lead.Postcode != "" {
		q.Set("postcode", lead.Postcode)
	}
	if lead.PropertyType != "" {
		q.Set("property_type", lead.PropertyType)
	}
	if lead.Homeowner != "" && lead.Homeowner != HomeownerUnknown {
		q.Set("homeowner", string(lead.Homeowner))
	}
	return q.Encode()
}

// FromQuery rebuilds a Lead from the answer-webhook query parameters.
func FromQuery(q url.Values) *Lead {
	lead := &Lead{
		Name:         q.Get("name"),
		Phone:        q.Get("phone"),
		Email:        q.Get("email"),
		Address:      q.Get("address"),
		Postcode:     q.Get("postcode"),
		PropertyType: q.Get("property_type"),
		Homeowner:    HomeownerUnknown,
	}
	switch q.Get("homeowner") {
	case "yes":
		lead.Homeowner = HomeownerYes
	case "no":
		lead.Homeowner = HomeownerNo
	}
	if lead.Name == "" {
		lead.Name = "there"
	}
	return lead
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
