package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/greenbugenergy/outbound-caller/internal/call"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

var notifyTracer = otel.Tracer("caller.internal.crm.notify_booking")

// ErrNotConfigured is returned when no webhook URL is set.
var ErrNotConfigured = errors.New("crm: webhook url not configured")

// bookingPayload is the wire shape posted to the CRM webhook.
type bookingPayload struct {
	Name             string        `json:"name"`
	Phone            string        `json:"phone"`
	Email            string        `json:"email,omitempty"`
	Address          string        `json:"address,omitempty"`
	Postcode         string        `json:"postcode,omitempty"`
	PropertyType     string        `json:"property_type,omitempty"`
	Homeowner        string        `json:"homeowner,omitempty"`
	Booking          bookingDetail `json:"booking"`
	Transcript       []turnPayload `json:"transcript"`
	CompletedAtEpoch int64         `json:"completed_at"`
}

type bookingDetail struct {
	Day              string `json:"day"`
	Window           string `json:"window"`
	Date             string `json:"date"`
	Start            string `json:"start"`
	SlotSpoken       string `json:"slot_spoken"`
	ConfirmedAddress string `json:"confirmed_address,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type turnPayload struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Notifier posts completed bookings to the CRM's inbound webhook. It
// implements call.Notifier.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
}

// NewNotifier builds a Notifier targeting webhookURL.
func NewNotifier(webhookURL string, timeout time.Duration, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// NotifyBooking implements call.Notifier. The caller treats failure as
// log-and-continue, so this retries transient errors itself before giving up.
func (n *Notifier) NotifyBooking(ctx context.Context, rec *call.BookingRecord) error {
	if n.webhookURL == "" {
		return ErrNotConfigured
	}

	ctx, span := notifyTracer.Start(ctx, "crm.notify_booking")
	defer span.End()
	span.SetAttributes(attribute.String("caller.booking_day", rec.Day))

	payload := bookingPayload{
		Name:             rec.Lead.Name,
		Phone:            rec.Lead.Phone,
		Email:            rec.Lead.Email,
		Address:          rec.Lead.Address,
		Postcode:         rec.Lead.Postcode,
		PropertyType:     rec.Lead.PropertyType,
		Homeowner:        string(rec.Lead.Homeowner),
		CompletedAtEpoch: n.now().Unix(),
		Booking: bookingDetail{
			Day:              rec.Day,
			Window:           string(rec.Window),
			Date:             rec.Slot.Date.Format("2006-01-02"),
			Start:            rec.Slot.Start,
			SlotSpoken:       rec.Slot.Spoken(),
			ConfirmedAddress: rec.ConfirmedAddress,
			Notes:            rec.Notes,
		},
	}
	for _, turn := range rec.Transcript {
		payload.Transcript = append(payload.Transcript, turnPayload{
			Speaker: string(turn.Speaker),
			Text:    turn.Text,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("crm: marshal booking: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(200+rand.Intn(300)) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = n.post(ctx, body)
		if lastErr == nil {
			n.logger.Info("booking delivered to crm",
				"phone", rec.Lead.Phone,
				"day", rec.Day,
				"attempt", attempt)
			return nil
		}

		var apiErr *apiError
		if errors.As(lastErr, &apiErr) && apiErr.status >= 400 && apiErr.status < 500 {
			break
		}
		n.logger.Warn("crm webhook attempt failed", "attempt", attempt, "error", lastErr)
	}

	span.RecordError(lastErr)
	return fmt.Errorf("crm: booking delivery failed: %w", lastErr)
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("crm webhook returned %d: %s", e.status, e.body)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(detail))}
	}
	return nil
}
