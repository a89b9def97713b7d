package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

var placeCallTracer = otel.Tracer("caller.internal.telephony.place_call")

const apiBaseURL = "https://api.twilio.com/2010-04-01"

// Client places outbound calls through Twilio's REST API.
type Client struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient builds a client with sane defaults.
func NewClient(accountSID, authToken, fromNumber string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		from:       fromNumber,
		baseURL:    apiBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the Twilio API base URL, for tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// PlaceCall starts an outbound call. Twilio fetches call instructions from
// answerURL when the call connects and reports lifecycle events to statusURL.
// It returns the call SID, retrying transient failures.
func (c *Client) PlaceCall(ctx context.Context, to, answerURL, statusURL string) (string, error) {
	if c.accountSID == "" || c.authToken == "" {
		return "", errors.New("telephony: twilio credentials missing")
	}
	if to == "" {
		return "", errors.New("telephony: to required")
	}
	if c.from == "" {
		return "", errors.New("telephony: from number required")
	}

	ctx, span := placeCallTracer.Start(ctx, "telephony.twilio.place_call")
	defer span.End()
	span.SetAttributes(attribute.String("caller.to", to))

	payload := url.Values{}
	payload.Set("To", to)
	payload.Set("From", c.from)
	payload.Set("Url", answerURL)
	payload.Set("Method", "POST")
	if statusURL != "" {
		payload.Set("StatusCallback", statusURL)
		payload.Set("StatusCallbackMethod", "POST")
		for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
			payload.Add("StatusCallbackEvent", event)
		}
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID    string `json:"sid"`
					Status string `json:"status"`
				}
				if err := json.Unmarshal(body, &parsed); err != nil || parsed.SID == "" {
					return "", fmt.Errorf("telephony: unexpected create-call response: %s", string(body))
				}
				c.logger.Info("outbound call placed", "call_sid", parsed.SID, "to", to, "status", parsed.Status)
				return parsed.SID, nil
			}
			lastErr = fmt.Errorf("telephony: create call failed: %s", formatAPIError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			sleep := time.Duration(200+rand.Intn(300)) * time.Millisecond
			time.Sleep(sleep)
		}
	}

	if lastErr != nil {
		span.RecordError(lastErr)
	}
	return "", lastErr
}

type apiError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatAPIError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed apiError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
