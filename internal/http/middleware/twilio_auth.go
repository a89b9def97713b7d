package middleware

import (
	"net/http"
	"strings"

	"github.com/greenbugenergy/outbound-caller/internal/telephony"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// TwilioAuth rejects voice webhook requests whose X-Twilio-Signature does not
// verify against the auth token. publicBaseURL is the externally visible base
// of this service; Twilio signs the full URL it was told to call, including
// the query string. An empty authToken disables verification, which is only
// acceptable in local development.
func TwilioAuth(authToken, publicBaseURL string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	base := strings.TrimRight(publicBaseURL, "/")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authToken == "" {
				next.ServeHTTP(w, r)
				return
			}
			webhookURL := base + r.URL.Path
			if r.URL.RawQuery != "" {
				webhookURL += "?" + r.URL.RawQuery
			}
			if !telephony.ValidateSignature(r, authToken, webhookURL) {
				logger.Warn("rejected webhook with bad signature",
					"path", r.URL.Path,
					"remote_ip", r.RemoteAddr,
				)
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
