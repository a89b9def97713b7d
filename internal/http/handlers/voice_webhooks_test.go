package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbugenergy/outbound-caller/internal/call"
	"github.com/greenbugenergy/outbound-caller/internal/schedule"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

const testBase = "https://caller.example.com"

type nopNotifier struct{ records int }

func (n *nopNotifier) NotifyBooking(context.Context, *call.BookingRecord) error {
	n.records++
	return nil
}

func newTestHandler(t *testing.T) (*VoiceWebhookHandler, *call.Store) {
	t.Helper()
	store := call.NewStore()
	machine := call.NewMachine(call.MachineConfig{
		AgentName:   "Nicola",
		CompanyName: "Greenbug Energy",
		Resolver:    schedule.NewResolver(schedule.NewMemoryLedger(2), 14),
		Notifier:    &nopNotifier{},
		Logger:      logging.Default(),
	})
	return NewVoiceWebhookHandler(store, machine, testBase, nil, logging.Default()), store
}

func postForm(t *testing.T, h http.HandlerFunc, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestAnsweredOpensSession(t *testing.T) {
	h, store := newTestHandler(t)

	path := "/call/answered?name=Pat&phone=%2B447700900123&address=1+Test+Street&postcode=G1+1AA"
	rec := postForm(t, h.Answered, path, url.Values{"CallSid": {"CA1"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<Gather")
	assert.Contains(t, body, "Pat")

	sess := store.Get("CA1")
	require.NotNil(t, sess)
	assert.Equal(t, call.StateOpen, sess.State)
	assert.Equal(t, "Pat", sess.Lead.Name)
}

func TestAnsweredMissingCallSidStillSpeaks(t *testing.T) {
	h, store := newTestHandler(t)

	rec := postForm(t, h.Answered, "/call/answered", url.Values{})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Hangup>")
	assert.Zero(t, store.Len())
}

func TestUtteranceAdvancesMachine(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(t, h.Answered,
		"/call/answered?name=Pat&phone=%2B447700900123&address=1+Test+Street&postcode=G1+1AA",
		url.Values{"CallSid": {"CA1"}})

	rec := postForm(t, h.Utterance, "/call/utterance", url.Values{
		"CallSid":      {"CA1"},
		"SpeechResult": {"yes that's fine"},
		"Confidence":   {"0.91"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Gather")
	assert.Equal(t, call.StateConfirmAddress, store.Get("CA1").State)
}

func TestUtteranceUnknownCallHangsUpPolitely(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postForm(t, h.Utterance, "/call/utterance", url.Values{
		"CallSid":      {"CA404"},
		"SpeechResult": {"hello?"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<Hangup>")
	assert.NotContains(t, body, "<Gather")
}

func TestStatusCompletedTearsDownSession(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(t, h.Answered,
		"/call/answered?name=Pat&phone=%2B447700900123",
		url.Values{"CallSid": {"CA1"}})
	require.Equal(t, 1, store.Len())

	rec := postForm(t, h.Status, "/call/status", url.Values{
		"CallSid":      {"CA1"},
		"CallStatus":   {"completed"},
		"To":           {"+447700900123"},
		"CallDuration": {"45"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, store.Len())
}

func TestStatusIntermediateKeepsSession(t *testing.T) {
	h, store := newTestHandler(t)

	postForm(t, h.Answered,
		"/call/answered?name=Pat&phone=%2B447700900123",
		url.Values{"CallSid": {"CA1"}})

	postForm(t, h.Status, "/call/status", url.Values{
		"CallSid":    {"CA1"},
		"CallStatus": {"in-progress"},
	})

	assert.Equal(t, 1, store.Len())
}

func TestAnsweredIdempotentOnDuplicateCallback(t *testing.T) {
	h, store := newTestHandler(t)
	form := url.Values{"CallSid": {"CA1"}}
	path := "/call/answered?name=Pat&phone=%2B447700900123"

	postForm(t, h.Answered, path, form)
	sess := store.Get("CA1")
	postForm(t, h.Answered, path, form)

	assert.Same(t, sess, store.Get("CA1"))
	assert.Equal(t, 1, store.Len())
}
