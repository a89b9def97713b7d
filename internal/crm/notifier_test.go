package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbugenergy/outbound-caller/internal/call"
	"github.com/greenbugenergy/outbound-caller/internal/classify"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/internal/schedule"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

func testRecord() *call.BookingRecord {
	return &call.BookingRecord{
		Lead: &leads.Lead{
			Name:     "Pat",
			Phone:    "+447700900123",
			Address:  "1 Test Street",
			Postcode: "G1 1AA",
		},
		Day:    "Tuesday",
		Window: classify.WindowMorning,
		Slot: schedule.Slot{
			Date:   time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC),
			Start:  "09:00",
			Window: classify.WindowMorning,
		},
		ConfirmedAddress: "1 Test Street, G1 1AA",
		Transcript: []call.Turn{
			{Speaker: call.SpeakerAgent, Text: "Hi Pat."},
			{Speaker: call.SpeakerCaller, Text: "yes"},
		},
	}
}

func TestNotifyBooking(t *testing.T) {
	var got bookingPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, 5*time.Second, logging.Default())
	require.NoError(t, n.NotifyBooking(context.Background(), testRecord()))

	assert.Equal(t, "Pat", got.Name)
	assert.Equal(t, "+447700900123", got.Phone)
	assert.Equal(t, "Tuesday", got.Booking.Day)
	assert.Equal(t, "morning", got.Booking.Window)
	assert.Equal(t, "2026-09-08", got.Booking.Date)
	assert.Equal(t, "09:00", got.Booking.Start)
	assert.Equal(t, "1 Test Street, G1 1AA", got.Booking.ConfirmedAddress)
	require.Len(t, got.Transcript, 2)
	assert.Equal(t, "agent", got.Transcript[0].Speaker)
	assert.Equal(t, "yes", got.Transcript[1].Text)
}

func TestNotifyBookingNotConfigured(t *testing.T) {
	n := NewNotifier("", 0, nil)
	err := n.NotifyBooking(context.Background(), testRecord())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestNotifyBookingRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, 5*time.Second, logging.Default())
	require.NoError(t, n.NotifyBooking(context.Background(), testRecord()))
	assert.Equal(t, 3, attempts)
}

func TestNotifyBookingDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, 5*time.Second, logging.Default())
	err := n.NotifyBooking(context.Background(), testRecord())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
