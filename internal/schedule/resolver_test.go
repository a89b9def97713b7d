package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
)

// Monday 2026-09-07 00:00 UTC, a convenient fixed reference point.
var monday = time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)

func newTestResolver(capacity int) *Resolver {
	return NewResolver(NewMemoryLedger(capacity), 14)
}

func TestResolveWeekday(t *testing.T) {
	r := newTestResolver(2)

	slot, err := r.Resolve(monday, classify.DayRequest{Weekday: time.Tuesday}, classify.WindowMorning)
	require.NoError(t, err)

	assert.Equal(t, time.Tuesday, slot.Date.Weekday())
	assert.Equal(t, "09:00", slot.Start)
	assert.Equal(t, classify.WindowMorning, slot.Window)
	// Nearest future Tuesday from a Monday is tomorrow.
	assert.Equal(t, 8, slot.Date.Day())
}

func TestResolveSameWeekdayAsToday(t *testing.T) {
	r := newTestResolver(2)

	// Asking for "Monday" on a Monday must resolve to next week, not today.
	slot, err := r.Resolve(monday, classify.DayRequest{Weekday: time.Monday}, classify.WindowAfternoon)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, slot.Date.Weekday())
	assert.Equal(t, 14, slot.Date.Day())
	assert.Equal(t, "13:00", slot.Start)
}

func TestResolveTomorrow(t *testing.T) {
	r := newTestResolver(2)

	slot, err := r.Resolve(monday, classify.DayRequest{Relative: classify.RelativeTomorrow}, classify.WindowMorning)
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, slot.Date.Weekday())
	assert.Equal(t, 8, slot.Date.Day())
}

func TestResolveTomorrowOnFridaySkipsWeekend(t *testing.T) {
	r := newTestResolver(2)
	friday := time.Date(2026, time.September, 11, 10, 0, 0, 0, time.UTC)

	slot, err := r.Resolve(friday, classify.DayRequest{Relative: classify.RelativeTomorrow}, classify.WindowMorning)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, slot.Date.Weekday())
	assert.Equal(t, 14, slot.Date.Day())
}

func TestResolveNextWeek(t *testing.T) {
	r := newTestResolver(2)

	slot, err := r.Resolve(monday, classify.DayRequest{Relative: classify.RelativeNextWeek}, classify.WindowMorning)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, slot.Date.Weekday())
	assert.Equal(t, 14, slot.Date.Day())
}

func TestResolveTwiceYieldsDistinctSlots(t *testing.T) {
	r := newTestResolver(2)
	req := classify.DayRequest{Weekday: time.Tuesday}

	first, err := r.Resolve(monday, req, classify.WindowMorning)
	require.NoError(t, err)
	second, err := r.Resolve(monday, req, classify.WindowMorning)
	require.NoError(t, err)

	assert.Equal(t, first.Date, second.Date)
	assert.NotEqual(t, first.Start, second.Start, "back-to-back reservations must not collide")
}

func TestResolveAdvancesWhenWindowFull(t *testing.T) {
	r := newTestResolver(2)
	req := classify.DayRequest{Weekday: time.Tuesday}

	// Fill Tuesday morning.
	_, err := r.Resolve(monday, req, classify.WindowMorning)
	require.NoError(t, err)
	_, err = r.Resolve(monday, req, classify.WindowMorning)
	require.NoError(t, err)

	third, err := r.Resolve(monday, req, classify.WindowMorning)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, third.Date.Weekday(), "saturated window advances to next business day")
	assert.Equal(t, classify.WindowMorning, third.Window)
}

func TestResolveNeverReturnsWeekend(t *testing.T) {
	r := newTestResolver(2)

	for i := 0; i < 20; i++ {
		slot, err := r.Resolve(monday, classify.DayRequest{Relative: classify.RelativeTomorrow}, classify.WindowAfternoon)
		if err != nil {
			break
		}
		wd := slot.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
	}
}

func TestResolveExhaustedLookahead(t *testing.T) {
	ledger := NewMemoryLedger(1)
	r := NewResolver(ledger, 2)
	req := classify.DayRequest{Relative: classify.RelativeTomorrow}

	var got []classify.Window
	for {
		slot, err := r.Resolve(monday, req, classify.WindowMorning)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoAvailability)
			break
		}
		got = append(got, slot.Window)
		require.Less(t, len(got), 20, "resolver must exhaust eventually")
	}

	// With both windows saturated the fallback kicked in before failure.
	assert.Contains(t, got, classify.WindowMorning)
	assert.Contains(t, got, classify.WindowAfternoon)
}

func TestMemoryLedgerCapacity(t *testing.T) {
	l := NewMemoryLedger(2)
	d := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)

	idx, ok := l.Reserve(d, classify.WindowMorning)
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = l.Reserve(d, classify.WindowMorning)
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = l.Reserve(d, classify.WindowMorning)
	assert.False(t, ok, "third reservation must be refused")

	// Other window on the same date is an independent counter.
	_, ok = l.Reserve(d, classify.WindowAfternoon)
	assert.True(t, ok)
}

func TestSlotSpoken(t *testing.T) {
	slot := Slot{
		Date:   time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC),
		Start:  "09:00",
		Window: classify.WindowMorning,
	}
	assert.Equal(t, "Tuesday the 8th of September, in the morning, arriving around 9 am", slot.Spoken())

	slot.Start = "13:00"
	slot.Window = classify.WindowAfternoon
	assert.Contains(t, slot.Spoken(), "1 pm")
}
