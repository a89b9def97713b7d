package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
)

// ErrNoAvailability is returned when every candidate slot within the
// look-ahead bound is at capacity.
var ErrNoAvailability = errors.New("schedule: no slot available within look-ahead window")

// catalog lists the fixed visit start times per window, in booking order.
var catalog = map[classify.Window][]string{
	classify.WindowMorning:   {"09:00", "11:00"},
	classify.WindowAfternoon: {"13:00", "15:00"},
}

// Slot is a concrete bookable appointment unit.
type Slot struct {
	Date   time.Time       `json:"date"`
	Start  string          `json:"start"`
	Window classify.Window `json:"window"`
}

// Spoken renders the slot the way the agent reads it to the caller.
func (s Slot) Spoken() string {
	return fmt.Sprintf("%s the %s, in the %s, arriving around %s",
		s.Date.Weekday(), ordinalDate(s.Date), s.Window, spokenTime(s.Start))
}

func ordinalDate(d time.Time) string {
	day := d.Day()
	suffix := "th"
	switch {
	case day%10 == 1 && day != 11:
		suffix = "st"
	case day%10 == 2 && day != 12:
		suffix = "nd"
	case day%10 == 3 && day != 13:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s of %s", day, suffix, d.Month())
}

func spokenTime(start string) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	h := t.Hour()
	switch {
	case h == 0:
		return "midnight"
	case h < 12:
		return fmt.Sprintf("%d am", h)
	case h == 12:
		return "midday"
	default:
		return fmt.Sprintf("%d pm", h-12)
	}
}

// Resolver turns a (day request, window) preference into the next concrete
// slot with free capacity, reserving it in the ledger.
type Resolver struct {
	ledger    Ledger
	lookahead int
}

// NewResolver creates a resolver with the given look-ahead bound in days.
func NewResolver(ledger Ledger, lookaheadDays int) *Resolver {
	if lookaheadDays <= 0 {
		lookaheadDays = 14
	}
	return &Resolver{ledger: ledger, lookahead: lookaheadDays}
}

// Resolve finds and reserves the next free slot for the request. The search
// starts at the nearest future date matching the request (today excluded
// unless the term was relative), only ever lands on business days, and
// advances one business day at a time while the requested window is full.
// If the whole look-ahead is saturated for the requested window, the other
// window is tried from the start date before giving up.
func (r *Resolver) Resolve(now time.Time, req classify.DayRequest, window classify.Window) (Slot, error) {
	start := r.startDate(now, req)

	if slot, ok := r.search(start, window); ok {
		return slot, nil
	}
	if slot, ok := r.search(start, otherWindow(window)); ok {
		return slot, nil
	}
	return Slot{}, ErrNoAvailability
}

func (r *Resolver) search(start time.Time, window classify.Window) (Slot, bool) {
	starts, ok := catalog[window]
	if !ok || len(starts) == 0 {
		return Slot{}, false
	}

	date := nextBusinessDay(start)
	deadline := start.AddDate(0, 0, r.lookahead)
	for !date.After(deadline) {
		if idx, reserved := r.ledger.Reserve(date, window); reserved {
			return Slot{Date: date, Start: starts[idx%len(starts)], Window: window}, true
		}
		date = nextBusinessDay(date.AddDate(0, 0, 1))
	}
	return Slot{}, false
}

// startDate resolves the request to the first candidate calendar date.
func (r *Resolver) startDate(now time.Time, req classify.DayRequest) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch req.Relative {
	case classify.RelativeTomorrow:
		return today.AddDate(0, 0, 1)
	case classify.RelativeNextWeek:
		days := (int(time.Monday) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days)
	}

	// Nearest future occurrence of the requested weekday, today excluded.
	days := (int(req.Weekday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

func nextBusinessDay(d time.Time) time.Time {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func otherWindow(w classify.Window) classify.Window {
	if w == classify.WindowMorning {
		return classify.WindowAfternoon
	}
	return classify.WindowMorning
}
