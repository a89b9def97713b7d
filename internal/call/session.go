package call

import (
	"sync"
	"time"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/internal/schedule"
)

// Speaker identifies which side of the call produced a transcript line.
type Speaker string

const (
	SpeakerAgent  Speaker = "agent"
	SpeakerCaller Speaker = "caller"
)

// Turn is one transcript line.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// BookingDraft accumulates the structured fields the conversation extracts.
// It is mutated only by the state machine and becomes read-only the moment
// the booking notifier fires.
type BookingDraft struct {
	Day              classify.DayRequest
	DaySpoken        string
	Window           classify.Window
	Slot             schedule.Slot
	SlotResolved     bool
	ConfirmedAddress string
	Notes            string
}

// Session is the live state for one telephone call, from answer to hangup.
// It is owned by the gateway and never shared across calls. The mutex guards
// against the carrier delivering two callbacks for the same call at once;
// the calling protocol shouldn't allow it, but locking per call is cheap.
type Session struct {
	mu sync.Mutex

	CallID      string
	Lead        *leads.Lead
	State       State
	TurnCount   int
	Retries     int
	Draft       BookingDraft
	Transcript  []Turn
	BookingSent bool
	StartedAt   time.Time

	// awaitingPostcode flags the CONFIRM_ADDRESS sub-step where the next
	// utterance is accepted verbatim as the corrected postcode.
	awaitingPostcode bool
}

// Lock takes the per-session critical section for one webhook turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session critical section.
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) appendTurn(speaker Speaker, text string) {
	if text == "" {
		return
	}
	s.Transcript = append(s.Transcript, Turn{Speaker: speaker, Text: text})
}

// Store holds the live sessions keyed by call SID. Sessions exist only for
// the lifetime of a call; there is deliberately no durable backing store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session for an answered call. If a session already
// exists for the call SID (duplicate answer callback) it is returned as-is.
func (st *Store) Create(callID string, lead *leads.Lead, now time.Time) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, ok := st.sessions[callID]; ok {
		return sess
	}
	sess := &Session{
		CallID:    callID,
		Lead:      lead,
		State:     StateOpen,
		StartedAt: now,
	}
	st.sessions[callID] = sess
	return sess
}

// Get returns the session for a call SID, or nil if none exists.
func (st *Store) Get(callID string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[callID]
}

// Delete tears down a session once the call has reached a terminal status.
func (st *Store) Delete(callID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, callID)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
