package call

import (
	"context"
	"time"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
	"github.com/greenbugenergy/outbound-caller/internal/schedule"
	"github.com/greenbugenergy/outbound-caller/pkg/logging"
)

// State is a conversation state. CLOSE_* states are terminal: once entered,
// no further utterances are processed for the call.
type State string

const (
	StateOpen           State = "OPEN"
	StateConfirmAddress State = "CONFIRM_ADDRESS"
	StateAskDay         State = "ASK_DAY"
	StateAskWindow      State = "ASK_WINDOW"
	StateConfirmSlot    State = "CONFIRM_SLOT"
	StateClosedBooked   State = "CLOSE_BOOKED"
	StateClosedDeclined State = "CLOSE_DECLINED"
	StateClosedTimeout  State = "CLOSE_TIMEOUT"
)

// Terminal reports whether the state ends the conversation.
func (s State) Terminal() bool {
	switch s {
	case StateClosedBooked, StateClosedDeclined, StateClosedTimeout:
		return true
	}
	return false
}

// StepOutput tells the gateway what to play and whether to keep listening.
// Exactly one of Listen/Hangup is set for every step.
type StepOutput struct {
	Say    []string
	Listen bool
	Hangup bool
}

// BookingRecord is the finalized booking handed to the notifier.
type BookingRecord struct {
	Lead             *leads.Lead
	Day              string
	Window           classify.Window
	Slot             schedule.Slot
	ConfirmedAddress string
	Notes            string
	Transcript       []Turn
}

// Notifier delivers a completed booking to the CRM. Failures are logged and
// never reopen the conversation; delivery is at-most-once by design.
type Notifier interface {
	NotifyBooking(ctx context.Context, rec *BookingRecord) error
}

// maxTranscriptChars clamps speech-recognition output before it enters the
// transcript or any prompt.
const maxTranscriptChars = 300

// MachineConfig configures the conversation state machine.
type MachineConfig struct {
	AgentName   string
	CompanyName string
	MaxTurns    int
	MaxRetries  int
	Resolver    *schedule.Resolver
	Notifier    Notifier
	Free        FreeReplier // optional LLM strategy, may be nil
	Logger      *logging.Logger
	Now         func() time.Time
}

// Machine advances a call session one caller utterance at a time. It is the
// only component that mutates session state or fires the booking side-effect.
type Machine struct {
	agentName   string
	companyName string
	maxTurns    int
	maxRetries  int
	resolver    *schedule.Resolver
	notifier    Notifier
	free        FreeReplier
	logger      *logging.Logger
	now         func() time.Time
}

// NewMachine creates a machine with safe defaults for missing config.
func NewMachine(cfg MachineConfig) *Machine {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 14
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Machine{
		agentName:   cfg.AgentName,
		companyName: cfg.CompanyName,
		maxTurns:    cfg.MaxTurns,
		maxRetries:  cfg.MaxRetries,
		resolver:    cfg.Resolver,
		notifier:    cfg.Notifier,
		free:        cfg.Free,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// Open produces the opening prompts for a freshly answered call.
func (m *Machine) Open(sess *Session) StepOutput {
	sess.Lock()
	defer sess.Unlock()

	out := StepOutput{
		Say:    promptOpening(sess.Lead.Name, m.agentName, m.companyName),
		Listen: true,
	}
	m.record(sess, out)
	return out
}

// Step advances the session with the latest caller utterance. An empty
// utterance signals silence or an unrecognized capture.
func (m *Machine) Step(ctx context.Context, sess *Session, utterance string) StepOutput {
	sess.Lock()
	defer sess.Unlock()

	// Duplicate delivery after close: say nothing new, just hang up.
	if sess.State.Terminal() {
		return StepOutput{Hangup: true}
	}

	utterance = classify.CleanTranscript(utterance, maxTranscriptChars)
	sess.TurnCount++
	sess.appendTurn(SpeakerCaller, utterance)

	// Absolute safety valve, independent of per-state retry logic.
	if sess.TurnCount >= m.maxTurns {
		out := m.closeTimeout(sess)
		m.record(sess, out)
		return out
	}

	var out StepOutput
	switch sess.State {
	case StateOpen:
		out = m.stepOpen(ctx, sess, utterance)
	case StateConfirmAddress:
		out = m.stepConfirmAddress(ctx, sess, utterance)
	case StateAskDay:
		out = m.stepAskDay(ctx, sess, utterance)
	case StateAskWindow:
		out = m.stepAskWindow(ctx, sess, utterance)
	case StateConfirmSlot:
		out = m.stepConfirmSlot(ctx, sess, utterance)
	default:
		m.logger.Error("unknown conversation state", "call_sid", sess.CallID, "state", string(sess.State))
		out = m.closeWith(sess, StateClosedTimeout, promptApology())
	}

	m.record(sess, out)
	return out
}

func (m *Machine) record(sess *Session, out StepOutput) {
	for _, line := range out.Say {
		sess.appendTurn(SpeakerAgent, line)
	}
}

func (m *Machine) transition(sess *Session, next State) {
	sess.State = next
	sess.Retries = 0
	sess.awaitingPostcode = false
}

// ----- per-state steps -----

func (m *Machine) stepOpen(ctx context.Context, sess *Session, utterance string) StepOutput {
	// A refusal on the very first answer ends the call immediately; we never
	// ask a second question of someone who said it's a bad time.
	if classify.Decline(utterance) == classify.ResultMatch {
		return m.closeDeclined(sess)
	}

	m.transition(sess, StateConfirmAddress)
	if sess.Lead.HasAddress() {
		return listen(promptConfirmAddress(sess.Lead.AddressLine()))
	}
	sess.awaitingPostcode = true
	return listen(promptAskPostcode())
}

func (m *Machine) stepConfirmAddress(ctx context.Context, sess *Session, utterance string) StepOutput {
	if sess.awaitingPostcode {
		if utterance == "" {
			return m.retry(sess, promptDidNotCatch(), promptAskPostcode())
		}
		// Free text is accepted verbatim as the correction.
		sess.Lead.Postcode = utterance
		sess.Draft.ConfirmedAddress = utterance
		m.transition(sess, StateAskDay)
		return listen(promptAskDay())
	}

	// Negation before affirmation: "that's not right" contains "right".
	if classify.Negation(utterance) == classify.ResultMatch {
		sess.awaitingPostcode = true
		return listen(promptCorrectPostcode())
	}
	if classify.Affirmation(utterance) == classify.ResultMatch {
		sess.Draft.ConfirmedAddress = sess.Lead.AddressLine()
		m.transition(sess, StateAskDay)
		return listen(promptAskDay())
	}

	return m.noMatch(ctx, sess, utterance, promptConfirmAddress(sess.Lead.AddressLine()))
}

func (m *Machine) stepAskDay(ctx context.Context, sess *Session, utterance string) StepOutput {
	req, res := classify.Weekday(utterance)
	if res != classify.ResultMatch {
		return m.noMatch(ctx, sess, utterance, promptAskDay())
	}

	if req.Relative == classify.RelativeNone &&
		(req.Weekday == time.Saturday || req.Weekday == time.Sunday) {
		// Re-prompt instead of silently moving the caller to a weekday.
		return m.retry(sess, promptWeekendRejected())
	}

	return m.acceptDay(sess, req, spokenDay(req))
}

func (m *Machine) acceptDay(sess *Session, req classify.DayRequest, spoken string) StepOutput {
	sess.Draft.Day = req
	sess.Draft.DaySpoken = spoken
	m.transition(sess, StateAskWindow)
	return listen(promptAskWindow())
}

func (m *Machine) stepAskWindow(ctx context.Context, sess *Session, utterance string) StepOutput {
	window, res := classify.TimeWindow(utterance)
	switch res {
	case classify.ResultOther:
		// Evenings are recognized but not offered; never silently substitute.
		return m.retry(sess, promptEveningRejected())
	case classify.ResultNone:
		return m.noMatch(ctx, sess, utterance, promptAskWindow())
	}
	return m.acceptWindow(sess, window)
}

func (m *Machine) acceptWindow(sess *Session, window classify.Window) StepOutput {
	sess.Draft.Window = window

	slot, err := m.resolver.Resolve(m.now(), sess.Draft.Day, window)
	if err != nil {
		m.logger.Error("slot resolution failed", "call_sid", sess.CallID, "error", err)
		return m.closeWith(sess, StateClosedTimeout, promptApology())
	}

	sess.Draft.Slot = slot
	sess.Draft.SlotResolved = true
	m.transition(sess, StateConfirmSlot)
	return listen(promptConfirmSlot(slot.Spoken()))
}

func (m *Machine) stepConfirmSlot(ctx context.Context, sess *Session, utterance string) StepOutput {
	if classify.Negation(utterance) == classify.ResultMatch {
		// The provisional reservation for the rejected slot stays consumed;
		// the ledger is best-effort de-duplication, not a booking of record.
		sess.Draft.SlotResolved = false
		m.transition(sess, StateAskDay)
		return listen(promptSlotRejected())
	}
	if classify.Affirmation(utterance) == classify.ResultMatch {
		return m.closeBooked(ctx, sess)
	}
	return m.noMatch(ctx, sess, utterance, promptReofferSlot(sess.Draft.Slot.Spoken()))
}

// ----- shared transitions -----

// retry re-prompts within the current state, closing the call once the
// per-state ceiling is hit. The retry counter strictly increases across
// consecutive failures in a state.
func (m *Machine) retry(sess *Session, say ...string) StepOutput {
	sess.Retries++
	if sess.Retries >= m.maxRetries {
		return m.closeTimeout(sess)
	}
	return listen(say...)
}

// noMatch handles an utterance the deterministic classifiers couldn't place.
// When the LLM strategy is configured it gets one chance to keep the
// conversation moving, but it cannot bypass the retry ceiling, and a booking
// still only ever happens through the normal close path.
func (m *Machine) noMatch(ctx context.Context, sess *Session, utterance string, reprompt string) StepOutput {
	if m.free == nil || utterance == "" {
		return m.retry(sess, promptDidNotCatch(), reprompt)
	}

	rep, err := m.free.Reply(ctx, sess.Lead, sess.Transcript, utterance)
	if err != nil {
		m.logger.Warn("free replier failed", "call_sid", sess.CallID, "error", err)
		return m.retry(sess, promptDidNotCatch(), reprompt)
	}

	switch rep.Intent {
	case IntentDecline:
		return m.closeDeclined(sess)
	case IntentBook:
		if sess.State == StateAskDay && rep.Day != nil {
			return m.acceptDay(sess, *rep.Day, rep.DaySpoken)
		}
		if sess.State == StateAskWindow && rep.Window != "" {
			return m.acceptWindow(sess, rep.Window)
		}
	}

	sess.Retries++
	if sess.Retries >= m.maxRetries {
		return m.closeTimeout(sess)
	}
	if rep.Text != "" {
		return listen(rep.Text, reprompt)
	}
	return listen(promptDidNotCatch(), reprompt)
}

func (m *Machine) closeBooked(ctx context.Context, sess *Session) StepOutput {
	// One-way, one-time transition: the notifier fires at most once per call
	// no matter how many duplicate callbacks arrive.
	if !sess.BookingSent {
		sess.BookingSent = true
		rec := &BookingRecord{
			Lead:             sess.Lead,
			Day:              sess.Draft.DaySpoken,
			Window:           sess.Draft.Window,
			Slot:             sess.Draft.Slot,
			ConfirmedAddress: sess.Draft.ConfirmedAddress,
			Notes:            sess.Draft.Notes,
			Transcript:       append([]Turn(nil), sess.Transcript...),
		}
		if err := m.notifier.NotifyBooking(ctx, rec); err != nil {
			// Logged and reconciled out-of-band; the call is already closing.
			m.logger.Error("booking notification failed", "call_sid", sess.CallID, "error", err)
		}
	}
	return m.closeWith(sess, StateClosedBooked, promptBooked(sess.Draft.Slot.Spoken()))
}

func (m *Machine) closeDeclined(sess *Session) StepOutput {
	return m.closeWith(sess, StateClosedDeclined, promptDeclined())
}

func (m *Machine) closeTimeout(sess *Session) StepOutput {
	return m.closeWith(sess, StateClosedTimeout, promptTimeout())
}

func (m *Machine) closeWith(sess *Session, state State, say string) StepOutput {
	sess.State = state
	return StepOutput{Say: []string{say}, Hangup: true}
}

func listen(say ...string) StepOutput {
	return StepOutput{Say: say, Listen: true}
}

func spokenDay(req classify.DayRequest) string {
	switch req.Relative {
	case classify.RelativeTomorrow:
		return "tomorrow"
	case classify.RelativeNextWeek:
		return "next week"
	}
	return req.Weekday.String()
}
