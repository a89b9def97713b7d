package call

import (
	"context"

	"github.com/greenbugenergy/outbound-caller/internal/classify"
	"github.com/greenbugenergy/outbound-caller/internal/leads"
)

// Intent is the canonical verdict a free-conversation strategy must emit.
// Whatever the model says, it is folded back into the deterministic machine
// through one of these three outcomes.
type Intent string

const (
	IntentContinue Intent = "continue"
	IntentBook     Intent = "book"
	IntentDecline  Intent = "decline"
)

// FreeReply is a free-conversation strategy's answer for one utterance.
type FreeReply struct {
	// Text is spoken to the caller before the state's re-prompt.
	Text string
	// Intent is the canonical classification of the utterance.
	Intent Intent
	// Day/DaySpoken/Window carry extracted booking fields, if any.
	Day       *classify.DayRequest
	DaySpoken string
	Window    classify.Window
}

// FreeReplier generates a conversational reply when the deterministic
// classifiers can't place an utterance. Implementations must not produce
// side effects: booking still only happens through the machine's close path,
// and the machine's retry and turn ceilings still apply.
type FreeReplier interface {
	Reply(ctx context.Context, lead *leads.Lead, transcript []Turn, utterance string) (FreeReply, error)
}
