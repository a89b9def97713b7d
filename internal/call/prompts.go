package call

import "fmt"

// Prompt texts. Everything the agent says lives here so the machine stays
// pure transition logic and the copy can be tuned without touching it.

func promptOpening(name, agent, company string) []string {
	return []string{
		fmt.Sprintf("Hi %s, I'm %s from %s. You recently requested a callback about a site survey.", name, agent, company),
		"Is now a quick moment to get that booked in?",
	}
}

func promptConfirmAddress(address string) string {
	return fmt.Sprintf("Great. Just to check, we have your address as %s. Is that right?", address)
}

func promptAskPostcode() string {
	return "Great. Could you tell me the postcode for the property?"
}

func promptCorrectPostcode() string {
	return "No problem at all. What's the right postcode?"
}

func promptAskDay() string {
	return "Perfect, thanks. Which day suits you best for the survey? We visit Monday to Friday."
}

func promptWeekendRejected() string {
	return "I'm sorry, our surveyors are only out Monday to Friday. Which weekday would suit you?"
}

func promptAskWindow() string {
	return "And would you prefer a morning or an afternoon visit?"
}

func promptEveningRejected() string {
	return "I'm afraid we can't do evenings. Would a morning or an afternoon work for you?"
}

func promptConfirmSlot(spoken string) string {
	return fmt.Sprintf("Lovely. The next slot I have is %s. Shall I book that in for you?", spoken)
}

func promptReofferSlot(spoken string) string {
	return fmt.Sprintf("Just to confirm, that's %s. Is that okay?", spoken)
}

func promptSlotRejected() string {
	return "No problem at all. Which day would suit you better?"
}

func promptBooked(spoken string) string {
	return fmt.Sprintf("Perfect, you're booked in for %s. We'll text you the details shortly. Bye for now.", spoken)
}

func promptDeclined() string {
	return "No problem at all. We'll send you a text so you can rebook at a better time. Bye for now."
}

func promptTimeout() string {
	return "Sorry, I'm having trouble hearing you. We'll send you a text so you can book at a better time. Bye for now."
}

func promptApology() string {
	return "I'm so sorry, something's gone wrong on our end. We'll text you shortly to get this sorted. Bye for now."
}

func promptDidNotCatch() string {
	return "Sorry, I didn't quite catch that."
}
