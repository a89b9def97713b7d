// Package classify turns noisy speech-recognition transcripts into the small
// set of semantic signals the conversation needs: agreement, refusal, a
// weekday, or a time-of-day window. Everything here is pure and stateless.
package classify

import (
	"regexp"
	"strings"
	"time"
)

// Result is the outcome of a classification attempt. A classifier never
// guesses: if the signal is absent it reports ResultNone and the caller is
// re-prompted. ResultOther means the caller said something recognizable but
// unsupported (e.g. an evening slot) and deserves a targeted re-prompt.
type Result int

const (
	ResultNone Result = iota
	ResultMatch
	ResultOther
)

// Window is a coarse time-of-day bucket offered to callers.
type Window string

const (
	WindowMorning   Window = "morning"
	WindowAfternoon Window = "afternoon"
)

// Relative identifies day terms that resolve against the calendar rather
// than to a fixed weekday.
type Relative int

const (
	RelativeNone Relative = iota
	RelativeTomorrow
	RelativeNextWeek
)

// DayRequest is a caller's stated day preference.
type DayRequest struct {
	Weekday  time.Weekday
	Relative Relative
}

// CleanTranscript collapses whitespace, trims, and clamps transcript text.
// Speech recognition occasionally emits very long garbage strings; the clamp
// keeps them from leaking into prompts or the CRM payload.
func CleanTranscript(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if max > 0 && len(text) > max {
		text = text[:max]
	}
	return text
}

var affirmations = []string{
	"yes", "yeah", "yep", "yup", "aye", "sure", "correct", "right",
	"that's right", "thats right", "sounds good", "sound good", "okay", "ok",
	"go ahead", "of course", "definitely", "absolutely", "perfect", "fine",
}

var negations = []string{
	"no", "nope", "nah", "wrong", "incorrect", "that's not", "thats not",
	"don't", "dont", "not right", "not correct",
}

var declines = []string{
	"busy", "later", "not now", "not interested", "no thanks", "no thank you",
	"another time", "bad time", "can't talk", "cant talk", "driving",
	"call me back", "call back", "stop calling",
}

// Affirmation reports whether the transcript agrees with the last prompt.
func Affirmation(text string) Result {
	return lexiconMatch(text, affirmations)
}

// Negation reports whether the transcript refuses or corrects the last
// prompt. Single-word tokens match only on word boundaries so that e.g.
// "nottingham" does not read as a refusal.
func Negation(text string) Result {
	return lexiconMatch(text, negations)
}

// Decline reports whether the caller wants out of the call entirely
// ("not now", "busy"). Plain negation counts too.
func Decline(text string) Result {
	if lexiconMatch(text, declines) == ResultMatch {
		return ResultMatch
	}
	return Negation(text)
}

func lexiconMatch(text string, lexicon []string) Result {
	words := tokenize(text)
	lowered := " " + strings.ToLower(CleanTranscript(text, 0)) + " "
	for _, entry := range lexicon {
		if strings.Contains(entry, " ") || strings.Contains(entry, "'") {
			if strings.Contains(lowered, " "+entry+" ") {
				return ResultMatch
			}
			continue
		}
		if words[entry] {
			return ResultMatch
		}
	}
	return ResultNone
}

func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:")
		if w != "" {
			words[w] = true
		}
	}
	return words
}

// dayRE matches weekday names and common abbreviations on word boundaries.
var dayRE = regexp.MustCompile(`\b(sunday|sun|monday|mon|tuesday|tues|tue|wednesday|weds|wed|thursday|thurs|thur|thu|friday|fri|saturday|sat)\b`)

var dayMap = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "weds": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thur": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Weekday extracts a day preference from the transcript. Relative terms
// ("tomorrow", "next week") are reported as such and resolved by the
// availability resolver, which owns the calendar rules.
func Weekday(text string) (DayRequest, Result) {
	lowered := strings.ToLower(CleanTranscript(text, 0))

	if strings.Contains(lowered, "tomorrow") {
		return DayRequest{Relative: RelativeTomorrow}, ResultMatch
	}
	if strings.Contains(lowered, "next week") {
		return DayRequest{Relative: RelativeNextWeek}, ResultMatch
	}

	if m := dayRE.FindString(lowered); m != "" {
		return DayRequest{Weekday: dayMap[m]}, ResultMatch
	}

	return DayRequest{}, ResultNone
}

// TimeWindow extracts a morning/afternoon preference. Evening requests are
// recognized but reported as ResultOther so the caller can be told evenings
// are not offered, rather than being silently moved.
func TimeWindow(text string) (Window, Result) {
	lowered := strings.ToLower(CleanTranscript(text, 0))
	words := tokenize(lowered)

	if strings.Contains(lowered, "evening") || strings.Contains(lowered, "tonight") ||
		strings.Contains(lowered, "after work") {
		return "", ResultOther
	}
	if strings.Contains(lowered, "morning") || words["am"] {
		return WindowMorning, ResultMatch
	}
	if strings.Contains(lowered, "afternoon") || words["pm"] || strings.Contains(lowered, "after lunch") {
		return WindowAfternoon, ResultMatch
	}

	return "", ResultNone
}
