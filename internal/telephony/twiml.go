package telephony

import (
	"encoding/xml"
	"net/url"
)

// TwiML verbs. Only the handful this service emits are modeled.

// Play streams an audio URL to the caller.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Gather captures the caller's next utterance as speech and posts the
// transcript to the action URL.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr"`
	Action        string   `xml:"action,attr"`
	Method        string   `xml:"method,attr"`
	Timeout       int      `xml:"timeout,attr"`
	SpeechTimeout string   `xml:"speechTimeout,attr"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Response is a TwiML call-control document.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// VoiceDocument assembles the call-control XML for one conversation step:
// the prompts to play, then either a speech capture or a hangup. When
// listening, a no-input fallback (spoken apology + hangup) follows the
// Gather so a silent caller never sits on a dead line.
type VoiceDocument struct {
	// BaseURL is the public base URL prompts and actions are built against.
	BaseURL string
	// Say is the ordered list of prompt texts to play.
	Say []string
	// Listen captures the next utterance when true; otherwise the call ends.
	Listen bool
	// NoInputText is spoken before hangup if the Gather times out.
	NoInputText string
}

const (
	gatherTimeoutSeconds = 6
	utterancePath        = "/call/utterance"
	speechAudioPath      = "/speech-audio"
)

// SpeechURL returns the content-addressed audio URL for a prompt text.
func SpeechURL(baseURL, text string) string {
	return baseURL + speechAudioPath + "?text=" + url.QueryEscape(text)
}

// Render serializes the document to TwiML bytes.
func (d VoiceDocument) Render() ([]byte, error) {
	resp := Response{}
	for _, text := range d.Say {
		resp.Verbs = append(resp.Verbs, Play{URL: SpeechURL(d.BaseURL, text)})
	}

	if d.Listen {
		resp.Verbs = append(resp.Verbs, Gather{
			Input:         "speech",
			Action:        d.BaseURL + utterancePath,
			Method:        "POST",
			Timeout:       gatherTimeoutSeconds,
			SpeechTimeout: "auto",
		})
		if d.NoInputText != "" {
			resp.Verbs = append(resp.Verbs, Play{URL: SpeechURL(d.BaseURL, d.NoInputText)})
		}
	}
	resp.Verbs = append(resp.Verbs, Hangup{})

	body, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
