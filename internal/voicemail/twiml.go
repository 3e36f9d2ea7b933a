package voicemail

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"time"
)

// Document is the markup response the telephony engine executes against the
// live call: say the greeting, record until a terminator key, silence
// timeout, or max length, then say the fallback line and hang up.
type Document struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Say speaks a line to the caller.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

// Record captures the caller until finished, requesting transcription whose
// completion callback points back into this service.
type Record struct {
	XMLName            xml.Name `xml:"Record"`
	Action             string   `xml:"action,attr"`
	Method             string   `xml:"method,attr"`
	MaxLength          int      `xml:"maxLength,attr"`
	Timeout            int      `xml:"timeout,attr"`
	FinishOnKey        string   `xml:"finishOnKey,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// ScriptParams configures a recording document.
type ScriptParams struct {
	Greeting        string
	FallbackMessage string
	MaxLength       time.Duration
	SilenceTimeout  time.Duration
	FinishOnKey     string
	CompletionURL   string
}

// BuildScript renders the record-and-transcribe document.
func BuildScript(p ScriptParams) ([]byte, error) {
	maxLength := int(p.MaxLength.Seconds())
	if maxLength <= 0 {
		maxLength = 120
	}
	timeout := int(p.SilenceTimeout.Seconds())
	if timeout <= 0 {
		timeout = 5
	}
	finishOnKey := p.FinishOnKey
	if finishOnKey == "" {
		finishOnKey = "#"
	}

	doc := Document{Verbs: []any{
		Say{Text: p.Greeting},
		Record{
			Action:             p.CompletionURL,
			Method:             "POST",
			MaxLength:          maxLength,
			Timeout:            timeout,
			FinishOnKey:        finishOnKey,
			Transcribe:         true,
			TranscribeCallback: p.CompletionURL,
		},
		Say{Text: p.FallbackMessage},
		Hangup{},
	}}

	return marshal(doc)
}

// SafeScript is the minimal apology-and-hangup document returned on any
// internal error. The call is live; an error response would leave it hanging.
func SafeScript() []byte {
	doc := Document{Verbs: []any{
		Say{Text: "We are sorry, we are unable to take your message right now. Please call back later."},
		Hangup{},
	}}
	out, err := marshal(doc)
	if err != nil {
		// Static document, cannot fail; keep a literal as the last resort.
		return []byte(xml.Header + "<Response><Hangup/></Response>")
	}
	return out
}

// CompletionURL builds the record-step callback embedding the task and
// workspace identifiers, derived from the serving host.
func CompletionURL(callbackBase, taskSID, workspaceSID string) string {
	return fmt.Sprintf("%s/webhooks/voicemail/complete?taskSid=%s&workspaceSid=%s",
		callbackBase, url.QueryEscape(taskSID), url.QueryEscape(workspaceSID))
}

// ScriptURL builds the voicemail flow entry point for a redirect.
func ScriptURL(callbackBase, taskSID, workspaceSID string) string {
	return fmt.Sprintf("%s/webhooks/voicemail?taskSid=%s&workspaceSid=%s",
		callbackBase, url.QueryEscape(taskSID), url.QueryEscape(workspaceSID))
}

func marshal(doc Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("voicemail: marshal script: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
