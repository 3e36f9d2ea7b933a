package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VoicemailNotification is the message published when a voicemail
// transcription callback completes.
type VoicemailNotification struct {
	ID            uuid.UUID `json:"id"`
	From          string    `json:"from"`
	DurationSec   int       `json:"duration_sec,omitempty"`
	RecordingURL  string    `json:"recording_url"`
	Transcription string    `json:"transcription"`
	// Incomplete marks transcriptions the provider did not finish; the
	// notification is still delivered with an explicit annotation.
	Incomplete bool      `json:"incomplete"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Body renders the human-readable notification text.
func (n VoicemailNotification) Body() string {
	text := n.Transcription
	if text == "" {
		text = "(no transcription available)"
	}
	if n.Incomplete {
		text += " [transcription may be incomplete]"
	}

	body := fmt.Sprintf("New voicemail from %s", n.From)
	if n.DurationSec > 0 {
		body += fmt.Sprintf(" (%ds)", n.DurationSec)
	}
	body += fmt.Sprintf(": %s\nRecording: %s", text, n.RecordingURL)
	return body
}
