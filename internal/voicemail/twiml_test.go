package voicemail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScript(t *testing.T) {
	completion := CompletionURL("https://desk.example.com", "WT01", "WS01")
	out, err := BuildScript(ScriptParams{
		Greeting:        "Please leave a message after the tone.",
		FallbackMessage: "Goodbye.",
		MaxLength:       90 * time.Second,
		SilenceTimeout:  4 * time.Second,
		FinishOnKey:     "*",
		CompletionURL:   completion,
	})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, "<Response>")
	assert.Contains(t, doc, "<Say>Please leave a message after the tone.</Say>")
	assert.Contains(t, doc, `maxLength="90"`)
	assert.Contains(t, doc, `timeout="4"`)
	assert.Contains(t, doc, `finishOnKey="*"`)
	assert.Contains(t, doc, `transcribe="true"`)
	assert.Contains(t, doc, "<Hangup>")

	// The completion callback carries both identifiers; & is escaped in XML
	// attribute values.
	assert.Contains(t, doc, "taskSid=WT01")
	assert.Contains(t, doc, "workspaceSid=WS01")
	assert.Contains(t, doc, strings.ReplaceAll(completion, "&", "&amp;"))
}

func TestBuildScriptDefaults(t *testing.T) {
	out, err := BuildScript(ScriptParams{
		Greeting:        "Hello.",
		FallbackMessage: "Bye.",
		CompletionURL:   "https://desk.example.com/webhooks/voicemail/complete",
	})
	require.NoError(t, err)

	doc := string(out)
	assert.Contains(t, doc, `maxLength="120"`)
	assert.Contains(t, doc, `timeout="5"`)
	assert.Contains(t, doc, `finishOnKey="#"`)
}

func TestSafeScriptAlwaysRenders(t *testing.T) {
	doc := string(SafeScript())
	assert.Contains(t, doc, "<Response>")
	assert.Contains(t, doc, "<Say>")
	assert.Contains(t, doc, "<Hangup>")
	assert.NotContains(t, doc, "<Record")
}

func TestURLBuildersEscapeIdentifiers(t *testing.T) {
	script := ScriptURL("https://desk.example.com", "WT 01", "WS/01")
	assert.Equal(t, "https://desk.example.com/webhooks/voicemail?taskSid=WT+01&workspaceSid=WS%2F01", script)

	completion := CompletionURL("https://desk.example.com", "WT01", "WS01")
	assert.Equal(t, "https://desk.example.com/webhooks/voicemail/complete?taskSid=WT01&workspaceSid=WS01", completion)
}
