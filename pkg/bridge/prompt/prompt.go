// Package prompt renders the delivery instructions handed to the realtime
// voice backend, and owns the catalog of supported voices.
package prompt

import (
	"fmt"
	"strings"
)

// DefaultVoice is used when a request does not name a voice.
const DefaultVoice = "Ara"

var voices = []string{"Ara", "Rex", "Sal", "Eve", "Leo"}

// Voices returns the supported voice identifiers in display order.
func Voices() []string {
	out := make([]string, len(voices))
	copy(out, voices)
	return out
}

// ValidVoice reports whether id names a supported voice.
func ValidVoice(id string) bool {
	for _, v := range voices {
		if v == id {
			return true
		}
	}
	return false
}

// NormalizeVoice returns id if supported, DefaultVoice otherwise.
func NormalizeVoice(id string) string {
	if ValidVoice(strings.TrimSpace(id)) {
		return strings.TrimSpace(id)
	}
	return DefaultVoice
}

// CallInfo carries the pieces of a call configuration the prompt needs.
type CallInfo struct {
	Sender    string
	Recipient string
	Script    string
	Style     string
	Explicit  bool
}

// ForCall builds the system instructions for a live telegram delivery.
func ForCall(info CallInfo) string {
	recipient := info.Recipient
	if recipient == "" {
		recipient = "your valentine"
	}

	contentNote := "Keep the content PG-13 and appropriate for all audiences."
	if info.Explicit {
		contentNote = "The sender has opted in to explicit, adult content. Be bold and " +
			"unapologetically steamy; the recipient knows what they signed up for."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a Cupid Call telegram delivery agent calling %s on behalf of %s.\n\n", recipient, info.Sender)
	fmt.Fprintf(&b, "Open warmly: tell %s they are receiving a Cupid Call, a Valentine's Day love telegram sent by %s, and that their message follows.\n\n", recipient, info.Sender)
	b.WriteString("Deliver this telegram with emotion and flair:\n\n")
	b.WriteString("--- TELEGRAM ---\n")
	b.WriteString(info.Script)
	b.WriteString("\n--- END TELEGRAM ---\n\n")
	fmt.Fprintf(&b, "Afterwards, wish %s a happy Valentine's Day and mention they can send a Cupid Call back to %s at cupidcall dot com with the code L-O-V-E.\n", recipient, info.Sender)
	fmt.Fprintf(&b, "Then ask whether they would like to pass a message back to %s. If they respond, keep the conversation warm and brief, then say goodbye.\n\n", info.Sender)
	if info.Style != "" {
		fmt.Fprintf(&b, "Delivery style: %s.\n", info.Style)
	}
	b.WriteString(contentNote)
	b.WriteString("\n\nYou ARE the voice delivering this telegram; commit to the character, speak naturally, and keep the total call under two minutes.")
	return b.String()
}

// ForPreview builds the instructions for rendering a script to an audio file.
// The script itself is sent as the user message, so the instructions only set
// the register.
func ForPreview() string {
	return "You are the voice of a Cupid Call love telegram. Read the message you are given " +
		"exactly as written, with warmth, emotion and natural pacing. Do not add commentary " +
		"before or after the message."
}

// Kickoff is the synthetic user line that triggers delivery once the phone
// call is connected.
const Kickoff = "The call has connected. Please deliver the love telegram now."
