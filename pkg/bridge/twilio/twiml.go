package twilio

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// StreamTwiML builds the voice response that pauses briefly after answer,
// then connects the call's audio to the media-stream websocket, carrying the
// call token as a custom parameter.
func StreamTwiML(streamURL, callToken string) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Response>")
	b.WriteString(`<Pause length="1"/>`)
	b.WriteString("<Connect>")
	fmt.Fprintf(&b, `<Stream url="%s">`, escapeAttr(streamURL))
	fmt.Fprintf(&b, `<Parameter name="callId" value="%s"/>`, escapeAttr(callToken))
	b.WriteString("</Stream>")
	b.WriteString("</Connect>")
	b.WriteString("</Response>")
	return b.String()
}

func escapeAttr(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}
