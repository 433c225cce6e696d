package frame

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// senderTag matches the first #name# pair of a chat line, non-greedy.
var senderTag = regexp.MustCompile(`#(.*?)#`)

// sanitizeOrder is the exact stripping sequence applied to outbound chat
// bodies. The bare delimiter goes last so no tag can survive in any form.
var sanitizeOrder = []string{TagUsername, TagTyping, TagNoTyping, TagRelayed, tagDelimiter}

// Decode maps one read unit to a Frame. It never fails: input that matches
// no tag degrades to a PlainLine.
func Decode(raw string) Frame {
	text := strings.TrimRight(raw, "\r\n")

	if _, rest, ok := strings.Cut(text, TagUsername); ok {
		return UsernameChanged(rest)
	}
	if _, rest, ok := strings.Cut(text, TagTyping); ok {
		return TypingStarted(rest)
	}
	if strings.Contains(text, TagNoTyping) {
		return TypingStopped()
	}
	if _, rest, ok := strings.Cut(text, TagRelayed); ok {
		return Relayed(rest)
	}
	if m := senderTag.FindStringSubmatch(text); m != nil {
		body := senderTag.ReplaceAllString(text, "")
		return ChatMessage(m[1], strings.TrimSpace(body))
	}
	return PlainLine(strings.TrimSpace(text))
}

// Encode renders f in its wire form. Only ChatMessage carries its own
// line terminator; see Wire for newline-framed output.
func Encode(f Frame) string {
	switch f.Kind {
	case KindUsernameChanged:
		return TagUsername + f.Name
	case KindTypingStarted:
		return TagTyping + f.Name
	case KindTypingStopped:
		return TagNoTyping
	case KindChatMessage:
		return tagDelimiter + f.Name + tagDelimiter + f.Text + "\n"
	case KindRelayed:
		return TagRelayed + f.Text
	default:
		return f.Text
	}
}

// Wire encodes f terminated by exactly one newline, the unit written to
// line-framed peers.
func Wire(f Frame) []byte {
	s := Encode(f)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return []byte(s)
}

// Sanitize strips every control tag and bare '#' from a chat body so user
// text cannot forge a control frame.
func Sanitize(body string) string {
	for _, tag := range sanitizeOrder {
		body = strings.ReplaceAll(body, tag, "")
	}
	return body
}

// NormalizeName prepares a display name for the registry: NFC form, no
// surrounding whitespace and no line breaks.
func NormalizeName(name string) string {
	name = strings.NewReplacer("\r", "", "\n", "").Replace(name)
	return strings.TrimSpace(norm.NFC.String(name))
}

// IsStop reports whether a raw read unit asks to end the session: its
// trimmed, upper-cased text ends with STOP.
func IsStop(raw string) bool {
	return strings.HasSuffix(strings.ToUpper(strings.TrimSpace(raw)), "STOP")
}
