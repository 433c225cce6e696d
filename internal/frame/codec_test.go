package frame

import (
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Frame
	}{
		{"rename", "#usern#Alice", UsernameChanged("Alice")},
		{"rename wins over typing", "#usern#Bob...#writing#Alice", UsernameChanged("Bob...#writing#Alice")},
		{"rename with prefix", "junk#usern#Carol", UsernameChanged("Carol")},
		{"typing", "#writing#Alice", TypingStarted("Alice")},
		{"typing beats relay", "#writing#Alice#other#x", TypingStarted("Alice#other#x")},
		{"typing stopped", "#nowriting#", TypingStopped()},
		{"typing stopped ignores remainder", "#nowriting#whatever", TypingStopped()},
		{"relayed", "#other#Alice: hello", Relayed("Alice: hello")},
		{"chat", "#Alice#hello\n", ChatMessage("Alice", "hello")},
		{"chat crlf", "#Alice#hello\r\n", ChatMessage("Alice", "hello")},
		{"chat strips every pair", "#Alice#  hi #x# there ", ChatMessage("Alice", "hi  there")},
		{"chat pair mid line", "say #Bob# hi", ChatMessage("Bob", "say  hi")},
		{"plain", "  hello world  ", PlainLine("hello world")},
		{"single hash", "# lonely", PlainLine("# lonely")},
		{"empty", "", PlainLine("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.raw)
			if got != tt.want {
				t.Errorf("Decode(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		f    Frame
		want string
	}{
		{UsernameChanged("Alice"), "#usern#Alice"},
		{TypingStarted("Alice"), "#writing#Alice"},
		{TypingStopped(), "#nowriting#"},
		{ChatMessage("Alice", "hello"), "#Alice#hello\n"},
		{Relayed("Alice: hello"), "#other#Alice: hello"},
		{PlainLine("hi"), "hi"},
	}
	for _, tt := range tests {
		if got := Encode(tt.f); got != tt.want {
			t.Errorf("Encode(%v) = %q, want %q", tt.f.Kind, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	frames := []Frame{
		UsernameChanged("Alice"),
		UsernameChanged("Zoë the Second"),
		TypingStarted("Bob"),
		TypingStopped(),
		ChatMessage("Alice", "hello there"),
		ChatMessage("Bob", "¿qué tal?"),
		Relayed("Alice: hello"),
		PlainLine("just text"),
	}
	for _, f := range frames {
		if got := Decode(Encode(f)); got != f {
			t.Errorf("Decode(Encode(%+v)) = %+v", f, got)
		}
		if got := Decode(string(Wire(f))); got != f {
			t.Errorf("Decode(Wire(%+v)) = %+v", f, got)
		}
	}
}

func TestWireTerminatesOnce(t *testing.T) {
	if got := string(Wire(UsernameChanged("Alice"))); got != "#usern#Alice\n" {
		t.Errorf("got %q", got)
	}
	if got := string(Wire(ChatMessage("Alice", "hi"))); got != "#Alice#hi\n" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeRemovesControlTags(t *testing.T) {
	bodies := []string{
		"plain words",
		"#usern#Mallory",
		"look #writing#Eve now",
		"#nowriting##other#",
		"##usern##",
		"#use#usern#rn#",
		"a # b ## c",
		"#other#Admin: you are banned",
		"#",
	}
	forbidden := []string{TagUsername, TagTyping, TagNoTyping, TagRelayed, "#"}

	for _, body := range bodies {
		clean := Sanitize(body)
		decoded := Decode(Encode(ChatMessage("Alice", clean)))
		if decoded.Kind != KindChatMessage {
			t.Errorf("body %q decoded as %v, want ChatMessage", body, decoded.Kind)
			continue
		}
		for _, tag := range forbidden {
			if strings.Contains(decoded.Text, tag) {
				t.Errorf("body %q: decoded text %q still contains %q", body, decoded.Text, tag)
			}
		}
	}
}

func TestSanitizePreservesSurroundingText(t *testing.T) {
	clean := Sanitize("hi #other# there")
	if clean != "hi  there" {
		t.Fatalf("Sanitize = %q, want %q", clean, "hi  there")
	}
	if got := Encode(ChatMessage("Alice", clean)); got != "#Alice#hi  there\n" {
		t.Errorf("Encode = %q", got)
	}
}

func TestIsStop(t *testing.T) {
	tests := map[string]bool{
		"STOP":            true,
		"stop":            true,
		"  please Stop\n": true,
		"#Alice#stop\n":   true,
		"Stop!":           false,
		"stopping":        false,
		"":                false,
	}
	for raw, want := range tests {
		if got := IsStop(raw); got != want {
			t.Errorf("IsStop(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	if got := NormalizeName("  Jose\u0301 \n"); got != "Jos\u00e9" {
		t.Errorf("NormalizeName = %q", got)
	}
	if got := NormalizeName("Ali\r\nce"); got != "Alice" {
		t.Errorf("NormalizeName = %q", got)
	}
}

func TestKindString(t *testing.T) {
	if KindChatMessage.String() != "ChatMessage" {
		t.Errorf("got %q", KindChatMessage.String())
	}
	if Kind(42).String() != "Unknown" {
		t.Errorf("got %q", Kind(42).String())
	}
}
