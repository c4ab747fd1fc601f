package domain

import (
	"strings"
	"testing"
)

func TestLogMessageWithTitle(t *testing.T) {
	msg := LogMessage("successfully auto-posted to Bluesky", "Hello World")

	if msg != "successfully auto-posted to Bluesky | Post: Hello World" {
		t.Errorf("Unexpected message: %q", msg)
	}
}

func TestLogMessageWithoutTitle(t *testing.T) {
	msg := LogMessage("failed to auto-post to Bluesky, giving up", "")

	if msg != "failed to auto-post to Bluesky, giving up" {
		t.Errorf("Unexpected message: %q", msg)
	}
}

func TestLogMessageTruncatesLongTitle(t *testing.T) {
	title := strings.Repeat("x", 80)
	msg := LogMessage("scheduled", title)

	want := "scheduled | Post: " + strings.Repeat("x", 30)
	if msg != want {
		t.Errorf("Expected %q, got %q", want, msg)
	}
}

func TestLogMessageKeepsMultibyteTitleIntact(t *testing.T) {
	title := strings.Repeat("ä", 30)
	msg := LogMessage("scheduled", title)

	if !strings.HasSuffix(msg, title) {
		t.Errorf("Multibyte title was mangled: %q", msg)
	}
}
