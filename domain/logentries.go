package domain

import (
	"fmt"
	"github.com/google/uuid"
	"time"
)

// MaxLogEntries bounds the per-author activity log; the oldest entries
// are evicted first.
const MaxLogEntries = 25

const logTitleLen = 30

type LogEntry struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	Message   string
	CreatedAt time.Time
}

// LogMessage formats a pipeline event message, appending the first 30
// characters of the article title when one is supplied.
func LogMessage(message, title string) string {
	if title == "" {
		return message
	}
	runes := []rune(title)
	if len(runes) > logTitleLen {
		title = string(runes[:logTitleLen])
	}
	return fmt.Sprintf("%s | Post: %s", message, title)
}
