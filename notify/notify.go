// Package notify keeps the user-facing notices raised by services (the toasts of the
// back-office): every failure is logged and surfaced here, nothing is fatal.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Success(msg string)
	Error(msg string, err error)
}

// Feed is a bounded, most-recent-last ring of notices.
type Feed struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
	logger  zerolog.Logger
}

func NewFeed(limit int, logger zerolog.Logger) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{limit: limit, logger: logger}
}

func (f *Feed) Success(msg string) {
	f.add(Notice{Level: LevelSuccess, Message: msg, At: time.Now()})
}

// Error records a generic message for users and logs the underlying error.
func (f *Feed) Error(msg string, err error) {
	f.logger.Error().Err(err).Msg(msg)
	f.add(Notice{Level: LevelError, Message: msg, At: time.Now()})
}

func (f *Feed) add(n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
	if over := len(f.notices) - f.limit; over > 0 {
		f.notices = append([]Notice(nil), f.notices[over:]...)
	}
}

// Recent returns a copy of the retained notices.
func (f *Feed) Recent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notice(nil), f.notices...)
}
