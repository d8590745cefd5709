// Package usage meters LLM calls per user per UTC day.
package usage

import (
	"time"

	"github.com/google/uuid"
)

// Record is one user-day counter row. Day is always a UTC date; the
// (user_id, day) pair is unique in the store.
type Record struct {
	ID        int64
	UserID    uuid.UUID
	Day       time.Time
	LLMCalls  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decision is the outcome of trying to reserve one metered call.
type Decision struct {
	Allowed      bool
	CurrentUsage int
	Limit        int
	Remaining    int
	IsPro        bool
}

// Status is what GET /users/me/usage reports. Pro accounts show
// Remaining -1 and DailyLimit 0, the unlimited sentinel the clients
// already understand.
type Status struct {
	IsPro      bool `json:"is_pro"`
	DailyLimit int  `json:"daily_limit"`
	CallsToday int  `json:"calls_today"`
	Remaining  int  `json:"remaining"`
}

// Day truncates t to its UTC date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
