package model

import "time"

// DayKeyLayout is the layout of UsageCounters.LastResetDay (UTC calendar date).
const DayKeyLayout = "2006-01-02"

// UsageCounters holds cumulative and per-day activity for one user
type UsageCounters struct {
	UserID        int64
	ClicksTotal   int64
	ClicksToday   int64
	MessagesTotal int64
	MessagesToday int64
	LastResetDay  string
}

// DayKey returns the UTC calendar date of t as a day key.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// Rollover returns c with the daily fields zeroed and LastResetDay set to today
// when the stored day differs from today. Totals are never touched.
func Rollover(c UsageCounters, today string) UsageCounters {
	if c.LastResetDay == today {
		return c
	}
	c.ClicksToday = 0
	c.MessagesToday = 0
	c.LastResetDay = today
	return c
}
