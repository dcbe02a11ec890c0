package model

import (
	"fmt"
	"time"
)

// UserProfile represents a bot user and their invitation code
type UserProfile struct {
	UserID         int64
	DisplayName    string
	Handle         string
	InvitationCode string
	Locale         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Label returns a human-readable identifier used in operator reports
func (p UserProfile) Label() string {
	if p.Handle != "" {
		return fmt.Sprintf("@%s (%d)", p.Handle, p.UserID)
	}
	if p.DisplayName != "" {
		return fmt.Sprintf("%s (%d)", p.DisplayName, p.UserID)
	}
	return fmt.Sprintf("%d", p.UserID)
}

// PendingConversation is the single outstanding sender -> recipient binding
type PendingConversation struct {
	SenderID    int64
	RecipientID int64
	OpenedAt    time.Time
}

// Expired reports whether the conversation has been idle for longer than ttl at now.
// A conversation exactly ttl old is still open.
func (p PendingConversation) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.OpenedAt) > ttl
}

// AuditEntry is one relayed message
type AuditEntry struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Text        string
	CreatedAt   time.Time
}
