package relay

import (
	"context"

	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

// AuditLog is the append-only record of relayed messages
type AuditLog struct {
	entries repo.AuditRepo
	clock   clock.Clock
}

func NewAuditLog(entries repo.AuditRepo, clk clock.Clock) *AuditLog {
	return &AuditLog{entries: entries, clock: clk}
}

// Append records one relayed message
func (a *AuditLog) Append(ctx context.Context, senderID, recipientID int64, text string) (model.AuditEntry, error) {
	return a.entries.Append(ctx, senderID, recipientID, text, a.clock.Now().UTC())
}

// Recent returns the newest entries first. limit is clamped to [1, MaxRecentLimit]; zero or less means DefaultRecentLimit.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return a.entries.Recent(ctx, ClampLimit(limit))
}

// Entry returns a single entry by id
func (a *AuditLog) Entry(ctx context.Context, id int64) (model.AuditEntry, error) {
	return a.entries.GetByID(ctx, id)
}

// ClampLimit normalizes an audit report limit
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}
