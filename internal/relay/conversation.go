package relay

import (
	"context"
	"errors"
	"time"

	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

// DefaultConversationTTL is the inactivity window of a pending conversation
const DefaultConversationTTL = 15 * time.Minute

// Tracker stores at most one pending conversation per sender.
// It never expires entries on its own; callers check Expired on every read.
type Tracker struct {
	pending repo.PendingRepo
	clock   clock.Clock
	ttl     time.Duration
}

// NewTracker creates a tracker with the given inactivity window
func NewTracker(pending repo.PendingRepo, clk clock.Clock, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &Tracker{pending: pending, clock: clk, ttl: ttl}
}

// TTL returns the inactivity window
func (t *Tracker) TTL() time.Duration { return t.ttl }

// Open replaces the sender's pending conversation with one targeting recipientID, stamped now.
func (t *Tracker) Open(ctx context.Context, senderID, recipientID int64) (model.PendingConversation, error) {
	p := model.PendingConversation{
		SenderID:    senderID,
		RecipientID: recipientID,
		OpenedAt:    t.clock.Now().UTC(),
	}
	if err := t.pending.Upsert(ctx, p); err != nil {
		return model.PendingConversation{}, err
	}
	return p, nil
}

// Peek returns the sender's pending conversation, expired or not.
func (t *Tracker) Peek(ctx context.Context, senderID int64) (model.PendingConversation, bool, error) {
	p, err := t.pending.Get(ctx, senderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.PendingConversation{}, false, nil
	}
	if err != nil {
		return model.PendingConversation{}, false, err
	}
	return p, true, nil
}

// Expired reports whether p is past the inactivity window right now
func (t *Tracker) Expired(p model.PendingConversation) bool {
	return p.Expired(t.clock.Now(), t.ttl)
}

// Close deletes the sender's pending conversation
func (t *Tracker) Close(ctx context.Context, senderID int64) error {
	return t.pending.Delete(ctx, senderID)
}
