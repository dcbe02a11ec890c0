package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
)

// PendingRepo defines the interface for pending conversation repository operations
type PendingRepo interface {
	Upsert(ctx context.Context, p model.PendingConversation) error
	Get(ctx context.Context, senderID int64) (model.PendingConversation, error)
	Delete(ctx context.Context, senderID int64) error
}

type pendingRepo struct {
	db *sql.DB
}

// NewPendingRepo creates a new PendingRepo instance
func NewPendingRepo(db *sql.DB) PendingRepo {
	return &pendingRepo{db: db}
}

// Upsert replaces whatever the sender had pending (last write wins)
func (r *pendingRepo) Upsert(ctx context.Context, p model.PendingConversation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_conversations (sender_id, recipient_id, opened_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sender_id) DO UPDATE
		SET recipient_id = EXCLUDED.recipient_id, opened_at = EXCLUDED.opened_at
	`, p.SenderID, p.RecipientID, p.OpenedAt)
	if err != nil {
		return fmt.Errorf("upsert pending conversation: %w", err)
	}
	return nil
}

// Get returns the sender's pending conversation or ErrNotFound. Expiry is not checked here.
func (r *pendingRepo) Get(ctx context.Context, senderID int64) (model.PendingConversation, error) {
	var p model.PendingConversation
	err := r.db.QueryRowContext(ctx, `
		SELECT sender_id, recipient_id, opened_at
		FROM pending_conversations
		WHERE sender_id = $1
	`, senderID).Scan(&p.SenderID, &p.RecipientID, &p.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PendingConversation{}, ErrNotFound
		}
		return model.PendingConversation{}, fmt.Errorf("query pending conversation: %w", err)
	}
	return p, nil
}

// Delete removes the sender's pending conversation; deleting a missing row is not an error
func (r *pendingRepo) Delete(ctx context.Context, senderID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_conversations WHERE sender_id = $1`, senderID)
	if err != nil {
		return fmt.Errorf("delete pending conversation: %w", err)
	}
	return nil
}
