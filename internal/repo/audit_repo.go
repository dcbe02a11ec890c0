package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
)

// AuditRepo defines the interface for the append-only relay log
type AuditRepo interface {
	Append(ctx context.Context, senderID, recipientID int64, text string, at time.Time) (model.AuditEntry, error)
	Recent(ctx context.Context, limit int) ([]model.AuditEntry, error)
	GetByID(ctx context.Context, id int64) (model.AuditEntry, error)
}

type auditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo instance
func NewAuditRepo(db *sql.DB) AuditRepo {
	return &auditRepo{db: db}
}

// Append inserts an entry; the id comes from a bigserial sequence
func (r *auditRepo) Append(ctx context.Context, senderID, recipientID int64, text string, at time.Time) (model.AuditEntry, error) {
	e := model.AuditEntry{
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_log (sender_id, recipient_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, senderID, recipientID, text, at).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first
func (r *auditRepo) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, text, created_at
		FROM audit_log
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]model.AuditEntry, 0, limit)
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}

// GetByID returns one entry or ErrNotFound
func (r *auditRepo) GetByID(ctx context.Context, id int64) (model.AuditEntry, error) {
	var e model.AuditEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, text, created_at
		FROM audit_log
		WHERE id = $1
	`, id).Scan(&e.ID, &e.SenderID, &e.RecipientID, &e.Text, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AuditEntry{}, ErrNotFound
	}
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("get audit entry: %w", err)
	}
	return e, nil
}
