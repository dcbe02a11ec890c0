package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
)

// UsageRepo defines the interface for usage counter repository operations.
// Increment methods apply the day rollover and the increment in one statement.
type UsageRepo interface {
	Get(ctx context.Context, userID int64) (model.UsageCounters, error)
	GetOrCreate(ctx context.Context, userID int64, today string) (model.UsageCounters, error)
	ResetDaily(ctx context.Context, userID int64, today string) error
	IncrementClicks(ctx context.Context, userID int64, today string) (model.UsageCounters, error)
	IncrementMessages(ctx context.Context, userID int64, today string) (model.UsageCounters, error)
}

type usageRepo struct {
	db *sql.DB
}

// NewUsageRepo creates a new UsageRepo instance
func NewUsageRepo(db *sql.DB) UsageRepo {
	return &usageRepo{db: db}
}

const usageColumns = `user_id, clicks_total, clicks_today, messages_total, messages_today, last_reset_day`

func scanUsage(row *sql.Row) (model.UsageCounters, error) {
	var c model.UsageCounters
	err := row.Scan(
		&c.UserID,
		&c.ClicksTotal,
		&c.ClicksToday,
		&c.MessagesTotal,
		&c.MessagesToday,
		&c.LastResetDay,
	)
	return c, err
}

// Get returns the stored counters without rollover, or ErrNotFound
func (r *usageRepo) Get(ctx context.Context, userID int64) (model.UsageCounters, error) {
	c, err := scanUsage(r.db.QueryRowContext(ctx,
		`SELECT `+usageColumns+` FROM usage_counters WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UsageCounters{}, ErrNotFound
	}
	if err != nil {
		return model.UsageCounters{}, fmt.Errorf("query usage counters: %w", err)
	}
	return c, nil
}

// GetOrCreate returns the stored counters, inserting a zero row stamped today if none exists.
// The returned counters are not rolled over.
func (r *usageRepo) GetOrCreate(ctx context.Context, userID int64, today string) (model.UsageCounters, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_counters (user_id, last_reset_day)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, today)
	if err != nil {
		return model.UsageCounters{}, fmt.Errorf("ensure usage counters: %w", err)
	}

	c, err := scanUsage(r.db.QueryRowContext(ctx,
		`SELECT `+usageColumns+` FROM usage_counters WHERE user_id = $1`, userID))
	if err != nil {
		return model.UsageCounters{}, fmt.Errorf("query usage counters: %w", err)
	}
	return c, nil
}

// ResetDaily zeroes the daily fields if the stored day differs from today.
// The condition makes concurrent resets on the same day a no-op after the first.
func (r *usageRepo) ResetDaily(ctx context.Context, userID int64, today string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE usage_counters
		SET clicks_today = 0, messages_today = 0, last_reset_day = $2
		WHERE user_id = $1 AND last_reset_day <> $2
	`, userID, today)
	if err != nil {
		return fmt.Errorf("reset daily counters: %w", err)
	}
	return nil
}

// IncrementClicks records one link visit
func (r *usageRepo) IncrementClicks(ctx context.Context, userID int64, today string) (model.UsageCounters, error) {
	c, err := scanUsage(r.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (user_id, clicks_total, clicks_today, last_reset_day)
		VALUES ($1, 1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			clicks_total = usage_counters.clicks_total + 1,
			clicks_today = CASE WHEN usage_counters.last_reset_day = EXCLUDED.last_reset_day
				THEN usage_counters.clicks_today + 1 ELSE 1 END,
			messages_today = CASE WHEN usage_counters.last_reset_day = EXCLUDED.last_reset_day
				THEN usage_counters.messages_today ELSE 0 END,
			last_reset_day = EXCLUDED.last_reset_day
		RETURNING `+usageColumns, userID, today))
	if err != nil {
		return model.UsageCounters{}, fmt.Errorf("increment clicks: %w", err)
	}
	return c, nil
}

// IncrementMessages records one received message
func (r *usageRepo) IncrementMessages(ctx context.Context, userID int64, today string) (model.UsageCounters, error) {
	c, err := scanUsage(r.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (user_id, messages_total, messages_today, last_reset_day)
		VALUES ($1, 1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			messages_total = usage_counters.messages_total + 1,
			messages_today = CASE WHEN usage_counters.last_reset_day = EXCLUDED.last_reset_day
				THEN usage_counters.messages_today + 1 ELSE 1 END,
			clicks_today = CASE WHEN usage_counters.last_reset_day = EXCLUDED.last_reset_day
				THEN usage_counters.clicks_today ELSE 0 END,
			last_reset_day = EXCLUDED.last_reset_day
		RETURNING `+usageColumns, userID, today))
	if err != nil {
		return model.UsageCounters{}, fmt.Errorf("increment messages: %w", err)
	}
	return c, nil
}
