package relay

import (
	"context"
	"errors"

	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

// Counters tracks per-user link visits and received messages with a lazy UTC-day rollover
type Counters struct {
	usage repo.UsageRepo
	clock clock.Clock
}

func NewCounters(usage repo.UsageRepo, clk clock.Clock) *Counters {
	return &Counters{usage: usage, clock: clk}
}

func (c *Counters) today() string {
	return model.DayKey(c.clock.Now())
}

// RecordLinkVisit increments clicks_total and clicks_today
func (c *Counters) RecordLinkVisit(ctx context.Context, userID int64) (model.UsageCounters, error) {
	return c.usage.IncrementClicks(ctx, userID, c.today())
}

// RecordMessageReceived increments messages_total and messages_today
func (c *Counters) RecordMessageReceived(ctx context.Context, userID int64) (model.UsageCounters, error) {
	return c.usage.IncrementMessages(ctx, userID, c.today())
}

// Read returns the user's counters after applying the day rollover, persisting the reset if one happened.
func (c *Counters) Read(ctx context.Context, userID int64) (model.UsageCounters, error) {
	today := c.today()
	stored, err := c.usage.GetOrCreate(ctx, userID, today)
	if err != nil {
		return model.UsageCounters{}, err
	}
	rolled := model.Rollover(stored, today)
	if rolled != stored {
		if err := c.usage.ResetDaily(ctx, userID, today); err != nil {
			return model.UsageCounters{}, err
		}
	}
	return rolled, nil
}

// Peek returns the counters as Read would, rolled over in memory. It never writes:
// an unknown user gets zero counters stamped today and no row is created.
func (c *Counters) Peek(ctx context.Context, userID int64) (model.UsageCounters, error) {
	today := c.today()
	stored, err := c.usage.Get(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.UsageCounters{UserID: userID, LastResetDay: today}, nil
	}
	if err != nil {
		return model.UsageCounters{}, err
	}
	return model.Rollover(stored, today), nil
}
