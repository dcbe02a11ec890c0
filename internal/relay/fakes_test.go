package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillfoster544-cpu/telegram/internal/cache"
	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

var errStorage = errors.New("storage unavailable")

type memProfiles struct {
	mu      sync.Mutex
	byID    map[int64]model.UserProfile
	clock   clock.Clock
	failAll bool
}

func newMemProfiles(clk clock.Clock) *memProfiles {
	return &memProfiles{byID: make(map[int64]model.UserProfile), clock: clk}
}

func (m *memProfiles) GetByID(_ context.Context, userID int64) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return model.UserProfile{}, errStorage
	}
	p, ok := m.byID[userID]
	if !ok {
		return model.UserProfile{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) GetByCode(_ context.Context, code string) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return model.UserProfile{}, errStorage
	}
	for _, p := range m.byID {
		if p.InvitationCode == strings.ToLower(code) {
			return p, nil
		}
	}
	return model.UserProfile{}, repo.ErrNotFound
}

func (m *memProfiles) CodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memProfiles) Touch(_ context.Context, userID int64, displayName, handle, locale string) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return model.UserProfile{}, errStorage
	}
	p, ok := m.byID[userID]
	if !ok {
		return model.UserProfile{}, repo.ErrNotFound
	}
	p.DisplayName = displayName
	p.Handle = handle
	if locale != "" {
		p.Locale = locale
	}
	p.UpdatedAt = m.clock.Now()
	m.byID[userID] = p
	return p, nil
}

func (m *memProfiles) Create(_ context.Context, p model.UserProfile) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return model.UserProfile{}, errStorage
	}
	if _, ok := m.byID[p.UserID]; ok {
		return model.UserProfile{}, repo.ErrAlreadyExists
	}
	for _, other := range m.byID {
		if other.InvitationCode == p.InvitationCode {
			return model.UserProfile{}, repo.ErrCodeTaken
		}
	}
	p.CreatedAt = m.clock.Now()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.UserID] = p
	return p, nil
}

// put seeds a profile with a fixed code
func (m *memProfiles) put(p model.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.UserID] = p
}

type memPending struct {
	mu   sync.Mutex
	rows map[int64]model.PendingConversation
}

func newMemPending() *memPending {
	return &memPending{rows: make(map[int64]model.PendingConversation)}
}

func (m *memPending) Upsert(_ context.Context, p model.PendingConversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.SenderID] = p
	return nil
}

func (m *memPending) Get(_ context.Context, senderID int64) (model.PendingConversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[senderID]
	if !ok {
		return model.PendingConversation{}, repo.ErrNotFound
	}
	return p, nil
}

func (m *memPending) Delete(_ context.Context, senderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, senderID)
	return nil
}

// memUsage mirrors the SQL statements of the Postgres repo using model.Rollover
type memUsage struct {
	mu   sync.Mutex
	rows map[int64]model.UsageCounters
	fail bool
}

func newMemUsage() *memUsage {
	return &memUsage{rows: make(map[int64]model.UsageCounters)}
}

func (m *memUsage) Get(_ context.Context, userID int64) (model.UsageCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return model.UsageCounters{}, errStorage
	}
	c, ok := m.rows[userID]
	if !ok {
		return model.UsageCounters{}, repo.ErrNotFound
	}
	return c, nil
}

func (m *memUsage) has(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[userID]
	return ok
}

func (m *memUsage) GetOrCreate(_ context.Context, userID int64, today string) (model.UsageCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return model.UsageCounters{}, errStorage
	}
	c, ok := m.rows[userID]
	if !ok {
		c = model.UsageCounters{UserID: userID, LastResetDay: today}
		m.rows[userID] = c
	}
	return c, nil
}

func (m *memUsage) ResetDaily(_ context.Context, userID int64, today string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.rows[userID]; ok {
		m.rows[userID] = model.Rollover(c, today)
	}
	return nil
}

func (m *memUsage) increment(userID int64, today string, apply func(*model.UsageCounters)) (model.UsageCounters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return model.UsageCounters{}, errStorage
	}
	c := model.Rollover(m.rows[userID], today)
	c.UserID = userID
	apply(&c)
	m.rows[userID] = c
	return c, nil
}

func (m *memUsage) IncrementClicks(_ context.Context, userID int64, today string) (model.UsageCounters, error) {
	return m.increment(userID, today, func(c *model.UsageCounters) {
		c.ClicksTotal++
		c.ClicksToday++
	})
}

func (m *memUsage) IncrementMessages(_ context.Context, userID int64, today string) (model.UsageCounters, error) {
	return m.increment(userID, today, func(c *model.UsageCounters) {
		c.MessagesTotal++
		c.MessagesToday++
	})
}

func (m *memUsage) stored(userID int64) model.UsageCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[userID]
}

type memAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *memAudit) Append(_ context.Context, senderID, recipientID int64, text string, at time.Time) (model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.AuditEntry{
		ID:          int64(len(m.entries) + 1),
		SenderID:    senderID,
		RecipientID: recipientID,
		Text:        text,
		CreatedAt:   at,
	}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *memAudit) Recent(_ context.Context, limit int) ([]model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.AuditEntry(nil), m.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAudit) GetByID(_ context.Context, id int64) (model.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.AuditEntry{}, repo.ErrNotFound
}

func (m *memAudit) all() []model.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuditEntry(nil), m.entries...)
}

type memCache struct {
	mu     sync.Mutex
	values map[string]string
	gets   int
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.values[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness wires an Engine over in-memory storage and a fake clock
type harness struct {
	clock    *clock.FakeClock
	profiles *memProfiles
	pending  *memPending
	usage    *memUsage
	audit    *memAudit
	registry *Registry
	engine   *Engine
}

const testAdminID = 999

func newHarness() *harness {
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	h := &harness{
		clock:    clk,
		profiles: newMemProfiles(clk),
		pending:  newMemPending(),
		usage:    newMemUsage(),
		audit:    &memAudit{},
	}
	logger := discardLogger()
	h.registry = NewRegistry(h.profiles, nil, DefaultCodeLength, logger)
	h.engine = NewEngine(
		h.registry,
		NewTracker(h.pending, clk, DefaultConversationTTL),
		NewCounters(h.usage, clk),
		NewAuditLog(h.audit, clk),
		EngineConfig{AdminID: testAdminID, ReportLimit: 20},
		logger,
	)
	return h
}

var (
	alice = Identity{UserID: 1, DisplayName: "Alice", Handle: "alice", Locale: "en"}
	bob   = Identity{UserID: 2, DisplayName: "Bob", Handle: "bob", Locale: "ru"}
)

// seedAliceBob registers Alice and Bob with the codes used throughout the scenarios
func (h *harness) seedAliceBob() {
	h.profiles.put(model.UserProfile{UserID: 1, DisplayName: "Alice", Handle: "alice", InvitationCode: "ab12cd34", Locale: "en"})
	h.profiles.put(model.UserProfile{UserID: 2, DisplayName: "Bob", Handle: "bob", InvitationCode: "xy98zz01", Locale: "ru"})
}
