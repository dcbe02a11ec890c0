package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

// pastedLinkPattern matches an invitation deep link pasted as text instead of opened
var pastedLinkPattern = regexp.MustCompile(`(?i)start=[a-z0-9]{6,32}`)

// EngineConfig holds the engine's tunables
type EngineConfig struct {
	// AdminID receives admin_copy and may request audit reports. Zero disables both.
	AdminID     int64
	ReportLimit int
}

// Engine drives the relay state machine. Every method takes the acting user explicitly
// and returns the instructions for the adapter; storage errors are returned as errors
// and leave the event failed.
type Engine struct {
	registry *Registry
	tracker  *Tracker
	counters *Counters
	audit    *AuditLog
	cfg      EngineConfig
	logger   *slog.Logger
}

// NewEngine creates a relay engine
func NewEngine(registry *Registry, tracker *Tracker, counters *Counters, audit *AuditLog, cfg EngineConfig, logger *slog.Logger) *Engine {
	cfg.ReportLimit = ClampLimit(cfg.ReportLimit)
	return &Engine{
		registry: registry,
		tracker:  tracker,
		counters: counters,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
	}
}

// StartWithCode handles a sender opening an invitation link. An empty code is a plain start.
func (e *Engine) StartWithCode(ctx context.Context, sender Identity, code string) ([]Instruction, error) {
	self, err := e.registry.RegisterOrTouch(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("register sender: %w", err)
	}

	if strings.TrimSpace(code) == "" {
		return []Instruction{{UserID: sender.UserID, Kind: KindWelcome, Locale: self.Locale, Code: self.InvitationCode}}, nil
	}

	target, err := e.registry.ResolveByCode(ctx, code)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && target.UserID == sender.UserID) {
		return []Instruction{{UserID: sender.UserID, Kind: KindSelfLink, Locale: self.Locale}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve code: %w", err)
	}

	if _, err := e.counters.RecordLinkVisit(ctx, target.UserID); err != nil {
		return nil, fmt.Errorf("record link visit: %w", err)
	}
	if _, err := e.tracker.Open(ctx, sender.UserID, target.UserID); err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}

	e.logger.Debug("conversation opened", "sender_id", sender.UserID, "recipient_id", target.UserID)
	return []Instruction{{UserID: sender.UserID, Kind: KindPromptForMessage, Locale: self.Locale}}, nil
}

// PlainText handles free text from a sender
func (e *Engine) PlainText(ctx context.Context, senderID int64, text string) ([]Instruction, error) {
	p, ok, err := e.tracker.Peek(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("peek conversation: %w", err)
	}
	if !ok {
		return []Instruction{{UserID: senderID, Kind: KindNoPending}}, nil
	}

	if e.tracker.Expired(p) {
		if err := e.tracker.Close(ctx, senderID); err != nil {
			return nil, fmt.Errorf("close expired conversation: %w", err)
		}
		e.logger.Debug("conversation expired", "sender_id", senderID, "opened_at", p.OpenedAt)
		return []Instruction{{UserID: senderID, Kind: KindExpired}}, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []Instruction{{UserID: senderID, Kind: KindEmptyRejected}}, nil
	}
	if pastedLinkPattern.MatchString(text) {
		return []Instruction{{UserID: senderID, Kind: KindLinkPasted}}, nil
	}

	return e.relay(ctx, p, text)
}

func (e *Engine) relay(ctx context.Context, p model.PendingConversation, text string) ([]Instruction, error) {
	recipient, err := e.registry.ResolveByID(ctx, p.RecipientID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	if _, err := e.counters.RecordMessageReceived(ctx, p.RecipientID); err != nil {
		return nil, fmt.Errorf("record message received: %w", err)
	}
	entry, err := e.audit.Append(ctx, p.SenderID, p.RecipientID, text)
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	// re-open instead of closing so follow-up messages within the window keep flowing
	if _, err := e.tracker.Open(ctx, p.SenderID, p.RecipientID); err != nil {
		return nil, fmt.Errorf("extend conversation: %w", err)
	}

	e.logger.Info("message relayed", "audit_id", entry.ID, "sender_id", p.SenderID, "recipient_id", p.RecipientID)

	out := []Instruction{
		{UserID: p.RecipientID, Kind: KindDeliveredToRecipient, Locale: recipient.Locale, Text: text, ReplyTo: p.SenderID, EntryID: entry.ID},
		{UserID: p.SenderID, Kind: KindRelaySuccess},
	}

	if e.cfg.AdminID != 0 {
		from, err := e.label(ctx, p.SenderID)
		if err != nil {
			return nil, err
		}
		out = append(out, Instruction{
			UserID: e.cfg.AdminID,
			Kind:   KindAdminCopy,
			Text:   text,
			From:   from,
			To:     labelOf(recipient, p.RecipientID),
		})
	}
	return out, nil
}

// ReplyAffordance lets a recipient answer a prior sender: the roles invert and
// the responder gets a pending conversation targeting originalSenderID.
func (e *Engine) ReplyAffordance(ctx context.Context, responder Identity, originalSenderID int64) ([]Instruction, error) {
	self, err := e.registry.RegisterOrTouch(ctx, responder)
	if err != nil {
		return nil, fmt.Errorf("register responder: %w", err)
	}
	if originalSenderID == responder.UserID {
		return []Instruction{{UserID: responder.UserID, Kind: KindSelfLink, Locale: self.Locale}}, nil
	}

	if _, err := e.registry.ResolveByID(ctx, originalSenderID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return []Instruction{{UserID: responder.UserID, Kind: KindUnknownTarget, Locale: self.Locale}}, nil
		}
		return nil, fmt.Errorf("resolve original sender: %w", err)
	}

	if _, err := e.tracker.Open(ctx, responder.UserID, originalSenderID); err != nil {
		return nil, fmt.Errorf("open reply conversation: %w", err)
	}
	return []Instruction{{UserID: responder.UserID, Kind: KindPromptForMessage, Locale: self.Locale}}, nil
}

// ReplyToEntry resolves the sender of a delivered message and starts a reply to them.
// Only the entry's recipient may use it; anyone else gets unknown_target.
func (e *Engine) ReplyToEntry(ctx context.Context, responder Identity, entryID int64) ([]Instruction, error) {
	entry, err := e.audit.Entry(ctx, entryID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("load audit entry: %w", err)
	}
	if err != nil || entry.RecipientID != responder.UserID {
		self, err := e.registry.RegisterOrTouch(ctx, responder)
		if err != nil {
			return nil, fmt.Errorf("register responder: %w", err)
		}
		return []Instruction{{UserID: responder.UserID, Kind: KindUnknownTarget, Locale: self.Locale}}, nil
	}
	return e.ReplyAffordance(ctx, responder, entry.SenderID)
}

// MyLink returns the acting user's own invitation code
func (e *Engine) MyLink(ctx context.Context, user Identity) ([]Instruction, error) {
	self, err := e.registry.RegisterOrTouch(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return []Instruction{{UserID: user.UserID, Kind: KindOwnLink, Locale: self.Locale, Code: self.InvitationCode}}, nil
}

// Stats returns the acting user's own usage counters
func (e *Engine) Stats(ctx context.Context, userID int64) ([]Instruction, error) {
	c, err := e.counters.Read(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}
	return []Instruction{{UserID: userID, Kind: KindStats, Usage: &c}}, nil
}

// AdminReport returns the latest audit entries to the admin. Anyone else gets nothing.
func (e *Engine) AdminReport(ctx context.Context, requesterID int64) ([]Instruction, error) {
	if e.cfg.AdminID == 0 || requesterID != e.cfg.AdminID {
		return nil, nil
	}

	entries, err := e.audit.Recent(ctx, e.cfg.ReportLimit)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	labels := make(map[int64]string)
	lines := make([]ReportLine, 0, len(entries))
	for _, entry := range entries {
		for _, id := range []int64{entry.SenderID, entry.RecipientID} {
			if _, seen := labels[id]; seen {
				continue
			}
			l, err := e.label(ctx, id)
			if err != nil {
				return nil, err
			}
			labels[id] = l
		}
		lines = append(lines, ReportLine{Entry: entry, From: labels[entry.SenderID], To: labels[entry.RecipientID]})
	}

	return []Instruction{{UserID: requesterID, Kind: KindAuditReport, Report: lines}}, nil
}

// AuditRecent is the operator read of the audit log
func (e *Engine) AuditRecent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return e.audit.Recent(ctx, limit)
}

// Usage is the operator read of a user's counters. It does not touch storage state.
func (e *Engine) Usage(ctx context.Context, userID int64) (model.UsageCounters, error) {
	return e.counters.Peek(ctx, userID)
}

func (e *Engine) label(ctx context.Context, userID int64) (string, error) {
	p, err := e.registry.ResolveByID(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return "", fmt.Errorf("resolve profile %d: %w", userID, err)
	}
	return labelOf(p, userID), nil
}

func labelOf(p model.UserProfile, userID int64) string {
	if p.UserID == 0 {
		return strconv.FormatInt(userID, 10)
	}
	return p.Label()
}
