package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/kirillfoster544-cpu/telegram/internal/relay"
)

// Engine is the relay engine as seen by the Telegram adapter
type Engine interface {
	StartWithCode(ctx context.Context, sender relay.Identity, code string) ([]relay.Instruction, error)
	PlainText(ctx context.Context, senderID int64, text string) ([]relay.Instruction, error)
	ReplyToEntry(ctx context.Context, responder relay.Identity, entryID int64) ([]relay.Instruction, error)
	MyLink(ctx context.Context, user relay.Identity) ([]relay.Instruction, error)
	Stats(ctx context.Context, userID int64) ([]relay.Instruction, error)
	AdminReport(ctx context.Context, requesterID int64) ([]relay.Instruction, error)
}

// Bot converts Telegram updates into engine events and delivers the resulting instructions
type Bot struct {
	engine   Engine
	out      Outbox
	username string
	logger   *slog.Logger
}

// New creates the adapter. username is the bot's Telegram username used in invite links.
func New(engine Engine, out Outbox, username string, logger *slog.Logger) *Bot {
	return &Bot{
		engine:   engine,
		out:      out,
		username: username,
		logger:   logger,
	}
}

// Run consumes updates one at a time until ctx is cancelled or the channel closes.
// Sequential handling keeps each sender's events in arrival order.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	b.logger.Info("bot started", "username", b.username)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, upd); err != nil && !errors.Is(err, context.Canceled) {
				b.logger.Error("update failed", "update_id", upd.UpdateID, "error", err)
			}
		}
	}
}

// HandleUpdate processes one update. Engine failures are reported to the acting user
// with a generic notice and returned.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	logger := b.logger.With("event_id", uuid.NewString(), "update_id", upd.UpdateID)

	switch {
	case upd.CallbackQuery != nil:
		return b.handleCallback(ctx, logger, upd.CallbackQuery)
	case upd.Message != nil:
		return b.handleMessage(ctx, logger, upd.Message)
	}
	return nil
}

func identityOf(u *tgbotapi.User) relay.Identity {
	return relay.Identity{
		UserID:      u.ID,
		DisplayName: strings.TrimSpace(u.FirstName + " " + u.LastName),
		Handle:      u.UserName,
		Locale:      u.LanguageCode,
	}
}

func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}
	ident := identityOf(msg.From)
	t := textsFor(ident.Locale)

	var (
		instrs []relay.Instruction
		err    error
		event  string
	)

	if msg.IsCommand() {
		event = "command:" + msg.Command()
		switch msg.Command() {
		case "start":
			// rules and the keyboard are shown on every start
			if err := b.out.Send(ctx, withKeyboard(textMessage(msg.Chat.ID, t.Rules), mainKeyboard(t))); err != nil {
				logger.Warn("send rules failed", "error", err)
			}
			instrs, err = b.engine.StartWithCode(ctx, ident, strings.TrimSpace(msg.CommandArguments()))
		case "link":
			instrs, err = b.engine.MyLink(ctx, ident)
		case "stats":
			instrs, err = b.engine.Stats(ctx, ident.UserID)
		case "admin":
			instrs, err = b.engine.AdminReport(ctx, ident.UserID)
		default:
			return b.sendLocal(ctx, logger, withKeyboard(textMessage(msg.Chat.ID, t.Rules), mainKeyboard(t)))
		}
	} else {
		switch buttonFor(msg.Text) {
		case actionWrite:
			return b.sendLocal(ctx, logger, textMessage(msg.Chat.ID, t.HowTo))
		case actionRules:
			return b.sendLocal(ctx, logger, textMessage(msg.Chat.ID, t.Rules))
		case actionMyLink:
			event = "my_link"
			instrs, err = b.engine.MyLink(ctx, ident)
		default:
			event = "text"
			instrs, err = b.engine.PlainText(ctx, ident.UserID, msg.Text)
		}
	}

	logger = logger.With("event", event, "user_id", ident.UserID)
	if err != nil {
		b.notifyFailure(ctx, logger, msg.Chat.ID, t)
		return fmt.Errorf("%s: %w", event, err)
	}
	b.deliver(ctx, logger, instrs, ident)
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, logger *slog.Logger, cq *tgbotapi.CallbackQuery) error {
	if cq.From == nil {
		return nil
	}
	// always answer so the client stops its spinner
	defer func() {
		if err := b.out.Request(ctx, tgbotapi.NewCallback(cq.ID, "")); err != nil {
			logger.Warn("answer callback failed", "error", err)
		}
	}()

	entryID, ok := parseReplyCallback(cq.Data)
	if !ok {
		logger.Debug("ignoring callback", "data", cq.Data)
		return nil
	}

	ident := identityOf(cq.From)
	logger = logger.With("event", "reply", "user_id", ident.UserID)
	instrs, err := b.engine.ReplyToEntry(ctx, ident, entryID)
	if err != nil {
		b.notifyFailure(ctx, logger, ident.UserID, textsFor(ident.Locale))
		return fmt.Errorf("reply: %w", err)
	}
	b.deliver(ctx, logger, instrs, ident)
	return nil
}

// deliver sends every instruction in order. A failed delivery is logged and does not stop
// the rest: the engine has already committed the event. When the recipient's copy could not
// be delivered the sender is told so instead of getting relay_success.
func (b *Bot) deliver(ctx context.Context, logger *slog.Logger, instrs []relay.Instruction, actor relay.Identity) {
	undelivered := false
	for _, in := range instrs {
		fallback := ""
		if in.UserID == actor.UserID {
			fallback = actor.Locale
		}

		var (
			reqs []tgbotapi.Chattable
			err  error
		)
		if in.Kind == relay.KindRelaySuccess && undelivered {
			t := textsFor(fallback)
			reqs = one(withKeyboard(textMessage(in.UserID, t.NotDelivered), mainKeyboard(t)))
		} else {
			reqs, err = b.render(in, fallback)
		}
		if err != nil {
			logger.Error("render failed", "kind", in.Kind, "error", err)
			continue
		}
		if err := b.sendAll(ctx, reqs); err != nil {
			logger.Warn("delivery failed", "kind", in.Kind, "to", in.UserID, "error", err)
			if in.Kind == relay.KindDeliveredToRecipient {
				undelivered = true
			}
			continue
		}
		logger.Debug("instruction delivered", "kind", in.Kind, "to", in.UserID)
	}
}

func (b *Bot) sendAll(ctx context.Context, reqs []tgbotapi.Chattable) error {
	for _, req := range reqs {
		if err := b.out.Send(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendLocal(ctx context.Context, logger *slog.Logger, msg tgbotapi.MessageConfig) error {
	if err := b.out.Send(ctx, msg); err != nil {
		logger.Warn("send failed", "error", err)
	}
	return nil
}

func (b *Bot) notifyFailure(ctx context.Context, logger *slog.Logger, chatID int64, t *texts) {
	if err := b.out.Send(ctx, textMessage(chatID, t.Failure)); err != nil {
		logger.Warn("send failure notice failed", "error", err)
	}
}
