package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/skip2/go-qrcode"

	"github.com/kirillfoster544-cpu/telegram/internal/relay"
)

const (
	replyCallbackPrefix = "reply:"
	// Telegram rejects longer message texts
	maxMessageRunes = 4096
	qrSize          = 256
)

// InviteLink builds the deep link that opens the bot with a start code
func InviteLink(botUsername, code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, code)
}

func mainKeyboard(t *texts) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(t.ButtonWrite),
			tgbotapi.NewKeyboardButton(t.ButtonMyLink),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(t.ButtonRules),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func replyKeyboard(t *texts, entryID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.ButtonReply, replyCallbackPrefix+strconv.FormatInt(entryID, 10)),
		),
	)
}

// parseReplyCallback extracts the audit entry id from reply button data
func parseReplyCallback(data string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, replyCallbackPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func textMessage(chatID int64, text string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(chatID, text)
}

func withKeyboard(msg tgbotapi.MessageConfig, markup any) tgbotapi.MessageConfig {
	msg.ReplyMarkup = markup
	return msg
}

// render turns one engine instruction into Telegram requests. fallbackLocale is used
// when the engine did not know the target's locale.
func (b *Bot) render(in relay.Instruction, fallbackLocale string) ([]tgbotapi.Chattable, error) {
	locale := in.Locale
	if locale == "" {
		locale = fallbackLocale
	}
	t := textsFor(locale)
	chat := in.UserID

	switch in.Kind {
	case relay.KindWelcome:
		return one(withKeyboard(textMessage(chat, t.Welcome), mainKeyboard(t))), nil
	case relay.KindSelfLink:
		return one(textMessage(chat, t.SelfLink)), nil
	case relay.KindPromptForMessage:
		return one(textMessage(chat, t.Prompt)), nil
	case relay.KindExpired:
		return one(textMessage(chat, t.Expired)), nil
	case relay.KindEmptyRejected:
		return one(textMessage(chat, t.EmptyRejected)), nil
	case relay.KindLinkPasted:
		return one(textMessage(chat, t.LinkPasted)), nil
	case relay.KindRelaySuccess:
		return one(withKeyboard(textMessage(chat, t.RelaySuccess), mainKeyboard(t))), nil
	case relay.KindNoPending:
		return one(withKeyboard(textMessage(chat, t.NoPending), mainKeyboard(t))), nil
	case relay.KindUnknownTarget:
		return one(textMessage(chat, t.UnknownTarget)), nil

	case relay.KindDeliveredToRecipient:
		parts := splitText(fmt.Sprintf(t.Delivered, in.Text), maxMessageRunes)
		out := make([]tgbotapi.Chattable, 0, len(parts))
		for i, part := range parts {
			msg := textMessage(chat, part)
			// the reply button goes under the final part
			if i == len(parts)-1 && in.EntryID != 0 {
				msg.ReplyMarkup = replyKeyboard(t, in.EntryID)
			}
			out = append(out, msg)
		}
		return out, nil

	case relay.KindOwnLink:
		link := InviteLink(b.username, in.Code)
		out := one(textMessage(chat, fmt.Sprintf(t.OwnLink, link)))
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			b.logger.Warn("qr encode failed", "error", err)
			return out, nil
		}
		photo := tgbotapi.NewPhoto(chat, tgbotapi.FileBytes{Name: "invite.png", Bytes: png})
		photo.Caption = t.QRCaption
		return append(out, photo), nil

	case relay.KindAdminCopy:
		return messages(chat, fmt.Sprintf(t.AdminCopy, in.From, in.To, in.Text)), nil

	case relay.KindAuditReport:
		if len(in.Report) == 0 {
			return one(textMessage(chat, t.AuditEmpty)), nil
		}
		lines := make([]string, 0, len(in.Report)+1)
		lines = append(lines, t.AuditHeader)
		for _, l := range in.Report {
			lines = append(lines, fmt.Sprintf(t.AuditLine, l.From, l.To, l.Entry.Text))
		}
		return messages(chat, strings.Join(lines, "\n")), nil

	case relay.KindStats:
		if in.Usage == nil {
			return nil, fmt.Errorf("stats instruction without usage")
		}
		u := in.Usage
		return one(textMessage(chat, fmt.Sprintf(t.Stats, u.ClicksTotal, u.ClicksToday, u.MessagesTotal, u.MessagesToday))), nil
	}

	return nil, fmt.Errorf("unknown instruction kind %q", in.Kind)
}

func one(c tgbotapi.Chattable) []tgbotapi.Chattable {
	return []tgbotapi.Chattable{c}
}

// messages splits long text into several messages on line boundaries
func messages(chatID int64, text string) []tgbotapi.Chattable {
	var out []tgbotapi.Chattable
	for _, part := range splitText(text, maxMessageRunes) {
		out = append(out, textMessage(chatID, part))
	}
	return out
}

func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		// a single oversized line is cut by runes
		for utf8.RuneCountInString(line) > limit {
			flush()
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
		}
		n := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return parts
}
