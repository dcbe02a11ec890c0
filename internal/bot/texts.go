package bot

import "strings"

// texts is one locale's catalog of user-facing strings
type texts struct {
	ButtonWrite  string
	ButtonMyLink string
	ButtonRules  string
	ButtonReply  string

	Rules         string
	HowTo         string
	Welcome       string
	SelfLink      string
	Prompt        string
	Expired       string
	EmptyRejected string
	LinkPasted    string
	RelaySuccess  string
	NotDelivered  string
	NoPending     string
	UnknownTarget string
	Failure       string

	// format strings
	Delivered   string
	OwnLink     string
	QRCaption   string
	AdminCopy   string
	AuditHeader string
	AuditLine   string
	AuditEmpty  string
	Stats       string
}

var enTexts = texts{
	ButtonWrite:  "✉️ Write",
	ButtonMyLink: "🔗 My link",
	ButtonRules:  "ℹ️ Rules",
	ButtonReply:  "↩️ Reply",

	Rules:         "✅ The recipient sees your message as anonymous.",
	HowTo:         "To write to someone:\n1) Ask them for their link.\n2) Open it and send your message.",
	Welcome:       "Tap «🔗 My link» to get your own link.",
	SelfLink:      "This is your own link 🙂",
	Prompt:        "✉️ Send a text message and I will deliver it anonymously.",
	Expired:       "The sending window has expired. Open the link again.",
	EmptyRejected: "I don't send empty messages.",
	LinkPasted:    "Open this link (tap on it), then write your message.",
	RelaySuccess:  "✅ Sent.",
	NotDelivered:  "⚠️ The message could not be delivered: the recipient is unavailable.",
	NoPending:     "To send a message, open someone's link.",
	UnknownTarget: "This conversation is no longer available.",
	Failure:       "Something went wrong, please try again later.",

	Delivered:   "📩 You have a new message:\n\n%s",
	OwnLink:     "🔗 Your link:\n%s\n\nShare it with your friends.",
	QRCaption:   "Your link as a QR code",
	AdminCopy:   "🛡 ADMIN LOG\nFrom: %s\nTo: %s\nText: %s",
	AuditHeader: "🛡 Latest messages:",
	AuditLine:   "— %s -> %s: %s",
	AuditEmpty:  "No messages yet.",
	Stats:       "📊 Link opened: %d (today %d)\n📩 Messages received: %d (today %d)",
}

var ruTexts = texts{
	ButtonWrite:  "✉️ Написать",
	ButtonMyLink: "🔗 Моя ссылка",
	ButtonRules:  "ℹ️ Правила",
	ButtonReply:  "↩️ Ответить",

	Rules:         "✅ Получатель видит сообщение как анонимное.",
	HowTo:         "Чтобы написать кому-то:\n1) Попроси у человека его ссылку.\n2) Открой её и напиши сообщение.",
	Welcome:       "Нажми «🔗 Моя ссылка» чтобы получить свою ссылку.",
	SelfLink:      "Это твоя ссылка 🙂",
	Prompt:        "✉️ Напиши сообщение текстом, я доставлю его анонимно этому человеку.",
	Expired:       "Окно отправки истекло. Открой ссылку заново.",
	EmptyRejected: "Пустое сообщение не отправляю.",
	LinkPasted:    "Открой эту ссылку (нажми на неё), потом напиши сообщение.",
	RelaySuccess:  "✅ Отправлено.",
	NotDelivered:  "⚠️ Не удалось доставить сообщение: получатель недоступен.",
	NoPending:     "Чтобы отправить сообщение, открой ссылку человека.",
	UnknownTarget: "Этот диалог больше недоступен.",
	Failure:       "Что-то пошло не так, попробуй позже.",

	Delivered:   "📩 Тебе пришло сообщение:\n\n%s",
	OwnLink:     "🔗 Твоя ссылка:\n%s\n\nОтправь её друзьям.",
	QRCaption:   "Твоя ссылка в виде QR-кода",
	AdminCopy:   "🛡 ADMIN LOG\nОт: %s\nКому: %s\nТекст: %s",
	AuditHeader: "🛡 Последние сообщения:",
	AuditLine:   "— %s -> %s: %s",
	AuditEmpty:  "Логов пока нет.",
	Stats:       "📊 Переходов по ссылке: %d (сегодня %d)\n📩 Получено сообщений: %d (сегодня %d)",
}

// textsFor picks the catalog for a Telegram language code
func textsFor(locale string) *texts {
	if strings.HasPrefix(strings.ToLower(locale), "ru") {
		return &ruTexts
	}
	return &enTexts
}

type buttonAction int

const (
	actionNone buttonAction = iota
	actionWrite
	actionMyLink
	actionRules
)

// buttonFor maps a keyboard label in any locale to its action
func buttonFor(text string) buttonAction {
	for _, t := range []*texts{&enTexts, &ruTexts} {
		switch text {
		case t.ButtonWrite:
			return actionWrite
		case t.ButtonMyLink:
			return actionMyLink
		case t.ButtonRules:
			return actionRules
		}
	}
	return actionNone
}
