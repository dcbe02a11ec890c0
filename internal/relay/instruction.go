package relay

import "github.com/kirillfoster544-cpu/telegram/internal/model"

// Kind identifies what the transport adapter should tell a user
type Kind string

const (
	KindSelfLink             Kind = "self_link"
	KindPromptForMessage     Kind = "prompt_for_message"
	KindExpired              Kind = "expired"
	KindEmptyRejected        Kind = "empty_rejected"
	KindLinkPasted           Kind = "link_pasted"
	KindRelaySuccess         Kind = "relay_success"
	KindNoPending            Kind = "no_pending"
	KindDeliveredToRecipient Kind = "delivered_to_recipient"
	KindUnknownTarget        Kind = "unknown_target"
	KindWelcome              Kind = "welcome"
	KindOwnLink              Kind = "own_link"
	KindAdminCopy            Kind = "admin_copy"
	KindAuditReport          Kind = "audit_report"
	KindStats                Kind = "stats"
)

// Instruction is a message the adapter must deliver to UserID.
// Only the fields relevant to Kind are set.
type Instruction struct {
	UserID int64
	Kind   Kind
	// Locale is the stored locale of UserID when the engine knows it.
	Locale string

	// Text is the relayed message (delivered_to_recipient, admin_copy).
	Text string
	// ReplyTo is the sender id bound to the recipient's reply affordance.
	ReplyTo int64
	// EntryID is the audit entry of a delivered message; adapters bind reply buttons to it
	// so the sender id never leaves the server.
	EntryID int64
	// Code is UserID's own invitation code (welcome, own_link).
	Code string

	// From and To label the parties of an admin_copy.
	From string
	To   string

	Report []ReportLine
	Usage  *model.UsageCounters
}

// ReportLine is an audit entry with display labels for both parties
type ReportLine struct {
	Entry model.AuditEntry
	From  string
	To    string
}
