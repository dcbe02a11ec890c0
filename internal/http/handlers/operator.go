package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillfoster544-cpu/telegram/internal/model"
)

// OperatorReader is the read-only operator surface of the relay engine
type OperatorReader interface {
	AuditRecent(ctx context.Context, limit int) ([]model.AuditEntry, error)
	Usage(ctx context.Context, userID int64) (model.UsageCounters, error)
}

// OperatorHandler serves audit and usage reads to authenticated operators
type OperatorHandler struct {
	reader OperatorReader
	logger *slog.Logger
}

// NewOperatorHandler creates an operator handler
func NewOperatorHandler(reader OperatorReader, logger *slog.Logger) *OperatorHandler {
	return &OperatorHandler{reader: reader, logger: logger}
}

type auditEntryResponse struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

type auditResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

type usageResponse struct {
	UserID        int64  `json:"user_id"`
	ClicksTotal   int64  `json:"clicks_total"`
	ClicksToday   int64  `json:"clicks_today"`
	MessagesTotal int64  `json:"messages_total"`
	MessagesToday int64  `json:"messages_today"`
	LastResetDay  string `json:"last_reset_day"`
}

// HandleAudit handles GET /audit?limit=N. The limit is clamped by the audit log.
func (h *OperatorHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.reader.AuditRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("audit read failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}

	resp := auditResponse{Entries: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, auditEntryResponse{
			ID:          e.ID,
			SenderID:    e.SenderID,
			RecipientID: e.RecipientID,
			Text:        e.Text,
			CreatedAt:   e.CreatedAt,
		})
	}
	if err := respondWithJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Warn("failed to encode audit response", "error", err)
	}
}

// HandleUsage handles GET /usage/{userID}
func (h *OperatorHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	c, err := h.reader.Usage(r.Context(), userID)
	if err != nil {
		h.logger.Error("usage read failed", "user_id", userID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}

	resp := usageResponse{
		UserID:        c.UserID,
		ClicksTotal:   c.ClicksTotal,
		ClicksToday:   c.ClicksToday,
		MessagesTotal: c.MessagesTotal,
		MessagesToday: c.MessagesToday,
		LastResetDay:  c.LastResetDay,
	}
	if err := respondWithJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Warn("failed to encode usage response", "error", err)
	}
}
