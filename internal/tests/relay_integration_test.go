package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillfoster544-cpu/telegram/internal/auth"
	"github.com/kirillfoster544-cpu/telegram/internal/clock"
	httphandler "github.com/kirillfoster544-cpu/telegram/internal/http"
	"github.com/kirillfoster544-cpu/telegram/internal/http/handlers"
	"github.com/kirillfoster544-cpu/telegram/internal/relay"
	"github.com/kirillfoster544-cpu/telegram/internal/repo"
)

const (
	testAdminID = 999
	testSecret  = "test-operator-secret-at-least-32-characters"
)

func kinds(instrs []relay.Instruction) []relay.Kind {
	out := make([]relay.Kind, 0, len(instrs))
	for _, in := range instrs {
		out = append(out, in.Kind)
	}
	return out
}

func TestRelayEngineIntegration(t *testing.T) {
	database := OpenTestDB(t)
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC))
	logger := DiscardLogger()

	engine := relay.NewEngine(
		relay.NewRegistry(repo.NewProfileRepo(database), nil, relay.DefaultCodeLength, logger),
		relay.NewTracker(repo.NewPendingRepo(database), clk, relay.DefaultConversationTTL),
		relay.NewCounters(repo.NewUsageRepo(database), clk),
		relay.NewAuditLog(repo.NewAuditRepo(database), clk),
		relay.EngineConfig{AdminID: testAdminID, ReportLimit: 20},
		logger,
	)

	alice := relay.Identity{UserID: 1, DisplayName: "Alice", Handle: "alice", Locale: "en"}
	bob := relay.Identity{UserID: 2, DisplayName: "Bob", Locale: "ru"}

	out, err := engine.MyLink(ctx, bob)
	require.NoError(t, err)
	bobCode := out[0].Code
	require.Len(t, bobCode, relay.DefaultCodeLength)

	out, err = engine.StartWithCode(ctx, alice, bobCode)
	require.NoError(t, err)
	assert.Equal(t, []relay.Kind{relay.KindPromptForMessage}, kinds(out))

	out, err = engine.PlainText(ctx, alice.UserID, "hello before midnight")
	require.NoError(t, err)
	require.Equal(t, []relay.Kind{relay.KindDeliveredToRecipient, relay.KindRelaySuccess, relay.KindAdminCopy}, kinds(out))
	assert.Equal(t, "ru", out[0].Locale)
	entryID := out[0].EntryID

	// crosses midnight while staying inside the refreshed window
	clk.Advance(14 * time.Minute)
	out, err = engine.PlainText(ctx, alice.UserID, "hello after midnight")
	require.NoError(t, err)
	require.Equal(t, relay.KindDeliveredToRecipient, out[0].Kind)

	c, err := engine.Usage(ctx, bob.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.MessagesTotal)
	assert.Equal(t, int64(1), c.MessagesToday)
	assert.Equal(t, int64(0), c.ClicksToday)
	assert.Equal(t, "2026-03-02", c.LastResetDay)

	out, err = engine.ReplyToEntry(ctx, bob, entryID)
	require.NoError(t, err)
	assert.Equal(t, []relay.Kind{relay.KindPromptForMessage}, kinds(out))

	clk.Advance(16 * time.Minute)
	out, err = engine.PlainText(ctx, bob.UserID, "too late")
	require.NoError(t, err)
	assert.Equal(t, []relay.Kind{relay.KindExpired}, kinds(out))
	out, err = engine.PlainText(ctx, bob.UserID, "again")
	require.NoError(t, err)
	assert.Equal(t, []relay.Kind{relay.KindNoPending}, kinds(out))

	entries, err := engine.AuditRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hello after midnight", entries[0].Text)

	t.Run("operator API", func(t *testing.T) {
		svc := auth.NewJWTService(testSecret)
		token, err := svc.SignOperatorToken(testAdminID, time.Hour)
		require.NoError(t, err)

		server := httptest.NewServer(httphandler.NewRouter(httphandler.RouterDeps{
			Health:     handlers.NewHealthHandler(database),
			Operator:   handlers.NewOperatorHandler(engine, logger),
			JWTService: svc,
			AdminID:    testAdminID,
		}))
		t.Cleanup(server.Close)

		resp, err := server.Client().Get(server.URL + "/health")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		req, err := http.NewRequest(http.MethodGet, server.URL+"/audit?limit=1", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Entries []struct {
				Text string `json:"text"`
			} `json:"entries"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Entries, 1)
		assert.Equal(t, "hello after midnight", body.Entries[0].Text)
	})
}
