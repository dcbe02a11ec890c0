package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sends    int
	requests int
	err      error
}

func (f *fakeAPI) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sends++
	return tgbotapi.Message{}, f.err
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestThrottledSender(t *testing.T) {
	api := &fakeAPI{}
	s := NewThrottledSender(api, 100)
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, tgbotapi.NewMessage(1, "a")))
	require.NoError(t, s.Request(ctx, tgbotapi.NewCallback("id", "")))
	assert.Equal(t, 1, api.sends)
	assert.Equal(t, 1, api.requests)

	api.err = errors.New("Too Many Requests")
	assert.Error(t, s.Send(ctx, tgbotapi.NewMessage(1, "b")))
}

func TestThrottledSender_cancelledContext(t *testing.T) {
	api := &fakeAPI{}
	s := NewThrottledSender(api, 0.001)
	ctx, cancel := context.WithCancel(context.Background())

	// drains the single burst token
	require.NoError(t, s.Send(ctx, tgbotapi.NewMessage(1, "a")))
	cancel()

	err := s.Send(ctx, tgbotapi.NewMessage(1, "b"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, api.sends)
}
