package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// API is the subset of *tgbotapi.BotAPI used for outbound calls
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Outbox delivers rendered messages to Telegram
type Outbox interface {
	Send(ctx context.Context, c tgbotapi.Chattable) error
	Request(ctx context.Context, c tgbotapi.Chattable) error
}

// ThrottledSender keeps outbound traffic under the Bot API's global rate limit
type ThrottledSender struct {
	api     API
	limiter *rate.Limiter
}

// NewThrottledSender allows perSecond calls per second with a burst of the same size
func NewThrottledSender(api API, perSecond float64) *ThrottledSender {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &ThrottledSender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Send waits for a token and sends a message-producing request
func (s *ThrottledSender) Send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	if _, err := s.api.Send(c); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Request waits for a token and performs a request without a message result
func (s *ThrottledSender) Request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	if _, err := s.api.Request(c); err != nil {
		return fmt.Errorf("request: %w", err)
	}
	return nil
}
