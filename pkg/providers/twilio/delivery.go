package twilio

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/palinopr/leadflow/pkg/resilience"
)

type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	MaxRetries int
}

// Sender delivers replies as SMS/WhatsApp messages via the Twilio REST API.
// The contact ID doubles as the destination number.
type Sender struct {
	cfg    Config
	retry  resilience.RetryPolicy
	client messageCreator
}

func NewSender(cfg Config) *Sender {
	return &Sender{
		cfg:   cfg,
		retry: resilience.NewRetryPolicy(cfg.MaxRetries, 0),
	}
}

func (s *Sender) Name() string { return "twilio" }

func (s *Sender) Send(ctx context.Context, contactID, text string) error {
	if contactID == "" || text == "" {
		return errors.New("to/body required")
	}
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" {
		return errors.New("missing twilio credentials")
	}
	client := s.client
	if client == nil {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: s.cfg.AccountSID,
			Password: s.cfg.AuthToken,
		})
		client = rest.Api
	}
	params := &api.CreateMessageParams{}
	params.SetTo(contactID)
	params.SetFrom(s.cfg.From)
	params.SetBody(text)

	return s.retry.Do(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := client.CreateMessage(params)
		if err != nil {
			return err
		}
		if resp == nil || resp.Sid == nil {
			return fmt.Errorf("missing message sid")
		}
		return nil
	})
}
