package engine

import (
	"fmt"

	"github.com/palinopr/leadflow/pkg/adapters/booking"
	"github.com/palinopr/leadflow/pkg/adapters/delivery"
	"github.com/palinopr/leadflow/pkg/adapters/storage"
	"github.com/palinopr/leadflow/pkg/configutil"
	"github.com/palinopr/leadflow/pkg/llm"
	"github.com/palinopr/leadflow/pkg/providers/mock"
	"github.com/palinopr/leadflow/pkg/providers/ollama"
	"github.com/palinopr/leadflow/pkg/providers/twilio"
)

// RegisterDefaultProviders installs the built-in provider factories: mocks
// for every slot, ollama for llm, twilio for delivery.
func RegisterDefaultProviders(reg *ProviderRegistry) {
	reg.RegisterLLM("mock", func(cfg Config) (llm.LLMAdapter, error) {
		var s struct {
			ResponseText string `mapstructure:"response_text"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.LLM.Settings, &s); err != nil {
			return nil, err
		}
		return mock.NewLLMAdapter(mock.LLMConfig{ResponseText: s.ResponseText}), nil
	})

	reg.RegisterLLM("ollama", func(cfg Config) (llm.LLMAdapter, error) {
		settings := cfg.Vendors.LLM.Settings
		if err := configutil.ValidateSettings(settings, configutil.Schema{
			Required: []string{"model"},
			Optional: []string{"server_url", "temperature"},
		}); err != nil {
			return nil, fmt.Errorf("ollama settings: %w", err)
		}
		var s struct {
			Model       string  `mapstructure:"model"`
			ServerURL   string  `mapstructure:"server_url"`
			Temperature float64 `mapstructure:"temperature"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return ollama.NewAdapter(ollama.Config{
			ServerURL:   s.ServerURL,
			Model:       s.Model,
			Temperature: s.Temperature,
		})
	})

	reg.RegisterStore("memory", func(cfg Config) (storage.Store, error) {
		return mock.NewMemoryStore(), nil
	})

	reg.RegisterBooking("mock", func(cfg Config) (booking.Client, error) {
		var s struct {
			Slots []string `mapstructure:"slots"`
		}
		if err := configutil.DecodeSettings(cfg.Vendors.Booking.Settings, &s); err != nil {
			return nil, err
		}
		return mock.NewBookingClient(s.Slots), nil
	})

	reg.RegisterDelivery("mock", func(cfg Config) (delivery.Sender, error) {
		return mock.NewSender(), nil
	})

	reg.RegisterDelivery("twilio", func(cfg Config) (delivery.Sender, error) {
		settings := cfg.Vendors.Delivery.Settings
		if err := configutil.ValidateSettings(settings, configutil.Schema{
			Required: []string{"account_sid", "auth_token", "from"},
			Optional: []string{"max_retries"},
		}); err != nil {
			return nil, fmt.Errorf("twilio settings: %w", err)
		}
		var s struct {
			AccountSID string `mapstructure:"account_sid"`
			AuthToken  string `mapstructure:"auth_token"`
			From       string `mapstructure:"from"`
			MaxRetries int    `mapstructure:"max_retries"`
		}
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return twilio.NewSender(twilio.Config{
			AccountSID: s.AccountSID,
			AuthToken:  s.AuthToken,
			From:       s.From,
			MaxRetries: s.MaxRetries,
		}), nil
	})
}
