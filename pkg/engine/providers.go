package engine

import (
	"fmt"
	"strings"

	"github.com/palinopr/leadflow/pkg/adapters/booking"
	"github.com/palinopr/leadflow/pkg/adapters/delivery"
	"github.com/palinopr/leadflow/pkg/adapters/storage"
	"github.com/palinopr/leadflow/pkg/llm"
)

type LLMFactory func(cfg Config) (llm.LLMAdapter, error)
type StoreFactory func(cfg Config) (storage.Store, error)
type BookingFactory func(cfg Config) (booking.Client, error)
type DeliveryFactory func(cfg Config) (delivery.Sender, error)

type ProviderRegistry struct {
	llm      map[string]LLMFactory
	store    map[string]StoreFactory
	booking  map[string]BookingFactory
	delivery map[string]DeliveryFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		llm:      make(map[string]LLMFactory),
		store:    make(map[string]StoreFactory),
		booking:  make(map[string]BookingFactory),
		delivery: make(map[string]DeliveryFactory),
	}
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterStore(name string, factory StoreFactory) {
	r.store[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterBooking(name string, factory BookingFactory) {
	r.booking[normalize(name)] = factory
}

func (r *ProviderRegistry) RegisterDelivery(name string, factory DeliveryFactory) {
	r.delivery[normalize(name)] = factory
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.LLMAdapter, error) {
	fn := r.llm[normalize(provider)]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildStore(provider string, cfg Config) (storage.Store, error) {
	fn := r.store[normalize(provider)]
	if fn == nil {
		return nil, fmt.Errorf("store provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildBooking(provider string, cfg Config) (booking.Client, error) {
	fn := r.booking[normalize(provider)]
	if fn == nil {
		return nil, fmt.Errorf("booking provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildDelivery(provider string, cfg Config) (delivery.Sender, error) {
	fn := r.delivery[normalize(provider)]
	if fn == nil {
		return nil, fmt.Errorf("delivery provider not registered: %s", provider)
	}
	return fn(cfg)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
