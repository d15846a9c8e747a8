package engine

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	Vendors  VendorsConfig  `mapstructure:"vendors"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Score    ScoreConfig    `mapstructure:"score"`
	Router   RouterConfig   `mapstructure:"router"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Privacy  PrivacyConfig  `mapstructure:"privacy"`
	Engine   RuntimeConfig  `mapstructure:"engine"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	LLM      VendorConfig `mapstructure:"llm"`
	Store    VendorConfig `mapstructure:"store"`
	Booking  VendorConfig `mapstructure:"booking"`
	Delivery VendorConfig `mapstructure:"delivery"`
}

type ExtractConfig struct {
	SimilarityThreshold float64  `mapstructure:"similarity_threshold"`
	ExtraVocabulary     []string `mapstructure:"extra_vocabulary"`
	ExtraGenericTerms   []string `mapstructure:"extra_generic_terms"`
}

type ScoreConfig struct {
	NameWeight           int     `mapstructure:"name_weight"`
	BusinessWeight       int     `mapstructure:"business_weight"`
	GoalWeight           int     `mapstructure:"goal_weight"`
	BudgetWeight         int     `mapstructure:"budget_weight"`
	ConfirmedFloorAmount float64 `mapstructure:"confirmed_floor_amount"`
	ConfirmedFloorScore  int     `mapstructure:"confirmed_floor_score"`
}

type RouterConfig struct {
	ColdMax        int    `mapstructure:"cold_max"`
	WarmMax        int    `mapstructure:"warm_max"`
	MaxEscalations int    `mapstructure:"max_escalations"`
	HandoffMessage string `mapstructure:"handoff_message"`
}

type AgentConfig struct {
	LLMTimeoutMS int `mapstructure:"llm_timeout_ms"`
	MaxSlots     int `mapstructure:"max_slots"`
}

type PipelineConfig struct {
	DegradedReply string `mapstructure:"degraded_reply"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type RuntimeConfig struct {
	DrainTimeoutS  int `mapstructure:"drain_timeout_s"`
	MetricsBuffer  int `mapstructure:"metrics_buffer"`
	TurnTimeoutMS  int `mapstructure:"turn_timeout_ms"`
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("vendors.llm.provider", "mock")
	v.SetDefault("vendors.store.provider", "memory")
	v.SetDefault("vendors.booking.provider", "mock")
	v.SetDefault("vendors.delivery.provider", "mock")
	v.SetDefault("extract.similarity_threshold", 0.75)
	v.SetDefault("score.name_weight", 2)
	v.SetDefault("score.business_weight", 2)
	v.SetDefault("score.goal_weight", 1)
	v.SetDefault("score.budget_weight", 3)
	v.SetDefault("score.confirmed_floor_amount", 300)
	v.SetDefault("score.confirmed_floor_score", 6)
	v.SetDefault("router.cold_max", 4)
	v.SetDefault("router.warm_max", 7)
	v.SetDefault("router.max_escalations", 2)
	v.SetDefault("agent.llm_timeout_ms", 5000)
	v.SetDefault("agent.max_slots", 3)
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("engine.drain_timeout_s", 20)
	v.SetDefault("engine.metrics_buffer", 2048)
	v.SetDefault("engine.turn_timeout_ms", 15000)
	v.SetDefault("engine.max_concurrency", 0)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.LLM.Provider) == "" {
		return fmt.Errorf("vendors.llm.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Store.Provider) == "" {
		return fmt.Errorf("vendors.store.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Booking.Provider) == "" {
		return fmt.Errorf("vendors.booking.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Delivery.Provider) == "" {
		return fmt.Errorf("vendors.delivery.provider is required")
	}
	if c.Extract.SimilarityThreshold < 0 || c.Extract.SimilarityThreshold > 1 {
		return fmt.Errorf("extract.similarity_threshold must be in [0,1]")
	}
	if c.Router.WarmMax <= c.Router.ColdMax {
		return fmt.Errorf("router.warm_max must exceed router.cold_max")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.LLM.Settings = expandSettings(cfg.Vendors.LLM.Settings)
	cfg.Vendors.Store.Settings = expandSettings(cfg.Vendors.Store.Settings)
	cfg.Vendors.Booking.Settings = expandSettings(cfg.Vendors.Booking.Settings)
	cfg.Vendors.Delivery.Settings = expandSettings(cfg.Vendors.Delivery.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
