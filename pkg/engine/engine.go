package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/palinopr/leadflow/pkg/adapters/delivery"
	"github.com/palinopr/leadflow/pkg/agents"
	"github.com/palinopr/leadflow/pkg/errorsx"
	"github.com/palinopr/leadflow/pkg/extract"
	"github.com/palinopr/leadflow/pkg/llm"
	"github.com/palinopr/leadflow/pkg/logging"
	"github.com/palinopr/leadflow/pkg/metrics"
	"github.com/palinopr/leadflow/pkg/pipeline"
	"github.com/palinopr/leadflow/pkg/redact"
	"github.com/palinopr/leadflow/pkg/router"
	"github.com/palinopr/leadflow/pkg/runner"
	"github.com/palinopr/leadflow/pkg/score"
	"github.com/palinopr/leadflow/pkg/stage"
)

// Engine is the deployable unit: it owns the turn pipeline, serializes turns
// per contact, and pushes replies out through the delivery sender.
type Engine struct {
	cfg       Config
	pipe      *pipeline.Pipeline
	registry  *ContactRegistry
	providers *ProviderRegistry
	delivery  delivery.Sender
	runner    *runner.LifecycleRunner
	asyncObs  *metrics.AsyncObserver
	ctx       context.Context
	cancel    context.CancelFunc
}

type Options struct {
	Config    Config
	Providers *ProviderRegistry
	// Observers are appended after the default logging observer.
	Observers []metrics.Observer
}

func NewEngine(opts Options) (*Engine, error) {
	cfg := opts.Config
	SetDefaultLogger(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("leadflow_init",
		"environment", cfg.Environment,
		"llm_provider", cfg.Vendors.LLM.Provider,
		"store_provider", cfg.Vendors.Store.Provider,
		"booking_provider", cfg.Vendors.Booking.Provider,
		"delivery_provider", cfg.Vendors.Delivery.Provider,
	)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	obsList := []metrics.Observer{metrics.NewLoggerObserver(slog.Default())}
	obsList = append(obsList, opts.Observers...)
	buffer := cfg.Engine.MetricsBuffer
	if buffer <= 0 {
		buffer = 2048
	}
	asyncObs := metrics.NewAsyncObserver(metrics.NewMultiObserver(obsList...), buffer)

	store, err := providers.BuildStore(cfg.Vendors.Store.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	adapter, err := providers.BuildLLM(cfg.Vendors.LLM.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm: %w", err)
	}
	breaker := llm.NewCircuitBreakerAdapter(adapter, nil)
	breaker.SetObserver(asyncObs)
	bookingClient, err := providers.BuildBooking(cfg.Vendors.Booking.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build booking: %w", err)
	}
	sender, err := providers.BuildDelivery(cfg.Vendors.Delivery.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("build delivery: %w", err)
	}

	extractCfg := extract.DefaultConfig()
	if cfg.Extract.SimilarityThreshold > 0 {
		extractCfg.SimilarityThreshold = cfg.Extract.SimilarityThreshold
	}
	extractCfg.BusinessVocabulary = append(extractCfg.BusinessVocabulary, cfg.Extract.ExtraVocabulary...)
	extractCfg.GenericTerms = append(extractCfg.GenericTerms, cfg.Extract.ExtraGenericTerms...)
	extractor := extract.New(extractCfg)

	scorer := score.New(score.Config{
		NameWeight:           cfg.Score.NameWeight,
		BusinessWeight:       cfg.Score.BusinessWeight,
		GoalWeight:           cfg.Score.GoalWeight,
		BudgetWeight:         cfg.Score.BudgetWeight,
		ConfirmedFloorAmount: cfg.Score.ConfirmedFloorAmount,
		ConfirmedFloorScore:  cfg.Score.ConfirmedFloorScore,
		ColdMax:              cfg.Router.ColdMax,
		WarmMax:              cfg.Router.WarmMax,
	})
	tracker := stage.New(stage.Config{})
	policy := router.Policy{
		ColdMax:        cfg.Router.ColdMax,
		WarmMax:        cfg.Router.WarmMax,
		MaxEscalations: cfg.Router.MaxEscalations,
		HandoffMessage: cfg.Router.HandoffMessage,
	}
	supervisor := router.New(policy)

	var bandAgents []*agents.Agent
	for _, ac := range agents.DefaultConfigs(supervisor.Policy()) {
		ac.LLMTimeout = time.Duration(cfg.Agent.LLMTimeoutMS) * time.Millisecond
		ac.MaxSlots = cfg.Agent.MaxSlots
		bandAgents = append(bandAgents, agents.New(ac, breaker, bookingClient, tracker,
			logging.NewComponentLogger(slog.Default(), "agent_"+string(ac.Band))))
	}

	pipe, err := pipeline.New(pipeline.Config{DegradedReply: cfg.Pipeline.DegradedReply}, pipeline.Deps{
		Extractor:  extractor,
		Confirmer:  extract.NewConfirmationDetector(extractCfg.Affirmatives),
		Scorer:     scorer,
		Tracker:    tracker,
		Supervisor: supervisor,
		Agents:     bandAgents,
		Store:      store,
		Observer:   asyncObs,
		Logger:     logging.NewComponentLogger(slog.Default(), "pipeline"),
	})
	if err != nil {
		return nil, err
	}

	registry := NewContactRegistry()

	hooks := runner.Hooks{
		OnStart: func() {
			slog.Info("engine_ready", "message", "Leadflow Engine Ready")
		},
		OnStop: func() {
			if asyncObs != nil {
				asyncObs.Close()
			}
			slog.Info("shutdown", "goroutines", runtime.NumGoroutine(), "in_flight", registry.InFlight())
		},
	}
	drainTimeout := time.Duration(cfg.Engine.DrainTimeoutS) * time.Second
	if drainTimeout <= 0 {
		drainTimeout = 20 * time.Second
	}
	drainer := drainerFunc(func() error {
		registry.SetDraining(true)
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		_ = registry.WaitForEmpty(ctx, 200*time.Millisecond)
		return nil
	})
	lr := runner.NewLifecycleRunner(drainer, hooks, drainTimeout+10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:       cfg,
		pipe:      pipe,
		registry:  registry,
		providers: providers,
		delivery:  sender,
		runner:    lr,
		asyncObs:  asyncObs,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

type drainerFunc func() error

func (f drainerFunc) Drain() error { return f() }

// HandleMessage runs one turn and delivers the reply. Turns for the same
// contact are serialized; the pipeline itself is stateless.
func (e *Engine) HandleMessage(ctx context.Context, in pipeline.Inbound) (pipeline.Result, error) {
	if ctx == nil {
		ctx = e.ctx
	}
	if e.cfg.Engine.TurnTimeoutMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.Engine.TurnTimeoutMS)*time.Millisecond)
		defer cancel()
	}

	release, ok := e.registry.Acquire(ctx, in.ContactID)
	if !ok {
		return pipeline.Result{}, errorsx.Wrap(fmt.Errorf("engine not accepting turns"), errorsx.ReasonEngineDraining)
	}
	defer release()

	res, err := e.pipe.Process(ctx, in)
	if err != nil {
		return pipeline.Result{}, err
	}
	if res.Reply != "" && !res.Duplicate {
		if err := e.delivery.Send(ctx, in.ContactID, res.Reply); err != nil {
			slog.Error("delivery_failed",
				"contact_id", in.ContactID,
				"trace_id", res.TraceID,
				"reason_code", string(errorsx.ReasonDeliverySend),
				"error", err,
			)
		}
	}
	return res, nil
}

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

func (e *Engine) ProviderRegistry() *ProviderRegistry { return e.providers }

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Registry() *ContactRegistry { return e.registry }

func SetDefaultLogger(level, format string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
