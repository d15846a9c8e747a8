package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/palinopr/leadflow/pkg/adapters/storage"
	"github.com/palinopr/leadflow/pkg/agents"
	"github.com/palinopr/leadflow/pkg/convo"
	"github.com/palinopr/leadflow/pkg/errorsx"
	"github.com/palinopr/leadflow/pkg/extract"
	"github.com/palinopr/leadflow/pkg/metrics"
	"github.com/palinopr/leadflow/pkg/redact"
	"github.com/palinopr/leadflow/pkg/router"
	"github.com/palinopr/leadflow/pkg/score"
	"github.com/palinopr/leadflow/pkg/stage"
)

// Inbound is one raw lead message.
type Inbound struct {
	ContactID string
	MessageID string
	Text      string
	Timestamp time.Time
}

// Result is everything one turn produced. State is the persisted snapshot
// after the turn.
type Result struct {
	State      convo.ConversationState
	Reply      string
	Tool       *convo.ToolRequest
	Band       router.Band
	Score      int
	Stage      convo.Stage
	Terminal   bool
	Degraded   bool
	Duplicate  bool
	Violations []stage.Violation
	TraceID    string
}

// Config tunes pipeline behavior outside the component policies.
type Config struct {
	// DegradedReply goes out when a collaborator failed and no canonical
	// response applies.
	DegradedReply string
}

func DefaultConfig() Config {
	return Config{
		DegradedReply: "Dame un momento, estoy revisando la información. Te confirmo en seguida.",
	}
}

// Pipeline runs the full turn sequence: extract, score, stage, route, reply.
// It holds no per-conversation state of its own; everything it knows about a
// contact comes from the store, so any instance can serve any turn.
type Pipeline struct {
	cfg        Config
	extractor  *extract.Extractor
	confirmer  *extract.ConfirmationDetector
	scorer     *score.Scorer
	tracker    *stage.Tracker
	supervisor *router.Supervisor
	agents     map[router.Band]*agents.Agent
	store      storage.Store
	obs        metrics.Observer
	logger     *slog.Logger
}

type Deps struct {
	Extractor  *extract.Extractor
	Confirmer  *extract.ConfirmationDetector
	Scorer     *score.Scorer
	Tracker    *stage.Tracker
	Supervisor *router.Supervisor
	Agents     []*agents.Agent
	Store      storage.Store
	Observer   metrics.Observer
	Logger     *slog.Logger
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if deps.Extractor == nil || deps.Scorer == nil || deps.Tracker == nil || deps.Supervisor == nil {
		return nil, fmt.Errorf("pipeline: missing core components")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline: store required")
	}
	if len(deps.Agents) == 0 {
		return nil, fmt.Errorf("pipeline: at least one agent required")
	}
	if cfg.DegradedReply == "" {
		cfg.DegradedReply = DefaultConfig().DegradedReply
	}
	if deps.Confirmer == nil {
		deps.Confirmer = extract.NewConfirmationDetector(nil)
	}
	if deps.Observer == nil {
		deps.Observer = metrics.NoopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	byBand := make(map[router.Band]*agents.Agent, len(deps.Agents))
	for _, a := range deps.Agents {
		byBand[a.Band()] = a
	}
	return &Pipeline{
		cfg:        cfg,
		extractor:  deps.Extractor,
		confirmer:  deps.Confirmer,
		scorer:     deps.Scorer,
		tracker:    deps.Tracker,
		supervisor: deps.Supervisor,
		agents:     byBand,
		store:      deps.Store,
		obs:        deps.Observer,
		logger:     deps.Logger,
	}, nil
}

// Process handles one inbound message end to end and persists the new state.
func (p *Pipeline) Process(ctx context.Context, in Inbound) (Result, error) {
	started := time.Now()
	traceID := uuid.NewString()
	if in.ContactID == "" {
		return Result{}, fmt.Errorf("contact_id required")
	}
	if in.MessageID == "" {
		in.MessageID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	state, found, err := p.store.Load(ctx, in.ContactID)
	if err != nil {
		return Result{}, errorsx.Wrap(err, errorsx.ReasonStorageLoad)
	}
	if !found {
		state = convo.NewState(in.ContactID)
	}

	// Replaying a message we already answered must not move the
	// conversation: same reply, zero mutation.
	if state.SeenMessage(in.MessageID) {
		p.record(metrics.EventTurnDuplicate, traceID, state, nil)
		p.logger.Info("turn_duplicate",
			"contact_id", in.ContactID,
			"message_id", in.MessageID,
			"trace_id", traceID,
		)
		res := Result{
			State:     state,
			Band:      router.Band(state.CurrentAgent),
			Score:     state.LeadScore,
			Stage:     state.Stage,
			Terminal:  state.Stage == convo.StageTerminal,
			Duplicate: true,
			TraceID:   traceID,
		}
		if state.LastOutbound != nil {
			res.Reply = state.LastOutbound.Text
			res.Tool = state.LastOutbound.Tool.Clone()
			res.Degraded = state.LastOutbound.Degraded
			res.Terminal = state.LastOutbound.Terminal
		}
		return res, nil
	}

	state.History = append(state.History, convo.NewHumanMessage(in.MessageID, in.Text, in.Timestamp))
	state.TurnCount++

	facts := p.extractor.Extract(in.Text, state.Facts)
	if conf := p.confirmer.Detect(in.Text, convo.LastAgentText(state.History)); conf.Confirmed {
		facts[convo.FieldBudget] = conf.Amount
		state.BudgetConfirmed = true
	}
	for field, value := range facts {
		if state.Facts[field] != value {
			p.record(metrics.EventFactExtracted, traceID, state, map[string]any{
				"field": string(field),
				"value": redact.Text(value),
			})
		}
	}
	state.Facts = facts

	scored := p.scorer.Score(state.Facts, state.TurnCount, state.LeadScore, state.BudgetConfirmed)
	if scored.Score != state.LeadScore {
		p.record(metrics.EventScoreChanged, traceID, state, map[string]any{
			"from":      state.LeadScore,
			"to":        scored.Score,
			"reasoning": scored.Reasoning,
		})
	}
	state.LeadScore = scored.Score
	state.LeadCategory = scored.Category

	eval := p.tracker.Evaluate(state.History, state.Facts)
	next := stage.Advance(state.Stage, eval.Stage)
	if next != state.Stage {
		p.record(metrics.EventStageChanged, traceID, state, map[string]any{
			"from": state.Stage.String(),
			"to":   next.String(),
		})
	}
	state.Stage = next

	historyBefore := len(state.History)
	reply, band, terminal := p.respond(ctx, &state, eval, traceID)
	state.CurrentAgent = string(band)
	if state.Stage == convo.StageTerminal {
		terminal = true
	}

	if !terminal && reply.Text != "" {
		violations := p.tracker.ValidateReply(reply.Text, eval, state.Facts, state.History[:historyBefore])
		if len(violations) > 0 {
			canonical := eval.AllowedResponse
			if canonical == "" {
				canonical = p.tracker.TerminalResponse()
			}
			p.record(metrics.EventReplyReplaced, traceID, state, map[string]any{
				"violations": violationNames(violations),
			})
			p.logger.Warn("reply_replaced",
				"contact_id", state.ContactID,
				"trace_id", traceID,
				"reason_code", string(errorsx.ReasonStageViolation),
				"violations", violationNames(violations),
			)
			reply.Text = canonical
			reply.Degraded = true
			reply.violations = violations
		}
	}

	p.appendOutcome(&state, reply, terminal, in.Timestamp)

	outboundID := uuid.NewString()
	state.History = append(state.History, convo.NewAgentMessage(outboundID, reply.Text, time.Now()))
	state.LastOutbound = &convo.Outbound{
		MessageID: outboundID,
		Text:      reply.Text,
		Tool:      reply.Tool.Clone(),
		Degraded:  reply.Degraded,
		Terminal:  terminal,
	}
	state.UpdatedAt = time.Now()

	if err := p.store.Save(ctx, in.ContactID, state); err != nil {
		return Result{}, errorsx.Wrap(err, errorsx.ReasonStorageSave)
	}

	if reply.Degraded {
		p.record(metrics.EventReplyDegraded, traceID, state, nil)
	}
	p.record(metrics.EventTurnProcessed, traceID, state, map[string]any{
		"duration_ms": time.Since(started).Milliseconds(),
	})
	p.logger.Info("turn_processed",
		"contact_id", state.ContactID,
		"trace_id", traceID,
		"turn", state.TurnCount,
		"score", state.LeadScore,
		"stage", state.Stage.String(),
		"band", state.CurrentAgent,
		"terminal", terminal,
		"degraded", reply.Degraded,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return Result{
		State:      state,
		Reply:      reply.Text,
		Tool:       reply.Tool.Clone(),
		Band:       band,
		Score:      state.LeadScore,
		Stage:      state.Stage,
		Terminal:   terminal,
		Degraded:   reply.Degraded,
		Violations: reply.violations,
		TraceID:    traceID,
	}, nil
}

type turnReply struct {
	Text       string
	Tool       *convo.ToolRequest
	Degraded   bool
	violations []stage.Violation
}

// respond picks the agent for the current score and runs it, looping through
// supervisor escalations until an agent answers or the bound trips.
func (p *Pipeline) respond(ctx context.Context, state *convo.ConversationState, eval stage.Evaluation, traceID string) (turnReply, router.Band, bool) {
	band := p.supervisor.Route(state.LeadScore)

	for {
		agent, ok := p.agents[band]
		if !ok {
			p.logger.Error("agent_missing", "band", string(band), "trace_id", traceID)
			return turnReply{Text: p.fallbackText(eval), Degraded: true}, band, false
		}

		reply, err := agent.Handle(ctx, agents.Request{State: *state, Eval: eval})
		if err != nil {
			p.logger.Warn("agent_degraded",
				"contact_id", state.ContactID,
				"trace_id", traceID,
				"band", string(band),
				"reason_code", string(errorsx.Reason(err)),
				"error", err,
			)
			return turnReply{Text: p.fallbackText(eval), Degraded: true}, band, false
		}
		if !reply.Escalate {
			return turnReply{Text: reply.Text, Tool: reply.Tool, Degraded: reply.Degraded}, band, false
		}

		p.record(metrics.EventAgentEscalated, traceID, *state, map[string]any{
			"band":   string(band),
			"reason": reply.EscalationReason,
		})
		decision := p.supervisor.HandleEscalation(reply.EscalationReason, state.LeadScore, state)
		if decision.Terminal {
			p.record(metrics.EventEscalationLimit, traceID, *state, nil)
			state.History = append(state.History,
				convo.NewSystemMessage(convo.MarkerHumanHandoff, decision.Reason, time.Now()))
			state.Stage = convo.StageTerminal
			return turnReply{Text: decision.HandoffMessage}, band, true
		}
		band = decision.Band
	}
}

// fallbackText is what goes out when the agent itself failed: the canonical
// allowed response when one exists, a holding message otherwise.
func (p *Pipeline) fallbackText(eval stage.Evaluation) string {
	if eval.AllowedResponse != "" {
		return eval.AllowedResponse
	}
	return p.cfg.DegradedReply
}

// appendOutcome records tool side effects as system markers so the next
// turn's stage evaluation sees them.
func (p *Pipeline) appendOutcome(state *convo.ConversationState, reply turnReply, terminal bool, ts time.Time) {
	if terminal || reply.Tool == nil {
		return
	}
	switch reply.Tool.Name {
	case string(stage.ToolOfferSlots):
		state.History = append(state.History,
			convo.NewSystemMessage(convo.MarkerSlotsOffered, reply.Tool.Args["slots"], ts))
		if state.Stage < convo.StageWaitingForTimeSelection {
			state.Stage = convo.StageWaitingForTimeSelection
		}
	case string(stage.ToolBookSlot):
		state.History = append(state.History,
			convo.NewSystemMessage(convo.MarkerAppointmentBooked, reply.Tool.Args["slot"], ts))
		if state.Stage < convo.StageConfirmingAppointment {
			state.Stage = convo.StageConfirmingAppointment
		}
	}
}

func (p *Pipeline) record(name, traceID string, state convo.ConversationState, fields map[string]any) {
	p.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{
			"contact_id": state.ContactID,
			"trace_id":   traceID,
		},
		Fields: fields,
	})
}

func violationNames(in []stage.Violation) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
