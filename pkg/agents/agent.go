package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/palinopr/leadflow/pkg/adapters/booking"
	"github.com/palinopr/leadflow/pkg/convo"
	"github.com/palinopr/leadflow/pkg/errorsx"
	"github.com/palinopr/leadflow/pkg/llm"
	"github.com/palinopr/leadflow/pkg/router"
	"github.com/palinopr/leadflow/pkg/stage"
)

// Request is everything an agent needs to act on one turn.
type Request struct {
	State convo.ConversationState
	Eval  stage.Evaluation
}

// Reply is the agent's output. Escalate means the agent refuses the turn and
// hands control back to the supervisor; nothing else in the reply is set.
type Reply struct {
	Text             string
	Tool             *convo.ToolRequest
	Degraded         bool
	Escalate         bool
	EscalationReason string
}

// Config tunes one band agent.
type Config struct {
	Band       router.Band
	MinScore   int
	MaxScore   int
	Persona    string
	LLMTimeout time.Duration
	MaxSlots   int
}

// Agent handles leads whose score falls inside its band. It never decides
// routing itself: an out-of-band score is escalated back to the supervisor.
type Agent struct {
	cfg     Config
	adapter llm.LLMAdapter
	booking booking.Client
	tracker *stage.Tracker
	logger  *slog.Logger
}

func New(cfg Config, adapter llm.LLMAdapter, bookingClient booking.Client, tracker *stage.Tracker, logger *slog.Logger) *Agent {
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 5 * time.Second
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{cfg: cfg, adapter: adapter, booking: bookingClient, tracker: tracker, logger: logger}
}

func (a *Agent) Band() router.Band { return a.cfg.Band }

// Accepts reports whether a score belongs to this agent's band.
func (a *Agent) Accepts(score int) bool {
	return score >= a.cfg.MinScore && score <= a.cfg.MaxScore
}

// Handle produces the reply for one turn.
func (a *Agent) Handle(ctx context.Context, req Request) (Reply, error) {
	if !a.Accepts(req.State.LeadScore) {
		return Reply{
			Escalate:         true,
			EscalationReason: fmt.Sprintf("score %d outside band %s", req.State.LeadScore, a.cfg.Band),
		}, nil
	}

	switch req.Eval.Tool {
	case stage.ToolOfferSlots:
		return a.offerSlots(ctx, req)
	case stage.ToolBookSlot:
		return a.bookSlot(ctx, req)
	}

	return a.renderReply(ctx, req)
}

func (a *Agent) offerSlots(ctx context.Context, req Request) (Reply, error) {
	slots, err := a.booking.CheckAvailability(ctx, a.cfg.MaxSlots)
	if err != nil || len(slots) == 0 {
		if err == nil {
			err = fmt.Errorf("no slots available")
		}
		return Reply{}, errorsx.Wrap(err, errorsx.ReasonBookingAvailability)
	}
	return Reply{
		Text: a.tracker.FormatOffer(slots),
		Tool: &convo.ToolRequest{
			Name: string(stage.ToolOfferSlots),
			Args: map[string]string{"slots": stage.JoinSlots(slots)},
		},
	}, nil
}

// bookSlot makes exactly one booking call per selected slot.
func (a *Agent) bookSlot(ctx context.Context, req Request) (Reply, error) {
	conf, err := a.booking.Book(ctx, req.Eval.SelectedSlot, req.State.ContactID)
	if err != nil {
		return Reply{}, errorsx.Wrap(err, errorsx.ReasonBookingCreate)
	}
	a.logger.Info("appointment_booked",
		"contact_id", req.State.ContactID,
		"booking_id", conf.BookingID,
		"slot", conf.Slot,
	)
	return Reply{
		Text: a.tracker.FormatConfirmation(conf.Slot),
		Tool: &convo.ToolRequest{
			Name: string(stage.ToolBookSlot),
			Args: map[string]string{"slot": conf.Slot, "booking_id": conf.BookingID},
		},
	}, nil
}

// renderReply asks the model to phrase the one allowed response in the band's
// voice. Any model failure falls back to the canonical response verbatim, so
// the lead always gets an answer.
func (a *Agent) renderReply(ctx context.Context, req Request) (Reply, error) {
	canonical := req.Eval.AllowedResponse
	if canonical == "" {
		canonical = a.tracker.TerminalResponse()
	}
	if a.adapter == nil {
		return Reply{Text: canonical}, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, a.cfg.LLMTimeout)
	defer cancel()

	resp, err := a.adapter.Generate(genCtx, a.buildContext(req, canonical))
	if err != nil {
		a.logger.Warn("llm_fallback",
			"contact_id", req.State.ContactID,
			"band", string(a.cfg.Band),
			"reason_code", string(errorsx.ReasonLLMGenerate),
			"error", err,
		)
		return Reply{Text: canonical, Degraded: true}, nil
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Reply{Text: canonical, Degraded: true}, nil
	}
	return Reply{Text: text}, nil
}

func (a *Agent) buildContext(req Request, canonical string) llm.Context {
	var sb strings.Builder
	sb.WriteString(a.cfg.Persona)
	sb.WriteString("\nRephrase the following message naturally, in the lead's language. ")
	sb.WriteString("Do not greet again, do not ask for anything else, keep it to one short message.\n")
	sb.WriteString("Message: ")
	sb.WriteString(canonical)

	msgs := []map[string]any{llm.SystemMessage(sb.String())}
	for _, m := range req.State.RecentHistory(6) {
		switch m.Role {
		case convo.RoleHuman:
			msgs = append(msgs, llm.UserMessage(m.Text))
		case convo.RoleAgent:
			msgs = append(msgs, llm.AssistantMessage(m.Text))
		}
	}
	return llm.Context{Messages: msgs}
}
