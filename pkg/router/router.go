package router

import (
	"log/slog"

	"github.com/palinopr/leadflow/pkg/convo"
)

// Band identifies one of the three specialist agents.
type Band string

const (
	BandCold Band = "cold"
	BandWarm Band = "warm"
	BandHot  Band = "hot"
)

// Policy is the single place escalation bounds and band boundaries live.
// Agents never hand off to each other directly; every hand-off passes through
// the supervisor, which is what keeps agent-to-agent cycles impossible.
type Policy struct {
	ColdMax        int
	WarmMax        int
	MaxEscalations int
	HandoffMessage string
}

func DefaultPolicy() Policy {
	return Policy{
		ColdMax:        4,
		WarmMax:        7,
		MaxEscalations: 2,
		HandoffMessage: "Gracias por la información. Un miembro de nuestro equipo te contactará en breve para continuar.",
	}
}

// Decision is the supervisor's verdict for a routing or escalation request.
type Decision struct {
	Band           Band
	Terminal       bool
	HandoffMessage string
	Reason         string
}

// Supervisor owns the score→band mapping and the bounded escalation policy.
type Supervisor struct {
	policy Policy
}

func New(policy Policy) *Supervisor {
	def := DefaultPolicy()
	if policy.ColdMax <= 0 || policy.WarmMax <= policy.ColdMax {
		policy.ColdMax = def.ColdMax
		policy.WarmMax = def.WarmMax
	}
	if policy.MaxEscalations <= 0 {
		policy.MaxEscalations = def.MaxEscalations
	}
	if policy.HandoffMessage == "" {
		policy.HandoffMessage = def.HandoffMessage
	}
	return &Supervisor{policy: policy}
}

// Route maps a score to its agent band.
func (s *Supervisor) Route(score int) Band {
	switch {
	case score <= s.policy.ColdMax:
		return BandCold
	case score <= s.policy.WarmMax:
		return BandWarm
	default:
		return BandHot
	}
}

// MaxEscalations exposes the configured bound.
func (s *Supervisor) MaxEscalations() int {
	return s.policy.MaxEscalations
}

// Policy exposes the normalized policy in effect.
func (s *Supervisor) Policy() Policy {
	return s.policy
}

// HandleEscalation re-routes an agent's escalation with the updated score and
// enforces the escalation bound. Once the bound is exceeded the decision is
// terminal: a generic human-handoff reply, never another agent. This is what
// guarantees the pipeline halts in bounded steps.
func (s *Supervisor) HandleEscalation(reason string, score int, state *convo.ConversationState) Decision {
	state.EscalationCount++
	if state.EscalationCount > s.policy.MaxEscalations {
		slog.Warn("escalation_limit",
			"contact_id", state.ContactID,
			"escalations", state.EscalationCount,
			"reason", reason,
		)
		return Decision{
			Terminal:       true,
			HandoffMessage: s.policy.HandoffMessage,
			Reason:         "escalation_limit_exceeded",
		}
	}
	band := s.Route(score)
	slog.Info("escalation_rerouted",
		"contact_id", state.ContactID,
		"band", string(band),
		"score", score,
		"escalations", state.EscalationCount,
		"reason", reason,
	)
	return Decision{Band: band, Reason: reason}
}
