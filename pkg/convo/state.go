package convo

import "time"

// Field names the structured facts the extractor can populate.
type Field string

const (
	FieldName         Field = "name"
	FieldBusinessType Field = "business_type"
	FieldGoal         Field = "goal"
	FieldBudget       Field = "budget"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
)

// QualificationOrder is the fixed order in which facts gate the stage
// sequence. Phone is collected opportunistically and never gates a stage.
var QualificationOrder = []Field{
	FieldName,
	FieldBusinessType,
	FieldGoal,
	FieldBudget,
	FieldEmail,
}

// FactMap holds validated extraction results keyed by field.
type FactMap map[Field]string

func (f FactMap) Has(field Field) bool {
	return f[field] != ""
}

func (f FactMap) Clone() FactMap {
	out := make(FactMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Category is the lead temperature band derived from the score.
type Category string

const (
	CategoryCold Category = "cold"
	CategoryWarm Category = "warm"
	CategoryHot  Category = "hot"
)

// Stage is one point in the fixed conversational sequence.
type Stage int

const (
	StageGreeting Stage = iota
	StageWaitingForName
	StageWaitingForBusiness
	StageWaitingForProblem
	StageWaitingForBudget
	StageWaitingForEmail
	StageOfferingTimes
	StageWaitingForTimeSelection
	StageConfirmingAppointment
	StageTerminal
)

func (s Stage) String() string {
	switch s {
	case StageGreeting:
		return "GREETING"
	case StageWaitingForName:
		return "WAITING_FOR_NAME"
	case StageWaitingForBusiness:
		return "WAITING_FOR_BUSINESS"
	case StageWaitingForProblem:
		return "WAITING_FOR_PROBLEM"
	case StageWaitingForBudget:
		return "WAITING_FOR_BUDGET"
	case StageWaitingForEmail:
		return "WAITING_FOR_EMAIL"
	case StageOfferingTimes:
		return "OFFERING_APPOINTMENT_TIMES"
	case StageWaitingForTimeSelection:
		return "WAITING_FOR_TIME_SELECTION"
	case StageConfirmingAppointment:
		return "CONFIRMING_APPOINTMENT"
	case StageTerminal:
		return "TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// ToolRequest is a structured external tool invocation emitted instead of a
// text reply.
type ToolRequest struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

func (t *ToolRequest) Clone() *ToolRequest {
	if t == nil {
		return nil
	}
	out := &ToolRequest{Name: t.Name}
	if t.Args != nil {
		out.Args = make(map[string]string, len(t.Args))
		for k, v := range t.Args {
			out.Args[k] = v
		}
	}
	return out
}

// Outbound records what the pipeline emitted for a processed message, kept on
// the state so a redelivered message can replay the same output.
type Outbound struct {
	MessageID string       `json:"message_id"`
	Text      string       `json:"text,omitempty"`
	Tool      *ToolRequest `json:"tool,omitempty"`
	Degraded  bool         `json:"degraded,omitempty"`
	Terminal  bool         `json:"terminal,omitempty"`
}

// ConversationState is the full accumulated state for one contact. It is
// loaded fresh from durable storage at the start of every turn and mutated
// exactly once per turn by the pipeline; nothing is trusted in process memory
// between turns.
type ConversationState struct {
	ContactID       string    `json:"contact_id"`
	Facts           FactMap   `json:"facts"`
	LeadScore       int       `json:"lead_score"`
	LeadCategory    Category  `json:"lead_category"`
	Stage           Stage     `json:"stage"`
	CurrentAgent    string    `json:"current_agent"`
	EscalationCount int       `json:"escalation_count"`
	TurnCount       int       `json:"turn_count"`
	History         []Message `json:"message_history"`
	BudgetConfirmed bool      `json:"budget_confirmed"`
	LastOutbound    *Outbound `json:"last_outbound,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewState creates the state for a previously-unseen contact.
func NewState(contactID string) ConversationState {
	return ConversationState{
		ContactID:    contactID,
		Facts:        FactMap{},
		LeadScore:    1,
		LeadCategory: CategoryCold,
		Stage:        StageGreeting,
	}
}

// Clone deep-copies the state so callers can mutate without aliasing.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Facts = s.Facts.Clone()
	out.History = append([]Message(nil), s.History...)
	if s.LastOutbound != nil {
		lo := *s.LastOutbound
		lo.Tool = s.LastOutbound.Tool.Clone()
		out.LastOutbound = &lo
	}
	return out
}

// SeenMessage reports whether a human message with the given ID was already
// applied to this conversation.
func (s ConversationState) SeenMessage(id string) bool {
	if id == "" {
		return false
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleHuman && s.History[i].ID == id {
			return true
		}
	}
	return false
}

// RecentHistory returns the last n entries of the history.
func (s ConversationState) RecentHistory(n int) []Message {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
