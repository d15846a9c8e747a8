package stage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/palinopr/leadflow/pkg/convo"
)

// ToolSentinel instructs the agent to invoke an external collaborator instead
// of asking another question.
type ToolSentinel string

const (
	ToolNone       ToolSentinel = ""
	ToolOfferSlots ToolSentinel = "offer_slots"
	ToolBookSlot   ToolSentinel = "book_slot"
)

// Evaluation is the tracker's verdict for one turn: where the conversation
// is, what must be collected next, and the single response the agent is
// allowed to give (or the tool it must call).
type Evaluation struct {
	Stage             convo.Stage
	NextRequiredField convo.Field
	AllowedResponse   string
	Tool              ToolSentinel
	SelectedSlot      string
	OfferedSlots      []string
}

// Config carries the canonical response templates. Offer and confirmation
// templates take one %s verb slot.
type Config struct {
	Greeting         string
	FieldQuestions   map[convo.Field]string
	OfferTemplate    string
	ReofferTemplate  string
	ConfirmTemplate  string
	TerminalResponse string
}

func DefaultConfig() Config {
	return Config{
		Greeting: "¡Hola! Gracias por escribirnos.",
		FieldQuestions: map[convo.Field]string{
			convo.FieldName:         "¿Cómo te llamas?",
			convo.FieldBusinessType: "¿Qué tipo de negocio tienes?",
			convo.FieldGoal:         "¿Cuál es tu meta principal o qué problema quieres resolver?",
			convo.FieldBudget:       "¿Qué presupuesto mensual tienes en mente?",
			convo.FieldEmail:        "¿Cuál es tu correo electrónico para enviarte los detalles?",
		},
		OfferTemplate:    "Tengo estos horarios disponibles: %s. ¿Cuál te funciona mejor?",
		ReofferTemplate:  "Los horarios que te compartí son: %s. ¿Cuál te funciona mejor?",
		ConfirmTemplate:  "¡Listo! Tu cita quedó agendada para %s. Te llegará la confirmación a tu correo.",
		TerminalResponse: "Gracias por tu tiempo. Un miembro del equipo te contactará pronto.",
	}
}

// Tracker is the conversation stage state machine. It derives the stage from
// the accumulated facts and history markers alone, so replaying the same
// inputs always lands on the same stage.
type Tracker struct {
	cfg Config
}

func New(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.Greeting == "" {
		cfg.Greeting = def.Greeting
	}
	if len(cfg.FieldQuestions) == 0 {
		cfg.FieldQuestions = def.FieldQuestions
	}
	if cfg.OfferTemplate == "" {
		cfg.OfferTemplate = def.OfferTemplate
	}
	if cfg.ReofferTemplate == "" {
		cfg.ReofferTemplate = def.ReofferTemplate
	}
	if cfg.ConfirmTemplate == "" {
		cfg.ConfirmTemplate = def.ConfirmTemplate
	}
	if cfg.TerminalResponse == "" {
		cfg.TerminalResponse = def.TerminalResponse
	}
	return &Tracker{cfg: cfg}
}

// CanTransition reports whether moving from one stage to another is legal.
// The sequence is strictly forward: satisfied stages are skipped, never
// revisited, and TERMINAL absorbs everything.
func CanTransition(from, to convo.Stage) bool {
	if from == convo.StageTerminal {
		return to == convo.StageTerminal
	}
	return to >= from
}

// Advance applies the non-regression rule: the stored stage is a floor under
// the computed one.
func Advance(stored, computed convo.Stage) convo.Stage {
	if !CanTransition(stored, computed) {
		return stored
	}
	return computed
}

// Evaluate computes the current stage and the single allowed action. When it
// cannot classify the message, it re-requests the earliest unanswered field
// rather than guessing.
func (t *Tracker) Evaluate(history []convo.Message, facts convo.FactMap) Evaluation {
	if convo.HasSystemMarker(history, convo.MarkerHumanHandoff) {
		return Evaluation{Stage: convo.StageTerminal, AllowedResponse: t.cfg.TerminalResponse}
	}

	greeted := false
	for _, m := range history {
		if m.Role == convo.RoleAgent {
			greeted = true
			break
		}
	}

	if missing, ok := earliestMissing(facts); ok {
		if !greeted {
			return Evaluation{
				Stage:             convo.StageGreeting,
				NextRequiredField: missing,
				AllowedResponse:   t.cfg.Greeting + " " + t.cfg.FieldQuestions[missing],
			}
		}
		return Evaluation{
			Stage:             stageForField(missing),
			NextRequiredField: missing,
			AllowedResponse:   t.cfg.FieldQuestions[missing],
		}
	}

	// All qualification facts are present: appointment flow.
	if bookedAt := markerIndex(history, convo.MarkerAppointmentBooked); bookedAt >= 0 {
		slot, _ := convo.SystemMarkerText(history, convo.MarkerAppointmentBooked)
		if lastAgentIndex(history) > bookedAt {
			// Confirmation already went out.
			return Evaluation{Stage: convo.StageTerminal, AllowedResponse: t.cfg.TerminalResponse}
		}
		return Evaluation{
			Stage:           convo.StageConfirmingAppointment,
			AllowedResponse: t.FormatConfirmation(slot),
		}
	}

	if offerText, ok := convo.SystemMarkerText(history, convo.MarkerSlotsOffered); ok {
		slots := SplitSlots(offerText)
		if slot, selected := parseSlotSelection(convo.LastHumanText(history), slots); selected {
			return Evaluation{
				Stage:        convo.StageWaitingForTimeSelection,
				Tool:         ToolBookSlot,
				SelectedSlot: slot,
				OfferedSlots: slots,
			}
		}
		return Evaluation{
			Stage:           convo.StageWaitingForTimeSelection,
			AllowedResponse: fmt.Sprintf(t.cfg.ReofferTemplate, strings.Join(slots, ", ")),
			OfferedSlots:    slots,
		}
	}

	return Evaluation{Stage: convo.StageOfferingTimes, Tool: ToolOfferSlots}
}

// FormatOffer renders the canonical slot offer for freshly fetched slots.
func (t *Tracker) FormatOffer(slots []string) string {
	return fmt.Sprintf(t.cfg.OfferTemplate, strings.Join(slots, ", "))
}

// FormatConfirmation renders the canonical booking confirmation.
func (t *Tracker) FormatConfirmation(slot string) string {
	return fmt.Sprintf(t.cfg.ConfirmTemplate, slot)
}

// TerminalResponse is the canonical goodbye for finished conversations.
func (t *Tracker) TerminalResponse() string {
	return t.cfg.TerminalResponse
}

// JoinSlots encodes offered slots into the history marker text.
func JoinSlots(slots []string) string {
	return strings.Join(slots, " | ")
}

// SplitSlots decodes the history marker text back into slot labels.
func SplitSlots(text string) []string {
	var out []string
	for _, s := range strings.Split(text, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func earliestMissing(facts convo.FactMap) (convo.Field, bool) {
	for _, f := range convo.QualificationOrder {
		if !facts.Has(f) {
			return f, true
		}
	}
	return "", false
}

func stageForField(f convo.Field) convo.Stage {
	switch f {
	case convo.FieldName:
		return convo.StageWaitingForName
	case convo.FieldBusinessType:
		return convo.StageWaitingForBusiness
	case convo.FieldGoal:
		return convo.StageWaitingForProblem
	case convo.FieldBudget:
		return convo.StageWaitingForBudget
	case convo.FieldEmail:
		return convo.StageWaitingForEmail
	default:
		return convo.StageGreeting
	}
}

func markerIndex(history []convo.Message, name string) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == convo.RoleSystem && history[i].ID == name {
			return i
		}
	}
	return -1
}

func lastAgentIndex(history []convo.Message) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == convo.RoleAgent {
			return i
		}
	}
	return -1
}

var (
	slotTimeRe = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm|hrs?)\b|\b\d{1,2}:\d{2}\b`)
	ordinalRe  = regexp.MustCompile(`(?i)\b(?:opci[oó]n|option)\s*(\d)\b`)
)

var ordinalWords = map[string]int{
	"primera": 0, "primero": 0, "first": 0,
	"segunda": 1, "segundo": 1, "second": 1,
	"tercera": 2, "tercero": 2, "third": 2,
}

// parseSlotSelection matches the message against the offered slots, either by
// a time of day or by an ordinal reference.
func parseSlotSelection(message string, slots []string) (string, bool) {
	if message == "" || len(slots) == 0 {
		return "", false
	}
	lower := strings.ToLower(message)

	if m := slotTimeRe.FindString(lower); m != "" {
		want := normalizeClock(m)
		for _, slot := range slots {
			if sm := slotTimeRe.FindString(strings.ToLower(slot)); sm != "" && normalizeClock(sm) == want {
				return slot, true
			}
		}
	}

	if m := ordinalRe.FindStringSubmatch(lower); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil && idx >= 1 && idx <= len(slots) {
			return slots[idx-1], true
		}
	}
	for word, idx := range ordinalWords {
		if strings.Contains(lower, word) && idx < len(slots) {
			return slots[idx], true
		}
	}
	return "", false
}

// normalizeClock makes "10 am", "10:00 AM" and "10:00am" compare equal.
func normalizeClock(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "hrs")
	s = strings.TrimSuffix(s, "hr")
	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSuffix(s, suffix)
			break
		}
	}
	if !strings.Contains(s, ":") {
		s += ":00"
	}
	return s + meridiem
}
