package stage

import (
	"regexp"
	"strings"

	"github.com/palinopr/leadflow/pkg/convo"
)

// Violation flags a forbidden pattern in a candidate reply. Any violation
// means the reply is discarded and replaced by the canonical allowed
// response; violations are never surfaced to the lead.
type Violation string

const (
	ViolationRepeatedGreeting     Violation = "repeated_greeting"
	ViolationReaskedKnownField    Violation = "reasked_known_field"
	ViolationOutOfOrderQuestion   Violation = "out_of_order_question"
	ViolationUnauthorizedQuestion Violation = "unauthorized_question"
)

var greetingRe = regexp.MustCompile(`(?i)\b(?:hola|buenos d[ií]as|buenas tardes|buenas noches|bienvenid[oa]|hello|hi there|hey)\b`)

// fieldAskPatterns recognize a reply asking for a given fact, in either
// language and common phrasings.
var fieldAskPatterns = map[convo.Field]*regexp.Regexp{
	convo.FieldName:         regexp.MustCompile(`(?i)c[oó]mo te llamas|tu nombre|your name|who am i (?:speaking|chatting) with`),
	convo.FieldBusinessType: regexp.MustCompile(`(?i)tipo de negocio|qu[eé] negocio|a qu[eé] te dedicas|what (?:kind|type) of business`),
	convo.FieldGoal:         regexp.MustCompile(`(?i)tu meta|tu objetivo|qu[eé] problema|what(?:'s| is) your (?:goal|main)`),
	convo.FieldBudget:       regexp.MustCompile(`(?i)presupuesto|cu[aá]nto (?:puedes|quieres) invertir|budget`),
	convo.FieldEmail:        regexp.MustCompile(`(?i)correo|email|e-mail`),
}

var fieldAskOrder = []convo.Field{
	convo.FieldName,
	convo.FieldBusinessType,
	convo.FieldGoal,
	convo.FieldBudget,
	convo.FieldEmail,
}

// ValidateReply flags every forbidden pattern in a candidate reply given the
// current evaluation and accumulated facts.
func (t *Tracker) ValidateReply(candidate string, eval Evaluation, facts convo.FactMap, history []convo.Message) []Violation {
	var out []Violation
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return out
	}

	greeted := false
	for _, m := range history {
		if m.Role == convo.RoleAgent {
			greeted = true
			break
		}
	}
	if greeted && eval.Stage > convo.StageGreeting && greetingRe.MatchString(candidate) {
		out = append(out, ViolationRepeatedGreeting)
	}

	asksQuestion := strings.Contains(candidate, "?") || strings.Contains(candidate, "¿")

	// A statement mentioning a field ("te llegará la confirmación a tu
	// correo") is fine; only questions re-open a field.
	if asksQuestion {
		for _, field := range fieldAskOrder {
			re := fieldAskPatterns[field]
			if re == nil || !re.MatchString(candidate) {
				continue
			}
			switch {
			case facts.Has(field):
				out = append(out, ViolationReaskedKnownField)
			case eval.Tool != ToolNone || eval.Stage >= convo.StageOfferingTimes:
				out = append(out, ViolationUnauthorizedQuestion)
			case field != eval.NextRequiredField:
				out = append(out, ViolationOutOfOrderQuestion)
			}
		}
	}

	// A tool turn or a terminal conversation admits no new questions at all.
	if asksQuestion && (eval.Tool == ToolBookSlot || eval.Stage == convo.StageTerminal) {
		out = append(out, ViolationUnauthorizedQuestion)
	}

	return dedupeViolations(out)
}

func dedupeViolations(in []Violation) []Violation {
	if len(in) < 2 {
		return in
	}
	seen := make(map[Violation]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
