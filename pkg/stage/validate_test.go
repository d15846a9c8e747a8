package stage

import (
	"testing"

	"github.com/palinopr/leadflow/pkg/convo"
)

func hasViolation(list []Violation, v Violation) bool {
	for _, got := range list {
		if got == v {
			return true
		}
	}
	return false
}

func TestRepeatedGreetingFlagged(t *testing.T) {
	tr := New(Config{})
	history := []convo.Message{
		human("m1", "hola"),
		agent("¡Hola! ¿Cómo te llamas?"),
		human("m2", "soy Carlos"),
	}
	eval := Evaluation{Stage: convo.StageWaitingForBusiness, NextRequiredField: convo.FieldBusinessType}
	facts := convo.FactMap{convo.FieldName: "Carlos"}

	got := tr.ValidateReply("¡Hola! ¿Qué tipo de negocio tienes?", eval, facts, history)
	if !hasViolation(got, ViolationRepeatedGreeting) {
		t.Fatalf("expected repeated_greeting, got %v", got)
	}
}

func TestReaskingKnownFieldFlagged(t *testing.T) {
	tr := New(Config{})
	eval := Evaluation{Stage: convo.StageWaitingForBusiness, NextRequiredField: convo.FieldBusinessType}
	facts := convo.FactMap{convo.FieldName: "Carlos"}
	history := []convo.Message{agent("¿Cómo te llamas?")}

	got := tr.ValidateReply("Perfecto, ¿me recuerdas tu nombre?", eval, facts, history)
	if !hasViolation(got, ViolationReaskedKnownField) {
		t.Fatalf("expected reasked_known_field, got %v", got)
	}
}

func TestOutOfOrderQuestionFlagged(t *testing.T) {
	tr := New(Config{})
	eval := Evaluation{Stage: convo.StageWaitingForBusiness, NextRequiredField: convo.FieldBusinessType}
	facts := convo.FactMap{convo.FieldName: "Carlos"}
	history := []convo.Message{agent("¿Cómo te llamas?")}

	got := tr.ValidateReply("¿Qué presupuesto tienes en mente?", eval, facts, history)
	if !hasViolation(got, ViolationOutOfOrderQuestion) {
		t.Fatalf("expected out_of_order_question, got %v", got)
	}
}

func TestQuestionDuringBookingFlagged(t *testing.T) {
	tr := New(Config{})
	eval := Evaluation{Stage: convo.StageWaitingForTimeSelection, Tool: ToolBookSlot, SelectedSlot: "Lunes 10:00 AM"}
	history := []convo.Message{agent("horarios...")}

	got := tr.ValidateReply("¿Seguro que te parece bien?", eval, fullFacts(), history)
	if !hasViolation(got, ViolationUnauthorizedQuestion) {
		t.Fatalf("expected unauthorized_question, got %v", got)
	}
}

func TestCanonicalReplyPasses(t *testing.T) {
	tr := New(Config{})
	eval := Evaluation{Stage: convo.StageWaitingForBusiness, NextRequiredField: convo.FieldBusinessType}
	facts := convo.FactMap{convo.FieldName: "Carlos"}
	history := []convo.Message{agent("¿Cómo te llamas?"), human("m2", "soy Carlos")}

	got := tr.ValidateReply("¿Qué tipo de negocio tienes?", eval, facts, history)
	if len(got) != 0 {
		t.Fatalf("canonical reply flagged: %v", got)
	}
}
