package stage

import (
	"strings"
	"testing"
	"time"

	"github.com/palinopr/leadflow/pkg/convo"
)

func fullFacts() convo.FactMap {
	return convo.FactMap{
		convo.FieldName:         "Carlos",
		convo.FieldBusinessType: "restaurante",
		convo.FieldGoal:         "mas clientes",
		convo.FieldBudget:       "500",
		convo.FieldEmail:        "carlos@test.com",
	}
}

func human(id, text string) convo.Message {
	return convo.NewHumanMessage(id, text, time.Now())
}

func agent(text string) convo.Message {
	return convo.NewAgentMessage("a1", text, time.Now())
}

func TestFirstTurnGreetsAndAsksName(t *testing.T) {
	tr := New(Config{})
	eval := tr.Evaluate([]convo.Message{human("m1", "hola")}, convo.FactMap{})
	if eval.Stage != convo.StageGreeting {
		t.Fatalf("expected greeting stage, got %s", eval.Stage)
	}
	if eval.NextRequiredField != convo.FieldName {
		t.Fatalf("expected name next, got %s", eval.NextRequiredField)
	}
	if !strings.Contains(eval.AllowedResponse, "¿Cómo te llamas?") {
		t.Fatalf("expected name question, got %q", eval.AllowedResponse)
	}
}

func TestSatisfiedFieldsAreSkipped(t *testing.T) {
	tr := New(Config{})
	history := []convo.Message{
		human("m1", "soy Carlos y tengo un restaurante"),
		agent("¡Hola Carlos!"),
	}
	facts := convo.FactMap{
		convo.FieldName:         "Carlos",
		convo.FieldBusinessType: "restaurante",
	}
	eval := tr.Evaluate(history, facts)
	if eval.Stage != convo.StageWaitingForProblem {
		t.Fatalf("expected problem stage, got %s", eval.Stage)
	}
	if eval.NextRequiredField != convo.FieldGoal {
		t.Fatalf("expected goal next, got %s", eval.NextRequiredField)
	}
}

func TestAllFactsTriggerSlotOffer(t *testing.T) {
	tr := New(Config{})
	history := []convo.Message{human("m1", "carlos@test.com"), agent("ok")}
	eval := tr.Evaluate(history, fullFacts())
	if eval.Tool != ToolOfferSlots {
		t.Fatalf("expected offer_slots tool, got %q", eval.Tool)
	}
	if eval.Stage != convo.StageOfferingTimes {
		t.Fatalf("expected offering stage, got %s", eval.Stage)
	}
}

func TestSlotSelectionByOrdinal(t *testing.T) {
	tr := New(Config{})
	slots := []string{"Lunes 10:00 AM", "Martes 2:00 PM"}
	history := []convo.Message{
		agent("ofrezco horarios"),
		convo.NewSystemMessage(convo.MarkerSlotsOffered, JoinSlots(slots), time.Now()),
		human("m2", "la segunda por favor"),
	}
	eval := tr.Evaluate(history, fullFacts())
	if eval.Tool != ToolBookSlot {
		t.Fatalf("expected book_slot tool, got %q", eval.Tool)
	}
	if eval.SelectedSlot != "Martes 2:00 PM" {
		t.Fatalf("expected second slot, got %q", eval.SelectedSlot)
	}
}

func TestSlotSelectionByTime(t *testing.T) {
	tr := New(Config{})
	slots := []string{"Lunes 10:00 AM", "Martes 2:00 PM"}
	history := []convo.Message{
		convo.NewSystemMessage(convo.MarkerSlotsOffered, JoinSlots(slots), time.Now()),
		human("m2", "el de las 10 am"),
	}
	eval := tr.Evaluate(history, fullFacts())
	if eval.Tool != ToolBookSlot || eval.SelectedSlot != "Lunes 10:00 AM" {
		t.Fatalf("expected first slot, got %+v", eval)
	}
}

func TestUnrecognizedSelectionReoffers(t *testing.T) {
	tr := New(Config{})
	slots := []string{"Lunes 10:00 AM", "Martes 2:00 PM"}
	history := []convo.Message{
		convo.NewSystemMessage(convo.MarkerSlotsOffered, JoinSlots(slots), time.Now()),
		human("m2", "mmm no se"),
	}
	eval := tr.Evaluate(history, fullFacts())
	if eval.Tool != ToolNone {
		t.Fatalf("expected no tool, got %q", eval.Tool)
	}
	if !strings.Contains(eval.AllowedResponse, "Lunes 10:00 AM") {
		t.Fatalf("reoffer missing slots: %q", eval.AllowedResponse)
	}
}

func TestBookedMarkerLeadsToConfirmationThenTerminal(t *testing.T) {
	tr := New(Config{})
	history := []convo.Message{
		convo.NewSystemMessage(convo.MarkerAppointmentBooked, "Lunes 10:00 AM", time.Now()),
	}
	eval := tr.Evaluate(history, fullFacts())
	if eval.Stage != convo.StageConfirmingAppointment {
		t.Fatalf("expected confirming, got %s", eval.Stage)
	}
	if !strings.Contains(eval.AllowedResponse, "Lunes 10:00 AM") {
		t.Fatalf("confirmation missing slot: %q", eval.AllowedResponse)
	}

	history = append(history, agent("¡Listo! Tu cita quedó agendada."))
	eval = tr.Evaluate(history, fullFacts())
	if eval.Stage != convo.StageTerminal {
		t.Fatalf("expected terminal after confirmation, got %s", eval.Stage)
	}
}

func TestHandoffMarkerIsTerminal(t *testing.T) {
	tr := New(Config{})
	history := []convo.Message{
		convo.NewSystemMessage(convo.MarkerHumanHandoff, "escalation_limit_exceeded", time.Now()),
		human("m9", "hola?"),
	}
	eval := tr.Evaluate(history, convo.FactMap{})
	if eval.Stage != convo.StageTerminal {
		t.Fatalf("expected terminal, got %s", eval.Stage)
	}
}

func TestAdvanceNeverRegresses(t *testing.T) {
	if got := Advance(convo.StageWaitingForBudget, convo.StageWaitingForName); got != convo.StageWaitingForBudget {
		t.Fatalf("stage regressed to %s", got)
	}
	if got := Advance(convo.StageTerminal, convo.StageGreeting); got != convo.StageTerminal {
		t.Fatalf("terminal not absorbing: %s", got)
	}
	if got := Advance(convo.StageGreeting, convo.StageWaitingForEmail); got != convo.StageWaitingForEmail {
		t.Fatalf("forward move blocked: %s", got)
	}
}
