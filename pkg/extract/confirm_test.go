package extract

import "testing"

func TestConfirmationRequiresProposalAndAffirmative(t *testing.T) {
	d := NewConfirmationDetector(nil)

	agent := "¿Te funciona un presupuesto de $500 al mes?"
	got := d.Detect("si claro", agent)
	if !got.Confirmed || got.Amount != "500" {
		t.Fatalf("expected confirmation of 500, got %+v", got)
	}
}

func TestAffirmativeAloneDoesNotConfirm(t *testing.T) {
	d := NewConfirmationDetector(nil)
	got := d.Detect("si", "¿Cuál es tu meta principal?")
	if got.Confirmed {
		t.Fatalf("affirmative without a proposed amount confirmed: %+v", got)
	}
}

func TestNegationBlocksConfirmation(t *testing.T) {
	d := NewConfirmationDetector(nil)
	agent := "¿Te funciona un presupuesto de $500 al mes?"
	got := d.Detect("no, si acaso menos", agent)
	if got.Confirmed {
		t.Fatalf("negated reply confirmed: %+v", got)
	}
}

func TestConfirmationNormalizesThousands(t *testing.T) {
	d := NewConfirmationDetector(nil)
	agent := "Entonces quedamos en 2 mil pesos mensuales, ¿de acuerdo?"
	got := d.Detect("de acuerdo", agent)
	if !got.Confirmed || got.Amount != "2000" {
		t.Fatalf("expected confirmation of 2000, got %+v", got)
	}
}
