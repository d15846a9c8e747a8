package extract

import (
	"testing"

	"github.com/palinopr/leadflow/pkg/convo"
)

func TestExtractNameAndBusiness(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("Hola, soy Carlos y tengo un restaurante", nil)
	if got := facts[convo.FieldName]; got != "Carlos" {
		t.Fatalf("expected name Carlos, got %q", got)
	}
	if got := facts[convo.FieldBusinessType]; got != "restaurante" {
		t.Fatalf("expected business restaurante, got %q", got)
	}
}

func TestGenericBusinessRejected(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("tengo un negocio", nil)
	if got := facts[convo.FieldBusinessType]; got != "" {
		t.Fatalf("generic term accepted as business type: %q", got)
	}
}

func TestSingleWordBusinessAnswer(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("taqueria", nil)
	if got := facts[convo.FieldBusinessType]; got != "taqueria" {
		t.Fatalf("expected taqueria, got %q", got)
	}
}

func TestFuzzyBusinessTypo(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("resturante", nil)
	if got := facts[convo.FieldBusinessType]; got != "restaurante" {
		t.Fatalf("expected fuzzy match restaurante, got %q", got)
	}
}

func TestFuzzyBelowThresholdRejected(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("zapatos", nil)
	if got := facts[convo.FieldBusinessType]; got != "" {
		t.Fatalf("unrelated word matched vocabulary: %q", got)
	}
}

func TestTimeOfDayIsNotABudget(t *testing.T) {
	e := New(Config{})
	for _, msg := range []string{"nos vemos a las 10:00 AM", "10:00 AM", "como a las 3 pm"} {
		facts := e.Extract(msg, nil)
		if got := facts[convo.FieldBudget]; got != "" {
			t.Fatalf("message %q produced budget %q", msg, got)
		}
	}
}

func TestBudgetForms(t *testing.T) {
	e := New(Config{})
	cases := []struct {
		msg  string
		want string
	}{
		{"$500", "500"},
		{"puedo pagar 2 mil pesos", "2000"},
		{"mi presupuesto es 1,500", "1500"},
		{"unos 5k al mes", "5000"},
		{"500", "500"},
	}
	for _, tc := range cases {
		facts := e.Extract(tc.msg, nil)
		if got := facts[convo.FieldBudget]; got != tc.want {
			t.Fatalf("message %q: expected budget %q, got %q", tc.msg, tc.want, got)
		}
	}
}

func TestBarePhoneNumberIsNotABudget(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("5512345678", nil)
	if got := facts[convo.FieldBudget]; got != "" {
		t.Fatalf("phone-length number accepted as budget: %q", got)
	}
	if got := facts[convo.FieldPhone]; got != "5512345678" {
		t.Fatalf("expected phone extracted, got %q", got)
	}
}

func TestEmailLowercased(t *testing.T) {
	e := New(Config{})
	facts := e.Extract("mi correo es Ana@Example.COM", nil)
	if got := facts[convo.FieldEmail]; got != "ana@example.com" {
		t.Fatalf("expected lowercased email, got %q", got)
	}
}

func TestPriorFactsSurviveUnmatchedMessage(t *testing.T) {
	e := New(Config{})
	prior := convo.FactMap{convo.FieldName: "Carlos"}
	facts := e.Extract("mmm dejame pensarlo", prior)
	if got := facts[convo.FieldName]; got != "Carlos" {
		t.Fatalf("prior name lost: %q", got)
	}
	if len(prior) != 1 {
		t.Fatalf("prior map mutated: %v", prior)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := New(Config{})
	msg := "soy Ana, tengo una boutique y quiero vender mas"
	a := e.Extract(msg, nil)
	b := e.Extract(msg, nil)
	for k, v := range a {
		if b[k] != v {
			t.Fatalf("field %s differs between runs: %q vs %q", k, v, b[k])
		}
	}
	if len(a) != len(b) {
		t.Fatalf("fact count differs between runs")
	}
}
