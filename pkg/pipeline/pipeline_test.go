package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/palinopr/leadflow/pkg/agents"
	"github.com/palinopr/leadflow/pkg/convo"
	"github.com/palinopr/leadflow/pkg/extract"
	"github.com/palinopr/leadflow/pkg/providers/mock"
	"github.com/palinopr/leadflow/pkg/router"
	"github.com/palinopr/leadflow/pkg/score"
	"github.com/palinopr/leadflow/pkg/stage"
)

type fixture struct {
	pipe    *Pipeline
	store   *mock.MemoryStore
	booking *mock.BookingClient
}

func newFixture(t *testing.T, llmCfg mock.LLMConfig, agentConfigs []agents.Config) *fixture {
	t.Helper()
	store := mock.NewMemoryStore()
	booking := mock.NewBookingClient([]string{"Lunes 10:00 AM", "Martes 2:00 PM", "Miércoles 4:00 PM"})
	tracker := stage.New(stage.Config{})
	supervisor := router.New(router.Policy{})
	adapter := mock.NewLLMAdapter(llmCfg)

	if agentConfigs == nil {
		agentConfigs = agents.DefaultConfigs(supervisor.Policy())
	}
	var bandAgents []*agents.Agent
	for _, ac := range agentConfigs {
		bandAgents = append(bandAgents, agents.New(ac, adapter, booking, tracker, nil))
	}

	pipe, err := New(Config{}, Deps{
		Extractor:  extract.New(extract.Config{}),
		Confirmer:  extract.NewConfirmationDetector(nil),
		Scorer:     score.New(score.Config{}),
		Tracker:    tracker,
		Supervisor: supervisor,
		Agents:     bandAgents,
		Store:      store,
	})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return &fixture{pipe: pipe, store: store, booking: booking}
}

func (f *fixture) turn(t *testing.T, contact, id, text string) Result {
	t.Helper()
	res, err := f.pipe.Process(context.Background(), Inbound{ContactID: contact, MessageID: id, Text: text})
	if err != nil {
		t.Fatalf("turn %q: %v", text, err)
	}
	return res
}

func TestFullConversationReachesBooking(t *testing.T) {
	f := newFixture(t, mock.LLMConfig{}, nil)

	turns := []string{
		"hola",
		"soy Carlos",
		"tengo un restaurante",
		"quiero atraer mas clientes",
		"mi presupuesto es 500 al mes",
		"mi correo es carlos@test.com",
		"la primera",
		"gracias",
	}

	prevScore := 0
	var last Result
	for i, msg := range turns {
		last = f.turn(t, "lead-1", string(rune('a'+i)), msg)
		if last.Score < prevScore {
			t.Fatalf("score regressed at turn %d: %d -> %d", i, prevScore, last.Score)
		}
		prevScore = last.Score
	}

	if f.booking.BookCount() != 1 {
		t.Fatalf("expected one booking, got %d", f.booking.BookCount())
	}
	if !last.Terminal {
		t.Fatalf("conversation did not terminate: %+v", last)
	}
	if last.Score < 8 || last.Band != router.BandHot {
		t.Fatalf("qualified lead ended %s with score %d", last.Band, last.Score)
	}

	st := last.State
	if st.Facts[convo.FieldName] != "Carlos" || st.Facts[convo.FieldBudget] != "500" {
		t.Fatalf("facts incomplete: %v", st.Facts)
	}
	if !convo.HasSystemMarker(st.History, convo.MarkerAppointmentBooked) {
		t.Fatalf("booking marker missing from history")
	}
}

func TestDuplicateMessageReplaysWithoutMutation(t *testing.T) {
	f := newFixture(t, mock.LLMConfig{}, nil)

	first := f.turn(t, "lead-1", "msg-1", "soy Carlos y tengo un restaurante")
	before, ok, err := f.store.Load(context.Background(), "lead-1")
	if err != nil || !ok {
		t.Fatalf("state not stored: %v", err)
	}

	again := f.turn(t, "lead-1", "msg-1", "soy Carlos y tengo un restaurante")
	if !again.Duplicate {
		t.Fatalf("expected duplicate flag")
	}
	if again.Reply != first.Reply {
		t.Fatalf("replay differs: %q vs %q", again.Reply, first.Reply)
	}

	after, _, _ := f.store.Load(context.Background(), "lead-1")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("state mutated by duplicate (-before +after):\n%s", diff)
	}
}

func TestEscalationStormEndsInHumanHandoff(t *testing.T) {
	// An agent that accepts no score at all forces the supervisor to
	// escalate until the bound trips.
	f := newFixture(t, mock.LLMConfig{}, []agents.Config{
		{Band: router.BandCold, MinScore: 5, MaxScore: 4},
		{Band: router.BandWarm, MinScore: 5, MaxScore: 4},
		{Band: router.BandHot, MinScore: 5, MaxScore: 4},
	})

	res := f.turn(t, "lead-1", "m1", "hola")
	if !res.Terminal {
		t.Fatalf("expected terminal turn, got %+v", res)
	}
	if res.Stage != convo.StageTerminal {
		t.Fatalf("expected terminal stage, got %s", res.Stage)
	}
	if res.State.EscalationCount <= 2 {
		t.Fatalf("expected escalation bound exceeded, got %d", res.State.EscalationCount)
	}
	if !convo.HasSystemMarker(res.State.History, convo.MarkerHumanHandoff) {
		t.Fatalf("handoff marker missing")
	}
	if res.Reply == "" {
		t.Fatalf("terminal turn must still reply")
	}

	// Terminal is absorbing: later messages get the terminal response.
	after := f.turn(t, "lead-1", "m2", "sigues ahi?")
	if after.Stage != convo.StageTerminal {
		t.Fatalf("terminal not absorbing, got %s", after.Stage)
	}
}

func TestViolatingReplyReplacedWithCanonical(t *testing.T) {
	f := newFixture(t, mock.LLMConfig{ResponseText: "¡Hola! ¿Cómo te llamas?"}, nil)

	f.turn(t, "lead-1", "m1", "hola")
	res := f.turn(t, "lead-1", "m2", "soy Carlos")

	if len(res.Violations) == 0 {
		t.Fatalf("expected violations on repeated greeting")
	}
	if strings.Contains(res.Reply, "Hola") {
		t.Fatalf("violating reply leaked through: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "negocio") {
		t.Fatalf("expected canonical business question, got %q", res.Reply)
	}
}

func TestBudgetConfirmationRaisesScore(t *testing.T) {
	f := newFixture(t, mock.LLMConfig{ResponseText: "¿Te funciona un plan de $500 al mes?"}, nil)

	f.turn(t, "lead-1", "m1", "hola")
	res := f.turn(t, "lead-1", "m2", "si claro")

	if !res.State.BudgetConfirmed {
		t.Fatalf("expected budget confirmed")
	}
	if res.State.Facts[convo.FieldBudget] != "500" {
		t.Fatalf("expected confirmed budget 500, got %q", res.State.Facts[convo.FieldBudget])
	}
	if res.Score < 6 {
		t.Fatalf("confirmed budget should floor the score at 6, got %d", res.Score)
	}
}
