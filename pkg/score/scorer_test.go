package score

import (
	"strings"
	"testing"

	"github.com/palinopr/leadflow/pkg/convo"
)

func TestEmptyFactsScoreOne(t *testing.T) {
	s := New(Config{})
	res := s.Score(convo.FactMap{}, 1, 1, false)
	if res.Score != 1 || res.Category != convo.CategoryCold {
		t.Fatalf("expected score 1 cold, got %d %s", res.Score, res.Category)
	}
}

func TestWeightsAccumulate(t *testing.T) {
	s := New(Config{})
	facts := convo.FactMap{
		convo.FieldName:         "Carlos",
		convo.FieldBusinessType: "restaurante",
	}
	res := s.Score(facts, 3, 1, false)
	if res.Score != 5 {
		t.Fatalf("expected 5, got %d", res.Score)
	}
	if res.Category != convo.CategoryWarm {
		t.Fatalf("expected warm, got %s", res.Category)
	}

	facts[convo.FieldGoal] = "mas clientes"
	facts[convo.FieldBudget] = "500"
	res = s.Score(facts, 5, res.Score, false)
	if res.Score != 9 || res.Category != convo.CategoryHot {
		t.Fatalf("expected 9 hot, got %d %s", res.Score, res.Category)
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	s := New(Config{})
	res := s.Score(convo.FactMap{convo.FieldName: "Ana"}, 4, 7, false)
	if res.Score != 7 {
		t.Fatalf("score regressed: got %d, previous was 7", res.Score)
	}
}

func TestConfirmedBudgetFloor(t *testing.T) {
	s := New(Config{})
	facts := convo.FactMap{convo.FieldBudget: "350"}
	res := s.Score(facts, 2, 1, true)
	if res.Score != 6 {
		t.Fatalf("expected floor 6, got %d", res.Score)
	}

	// Below the amount threshold the floor does not apply.
	facts[convo.FieldBudget] = "200"
	res = s.Score(facts, 2, 1, true)
	if res.Score != 4 {
		t.Fatalf("expected 4, got %d", res.Score)
	}
}

func TestScoreClampedToTen(t *testing.T) {
	s := New(Config{})
	res := s.Score(convo.FactMap{}, 9, 12, false)
	if res.Score != 10 {
		t.Fatalf("expected clamp to 10, got %d", res.Score)
	}
}

func TestReasoningMentionsFacts(t *testing.T) {
	s := New(Config{})
	res := s.Score(convo.FactMap{convo.FieldName: "Ana"}, 2, 1, false)
	if !strings.Contains(res.Reasoning, "name(+2)") {
		t.Fatalf("reasoning missing name weight: %q", res.Reasoning)
	}
}

func TestCategoryBoundaries(t *testing.T) {
	s := New(Config{})
	cases := map[int]convo.Category{
		1:  convo.CategoryCold,
		4:  convo.CategoryCold,
		5:  convo.CategoryWarm,
		7:  convo.CategoryWarm,
		8:  convo.CategoryHot,
		10: convo.CategoryHot,
	}
	for score, want := range cases {
		if got := s.Category(score); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}
