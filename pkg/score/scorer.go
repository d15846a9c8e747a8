package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/palinopr/leadflow/pkg/convo"
)

// Config holds the scoring weights and band thresholds. These were tuned
// empirically; they are policy, not contract.
type Config struct {
	NameWeight     int
	BusinessWeight int
	GoalWeight     int
	BudgetWeight   int

	// A confirmed budget at or above ConfirmedFloorAmount raises the
	// candidate score to at least ConfirmedFloorScore.
	ConfirmedFloorAmount float64
	ConfirmedFloorScore  int

	// Band boundaries: 1..ColdMax cold, ColdMax+1..WarmMax warm, rest hot.
	ColdMax int
	WarmMax int
}

func DefaultConfig() Config {
	return Config{
		NameWeight:           2,
		BusinessWeight:       2,
		GoalWeight:           1,
		BudgetWeight:         3,
		ConfirmedFloorAmount: 300,
		ConfirmedFloorScore:  6,
		ColdMax:              4,
		WarmMax:              7,
	}
}

// Result carries the new score with an explanation of how it was reached.
type Result struct {
	Score     int
	Category  convo.Category
	Reasoning string
}

// Scorer computes a monotonic qualification score from accumulated facts.
// Deterministic and side-effect free: the same inputs always produce the same
// result.
type Scorer struct {
	cfg Config
}

func New(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.NameWeight == 0 && cfg.BusinessWeight == 0 && cfg.GoalWeight == 0 && cfg.BudgetWeight == 0 {
		cfg = def
	}
	if cfg.ColdMax <= 0 || cfg.WarmMax <= cfg.ColdMax {
		cfg.ColdMax = def.ColdMax
		cfg.WarmMax = def.WarmMax
	}
	if cfg.ConfirmedFloorScore <= 0 {
		cfg.ConfirmedFloorScore = def.ConfirmedFloorScore
	}
	if cfg.ConfirmedFloorAmount <= 0 {
		cfg.ConfirmedFloorAmount = def.ConfirmedFloorAmount
	}
	return &Scorer{cfg: cfg}
}

// Score derives the new score. The result never drops below previousScore:
// facts only accumulate, so qualification only moves forward.
func (s *Scorer) Score(facts convo.FactMap, turnCount, previousScore int, budgetConfirmed bool) Result {
	var parts []string
	candidate := 1
	if facts.Has(convo.FieldName) {
		candidate += s.cfg.NameWeight
		parts = append(parts, fmt.Sprintf("name(+%d)", s.cfg.NameWeight))
	}
	if facts.Has(convo.FieldBusinessType) {
		candidate += s.cfg.BusinessWeight
		parts = append(parts, fmt.Sprintf("business_type(+%d)", s.cfg.BusinessWeight))
	}
	if facts.Has(convo.FieldGoal) {
		candidate += s.cfg.GoalWeight
		parts = append(parts, fmt.Sprintf("goal(+%d)", s.cfg.GoalWeight))
	}
	if facts.Has(convo.FieldBudget) {
		candidate += s.cfg.BudgetWeight
		parts = append(parts, fmt.Sprintf("budget(+%d)", s.cfg.BudgetWeight))
	}
	if budgetConfirmed && budgetValue(facts) >= s.cfg.ConfirmedFloorAmount && candidate < s.cfg.ConfirmedFloorScore {
		candidate = s.cfg.ConfirmedFloorScore
		parts = append(parts, fmt.Sprintf("confirmed_budget_floor(=%d)", s.cfg.ConfirmedFloorScore))
	}

	newScore := candidate
	if previousScore > newScore {
		newScore = previousScore
	}
	newScore = clamp(newScore, 1, 10)

	reasoning := fmt.Sprintf("turn %d: %s => candidate %d, previous %d, score %d",
		turnCount, strings.Join(parts, " "), candidate, previousScore, newScore)
	if len(parts) == 0 {
		reasoning = fmt.Sprintf("turn %d: no scored facts => candidate %d, previous %d, score %d",
			turnCount, candidate, previousScore, newScore)
	}

	return Result{
		Score:     newScore,
		Category:  s.Category(newScore),
		Reasoning: reasoning,
	}
}

// Category maps a score to its band.
func (s *Scorer) Category(score int) convo.Category {
	switch {
	case score <= s.cfg.ColdMax:
		return convo.CategoryCold
	case score <= s.cfg.WarmMax:
		return convo.CategoryWarm
	default:
		return convo.CategoryHot
	}
}

func budgetValue(facts convo.FactMap) float64 {
	v, err := strconv.ParseFloat(facts[convo.FieldBudget], 64)
	if err != nil {
		return 0
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
