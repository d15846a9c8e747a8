package extract

import (
	"regexp"
	"strings"
)

// Confirmation is the result of matching an affirmative reply against a
// budget amount the agent previously proposed.
type Confirmation struct {
	Confirmed bool
	Amount    string
}

// ConfirmationDetector decides whether the current message confirms an amount
// proposed in the last agent message. Both conditions must hold: the agent
// proposed a concrete amount or range, and the reply carries an affirmative
// token. An affirmative alone never confirms anything.
type ConfirmationDetector struct {
	affirmatives map[string]struct{}
	phrases      []string
}

var (
	proposalAmountRe = regexp.MustCompile(`(?i)\$\s*(\d[\d.,]*)\s*(mil\b|k\b)?|(\d[\d.,]*)\s*(mil\b|k\b)?\s*(?:pesos|d[oó]lares|dolares|usd|mxn|dollars)`)
	negationRe       = regexp.MustCompile(`(?i)\b(?:no|nop|nope|not|tampoco|jam[aá]s|nunca)\b`)
)

// NewConfirmationDetector builds a detector from the affirmative vocabulary.
func NewConfirmationDetector(affirmatives []string) *ConfirmationDetector {
	if len(affirmatives) == 0 {
		affirmatives = DefaultConfig().Affirmatives
	}
	d := &ConfirmationDetector{affirmatives: make(map[string]struct{}, len(affirmatives))}
	for _, a := range affirmatives {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.ContainsRune(a, ' ') {
			d.phrases = append(d.phrases, a)
			continue
		}
		d.affirmatives[a] = struct{}{}
	}
	return d
}

// Detect returns the proposed amount when lastAgentMessage carried one and
// currentMessage affirms it.
func (d *ConfirmationDetector) Detect(currentMessage, lastAgentMessage string) Confirmation {
	amount := proposedAmount(lastAgentMessage)
	if amount == "" {
		return Confirmation{}
	}
	if !d.isAffirmative(currentMessage) {
		return Confirmation{}
	}
	return Confirmation{Confirmed: true, Amount: amount}
}

func (d *ConfirmationDetector) isAffirmative(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" || negationRe.MatchString(lower) {
		return false
	}
	for _, p := range d.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, tok := range wordRe.FindAllString(lower, -1) {
		if _, ok := d.affirmatives[tok]; ok {
			return true
		}
	}
	return false
}

// proposedAmount pulls the first concrete currency amount out of an agent
// message; for a range it takes the first bound.
func proposedAmount(message string) string {
	m := proposalAmountRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return normalizeAmount(m[1], m[2])
	}
	return normalizeAmount(m[3], m[4])
}
