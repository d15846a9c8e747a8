package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/palinopr/leadflow/pkg/convo"
)

// Config holds the tunable extraction policy. Thresholds and vocabularies
// were tuned empirically; treat them as configuration, not contract.
type Config struct {
	SimilarityThreshold float64
	GenericTerms        []string
	BusinessVocabulary  []string
	Affirmatives        []string
}

// DefaultConfig returns the shipped extraction policy for Spanish-first chat
// leads with English fallbacks.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.75,
		GenericTerms: []string{
			"negocio", "negocito", "empresa", "compania", "compañia", "compañía",
			"business", "company", "emprendimiento",
		},
		BusinessVocabulary: []string{
			"restaurante", "restaurant", "taqueria", "cafeteria", "panaderia",
			"pasteleria", "tienda", "boutique", "barberia", "salon", "estetica",
			"spa", "gimnasio", "gym", "clinica", "consultorio", "dentista",
			"veterinaria", "taller", "agencia", "inmobiliaria", "ferreteria",
			"floreria", "lavanderia", "papeleria", "farmacia", "abarrotes",
			"bakery", "store", "shop",
		},
		Affirmatives: []string{
			"si", "sí", "claro", "ok", "okay", "dale", "va", "sale", "perfecto",
			"correcto", "de acuerdo", "esta bien", "está bien", "yes", "yeah",
			"sure", "agreed", "sounds good",
		},
	}
}

// Extractor derives structured facts from free text. It is a pure function
// over (message, prior facts): no I/O, no retained state, and it never fails;
// a message that matches nothing simply changes nothing.
type Extractor struct {
	cfg          Config
	generic      map[string]struct{}
	vocab        []string
	vocabSet     map[string]struct{}
	namePatterns []*regexp.Regexp
	bizPatterns  []*regexp.Regexp
	goalPatterns []*regexp.Regexp
}

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-().]{8,}\d`)
	digitRe = regexp.MustCompile(`\d`)

	// Times of day must never be read as budgets: "a las 10:00 AM" carries
	// numbers but no money.
	timeOfDayRe = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(?:am|pm|hrs?)?\b|\b\d{1,2}\s*(?:am|pm)\b`)

	currencyAmountRe = regexp.MustCompile(`(?i)\$\s*(\d[\d.,]*)\s*(mil\b|k\b)?`)
	keywordAmountRe  = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*(mil\b|k\b)?\s*(?:pesos|d[oó]lares|dolares|usd|mxn|dollars)`)
	budgetContextRe  = regexp.MustCompile(`(?i)(?:presupuesto|budget|invertir|gastar|pagar|destinar)\D{0,24}?(\d[\d.,]*)\s*(mil\b|k\b)?`)
	monthlyAmountRe  = regexp.MustCompile(`(?i)(\d[\d.,]*)\s*(mil\b|k\b)?\s*(?:al mes|por mes|mensuales?|a month|per month|monthly)`)
	bareAmountRe     = regexp.MustCompile(`(?i)^\s*\$?\s*(\d[\d.,]*)\s*(mil\b|k\b)?\s*\.?\s*$`)

	wordRe = regexp.MustCompile(`[a-záéíóúüñ]+`)
)

// New compiles an Extractor from the given policy. Zero-valued fields fall
// back to DefaultConfig.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if len(cfg.GenericTerms) == 0 {
		cfg.GenericTerms = def.GenericTerms
	}
	if len(cfg.BusinessVocabulary) == 0 {
		cfg.BusinessVocabulary = def.BusinessVocabulary
	}
	if len(cfg.Affirmatives) == 0 {
		cfg.Affirmatives = def.Affirmatives
	}

	e := &Extractor{
		cfg:      cfg,
		generic:  make(map[string]struct{}, len(cfg.GenericTerms)),
		vocab:    cfg.BusinessVocabulary,
		vocabSet: make(map[string]struct{}, len(cfg.BusinessVocabulary)),
	}
	for _, t := range cfg.GenericTerms {
		e.generic[normalizeToken(t)] = struct{}{}
	}
	for _, t := range cfg.BusinessVocabulary {
		e.vocabSet[normalizeToken(t)] = struct{}{}
	}

	// Ordered rules per field; the first match wins.
	e.namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:me llamo|mi nombre es|my name is)\s+([a-záéíóúüñ]+(?:\s+[a-záéíóúüñ]+)?)`),
		regexp.MustCompile(`(?i)(?:^|\s)soy\s+([a-záéíóúüñ]+(?:\s+[a-záéíóúüñ]+)?)`),
		regexp.MustCompile(`(?i)(?:i'?m|i am|this is)\s+([a-záéíóúüñ]+(?:\s+[a-záéíóúüñ]+)?)`),
	}
	e.bizPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:tengo|tenemos|manejo|atiendo)\s+(?:un|una)\s+([a-záéíóúüñ]+)`),
		regexp.MustCompile(`(?i)(?:mi|nuestro|nuestra)\s+(?:negocio|empresa)\s+es\s+(?:un|una)?\s*([a-záéíóúüñ]+)`),
		regexp.MustCompile(`(?i)(?:i (?:have|own|run))\s+a\s+([a-záéíóúüñ]+)`),
		regexp.MustCompile(`(?i)es\s+(?:un|una)\s+([a-záéíóúüñ]+)`),
	}
	e.goalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:quiero|necesito|busco|quisiera|me gustar[ií]a)\s+(.{4,})`),
		regexp.MustCompile(`(?i)(?:i want to|i need|looking to|trying to)\s+(.{4,})`),
		regexp.MustCompile(`(?i)(?:mi meta es|mi objetivo es|mi problema es)\s+(.{4,})`),
	}
	return e
}

// Extract merges the facts found in message over prior. A prior value is only
// replaced when the new candidate passes validation; anything else is left
// untouched.
func (e *Extractor) Extract(message string, prior convo.FactMap) convo.FactMap {
	out := prior.Clone()
	if out == nil {
		out = convo.FactMap{}
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return out
	}

	if v := emailRe.FindString(message); v != "" {
		out[convo.FieldEmail] = strings.ToLower(v)
	}
	if v := e.extractPhone(message); v != "" {
		out[convo.FieldPhone] = v
	}
	if v := e.extractName(message); v != "" {
		out[convo.FieldName] = v
	}
	if v := e.extractBusinessType(message); v != "" {
		out[convo.FieldBusinessType] = v
	}
	if v := e.extractGoal(message); v != "" {
		out[convo.FieldGoal] = v
	}
	if v := e.extractBudget(message); v != "" {
		out[convo.FieldBudget] = v
	}
	return out
}

func (e *Extractor) extractName(message string) string {
	for _, re := range e.namePatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		candidate := trimConnectors(strings.TrimSpace(m[1]))
		if e.validName(candidate) {
			return titleCase(candidate)
		}
	}
	return ""
}

// trimConnectors drops a trailing conjunction picked up by a greedy capture
// ("Carlos y" from "soy Carlos y tengo...").
func trimConnectors(candidate string) string {
	words := strings.Fields(candidate)
	for len(words) > 0 {
		switch normalizeToken(words[len(words)-1]) {
		case "y", "e", "o", "and", "pero", "but":
			words = words[:len(words)-1]
		default:
			return strings.Join(words, " ")
		}
	}
	return ""
}

// validName rejects captures that are really business or filler words
// ("soy dueño", "soy restaurante").
func (e *Extractor) validName(candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, w := range strings.Fields(strings.ToLower(candidate)) {
		nw := normalizeToken(w)
		if _, ok := e.vocabSet[nw]; ok {
			return false
		}
		if _, ok := e.generic[nw]; ok {
			return false
		}
		switch nw {
		case "dueno", "duena", "el", "la", "un", "una", "de", "cliente", "interesado", "interesada":
			return false
		}
	}
	return true
}

func (e *Extractor) extractBusinessType(message string) string {
	for _, re := range e.bizPatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		if v := e.validateBusinessToken(m[1]); v != "" {
			return v
		}
	}
	// Typo-tolerant fallback for short answers like "restaurante" or
	// "resturante": compare tokens against the known vocabulary.
	tokens := wordRe.FindAllString(strings.ToLower(message), -1)
	if len(tokens) > 4 {
		return ""
	}
	for _, tok := range tokens {
		if len([]rune(tok)) < 4 {
			continue
		}
		if v := e.validateBusinessToken(tok); v != "" {
			return v
		}
	}
	return ""
}

// validateBusinessToken applies the generic-term gate and the fuzzy
// vocabulary gate. Only a specific trade is accepted; a bare word meaning
// "business" is not a business type.
func (e *Extractor) validateBusinessToken(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	if _, ok := e.generic[normalizeToken(token)]; ok {
		return ""
	}
	if _, ok := e.vocabSet[normalizeToken(token)]; ok {
		return token
	}
	match, ratio := bestMatch(normalizeToken(token), e.vocab)
	if ratio >= e.cfg.SimilarityThreshold {
		return match
	}
	return ""
}

func (e *Extractor) extractGoal(message string) string {
	for _, re := range e.goalPatterns {
		m := re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		goal := strings.TrimSpace(strings.Trim(m[1], ".!¡¿?"))
		if len(goal) < 4 {
			continue
		}
		if len(goal) > 140 {
			goal = goal[:140]
		}
		return goal
	}
	return ""
}

func (e *Extractor) extractPhone(message string) string {
	for _, m := range phoneRe.FindAllString(message, -1) {
		digits := digitRe.FindAllString(m, -1)
		if len(digits) >= 10 && len(digits) <= 13 {
			return strings.Join(digits, "")
		}
	}
	return ""
}

func (e *Extractor) extractBudget(message string) string {
	// Currency-marked or keyword-adjacent amounts are trusted even when the
	// message also carries a time of day.
	for _, re := range []*regexp.Regexp{currencyAmountRe, keywordAmountRe, budgetContextRe, monthlyAmountRe} {
		if m := re.FindStringSubmatch(message); m != nil {
			if v := normalizeAmount(m[1], m[2]); v != "" {
				return v
			}
		}
	}
	// A bare numeric message ("500") is accepted only when it cannot be a
	// time of day and carries at least three digits.
	if m := bareAmountRe.FindStringSubmatch(message); m != nil {
		if timeOfDayRe.MatchString(message) {
			return ""
		}
		digits := len(digitRe.FindAllString(m[1], -1))
		if m[2] == "" && (digits < 3 || digits >= 9) {
			// Too short to be a budget, or long enough to be a phone number.
			return ""
		}
		return normalizeAmount(m[1], m[2])
	}
	return ""
}

// normalizeAmount turns "1,500" / "2 mil" / "5k" into a plain integer string.
func normalizeAmount(raw, suffix string) string {
	raw = strings.ReplaceAll(raw, ",", "")
	// "1.500" is a thousands separator, "1.5" is a decimal.
	if i := strings.Index(raw, "."); i >= 0 && len(raw)-i-1 == 3 {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(suffix)) {
	case "mil", "k":
		v *= 1000
	}
	return strconv.FormatInt(int64(v), 10)
}

func normalizeToken(s string) string {
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	)
	return replacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
