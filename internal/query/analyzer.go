// Package query analyzes questions to extract intent, entities, and keywords.
// Hints feed the synthesis prompt and logging; retrieval works without them.
package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// Intent labels produced by the analyzer.
const (
	IntentGeneral         = "general"
	IntentCoverageCheck   = "coverage_check"
	IntentClaimProcessing = "claim_processing"
	IntentPolicyTerms     = "policy_terms"
	IntentWaitingPeriod   = "waiting_period"
	IntentExclusions      = "exclusions"
)

var intentPatterns = map[string][]*regexp.Regexp{
	IntentCoverageCheck: {
		regexp.MustCompile(`(?i)cover(ed|age|s)?\b`),
		regexp.MustCompile(`(?i)eligible|eligibility`),
		regexp.MustCompile(`(?i)qualif(y|ies)`),
		regexp.MustCompile(`(?i)include(d|s)?\b`),
		regexp.MustCompile(`(?i)benefit(s)?\b`),
	},
	IntentClaimProcessing: {
		regexp.MustCompile(`(?i)claim(s)?\b`),
		regexp.MustCompile(`(?i)reimburse(ment|d)?`),
		regexp.MustCompile(`(?i)pay(ment|s)?\b`),
		regexp.MustCompile(`(?i)approv(ed|al|e)`),
		regexp.MustCompile(`(?i)process(ing)?\b`),
	},
	IntentPolicyTerms: {
		regexp.MustCompile(`(?i)term(s)?\b`),
		regexp.MustCompile(`(?i)condition(s)?\b`),
		regexp.MustCompile(`(?i)requirement(s)?\b`),
		regexp.MustCompile(`(?i)rule(s)?\b`),
		regexp.MustCompile(`(?i)policy`),
	},
	IntentWaitingPeriod: {
		regexp.MustCompile(`(?i)waiting period`),
		regexp.MustCompile(`(?i)wait(ing)?\b`),
		regexp.MustCompile(`(?i)grace period`),
		regexp.MustCompile(`(?i)effective date`),
	},
	IntentExclusions: {
		regexp.MustCompile(`(?i)exclusion(s)?\b`),
		regexp.MustCompile(`(?i)not cover(ed)?`),
		regexp.MustCompile(`(?i)exclude(d|s)?\b`),
		regexp.MustCompile(`(?i)limitation(s)?\b`),
	},
}

var entityPatterns = map[string]*regexp.Regexp{
	"age":      regexp.MustCompile(`(?i)(\d+)\s*year(?:s)?\s*old|age\s*(\d+)|(\d+)\s*yo\b`),
	"amount":   regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{2})?)|(\d+)\s*(?i:dollar)s?`),
	"duration": regexp.MustCompile(`(?i)(\d+)\s*(day|week|month|year)s?\b`),
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "this": {}, "that": {}, "these": {}, "those": {}, "i": {},
	"you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "my": {},
	"your": {}, "his": {}, "her": {}, "its": {}, "our": {}, "their": {},
	"what": {}, "which": {}, "how": {}, "when": {}, "where": {}, "who": {},
}

var nonWord = regexp.MustCompile(`[^a-z0-9]`)

// Analyzer extracts hints from questions with rule-based patterns.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze returns the hints for a question. It never fails; an unclassifiable
// question yields the general intent with plain keywords.
func (a *Analyzer) Analyze(question string) *models.QueryHints {
	cleaned := strings.Join(strings.Fields(strings.ToLower(question)), " ")
	return &models.QueryHints{
		Intent:   a.extractIntent(cleaned),
		Entities: a.extractEntities(cleaned),
		Keywords: a.extractKeywords(cleaned),
	}
}

// extractIntent scores each intent by pattern matches and returns the winner.
func (a *Analyzer) extractIntent(question string) string {
	best := IntentGeneral
	bestScore := 0
	// Deterministic iteration so equal scores resolve the same way every call.
	intents := make([]string, 0, len(intentPatterns))
	for intent := range intentPatterns {
		intents = append(intents, intent)
	}
	sort.Strings(intents)
	for _, intent := range intents {
		score := 0
		for _, pattern := range intentPatterns[intent] {
			score += len(pattern.FindAllString(question, -1))
		}
		if score > bestScore {
			best = intent
			bestScore = score
		}
	}
	return best
}

// extractEntities pulls age, amount, and duration mentions out of the question.
func (a *Analyzer) extractEntities(question string) map[string]string {
	entities := make(map[string]string)
	for name, pattern := range entityPatterns {
		match := pattern.FindStringSubmatch(question)
		if match == nil {
			continue
		}
		switch name {
		case "duration":
			entities[name] = match[1] + " " + strings.ToLower(match[2])
		default:
			for _, group := range match[1:] {
				if group != "" {
					entities[name] = strings.ReplaceAll(group, ",", "")
					break
				}
			}
		}
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}

// extractKeywords returns the content words of the question, stop words and
// short tokens removed, in question order without duplicates.
func (a *Analyzer) extractKeywords(question string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(question) {
		word = nonWord.ReplaceAllString(word, "")
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}
