package businessflow

import (
	"regexp"
	"strings"
)

// Intent is the coarse meaning of a caller's spoken answer
type Intent string

const (
	IntentAffirm  Intent = "AFFIRM"
	IntentDecline Intent = "DECLINE"
	IntentUnclear Intent = "UNCLEAR"
)

// IntentClassifier maps speech transcripts to an Intent using two keyword vocabularies.
// Keywords match case-insensitively from a word start, so "no" does not fire on "know".
// Affirmative keywords also accept common spoken endings ("okay", "booking", "scheduled").
// When both vocabularies match, DECLINE wins.
type IntentClassifier struct {
	affirm  *regexp.Regexp
	decline *regexp.Regexp
}

// NewIntentClassifier compiles the vocabularies. An empty vocabulary never matches.
func NewIntentClassifier(affirmWords, declineWords []string) *IntentClassifier {
	return &IntentClassifier{
		affirm:  compileVocabulary(affirmWords, affirmSuffixes),
		decline: compileVocabulary(declineWords, ""),
	}
}

// affirmSuffixes are endings speech-to-text attaches to affirmative keywords
const affirmSuffixes = `(?:ay|ing|ed|d|s)?`

func compileVocabulary(words []string, suffixes string) *regexp.Regexp {
	alternatives := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		// collapse inner whitespace so "not  interested" still matches
		parts := strings.Fields(w)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		alternatives = append(alternatives, strings.Join(parts, `\s+`))
	}
	if len(alternatives) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)` + suffixes + `\b`)
}

// Classify returns the intent of transcript
func (c *IntentClassifier) Classify(transcript string) Intent {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return IntentUnclear
	}
	if c.decline != nil && c.decline.MatchString(transcript) {
		return IntentDecline
	}
	if c.affirm != nil && c.affirm.MatchString(transcript) {
		return IntentAffirm
	}
	return IntentUnclear
}
