package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	testAffirmWords  = []string{"yes", "sure", "ok", "schedule", "book"}
	testDeclineWords = []string{"not interested", "stop", "nope", "no"}
)

func TestIntentClassifier(t *testing.T) {
	classifier := NewIntentClassifier(testAffirmWords, testDeclineWords)

	tests := []struct {
		name       string
		transcript string
		want       Intent
	}{
		{"affirm", "yes please book it", IntentAffirm},
		{"affirm uppercase", "YES", IntentAffirm},
		{"affirm with punctuation", "Sure, schedule it.", IntentAffirm},
		{"okay with punctuation", "Okay.", IntentAffirm},
		{"okay sentence", "okay sounds good", IntentAffirm},
		{"booking", "booking please", IntentAffirm},
		{"scheduled", "yes get it scheduled", IntentAffirm},
		{"decline", "no thanks", IntentDecline},
		{"nope", "nope", IntentDecline},
		{"okay then no", "okay, actually no", IntentDecline},
		{"decline phrase", "I am not interested", IntentDecline},
		{"decline phrase with extra spaces", "not   interested at all", IntentDecline},
		{"both vocabularies", "yes but please stop calling", IntentDecline},
		{"ok but no", "ok no", IntentDecline},
		{"empty", "", IntentUnclear},
		{"whitespace", "   ", IntentUnclear},
		{"neither", "maybe later", IntentUnclear},
		{"no inside a word", "I don't know", IntentUnclear},
		{"yes inside a word", "yesterday was busy", IntentUnclear},
		{"book inside a word", "send the booklet", IntentUnclear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.transcript))
		})
	}
}

func TestIntentClassifierProperties(t *testing.T) {
	classifier := NewIntentClassifier(testAffirmWords, testDeclineWords)
	fillers := []string{"", "well ", "hmm, ", "I think "}

	for _, a := range testAffirmWords {
		for _, filler := range fillers {
			assert.Equal(t, IntentAffirm, classifier.Classify(filler+a+" please"), "affirm %q", a)
		}
		for _, d := range testDeclineWords {
			assert.Equal(t, IntentDecline, classifier.Classify(a+" and "+d), "%q with %q", a, d)
			assert.Equal(t, IntentDecline, classifier.Classify(d+" then "+a), "%q with %q", d, a)
		}
	}
}

func TestIntentClassifierEmptyVocabulary(t *testing.T) {
	classifier := NewIntentClassifier(nil, []string{" ", ""})
	assert.Equal(t, IntentUnclear, classifier.Classify("yes no"))
}
