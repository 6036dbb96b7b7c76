package service

import (
	"encoding/json"
	"math"
	"strings"

	"mirror-match-backend/internal/model"

	"github.com/spf13/cast"
)

const (
	DefaultEmotion    = "unknown"
	DefaultConfidence = 0.5

	FeedbackEmpty       = "Received empty response from AI service."
	FeedbackNoStructure = "Could not extract structured data from AI response."
	FeedbackUnparseable = "Could not analyze the expression accurately. AI response could not be parsed."
	FeedbackIncomplete  = "Received incomplete analysis from AI."
)

// Outcome records how a reply was normalized. Everything except OutcomeOK
// is a degradation: the caller still gets a full result.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeEmpty       Outcome = "empty"
	OutcomeNoStructure Outcome = "no_structure"
	OutcomeUnparseable Outcome = "unparseable"
	OutcomePartial     Outcome = "partial"
)

func fallback(feedback string) model.AnalysisResult {
	return model.AnalysisResult{
		Emotion:    DefaultEmotion,
		Confidence: DefaultConfidence,
		Feedback:   feedback,
	}
}

// Normalize turns the upstream's free text into an AnalysisResult. It never
// fails; malformed replies produce a synthesized result.
func Normalize(text string) (model.AnalysisResult, Outcome) {
	if strings.TrimSpace(text) == "" {
		return fallback(FeedbackEmpty), OutcomeEmpty
	}

	raw, ok := ExtractJSONObject(text)
	if !ok {
		return fallback(FeedbackNoStructure), OutcomeNoStructure
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fallback(FeedbackUnparseable), OutcomeUnparseable
	}

	result := fallback(FeedbackIncomplete)
	complete := true

	if emotion, ok := nonBlankString(fields["emotion"]); ok {
		result.Emotion = emotion
	} else {
		complete = false
	}

	if confidence, ok := toConfidence(fields["confidence"]); ok {
		result.Confidence = confidence
	} else {
		complete = false
	}

	if feedback, ok := nonBlankString(fields["feedback"]); ok {
		result.Feedback = feedback
	} else {
		complete = false
	}

	if !complete {
		return result, OutcomePartial
	}
	return result, OutcomeOK
}

func nonBlankString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// toConfidence accepts numbers and numeric strings. Values in [2,100] are
// read as percentages; the result is clamped to [0,1], so 1.5 becomes 1.
func toConfidence(v interface{}) (float64, bool) {
	switch v.(type) {
	case nil, bool, map[string]interface{}, []interface{}:
		return 0, false
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= 2 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f)), true
}
