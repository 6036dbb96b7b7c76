package game

import (
	"fmt"
	"math"
	"strings"

	"mirror-match-backend/internal/model"
)

const (
	TierSuccess  = "success"
	TierPartial  = "partial"
	TierHint     = "hint"
	TierMismatch = "mismatch"
)

// Thresholds splits confidence into feedback tiers. Both bounds are
// exclusive: confidence must be strictly above Success to count as success.
type Thresholds struct {
	Success float64
	Partial float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Success: 0.7, Partial: 0.4}
}

func (t Thresholds) Validate() error {
	if t.Partial < 0 || t.Success > 1 || t.Partial >= t.Success {
		return fmt.Errorf("invalid thresholds: partial=%.2f success=%.2f", t.Partial, t.Success)
	}
	return nil
}

// Classify grades an analysis against the target. The feedback text the
// upstream produced is not used here; the verdict carries the target's own
// canned lines.
func (t Thresholds) Classify(target model.TargetEmotion, result model.AnalysisResult) model.Verdict {
	v := model.Verdict{Accuracy: AccuracyLabel(result.Confidence)}

	if !strings.EqualFold(strings.TrimSpace(result.Emotion), target.Name) {
		v.Tier = TierMismatch
		v.Message = fmt.Sprintf("I see you're showing %q - try to show %q instead! %s",
			result.Emotion, target.Name, target.Feedback.Hint)
		return v
	}

	v.Points = Points(result.Confidence)
	switch {
	case result.Confidence > t.Success:
		v.Tier = TierSuccess
		v.Matched = true
		v.Message = target.Feedback.Success
	case result.Confidence > t.Partial:
		v.Tier = TierPartial
		v.Message = target.Feedback.Partial
	default:
		v.Tier = TierHint
		v.Message = target.Feedback.Hint
	}
	return v
}

// Points 与静态页一致：置信度百分比取整
func Points(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func AccuracyLabel(confidence float64) string {
	switch {
	case confidence >= 0.85:
		return "Excellent"
	case confidence >= 0.70:
		return "Good"
	case confidence >= 0.55:
		return "Fair"
	default:
		return "Keep practicing"
	}
}
