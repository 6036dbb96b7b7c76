package model

// AnalysisResult is the normalized reply of the analysis proxy. Confidence
// always lies in [0,1].
type AnalysisResult struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Feedback   string  `json:"feedback"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Verdict 是分析结果相对目标表情的分档
type Verdict struct {
	Tier     string `json:"tier"` // success | partial | hint | mismatch
	Matched  bool   `json:"matched"`
	Message  string `json:"message"`
	Points   int    `json:"points"`
	Accuracy string `json:"accuracy"`
}

type MatchResponse struct {
	Target   string         `json:"target"`
	Analysis AnalysisResult `json:"analysis"`
	Verdict  Verdict        `json:"verdict"`
}

type EmotionListResponse struct {
	Set      string          `json:"set"`
	Emotions []TargetEmotion `json:"emotions"`
}

type StatsResponse struct {
	Requests       int64   `json:"requests"`
	Succeeded      int64   `json:"succeeded"`
	Degraded       int64   `json:"degraded"`
	InputErrors    int64   `json:"input_errors"`
	UpstreamErrors int64   `json:"upstream_errors"`
	Timeouts       int64   `json:"timeouts"`
	LiveSessions   int64   `json:"live_sessions"`
	AvgUpstreamMs  float64 `json:"avg_upstream_ms"`
	Provider       string  `json:"provider"`
	Configured     bool    `json:"configured"`
}
