package model

// AnalyzeRequest 是 /analyze-emotion 的请求体，image 为 data URI
type AnalyzeRequest struct {
	Image string `json:"image"`
}

// MatchRequest 在分析的同时给出目标表情，服务端完成分档
type MatchRequest struct {
	Target string `json:"target"`
	Image  string `json:"image"`
}
