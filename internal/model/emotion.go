package model

// FeedbackTiers holds the canned lines shown for each confidence band.
type FeedbackTiers struct {
	Success string `json:"success"`
	Partial string `json:"partial"`
	Hint    string `json:"hint"`
}

type TargetEmotion struct {
	Name        string        `json:"name"`
	Emoji       string        `json:"emoji"`
	Description string        `json:"description"`
	Feedback    FeedbackTiers `json:"feedback"`
	// Cheers 为成功时随机挑选的庆祝语，可为空
	Cheers []string `json:"cheers,omitempty"`
	// MinConfidence/MaxConfidence 仅供离线随机后端生成置信度
	MinConfidence float64 `json:"-"`
	MaxConfidence float64 `json:"-"`
}
