package model

// 实时会话的消息类型
const (
	LiveFrame   = "FRAME"
	LivePing    = "PING"
	LiveWelcome = "WELCOME"
	LiveResult  = "RESULT"
	LivePong    = "PONG"
	LiveError   = "ERROR"
)

// LiveMessage is one WebSocket message in either direction. Clients send
// FRAME (image, optional target) and PING; the server answers with RESULT,
// PONG or ERROR.
type LiveMessage struct {
	Type      string      `json:"type"`
	Seq       int64       `json:"seq,omitempty"`
	Target    string      `json:"target,omitempty"`
	Image     string      `json:"image,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Status    int         `json:"status,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}
