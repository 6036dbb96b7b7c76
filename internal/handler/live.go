package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mirror-match-backend/internal/model"
	"mirror-match-backend/internal/service"
	"mirror-match-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	livePongWait   = 60 * time.Second
	livePingPeriod = 50 * time.Second
	liveWriteWait  = 10 * time.Second
)

// LiveHandler serves /ws/play: the page keeps its camera open and sends
// frames over one socket instead of one POST per capture. Frames on a
// connection are analyzed one at a time, in order.
type LiveHandler struct {
	analysisService *service.AnalysisService
	upgrader        websocket.Upgrader
	maxMessageBytes int64
}

func NewLiveHandler(analysisService *service.AnalysisService, allowedOrigins []string, maxMessageBytes int64) *LiveHandler {
	return &LiveHandler{
		analysisService: analysisService,
		maxMessageBytes: maxMessageBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Play GET /ws/play
func (h *LiveHandler) Play(c *gin.Context) {
	if !h.analysisService.Ready() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: service.ErrNotConfigured.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写回错误响应
		logger.FromContext(c.Request.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := logger.FromContext(ctx)

	metrics := h.analysisService.Metrics()
	metrics.IncrementLiveSessions()
	defer metrics.DecrementLiveSessions()
	log.Info("live session opened")

	send := make(chan model.LiveMessage, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		writePump(conn, send)
	}()

	send <- model.LiveMessage{
		Type:      model.LiveWelcome,
		Timestamp: time.Now().Unix(),
		Payload:   gin.H{"set": h.analysisService.Catalog().Name()},
	}

	h.readPump(ctx, conn, send)

	close(send)
	wg.Wait()
	conn.Close()
	log.Info("live session closed")
}

func (h *LiveHandler) readPump(ctx context.Context, conn *websocket.Conn, send chan<- model.LiveMessage) {
	log := logger.FromContext(ctx)

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}
	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		var msg model.LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("live session read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(livePongWait))

		switch msg.Type {
		case model.LivePing:
			send <- model.LiveMessage{Type: model.LivePong, Seq: msg.Seq, Timestamp: time.Now().Unix()}
		case model.LiveFrame:
			send <- h.handleFrame(ctx, msg)
		default:
			send <- model.LiveMessage{
				Type:      model.LiveError,
				Seq:       msg.Seq,
				Timestamp: time.Now().Unix(),
				Status:    http.StatusBadRequest,
				Payload:   model.ErrorResponse{Error: "Unknown message type", Details: msg.Type},
			}
		}
	}
}

// handleFrame runs a frame through the same pipeline as the HTTP routes: a
// target turns it into a match, no target into a plain analysis.
func (h *LiveHandler) handleFrame(ctx context.Context, msg model.LiveMessage) model.LiveMessage {
	var (
		payload interface{}
		err     error
	)
	if msg.Target != "" {
		payload, err = h.analysisService.Match(ctx, msg.Target, msg.Image)
	} else {
		payload, err = h.analysisService.Analyze(ctx, msg.Image)
	}

	reply := model.LiveMessage{Seq: msg.Seq, Timestamp: time.Now().Unix()}
	if err != nil {
		status, resp := errorResponse(err)
		reply.Type = model.LiveError
		reply.Status = status
		reply.Payload = resp
		return reply
	}
	reply.Type = model.LiveResult
	reply.Status = http.StatusOK
	reply.Payload = payload
	return reply
}

func writePump(conn *websocket.Conn, send <-chan model.LiveMessage) {
	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				drain(conn, send)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				drain(conn, send)
				return
			}
		}
	}
}

// drain closes the socket so readPump unblocks, then discards whatever it
// still queues.
func drain(conn *websocket.Conn, send <-chan model.LiveMessage) {
	conn.Close()
	for range send {
	}
}
