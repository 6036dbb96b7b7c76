package handler

import (
	"bytes"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"mirror-match-backend/internal/game"
	"mirror-match-backend/internal/model"
	"mirror-match-backend/internal/service"
	"mirror-match-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService

	mu  sync.Mutex
	rng *rand.Rand
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AnalyzeEmotion POST /analyze-emotion
func (h *AnalysisHandler) AnalyzeEmotion(c *gin.Context) {
	// 先检查配置，再解析请求体
	if !h.analysisService.Ready() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: service.ErrNotConfigured.Error()})
		return
	}

	var req model.AnalyzeRequest
	if err := bindJSONObject(c, &req); err != nil {
		h.rejectBody(c, err)
		return
	}

	result, err := h.analysisService.Analyze(c.Request.Context(), req.Image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Match POST /api/match
func (h *AnalysisHandler) Match(c *gin.Context) {
	if !h.analysisService.Ready() {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: service.ErrNotConfigured.Error()})
		return
	}

	var req model.MatchRequest
	if err := bindJSONObject(c, &req); err != nil {
		h.rejectBody(c, err)
		return
	}

	resp, err := h.analysisService.Match(c.Request.Context(), req.Target, req.Image)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListEmotions GET /api/emotions?set=
func (h *AnalysisHandler) ListEmotions(c *gin.Context) {
	catalog, ok := h.catalogFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.EmotionListResponse{
		Set:      catalog.Name(),
		Emotions: catalog.Emotions(),
	})
}

// NextEmotion GET /api/emotions/next?current=&mode=
func (h *AnalysisHandler) NextEmotion(c *gin.Context) {
	catalog, ok := h.catalogFor(c)
	if !ok {
		return
	}

	mode := strings.ToLower(c.DefaultQuery("mode", game.ModeSequential))
	if mode != game.ModeSequential && mode != game.ModeRandom {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Unknown mode", Details: mode})
		return
	}

	h.mu.Lock()
	next := catalog.Next(c.Query("current"), mode, h.rng)
	h.mu.Unlock()

	c.JSON(http.StatusOK, next)
}

// Stats GET /api/stats
func (h *AnalysisHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.analysisService.Stats())
}

// catalogFor 返回 ?set= 指定的表情集合，缺省为当前配置的集合
func (h *AnalysisHandler) catalogFor(c *gin.Context) (*game.Catalog, bool) {
	set := c.Query("set")
	if set == "" {
		return h.analysisService.Catalog(), true
	}
	catalog, err := game.NewCatalog(set)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Unknown emotion set", Details: set})
		return nil, false
	}
	return catalog, true
}

var errBodyNotObject = errors.New("request body is not a JSON object")

// bindJSONObject is ShouldBindJSON that also refuses null and other
// non-object bodies, which would otherwise bind to a zero request.
func bindJSONObject(c *gin.Context, obj interface{}) error {
	raw, err := c.GetRawData()
	if err != nil {
		return err
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return errBodyNotObject
	}
	return binding.JSON.BindBody(raw, obj)
}

func (h *AnalysisHandler) rejectBody(c *gin.Context, err error) {
	metrics := h.analysisService.Metrics()
	metrics.IncrementRequests()
	metrics.IncrementInputErrors()
	logger.FromContext(c.Request.Context()).WithError(err).Warn("request body rejected")
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: service.ErrInvalidBody.Error()})
}

func writeError(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithError(err).Error("unexpected analysis error")
	}
	c.JSON(status, resp)
}

// errorResponse maps service errors onto the wire envelope. Only the
// sentinel text goes out for input errors; wrapped detail stays in the logs.
func errorResponse(err error) (int, model.ErrorResponse) {
	var upstream *service.UpstreamError

	for _, sentinel := range []error{
		service.ErrImageRequired,
		service.ErrUnknownTarget,
		model.ErrInvalidImageFormat,
		model.ErrInvalidImageData,
		model.ErrImageTooSmall,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, model.ErrorResponse{Error: sentinel.Error()}
		}
	}

	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable, model.ErrorResponse{Error: service.ErrNotConfigured.Error()}
	case errors.As(err, &upstream) && upstream.Timeout:
		return http.StatusGatewayTimeout, model.ErrorResponse{Error: "AI service timed out", Details: upstream.Err.Error()}
	case errors.As(err, &upstream):
		return http.StatusBadGateway, model.ErrorResponse{Error: "Error communicating with AI service", Details: upstream.Err.Error()}
	default:
		return http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to analyze emotion", Details: err.Error()}
	}
}
