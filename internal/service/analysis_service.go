package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/game"
	"mirror-match-backend/internal/model"
	"mirror-match-backend/internal/vision"
	"mirror-match-backend/pkg/logger"
)

// AnalysisService validates a captured frame, asks the vision provider what
// it sees and normalizes the reply. It keeps no per-request state.
type AnalysisService struct {
	client        vision.Client
	catalog       *game.Catalog
	thresholds    game.Thresholds
	timeout       time.Duration
	minImageBytes int
	prompt        string
	metrics       *Metrics
}

// NewAnalysisService wires the service. client may be nil when no
// credential was configured; every analysis then fails with
// ErrNotConfigured while the rest of the API keeps working.
func NewAnalysisService(client vision.Client, catalog *game.Catalog, cfg *config.Config) (*AnalysisService, error) {
	thresholds := game.Thresholds{
		Success: cfg.Game.SuccessThreshold,
		Partial: cfg.Game.PartialThreshold,
	}
	if thresholds == (game.Thresholds{}) {
		thresholds = game.DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	return &AnalysisService{
		client:        client,
		catalog:       catalog,
		thresholds:    thresholds,
		timeout:       cfg.Vision.Timeout,
		minImageBytes: cfg.Vision.MinImageBytes,
		prompt:        vision.BuildPrompt(catalog.Names()),
		metrics:       NewMetrics(),
	}, nil
}

func (s *AnalysisService) Ready() bool {
	return s.client != nil
}

func (s *AnalysisService) Catalog() *game.Catalog {
	return s.catalog
}

func (s *AnalysisService) Metrics() *Metrics {
	return s.metrics
}

// Analyze runs one image through the provider. Input and upstream failures
// are returned as errors; anything the provider says is turned into a
// result, degraded if need be.
func (s *AnalysisService) Analyze(ctx context.Context, image string) (model.AnalysisResult, error) {
	s.metrics.IncrementRequests()
	log := logger.FromContext(ctx)

	if !s.Ready() {
		return model.AnalysisResult{}, ErrNotConfigured
	}
	if strings.TrimSpace(image) == "" {
		s.metrics.IncrementInputErrors()
		return model.AnalysisResult{}, ErrImageRequired
	}

	log.WithField("payload_chars", len(image)).Info("analysis request received")

	img, err := model.ParseEncodedImage(image, s.minImageBytes)
	if err != nil {
		s.metrics.IncrementInputErrors()
		log.WithError(err).Warn("rejected image")
		return model.AnalysisResult{}, err
	}

	log.WithFields(logger.Fields{
		"declared_type": img.DeclaredType,
		"media_type":    img.MediaType,
		"image_bytes":   len(img.Data),
	}).Info("image decoded")

	text, err := s.complete(ctx, img)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	result, outcome := Normalize(text)
	entry := log.WithFields(logger.Fields{
		"outcome":    outcome,
		"emotion":    result.Emotion,
		"confidence": result.Confidence,
	})
	if outcome == OutcomeOK {
		s.metrics.IncrementSucceeded()
		entry.Info("analysis parsed")
	} else {
		s.metrics.IncrementDegraded()
		// 原始回复只进日志，不回给客户端
		entry.WithField("raw_reply", truncate(text, 500)).Warn("analysis degraded")
	}
	return result, nil
}

func (s *AnalysisService) complete(ctx context.Context, img *model.EncodedImage) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx).WithField("provider", s.client.Name())
	log.Debug("calling vision provider")

	start := time.Now()
	text, err := s.client.Complete(ctx, vision.Request{Prompt: s.prompt, Image: img})
	elapsed := time.Since(start)
	s.metrics.RecordUpstream(elapsed)

	if err != nil {
		timedOut := isTimeout(ctx, err)
		if timedOut {
			s.metrics.IncrementTimeouts()
		} else {
			s.metrics.IncrementUpstreamErrors()
		}
		log.WithError(err).WithField("elapsed_ms", elapsed.Milliseconds()).Error("vision provider call failed")
		return "", &UpstreamError{Provider: s.client.Name(), Timeout: timedOut, Err: err}
	}

	log.WithFields(logger.Fields{
		"elapsed_ms":  elapsed.Milliseconds(),
		"reply_chars": len(text),
	}).Info("vision provider returned")
	return text, nil
}

// Match analyzes the image and grades it against target.
func (s *AnalysisService) Match(ctx context.Context, target, image string) (model.MatchResponse, error) {
	emotion, ok := s.catalog.Lookup(target)
	if !ok {
		s.metrics.IncrementRequests()
		s.metrics.IncrementInputErrors()
		return model.MatchResponse{}, ErrUnknownTarget
	}

	result, err := s.Analyze(ctx, image)
	if err != nil {
		return model.MatchResponse{}, err
	}

	return model.MatchResponse{
		Target:   emotion.Name,
		Analysis: result,
		Verdict:  s.thresholds.Classify(emotion, result),
	}, nil
}

func (s *AnalysisService) Stats() model.StatsResponse {
	m := s.metrics
	provider := ""
	if s.client != nil {
		provider = s.client.Name()
	}
	return model.StatsResponse{
		Requests:       m.requests.Load(),
		Succeeded:      m.succeeded.Load(),
		Degraded:       m.degraded.Load(),
		InputErrors:    m.inputErrors.Load(),
		UpstreamErrors: m.upstreamErrors.Load(),
		Timeouts:       m.timeouts.Load(),
		LiveSessions:   m.GetLiveSessions(),
		AvgUpstreamMs:  m.GetAvgUpstreamMs(),
		Provider:       provider,
		Configured:     s.Ready(),
	}
}

// isTimeout also catches the provider's own HTTP client timeout, which can
// fire just before ctx does.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
