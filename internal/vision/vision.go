package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/game"
	"mirror-match-backend/internal/model"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderDoubao    = "doubao"
	ProviderQwen      = "qwen"
	ProviderMock      = "mock"
)

var (
	// ErrMissingCredential means the selected provider has no API key.
	ErrMissingCredential = errors.New("vision provider credential is not configured")
	ErrUnknownProvider   = errors.New("unknown vision provider")
)

// Request is one image plus the instruction sent with it.
type Request struct {
	Prompt string
	Image  *model.EncodedImage
}

// Client sends a single multimodal completion and returns the raw reply
// text. An empty string with a nil error means the upstream answered with
// no content.
type Client interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// NewClient builds the client selected by cfg.Vision.Provider. It is called
// once at startup; ErrMissingCredential is returned when the provider needs
// a key that is absent.
func NewClient(ctx context.Context, cfg *config.Config, catalog *game.Catalog) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Vision.Provider))
	switch provider {
	case ProviderAnthropic, "":
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, ProviderAnthropic)
		}
		return NewAnthropicClient(cfg.Anthropic, cfg.Vision.Timeout), nil
	case ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, ProviderOpenAI)
		}
		return NewOpenAIClient(cfg.OpenAI), nil
	case ProviderDoubao:
		if cfg.Doubao.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, ProviderDoubao)
		}
		return NewDoubaoClient(ctx, cfg.Doubao)
	case ProviderQwen:
		if cfg.Qwen.APIKey == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingCredential, ProviderQwen)
		}
		return NewQwenClient(ctx, cfg.Qwen)
	case ProviderMock:
		return NewMockClient(catalog, nil), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Vision.Provider)
	}
}
