package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/utils"
	"mirror-match-backend/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// 错误响应体只记日志的最大长度
const maxLoggedErrorBody = 2000

// AnthropicClient calls the Messages API through the official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicClient(cfg config.AnthropicConfig, timeout time.Duration) *AnthropicClient {
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2023-06-01"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL+"/"),
		option.WithHTTPClient(utils.NewHTTPClient(timeout, cfg.DebugRequest)),
		option.WithHeader("anthropic-version", apiVersion),
		// 超时由调用方的 context 控制，不重试
		option.WithMaxRetries(0),
		option.WithMiddleware(rejectNonJSONErrors),
	)

	return &AnthropicClient{
		client:    client,
		model:     cfg.Model,
		maxTokens: int64(maxTokens),
	}
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
				anthropic.NewImageBlockBase64(req.Image.MediaType, req.Image.Base64),
			),
		},
	})
	if err != nil {
		return "", apiError(ctx, err)
	}

	// 只取第一段文本
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

// APIStatusError is a non-2xx answer from the Messages API. It carries the
// status and the provider's own error message only; the raw body is logged
// and dropped.
type APIStatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIStatusError) Error() string {
	switch {
	case e.Message != "" && e.Type != "":
		return fmt.Sprintf("anthropic api error (%d %s): %s", e.StatusCode, e.Type, e.Message)
	case e.Message != "":
		return fmt.Sprintf("anthropic api error (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("anthropic api error (%d)", e.StatusCode)
	}
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIStatusError(status int, raw []byte) *APIStatusError {
	e := &APIStatusError{StatusCode: status}
	var body anthropicErrorBody
	if json.Unmarshal(raw, &body) == nil {
		e.Type = body.Error.Type
		e.Message = body.Error.Message
	}
	return e
}

// apiError strips the SDK error down to status and message so that nothing
// from the upstream body reaches the caller.
func apiError(ctx context.Context, err error) error {
	var statusErr *APIStatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}

	var sdkErr *anthropic.Error
	if !errors.As(err, &sdkErr) {
		return err
	}
	raw := sdkErr.RawJSON()
	logger.FromContext(ctx).WithFields(logger.Fields{
		"status": sdkErr.StatusCode,
		"body":   clip(raw, maxLoggedErrorBody),
	}).Warn("anthropic api error")
	return newAPIStatusError(sdkErr.StatusCode, []byte(raw))
}

// rejectNonJSONErrors turns an error status with a body that is not JSON
// (an HTML page from a proxy, say) into an APIStatusError before the SDK
// tries to decode it.
func rejectNonJSONErrors(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	if readErr == nil && json.Valid(raw) {
		resp.Body = io.NopCloser(bytes.NewReader(raw))
		return resp, nil
	}

	logger.FromContext(req.Context()).WithFields(logger.Fields{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"body":         clip(string(raw), maxLoggedErrorBody),
	}).Warn("anthropic api error with non-JSON body")
	return nil, &APIStatusError{StatusCode: resp.StatusCode}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
