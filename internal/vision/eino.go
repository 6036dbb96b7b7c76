package vision

import (
	"context"
	"fmt"

	"mirror-match-backend/internal/config"
	"mirror-match-backend/internal/utils"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// generator is the part of an eino chat model used here.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error)
}

// EinoClient adapts an eino chat model (ark, qwen) to Client.
type EinoClient struct {
	name  string
	model generator
	opts  []einoModel.Option
}

func newEinoClient(name string, m generator, opts ...einoModel.Option) *EinoClient {
	return &EinoClient{name: name, model: m, opts: opts}
}

func NewDoubaoClient(ctx context.Context, cfg config.DoubaoConfig) (*EinoClient, error) {
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}

	var opts []einoModel.Option
	if cfg.MaxTokens > 0 {
		opts = append(opts, einoModel.WithMaxTokens(cfg.MaxTokens))
	}
	return newEinoClient(ProviderDoubao, chatModel, opts...), nil
}

func NewQwenClient(ctx context.Context, cfg config.QwenConfig) (*EinoClient, error) {
	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  utils.NewHTTPClient(cfg.Timeout, cfg.DebugRequest),
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return newEinoClient(ProviderQwen, chatModel), nil
}

func (c *EinoClient) Name() string {
	return c.name
}

func (c *EinoClient) Complete(ctx context.Context, req Request) (string, error) {
	msg, err := c.model.Generate(ctx, []*schema.Message{{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeText,
				Text: req.Prompt,
			},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: req.Image.DataURI(),
				},
			},
		},
	}}, c.opts...)
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}
