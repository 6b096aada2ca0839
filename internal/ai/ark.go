package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ArkGenerator runs the prompt through an eino chat model backed by Volcengine Ark.
type ArkGenerator struct {
	chatModel model.ChatModel
}

func NewArkGenerator(ctx context.Context, cfg ProviderConfig) (*ArkGenerator, error) {
	temperature := cfg.Generation.Temperature
	topP := cfg.Generation.TopP
	maxTokens := cfg.Generation.MaxOutputTokens

	arkCfg := &ark.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &temperature,
		TopP:        &topP,
		MaxTokens:   &maxTokens,
	}

	chatModel, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("create ark chat model failed: %w", err)
	}
	return &ArkGenerator{chatModel: chatModel}, nil
}

func (g *ArkGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if prompt.System != "" {
		messages = append(messages, schema.SystemMessage(prompt.System))
	}
	messages = append(messages, schema.UserMessage(prompt.User))

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("ark generate failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Content), nil
}
