package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator calls generateContent on the Gemini API.
type GeminiGenerator struct {
	client     *genai.Client
	model      string
	generation GenerationConfig
}

func NewGeminiGenerator(ctx context.Context, cfg ProviderConfig) (*GeminiGenerator, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiGenerator{
		client:     client,
		model:      cfg.Model,
		generation: cfg.Generation,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.generation.MaxOutputTokens),
	}
	if prompt.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if g.generation.Temperature > 0 {
		genCfg.Temperature = genai.Ptr(g.generation.Temperature)
	}
	if g.generation.TopK > 0 {
		genCfg.TopK = genai.Ptr(float32(g.generation.TopK))
	}
	if g.generation.TopP > 0 {
		genCfg.TopP = genai.Ptr(g.generation.TopP)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.User), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := strings.TrimSpace(firstCandidateText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
