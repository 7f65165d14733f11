package openai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/infra/ai/prompt"
)

const maxTokens = 2048

// Client classifies container logs through any OpenAI-compatible
// chat-completion endpoint. Pointing BaseURL at an Ollama server's /v1
// route works unchanged.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Classify runs the logs through the analysis prompt and parses the
// NORMAL-or-ERROR protocol response.
func (c *Client) Classify(ctx context.Context, logs, model, promptTemplate string) (analysis.Classification, error) {
	if strings.TrimSpace(logs) == "" {
		return analysis.Normal, nil
	}
	rendered, err := prompt.RenderAnalysis(promptTemplate, logs)
	if err != nil {
		return analysis.Classification{}, err
	}

	text, err := c.complete(ctx, model, rendered, 0.15)
	if err != nil {
		return analysis.Classification{}, fmt.Errorf("analysis completion: %w", err)
	}
	if text == "" {
		return analysis.Classification{}, fmt.Errorf("model returned an empty response")
	}
	if prompt.IsNormalResponse(text) {
		return analysis.Normal, nil
	}

	snippet := prompt.ExtractSnippet(text, logs)
	return analysis.Abnormal(snippet, text), nil
}

// Summarize builds a short health summary over recent abnormality records.
func (c *Client) Summarize(ctx context.Context, recent []*abnormalities.Abnormality, model string) (string, error) {
	var b strings.Builder
	for _, a := range recent {
		desc := a.Analysis
		if len(desc) > 100 {
			desc = desc[:100] + "..."
		}
		fmt.Fprintf(&b, "- Container: %s, Status: %s, Last Seen: %s, Desc: %s\n",
			a.ContainerName, a.Status, a.LastDetectedAt.Format("2006-01-02 15:04"), desc)
	}

	text, err := c.complete(ctx, model, prompt.RenderSummary(b.String()), 0.4)
	if err != nil {
		return "", fmt.Errorf("summary completion: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("model returned an empty summary")
	}
	return text, nil
}

// ListModels returns the provider's model names, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.Client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	sort.Strings(names)
	return names, nil
}

func (c *Client) complete(ctx context.Context, model, userPrompt string, temperature float32) (string, error) {
	if model == "" {
		model = c.Model
	}
	if model == "" {
		return "", fmt.Errorf("no model configured")
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
