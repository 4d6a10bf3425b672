package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"studyhelper/internal/apperr"
	"studyhelper/internal/config"
)

// Temperature is the sampling temperature used for every study artifact.
const Temperature float32 = 0.4

var errEmptyResponse = errors.New("model returned an empty response")

// Client performs one synchronous chat completion per prompt. It never retries.
type Client struct {
	chat     model.BaseChatModel
	provider string
	model    string
}

// NewClient builds a chat model for provider using the resolved API key.
func NewClient(ctx context.Context, provider string, provCfg config.ProviderConfig, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.ErrMissingCredential
	}
	modelName := provCfg.Model
	if modelName == "" {
		return nil, fmt.Errorf("provider %s has no model configured", provider)
	}

	var (
		chat model.BaseChatModel
		err  error
	)
	switch strings.ToLower(provider) {
	case "openai":
		chat, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  apiKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: apiKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chat, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chat, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    apiKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return NewWithModel(chat, provider, modelName), nil
}

// NewWithModel wraps an existing eino chat model.
func NewWithModel(chat model.BaseChatModel, provider, modelName string) *Client {
	return &Client{chat: chat, provider: provider, model: modelName}
}

// Model reports the provider and model identifier in "provider/model" form.
func (c *Client) Model() string {
	return c.provider + "/" + c.model
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.Generate(ctx,
		[]*schema.Message{schema.UserMessage(prompt)},
		model.WithModel(c.model),
		model.WithTemperature(Temperature),
	)
	if err != nil {
		return "", &apperr.ModelInvocationError{Err: fmt.Errorf("%s: %w", c.Model(), err)}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &apperr.ModelInvocationError{Err: fmt.Errorf("%s: %w", c.Model(), errEmptyResponse)}
	}
	return resp.Content, nil
}
