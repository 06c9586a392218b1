package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
)

// ErrTransient marks completion failures worth retrying (network, provider
// outage). Malformed output is not an error at this layer; callers get the
// raw text back and degrade it themselves.
var ErrTransient = errors.New("completion service unavailable")

type Options struct {
	Temperature float64
	MaxTokens   int
}

// Completer is the text-completion capability consumed by the workers.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

type Client struct {
	llm       llms.Model
	modelName string
}

// NewClient creates the configured provider's completion client.
func NewClient(cfg common.Config) (*Client, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case "openai":
		if cfg.LLMAPIKey == "" {
			return nil, errors.New("LLM_API_KEY required for openai provider")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.LLMAPIKey),
			openai.WithModel(cfg.LLMModel),
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.LLMModel)}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.LLMBaseURL))
		}
		model, err = ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Client{llm: model, modelName: cfg.LLMModel}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	callOpts := []llms.CallOption{}
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return response, nil
}

func (c *Client) Model() string {
	return c.modelName
}
