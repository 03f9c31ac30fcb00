package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Service is the external reasoning endpoint: takes the market context
// prompt, returns free-form analysis text.
type Service interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

// AdvisoryError marks a failed or unusable advisory call. It always
// degrades to the rule verdict, never aborts the cycle.
type AdvisoryError struct {
	Err error
}

func (e *AdvisoryError) Error() string { return fmt.Sprintf("advisory: %v", e.Err) }
func (e *AdvisoryError) Unwrap() error { return e.Err }

const systemPrompt = "You are a professional quantitative trading analyst specializing in technical and volume-price analysis."

// Client talks to an OpenAI-compatible chat completions endpoint
// (DeepSeek and friends).
type Client struct {
	oa      openai.Client
	model   string
	timeout time.Duration
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		oa: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model:   model,
		timeout: timeout,
	}
}

// Advise submits the prompt and returns the raw reply text. The call is
// bounded by the client timeout so a slow endpoint cannot stall the cycle.
func (c *Client) Advise(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.oa.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(0.2),
		MaxCompletionTokens: openai.Int(800),
	})
	if err != nil {
		return "", &AdvisoryError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &AdvisoryError{Err: fmt.Errorf("empty completion")}
	}
	return resp.Choices[0].Message.Content, nil
}
