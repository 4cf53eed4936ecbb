// Package llm routes completion requests across a model chain on an
// OpenAI-compatible API. Requests ask for JSON object output; the caller
// parses the decision out of the returned text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus-core/internal/observability"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// ChatClient is the slice of the OpenAI client the router needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the router.
type Config struct {
	BaseURL       string
	APIKey        string
	PrimaryModel  string
	FallbackModel string
	ComplexModel  string
	Timeout       time.Duration
}

// Router tries models in order until one returns content. A complexity
// hint promotes the complex model to the front of the chain.
type Router struct {
	client  ChatClient
	config  Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRouter builds a router talking to the configured API endpoint.
func NewRouter(config Config, logger *slog.Logger, metrics *observability.Metrics) *Router {
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &Router{
		client:  openai.NewClientWithConfig(cc),
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// NewRouterWithClient builds a router over an injected client. Test hook.
func NewRouterWithClient(client ChatClient, config Config, logger *slog.Logger, metrics *observability.Metrics) *Router {
	return &Router{client: client, config: config, logger: logger, metrics: metrics}
}

// chain returns the model order for one request, deduplicated.
func (r *Router) chain(complexHint bool) []string {
	var models []string
	if complexHint && r.config.ComplexModel != "" {
		models = append(models, r.config.ComplexModel)
	}
	for _, m := range []string{r.config.PrimaryModel, r.config.FallbackModel} {
		if m == "" {
			continue
		}
		dup := false
		for _, seen := range models {
			if seen == m {
				dup = true
				break
			}
		}
		if !dup {
			models = append(models, m)
		}
	}
	return models
}

// CompleteJSON runs the model chain and returns the first non-empty
// completion. Every attempt requests JSON object output.
func (r *Router) CompleteJSON(ctx context.Context, messages []Message, complexHint bool) (string, error) {
	models := r.chain(complexHint)
	if len(models) == 0 {
		return "", errors.New("llm: no models configured")
	}

	reqMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	var lastErr error
	for _, model := range models {
		content, err := r.tryModel(ctx, model, reqMessages)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if r.logger != nil {
			r.logger.Warn("model attempt failed", "model", model, "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("llm: all models failed: %w", lastErr)
}

func (r *Router) tryModel(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	elapsed := time.Since(start)

	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordLLMRequest(model, "error", elapsed)
		}
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		if r.metrics != nil {
			r.metrics.RecordLLMRequest(model, "empty", elapsed)
		}
		return "", fmt.Errorf("model %s returned no content", model)
	}
	if r.metrics != nil {
		r.metrics.RecordLLMRequest(model, "ok", elapsed)
	}
	return resp.Choices[0].Message.Content, nil
}
