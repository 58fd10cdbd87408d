package advisory

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-autotrade/internal/config"
	"github.com/rxtech-lab/argo-autotrade/internal/logger"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	client      *resty.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *logger.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewClient(cfg config.AdvisoryConfig, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "advisory.base_url is required")
	}

	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "advisory.model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "argo-autotrade/advisory")

	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      log.Named("advisory"),
	}, nil
}

// Analyze sends both prompts and parses the reply.
func (c *Client) Analyze(ctx context.Context, systemPrompt, userPrompt string) (Response, error) {
	content, err := c.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Response{}, err
	}

	resp, err := Parse(content)
	if err != nil {
		c.logger.Warn("Failed to parse advisory response", zap.Int("length", len(content)), zap.Error(err))

		return Response{}, err
	}

	c.logger.Info("Advisory response received",
		zap.Int("recommendations", len(resp.Recommendations)),
		zap.String("interval_reason", resp.IntervalReason),
	)

	return resp, nil
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var (
		result  chatResponse
		failure chatError
	)

	started := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		}).
		SetResult(&result).
		SetError(&failure).
		Post("/chat/completions")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeAdvisoryRequestFailed, "advisory request failed", err)
	}

	if resp.IsError() {
		message := failure.Error.Message
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}

		return "", errors.Newf(errors.ErrCodeAdvisoryRequestFailed, "advisory service returned %d: %s", resp.StatusCode(), message)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", errors.New(errors.ErrCodeAdvisoryParseFailed, "advisory service returned an empty completion")
	}

	c.logger.Debug("Advisory completion received",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
	)

	return result.Choices[0].Message.Content, nil
}
