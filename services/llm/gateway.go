// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/modelbench/pkg/logging"
)

const (
	// DefaultMaxRetries is the total attempt budget per Generate call.
	DefaultMaxRetries = 3

	// DefaultBaseDelay seeds the exponential backoff between attempts.
	DefaultBaseDelay = 1000 * time.Millisecond

	defaultBaseURL = "https://api.openai.com/v1"
)

// Message is one turn of a chat-shaped conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest describes one generation call.
//
// Either SystemPrompt/UserPrompt or an explicit Messages slice is provided;
// when Messages is non-empty it wins and the prompt fields are ignored.
// MaxTokens is the caller's visible-output budget before class expansion.
// A zero Timeout means "use the class default".
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Messages     []Message
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

// Usage is the normalized token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	ReasoningTokens  int `json:"reasoning_tokens"`
}

// GenerateResponse is the normalized result of one generation call,
// regardless of which wire protocol produced it. Text has already had a
// single surrounding code fence stripped.
type GenerateResponse struct {
	Text  string
	Usage Usage
}

// GatewayConfig configures a Gateway.
//
// The zero value is not usable; APIKey is required. All other fields
// default sensibly in NewGateway.
type GatewayConfig struct {
	// APIKey authenticates against the provider.
	APIKey string

	// BaseURL overrides the provider endpoint. Used by tests and by
	// OpenAI-compatible local stacks. Default: the public OpenAI API.
	BaseURL string

	// MaxRetries is the total attempt budget per call. Default: 3.
	MaxRetries int

	// BaseDelay seeds the exponential backoff: the delay after attempt n
	// is BaseDelay * 2^n. Default: 1s.
	BaseDelay time.Duration

	// HTTPClient overrides the transport for the responses protocol.
	// The chat protocol goes through the go-openai client, which gets
	// the same override.
	HTTPClient *http.Client
}

// Gateway sends generation requests over whichever wire protocol a model
// requires and normalizes the answers.
//
// # Thread Safety
//
// Gateway is safe for concurrent use; it holds no per-call state beyond
// ephemeral timers. The benchmark coordinator nevertheless calls it
// single-flight to respect provider rate limits.
type Gateway struct {
	chat       *openai.Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	baseDelay  time.Duration
	logger     *logging.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway creates a Gateway from config.
func NewGateway(cfg GatewayConfig, logger *logging.Logger) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gateway requires an API key")
	}
	if logger == nil {
		logger = logging.Default()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		// No client-level timeout: each call carries its own deadline
		// via context, sized to the model class.
		httpClient = &http.Client{}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = httpClient

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	return &Gateway{
		chat:       openai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		sleep:      sleepCtx,
	}, nil
}

// Generate sends one generation request and returns the normalized response.
//
// The wire protocol and token/timeout policy are derived from the model
// identifier. Transient failures (429, 5xx, timeouts, connection resets)
// are retried with exponential backoff up to the configured attempt
// budget; exhausting it re-raises the last error wrapped in
// ErrRetriesExhausted. Non-transient failures return immediately.
//
// An in-flight call is bounded by the per-call timeout, never by the
// retry loop: cancellation of ctx is honored between attempts and by the
// underlying HTTP transports.
func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	class := ClassifyModel(req.Model)
	protocol := ProtocolFor(req.Model)
	budget := TokenBudget(class, req.MaxTokens)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = TimeoutFor(class)
	}

	ctx, span := otel.Tracer("modelbench.llm").Start(ctx, "Gateway.Generate",
		trace.WithAttributes(
			attribute.String("model", req.Model),
			attribute.String("class", class.String()),
			attribute.String("protocol", protocol.String()),
			attribute.Int("token_budget", budget),
		),
	)
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.baseDelay * (1 << (attempt - 1))
			g.logger.Warn("retrying generation",
				"model", req.Model, "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := g.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := g.callOnce(ctx, protocol, class, budget, timeout, req)
		if err == nil {
			resp.Text = StripFence(resp.Text)
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			return resp, nil
		}

		lastErr = err
		if !retryable(err) {
			g.logger.Error("generation failed", "model", req.Model, "error", err)
			return nil, err
		}
	}

	g.logger.Error("generation retries exhausted",
		"model", req.Model, "attempts", g.maxRetries, "error", lastErr)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, g.maxRetries, lastErr)
}

// callOnce performs a single attempt with its own deadline.
func (g *Gateway) callOnce(ctx context.Context, protocol Protocol, class ModelClass, budget int, timeout time.Duration, req GenerateRequest) (*GenerateResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var resp *GenerateResponse
	var err error
	switch protocol {
	case ProtocolResponses:
		resp, err = g.generateResponses(callCtx, budget, req)
	default:
		resp, err = g.generateChat(callCtx, class, budget, req)
	}

	if err != nil && callCtx.Err() == context.DeadlineExceeded {
		// Report deadline expiry as a timeout so the retry classifier
		// and the operator both see what actually happened.
		return nil, &timeoutError{timeout: timeout.String(), wrapped: context.DeadlineExceeded}
	}
	return resp, err
}

// messagesFor assembles the effective conversation for a request.
func messagesFor(req GenerateRequest) []Message {
	if len(req.Messages) > 0 {
		return req.Messages
	}
	var msgs []Message
	if req.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, Message{Role: "user", Content: req.UserPrompt})
	return msgs
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
