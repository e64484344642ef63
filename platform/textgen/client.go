package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repwatch_backend/platform/apperr"
	"repwatch_backend/platform/config"
	"repwatch_backend/platform/logger"

	"google.golang.org/genai"
)

// Client talks to the Gemini API in JSON response mode.
type Client struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewClient creates a Gemini-backed Generator.
func NewClient(ctx context.Context, cfg config.TextGenConfig, log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.GetGeminiAPIKey())
	if apiKey == "" {
		return nil, apperr.New(apperr.KindServiceAuth, "missing GEMINI_API_KEY")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		client: gc,
		model:  cfg.GetTextGenModel(),
		log:    log,
	}, nil
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := req.Instructions
	if req.Input != nil {
		input, err := json.Marshal(req.Input)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "marshal request input", err)
		}
		prompt += "\n\nINPUT JSON (the only source of truth):\n" + string(input)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(callCtx, c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.2),
		},
	)
	if err != nil {
		return nil, classifyErr(err)
	}

	text := strings.TrimSpace(resp.Text())
	text = stripCodeFence(text)
	if !json.Valid([]byte(text)) {
		return nil, apperr.New(apperr.KindValidation, "service response is not valid JSON")
	}

	c.log.Debug("textgen call completed",
		"model", c.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"response_bytes", len(text),
	)
	return json.RawMessage(text), nil
}

// SmokeTest implements Generator. Auth and quota failures here predict
// universal failure for the stage, so callers abort on them.
func (c *Client) SmokeTest(ctx context.Context) error {
	_, err := c.Generate(ctx, Request{
		Instructions: `Reply with exactly this JSON object: {"ok": true}`,
		Timeout:      30 * time.Second,
	})
	return err
}

func classifyErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Timeout("text-generation call timed out", err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.ServiceAuth("text-generation auth rejected", err)
		case http.StatusTooManyRequests:
			return apperr.ServiceQuota("text-generation quota exceeded", err)
		}
	}
	return apperr.ServiceCall("text-generation call failed", err)
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// still emit around JSON despite the response MIME type.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ Generator = (*Client)(nil)
