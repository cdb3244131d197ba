package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/brightclass/brightclass-backend/internal/pkg/httpx"
	"github.com/brightclass/brightclass-backend/internal/pkg/logger"
	"github.com/brightclass/brightclass-backend/internal/platform/apierr"
)

// Generator is the generative-content API surface used by the rest of the
// backend.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string, schema map[string]any, temperature float64) (string, error)
}

type tokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

type Client struct {
	log        *logger.Logger
	baseURL    string
	model      string
	tokens     tokenProvider
	httpClient *http.Client

	maxAttempts     int
	baseBackoff     time.Duration
	backoffFactor   float64
	maxBackoff      time.Duration
	maxOutputTokens int

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(log *logger.Logger, tokens *TokenSource) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source required")
	}

	baseURL := strings.TrimSpace(os.Getenv("GENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GENAI_MODEL"))
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &Client{
		log:             log.With("service", "GenAIClient"),
		baseURL:         baseURL,
		model:           model,
		tokens:          tokens,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		maxAttempts:     8,
		baseBackoff:     600 * time.Millisecond,
		backoffFactor:   1.8,
		maxBackoff:      10 * time.Second,
		maxOutputTokens: 8192,
		sleep:           sleepContext,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) Model() string { return c.model }

type genAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *genAIHTTPError) Error() string {
	return fmt.Sprintf("genai http %d: %s", e.StatusCode, e.Body)
}

func (e *genAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type requestContent struct {
	Role  string        `json:"role"`
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens"`
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Reject-leaning thresholds; never disabled.
func defaultSafetySettings() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	out := make([]safetySetting, 0, len(categories))
	for _, cat := range categories {
		out = append(out, safetySetting{Category: cat, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return out
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// GenerateJSON sends one structured-output generation request and returns the
// concatenated text of the first candidate. Throttling (429/503) is retried
// with exponential backoff; any other failure surfaces immediately.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema map[string]any, temperature float64) (string, error) {
	body := generateRequest{
		Contents: []requestContent{
			{Role: "user", Parts: []requestPart{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  c.maxOutputTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
		SafetySettings: defaultSafetySettings(),
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.model)
	backoff := c.baseBackoff

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			return extractCandidateText(raw)
		}
		lastErr = err

		if !httpx.IsThrottleError(err) {
			// Keep the code set by lower layers (e.g. a signing config
			// error); only untyped failures become upstream errors.
			var ae *apierr.Error
			if errors.As(err, &ae) {
				return "", err
			}
			return "", apierr.Upstream(err)
		}
		if attempt == c.maxAttempts {
			break
		}

		// Jitter applies to our own backoff only; an upstream Retry-After
		// hint is a floor, never shortened.
		sleepFor := httpx.RetryAfterDuration(resp, httpx.JitterSleep(backoff), c.maxBackoff)
		c.log.Warn("Generation request throttled, retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, sleepFor); err != nil {
			return "", err
		}
		backoff = httpx.NextBackoff(backoff, c.backoffFactor, c.maxBackoff)
	}

	return "", apierr.Throttled(fmt.Errorf("generation retries exhausted after %d attempts: %w", c.maxAttempts, lastErr))
}

func (c *Client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return resp, raw, &genAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func extractCandidateText(raw []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("genai decode error: %w; raw=%s", err, string(raw))
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("genai response has no candidates; raw=%s", string(raw))
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", fmt.Errorf("genai candidate has no text content")
	}
	return out.String(), nil
}
