package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/envutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/httpx"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

// File is a document attached to the user turn.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Client is the subset of the OpenAI Responses API used for lesson generation.
type Client interface {
	// Structured outputs (json_schema)
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, files []File) (map[string]any, error)

	// Plain text (no schema)
	GenerateText(ctx context.Context, system, user string, files []File) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("OPENAI_API_KEY", ""),
		BaseURL:     envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		Model:       envutil.String("OPENAI_MODEL", "gpt-4.1"),
		Timeout:     envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 4),
		Temperature: 0.4,
	}
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	maxRetries  int
}

func NewClient(log *logger.Logger) (Client, error) { return NewClientWithConfig(log, ConfigFromEnv()) }

func NewClientWithConfig(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:         log.With("service", "OpenAIClient", "model", cfg.Model),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
	header     http.Header
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw), header: resp.Header}
	}
	return raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if ctx.Err() != nil || !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return err
		}

		var header http.Header
		var he *openAIHTTPError
		if errors.As(err, &he) {
			header = he.header
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(header, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
}

type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (r responsesResponse) refusal() string {
	if r.Refusal != "" {
		return r.Refusal
	}
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "refusal" && c.Refusal != "" {
				return c.Refusal
			}
		}
	}
	return ""
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

// userContent inlines attachments as input_file parts ahead of the prompt text.
func userContent(user string, files []File) any {
	if len(files) == 0 {
		return user
	}
	parts := make([]map[string]any, 0, len(files)+1)
	for _, f := range files {
		mt := f.MIMEType
		if mt == "" {
			mt = "application/pdf"
		}
		parts = append(parts, map[string]any{
			"type":      "input_file",
			"filename":  f.Name,
			"file_data": "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(f.Data),
		})
	}
	parts = append(parts, map[string]any{"type": "input_text", "text": user})
	return parts
}

func (c *client) newRequest(system, user string, files []File) responsesRequest {
	return responsesRequest{
		Model: c.model,
		Input: []inputMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userContent(user, files)},
		},
		Temperature: c.temperature,
	}
}

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, files []File) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}
	req := c.newRequest(system, user, files)
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}

	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if r := resp.refusal(); r != "" {
		return nil, fmt.Errorf("model refused: %s", r)
	}
	jsonText := extractOutputText(resp)
	if strings.TrimSpace(jsonText) == "" {
		return nil, fmt.Errorf("no output_text found in response")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, system, user string, files []File) (string, error) {
	req := c.newRequest(system, user, files)
	var resp responsesResponse
	if err := c.do(ctx, http.MethodPost, "/v1/responses", req, &resp); err != nil {
		return "", err
	}
	if r := resp.refusal(); r != "" {
		return "", fmt.Errorf("model refused: %s", r)
	}
	out := extractOutputText(resp)
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return out, nil
}
