package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/envutil"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/logger"
)

type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Client generates lesson content with a Gemini model.
type Client interface {
	// GenerateJSON asks for application/json output constrained by schema and
	// returns the raw response text. Gemini may still wrap it in fences.
	GenerateJSON(ctx context.Context, system, user string, schema map[string]any, files []File) (string, error)
	GenerateText(ctx context.Context, system, user string, files []File) (string, error)
	Close() error
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:      envutil.String("GEMINI_API_KEY", ""),
		Model:       envutil.String("GEMINI_MODEL", "gemini-2.5-pro"),
		Temperature: 0.4,
	}
}

type client struct {
	log         *logger.Logger
	genai       *genai.Client
	model       string
	temperature float32
}

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}
	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &client{
		log:         log.With("service", "GeminiClient", "model", cfg.Model),
		genai:       gc,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *client) newModel(system string) *genai.GenerativeModel {
	m := c.genai.GenerativeModel(c.model)
	m.SetTemperature(c.temperature)
	if strings.TrimSpace(system) != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	return m
}

func parts(user string, files []File) []genai.Part {
	out := make([]genai.Part, 0, len(files)+1)
	for _, f := range files {
		mt := f.MIMEType
		if mt == "" {
			mt = "application/pdf"
		}
		out = append(out, genai.Blob{MIMEType: mt, Data: f.Data})
	}
	return append(out, genai.Text(user))
}

func (c *client) GenerateJSON(ctx context.Context, system, user string, schema map[string]any, files []File) (string, error) {
	m := c.newModel(system)
	m.ResponseMIMEType = "application/json"
	if schema != nil {
		s, err := SchemaFromMap(schema)
		if err != nil {
			c.log.Warn("Schema not representable for Gemini; relying on prompt", "error", err)
		} else {
			m.ResponseSchema = s
		}
	}
	return c.generate(ctx, m, parts(user, files))
}

func (c *client) GenerateText(ctx context.Context, system, user string, files []File) (string, error) {
	return c.generate(ctx, c.newModel(system), parts(user, files))
}

func (c *client) generate(ctx context.Context, m *genai.GenerativeModel, p []genai.Part) (string, error) {
	resp, err := m.GenerateContent(ctx, p...)
	if err != nil {
		return "", fmt.Errorf("gemini api error: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason.String())
	}
	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini returned no text")
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		// first candidate only
		break
	}
	return sb.String()
}

func (c *client) Close() error {
	if c == nil || c.genai == nil {
		return nil
	}
	return c.genai.Close()
}

// SchemaFromMap converts a JSON-schema map into Gemini's schema type.
// Unsupported keywords are ignored.
func SchemaFromMap(m map[string]any) (*genai.Schema, error) {
	if m == nil {
		return nil, errors.New("nil schema")
	}
	s := &genai.Schema{}
	switch t, _ := m["type"].(string); t {
	case "object":
		s.Type = genai.TypeObject
		props, _ := m["properties"].(map[string]any)
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			pm, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q: not an object", name)
			}
			ps, err := SchemaFromMap(pm)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = ps
		}
		switch req := m["required"].(type) {
		case []string:
			s.Required = append(s.Required, req...)
		case []any:
			for _, r := range req {
				if rs, ok := r.(string); ok {
					s.Required = append(s.Required, rs)
				}
			}
		}
	case "array":
		s.Type = genai.TypeArray
		im, ok := m["items"].(map[string]any)
		if !ok {
			return nil, errors.New("array without items")
		}
		is, err := SchemaFromMap(im)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = is
	case "string":
		s.Type = genai.TypeString
		if enum, ok := m["enum"].([]any); ok {
			for _, e := range enum {
				if es, ok := e.(string); ok {
					s.Enum = append(s.Enum, es)
				}
			}
			if len(s.Enum) > 0 {
				s.Format = "enum"
			}
		}
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %v", m["type"])
	}
	return s, nil
}
