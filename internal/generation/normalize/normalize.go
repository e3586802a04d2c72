// Package normalize turns raw generation output into canonical lesson content.
//
// Generated payloads arrive as decoded objects, bare arrays, JSON strings or
// markdown-fenced blocks. Each content type has exactly one parse function;
// a payload that does not fit its type is ErrMalformedPayload.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

var (
	ErrUnknownContentType = errors.New("unknown content type")
	ErrMalformedPayload   = errors.New("malformed payload")
)

// Parse normalizes raw into the canonical content for ct.
func Parse(ct lessons.ContentType, raw any) (lessons.Content, error) {
	switch ct {
	case lessons.ContentText:
		return parseText(raw)
	case lessons.ContentPresentation:
		return parsePresentation(raw)
	case lessons.ContentQuiz, lessons.ContentTest:
		return parseQuestions(ct, raw)
	case lessons.ContentPodcast:
		return parsePodcast(raw)
	case lessons.ContentComic:
		return parseComic(raw)
	case lessons.ContentFlashcards:
		return parseFlashcards(raw)
	case lessons.ContentMindmap:
		return parseMindmap(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, ct)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

var fenceTags = []string{"json", "mermaid", "markdown", "md", "text"}

// StripFences removes a leading ```lang line and a trailing ``` line.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if !strings.Contains(s, "\n") {
		// single line: ```json {...}```
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```"))
		for _, tag := range fenceTags {
			if len(s) > len(tag) && strings.EqualFold(s[:len(tag)], tag) && s[len(tag)] == ' ' {
				return strings.TrimSpace(s[len(tag):])
			}
		}
		return s
	}
	lines := strings.Split(s, "\n")
	body := lines[1:]
	if n := len(body); n > 0 && strings.TrimSpace(body[n-1]) == "```" {
		body = body[:n-1]
	} else if n > 0 {
		body[n-1] = strings.TrimSuffix(strings.TrimRight(body[n-1], " \t\r"), "```")
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

// decode reduces raw to generic JSON values (map[string]any, []any, string, float64, bool).
// Strings are fence-stripped and parsed as JSON.
func decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, malformed("empty payload")
	case map[string]any, []any:
		return v, nil
	case string:
		return decodeText(v)
	case []byte:
		return decodeText(string(v))
	case json.RawMessage:
		return decodeText(string(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, malformed("unsupported payload %T", raw)
		}
		return decodeText(string(b))
	}
}

// decodeText parses s as JSON. A string literal that itself holds an object
// or array is decoded one more level.
func decodeText(s string) (any, error) {
	out, err := decodeJSON(s)
	if err != nil {
		return nil, err
	}
	if inner, ok := out.(string); ok {
		if t := StripFences(inner); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			return decodeJSON(t)
		}
	}
	return out, nil
}

func decodeJSON(s string) (any, error) {
	s = StripFences(s)
	if s == "" {
		return nil, malformed("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, malformed("invalid json: %v", err)
	}
	if dec.More() {
		return nil, malformed("trailing data after json value")
	}
	return out, nil
}

// unquote returns the contents of a JSON string literal, fence-stripped.
// Anything else is returned unchanged.
func unquote(s string) string {
	if !strings.HasPrefix(s, `"`) {
		return s
	}
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		return s
	}
	return StripFences(inner)
}

// items finds the list payload for a wrapped shape: a bare array, or an
// object holding the array under one of keys.
func items(raw any, keys ...string) ([]any, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		for _, k := range keys {
			inner, ok := t[k]
			if !ok || inner == nil {
				continue
			}
			switch iv := inner.(type) {
			case []any:
				return iv, nil
			case string:
				// the list itself was stringified
				if decoded, err := decodeText(iv); err == nil {
					if list, ok := decoded.([]any); ok {
						return list, nil
					}
				}
			}
			return nil, malformed("key %q is not a list", k)
		}
		return nil, malformed("object has none of %v", keys)
	default:
		return nil, malformed("expected object or array, got %T", v)
	}
}
