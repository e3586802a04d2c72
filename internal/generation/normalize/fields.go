package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// str returns the first non-blank scalar found under keys.
func str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s := scalar(v); s != "" {
			return s
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func strList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				switch it := item.(type) {
				case map[string]any:
					if s := str(it, "text", "value", "label", "option"); s != "" {
						out = append(out, s)
					}
				default:
					if s := scalar(it); s != "" {
						out = append(out, s)
					}
				}
			}
			return out
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

func intVal(m map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case json.Number:
			if i, err := t.Int64(); err == nil {
				return int(i), true
			}
			if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
				return int(f), true
			}
		case float64:
			if t == math.Trunc(t) {
				return int(t), true
			}
		case int:
			return t, true
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

func object(v any, idx int) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, malformed("item %d: expected object, got %s", idx, kind(v))
	}
	return m, nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
