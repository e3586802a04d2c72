package prompts

import "sort"

// Schemas are strict: every property is required and no extras are allowed.

func objectSchema(properties map[string]any) map[string]any {
	req := make([]string, 0, len(properties))
	for k := range properties {
		req = append(req, k)
	}
	sort.Strings(req)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             req,
		"additionalProperties": false,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func StringSchema() map[string]any { return map[string]any{"type": "string"} }

func IntSchema() map[string]any { return map[string]any{"type": "integer"} }

func StringArraySchema() map[string]any { return arrayOf(StringSchema()) }

func EnumSchema(values ...string) map[string]any {
	arr := make([]any, 0, len(values))
	for _, v := range values {
		arr = append(arr, v)
	}
	return map[string]any{"type": "string", "enum": arr}
}

func PresentationSchema() map[string]any {
	return objectSchema(map[string]any{
		"slides": arrayOf(objectSchema(map[string]any{
			"title":   StringSchema(),
			"bullets": StringArraySchema(),
			"content": StringSchema(),
		})),
	})
}

func QuestionsSchema() map[string]any {
	options := StringArraySchema()
	options["minItems"] = 4
	options["maxItems"] = 4
	return objectSchema(map[string]any{
		"questions": arrayOf(objectSchema(map[string]any{
			"question":           StringSchema(),
			"options":            options,
			"correctAnswerIndex": IntSchema(),
		})),
	})
}

func PodcastSchema() map[string]any {
	return objectSchema(map[string]any{
		"script": arrayOf(objectSchema(map[string]any{
			"speaker": EnumSchema("Host", "Guest"),
			"text":    StringSchema(),
		})),
	})
}

func ComicSchema() map[string]any {
	return objectSchema(map[string]any{
		"panels": arrayOf(objectSchema(map[string]any{
			"panelNumber": IntSchema(),
			"description": StringSchema(),
			"dialogue":    StringSchema(),
		})),
	})
}

// FlashcardsSchema wraps the deck in an object; structured output requires an object root.
func FlashcardsSchema() map[string]any {
	return objectSchema(map[string]any{
		"flashcards": arrayOf(objectSchema(map[string]any{
			"front": StringSchema(),
			"back":  StringSchema(),
		})),
	})
}

func MindmapSchema() map[string]any {
	return objectSchema(map[string]any{"mermaid": StringSchema()})
}
