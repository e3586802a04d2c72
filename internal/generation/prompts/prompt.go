package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

const baseSystem = "You are an expert creator of educational materials for school teachers."

const jsonOnly = "Your response MUST be a single valid JSON value that strictly follows the structure below. " +
	"Do not add introductory text, closing remarks or markdown code fences."

type Input struct {
	Title    string
	Subtitle string
	Language string
	Config   lessons.GenerationConfig
	// Count overrides the configured target count when positive.
	Count int
}

type Prompt struct {
	ContentType       lessons.ContentType
	Version           int
	System            string
	Text              string
	SchemaInstruction string
	CountConstraint   string
	Count             int
	SchemaName        string
	Schema            map[string]any
}

// Structured reports whether the backend should request JSON output.
func (p Prompt) Structured() bool { return p.Schema != nil }

// Fingerprint hashes the rendered prompt. Two steps with the same
// fingerprint sent the backend identical instructions.
func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(string(p.ContentType) + "|" + strconv.Itoa(p.Version) + "|" + p.System + "|" + p.Text))
	return hex.EncodeToString(h[:])
}

// Build assembles the prompt for ct. It is deterministic and has no side effects.
func Build(ct lessons.ContentType, in Input) (Prompt, error) {
	c, ok := registry[ct]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", ct)
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	if in.Title == "" {
		return Prompt{}, fmt.Errorf("%s: lesson title required", ct)
	}
	if in.Count <= 0 {
		in.Count = in.Config.CountFor(ct)
	}
	if c.spec.CountNoun == "" {
		in.Count = 0
	}

	instruction, err := c.render(in)
	if err != nil {
		return Prompt{}, err
	}

	p := Prompt{
		ContentType: ct,
		Version:     c.spec.Version,
		System:      baseSystem,
		Count:       in.Count,
		SchemaName:  c.spec.SchemaName,
	}
	if c.spec.Schema != nil {
		p.Schema = c.spec.Schema()
		p.SchemaInstruction = jsonOnly + "\n" + strings.TrimSpace(c.spec.Shape)
	}
	if in.Count > 0 {
		p.CountConstraint = fmt.Sprintf("You must produce exactly %d %s, no more and no fewer.", in.Count, c.spec.CountNoun)
	}

	parts := []string{topicLine(in.Title, in.Subtitle), instruction}
	if p.SchemaInstruction != "" {
		parts = append(parts, p.SchemaInstruction)
	}
	if p.CountConstraint != "" {
		parts = append(parts, p.CountConstraint)
	}
	if lang := languageName(in.Language); lang != "" {
		parts = append(parts, "Write all content in "+lang+".")
	}
	if ct == lessons.ContentText {
		if extra := strings.TrimSpace(in.Config.TextInstructions); extra != "" {
			parts = append(parts, "Additional instructions: "+extra)
		}
	}
	p.Text = strings.Join(parts, "\n\n")
	return p, nil
}

func topicLine(title, subtitle string) string {
	if subtitle == "" {
		return fmt.Sprintf("Lesson topic: %q.", title)
	}
	return fmt.Sprintf("Lesson topic: %q (%s).", title, subtitle)
}

func languageName(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "":
		return ""
	case "cs", "cz", "czech":
		return "Czech"
	case "sk", "slovak":
		return "Slovak"
	case "en", "english":
		return "English"
	case "de", "german":
		return "German"
	case "pt", "pt-br", "portuguese":
		return "Portuguese"
	default:
		return strings.TrimSpace(code)
	}
}
