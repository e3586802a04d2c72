package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

// Spec declares the prompt for one content type. Instruction is a Go template
// rendered against Input.
type Spec struct {
	ContentType lessons.ContentType
	Version     int
	// SchemaName and Schema are empty for plain-prose types.
	SchemaName string
	Schema     func() map[string]any
	// Shape is the literal example of the JSON the model must return.
	Shape string
	// CountNoun names the counted unit ("slides", "questions"); empty when the type has no count.
	CountNoun   string
	Instruction string
}

type compiled struct {
	spec        Spec
	instruction *template.Template
}

var registry = map[lessons.ContentType]compiled{}

func RegisterSpec(s Spec) {
	c, err := compile(s)
	if err != nil {
		panic(err)
	}
	registry[s.ContentType] = c
}

func compile(s Spec) (compiled, error) {
	if !s.ContentType.Valid() {
		return compiled{}, fmt.Errorf("invalid content type %q", s.ContentType)
	}
	if s.Version <= 0 {
		return compiled{}, fmt.Errorf("invalid version for %s", s.ContentType)
	}
	if (s.Schema == nil) != (strings.TrimSpace(s.SchemaName) == "") {
		return compiled{}, fmt.Errorf("%s: schema and schema name must be set together", s.ContentType)
	}
	t, err := template.New(string(s.ContentType)).Option("missingkey=zero").Parse(s.Instruction)
	if err != nil {
		return compiled{}, fmt.Errorf("%s instruction template parse: %w", s.ContentType, err)
	}
	return compiled{spec: s, instruction: t}, nil
}

func (c compiled) render(in Input) (string, error) {
	var b bytes.Buffer
	if err := c.instruction.Execute(&b, in); err != nil {
		return "", fmt.Errorf("%s render: %w", c.spec.ContentType, err)
	}
	return strings.TrimSpace(b.String()), nil
}
