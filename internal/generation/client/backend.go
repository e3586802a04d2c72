package client

import (
	"context"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/gemini"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/openai"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/clients/storage"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
)

// Backend runs one prompt against a model. Structured prompts may return a
// decoded value or raw text; plain prompts return text.
type Backend interface {
	Name() string
	Complete(ctx context.Context, p prompts.Prompt, files []storage.Attachment) (any, error)
}

type openAIBackend struct {
	c openai.Client
}

func NewOpenAIBackend(c openai.Client) Backend { return openAIBackend{c: c} }

func (openAIBackend) Name() string { return "openai" }

func (b openAIBackend) Complete(ctx context.Context, p prompts.Prompt, files []storage.Attachment) (any, error) {
	of := make([]openai.File, 0, len(files))
	for _, f := range files {
		of = append(of, openai.File{Name: f.Name, MIMEType: f.MIMEType, Data: f.Data})
	}
	if p.Structured() {
		return b.c.GenerateJSON(ctx, p.System, p.Text, p.SchemaName, p.Schema, of)
	}
	return b.c.GenerateText(ctx, p.System, p.Text, of)
}

type geminiBackend struct {
	c gemini.Client
}

func NewGeminiBackend(c gemini.Client) Backend { return geminiBackend{c: c} }

func (geminiBackend) Name() string { return "gemini" }

func (b geminiBackend) Complete(ctx context.Context, p prompts.Prompt, files []storage.Attachment) (any, error) {
	gf := make([]gemini.File, 0, len(files))
	for _, f := range files {
		gf = append(gf, gemini.File{Name: f.Name, MIMEType: f.MIMEType, Data: f.Data})
	}
	if p.Structured() {
		return b.c.GenerateJSON(ctx, p.System, p.Text, p.Schema, gf)
	}
	return b.c.GenerateText(ctx, p.System, p.Text, gf)
}
