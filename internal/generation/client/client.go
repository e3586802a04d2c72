// Package client defines the contract between the orchestrator and the
// generation capability, plus a Service that implements it over a model backend.
package client

import (
	"context"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/prompts"
)

// Result carries either Data or a non-empty Error. Data may be a decoded
// object or array, a JSON string, a fenced block or prose.
type Result struct {
	Data  any
	Error string
}

func (r Result) Failed() bool { return r.Error != "" }

func Fail(msg string) Result {
	if msg == "" {
		msg = "generation failed"
	}
	return Result{Error: msg}
}

// GenerationClient never panics or returns a Go error; failures are reported in Result.Error.
type GenerationClient interface {
	Generate(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, contextFileRefs []string) Result
}

// Func adapts a plain function to GenerationClient.
type Func func(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, contextFileRefs []string) Result

func (f Func) Generate(ctx context.Context, ct lessons.ContentType, p prompts.Prompt, refs []string) Result {
	return f(ctx, ct, p, refs)
}
