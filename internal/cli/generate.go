package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/app"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate lesson content in the foreground",
	Long: `Generate every content type for one lesson and print progress as it goes.

Pass --lesson-id to fill an existing lesson, or --title to create a new one.
Ctrl-C stops before the next content type; whatever was saved is kept.`,
	RunE: runGenerate,
}

var (
	genLessonID string
	genTitle    string
	genSubtitle string
	genLanguage string
	genTypes    []string
	genFiles    []string
	genBackend  string
	genSlides   int
	genExam     int
)

func init() {
	generateCmd.Flags().StringVar(&genLessonID, "lesson-id", "", "existing lesson to generate for")
	generateCmd.Flags().StringVar(&genTitle, "title", "", "lesson title (required for a new lesson)")
	generateCmd.Flags().StringVar(&genSubtitle, "subtitle", "", "lesson subtitle")
	generateCmd.Flags().StringVar(&genLanguage, "language", "", "target language (default from GENERATION_LANGUAGE)")
	generateCmd.Flags().StringSliceVar(&genTypes, "types", nil, "content types to generate (default all)")
	generateCmd.Flags().StringSliceVar(&genFiles, "file", nil, "context file reference (gs://, https:// or bucket path); repeatable")
	generateCmd.Flags().StringVar(&genBackend, "backend", "", "override GENERATION_BACKEND (openai, gemini, mock)")
	generateCmd.Flags().IntVar(&genSlides, "slides", 0, "presentation slide count for this run")
	generateCmd.Flags().IntVar(&genExam, "exam-questions", 0, "exam question count for this run")
	rootCmd.AddCommand(generateCmd)
}

func buildDraft() (orchestrator.Draft, error) {
	d := orchestrator.Draft{
		Title:           genTitle,
		Subtitle:        genSubtitle,
		Language:        genLanguage,
		ContextFileRefs: genFiles,
		Overrides: lessons.GenerationConfig{
			PresentationSlideCount: genSlides,
			ExamQuestionCount:      genExam,
		},
	}
	if strings.TrimSpace(genLessonID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(genLessonID))
		if err != nil {
			return d, fmt.Errorf("invalid --lesson-id: %w", err)
		}
		d.LessonID = id
	}
	if d.LessonID == uuid.Nil && strings.TrimSpace(d.Title) == "" {
		return d, errors.New("either --lesson-id or --title is required")
	}
	for _, raw := range genTypes {
		ct, err := lessons.ParseContentType(raw)
		if err != nil {
			return d, err
		}
		d.Types = append(d.Types, ct)
	}
	return d, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	draft, err := buildDraft()
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfigWith(func(c *app.Config) {
		if genBackend != "" {
			c.Backend = strings.ToLower(genBackend)
		}
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	res, err := a.Orchestrator.Run(ctx, draft, func(e orchestrator.Event) {
		fmt.Fprintln(out, renderEvent(e))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s %s\n%s", titleStyle.Render("Lesson"), res.LessonID, renderSummary(res))
	if res.Cancelled {
		return errors.New("generation cancelled")
	}
	return nil
}
