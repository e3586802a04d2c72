package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/app"
	settingsrepo "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/data/repos/settings"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/platform/dbctx"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change the admin generation settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective generation settings as YAML",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store generation settings; unset flags keep their stored value",
	RunE:  runSettingsSet,
}

var setValues lessons.GenerationConfig

func init() {
	f := settingsSetCmd.Flags()
	f.IntVar(&setValues.PresentationSlideCount, "slides", 0, "presentation slide count")
	f.IntVar(&setValues.ExamQuestionCount, "exam-questions", 0, "exam question count")
	f.IntVar(&setValues.QuizQuestionCount, "quiz-questions", 0, "quiz question count")
	f.IntVar(&setValues.FlashcardCount, "flashcards", 0, "flashcard count")
	f.StringVar(&setValues.TextInstructions, "instructions", "", "extra instructions for the lesson text")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.Repos.Config.GenerationConfig(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "stored settings unavailable, showing defaults: %v\n", err)
	}
	out, err := yaml.Marshal(map[string]lessons.GenerationConfig{"generation": cfg})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	dbc := dbctx.New(cmd.Context())
	current, err := a.Repos.Settings.GetGenerationConfig(dbc)
	if err != nil && !errors.Is(err, settingsrepo.ErrNotFound) {
		return fmt.Errorf("read settings: %w", err)
	}
	next := setValues.Merge(current)
	if err := a.Repos.Settings.PutGenerationConfig(dbc, next); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), doneStyle.Render("settings saved"))
	return nil
}

// openApp wires the app with the mock backend; settings commands never generate.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := app.LoadConfigWith(func(c *app.Config) { c.Backend = app.BackendMock })
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}
