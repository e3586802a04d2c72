package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lessonforge",
	Short: "Lesson content generation backend",
	Long: `lessonforge generates the teaching materials of a lesson (text, presentation,
quiz, exam, podcast, comic, flashcards and mindmap) from its title, saving each
one to the lesson as soon as it is ready.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
