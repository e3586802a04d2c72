package lessons

// GenerationConfig holds the admin-maintained knobs injected into prompts.
type GenerationConfig struct {
	PresentationSlideCount int    `json:"presentationSlideCount" yaml:"presentation_slide_count"`
	ExamQuestionCount      int    `json:"examQuestionCount" yaml:"exam_question_count"`
	QuizQuestionCount      int    `json:"quizQuestionCount" yaml:"quiz_question_count"`
	FlashcardCount         int    `json:"flashcardCount" yaml:"flashcard_count"`
	TextInstructions       string `json:"textInstructions" yaml:"text_instructions"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		PresentationSlideCount: 8,
		ExamQuestionCount:      10,
		QuizQuestionCount:      5,
		FlashcardCount:         10,
	}
}

// Merge fills zero fields of c from fallback.
func (c GenerationConfig) Merge(fallback GenerationConfig) GenerationConfig {
	if c.PresentationSlideCount <= 0 {
		c.PresentationSlideCount = fallback.PresentationSlideCount
	}
	if c.ExamQuestionCount <= 0 {
		c.ExamQuestionCount = fallback.ExamQuestionCount
	}
	if c.QuizQuestionCount <= 0 {
		c.QuizQuestionCount = fallback.QuizQuestionCount
	}
	if c.FlashcardCount <= 0 {
		c.FlashcardCount = fallback.FlashcardCount
	}
	if c.TextInstructions == "" {
		c.TextInstructions = fallback.TextInstructions
	}
	return c
}

// CountFor returns the configured target count for ct, or 0 when ct has none.
func (c GenerationConfig) CountFor(ct ContentType) int {
	switch ct {
	case ContentPresentation:
		return c.PresentationSlideCount
	case ContentTest:
		return c.ExamQuestionCount
	case ContentQuiz:
		return c.QuizQuestionCount
	case ContentFlashcards:
		return c.FlashcardCount
	}
	return 0
}
