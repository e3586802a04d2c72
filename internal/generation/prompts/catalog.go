package prompts

import "github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"

func init() {
	for _, s := range catalog {
		RegisterSpec(s)
	}
}

var catalog = []Spec{
	{
		ContentType: lessons.ContentText,
		Version:     1,
		Instruction: `
Write the main study text for this lesson as continuous prose for students.
Structure it into logical paragraphs with short headings. Markdown headings and lists are allowed.
Return only the text itself.`,
	},
	{
		ContentType: lessons.ContentPresentation,
		Version:     1,
		SchemaName:  "lesson_presentation",
		Schema:      PresentationSchema,
		CountNoun:   "slides",
		Instruction: `
Create a slide deck that teaches this topic.
Each slide has a short title, 3 to 5 bullet points and an optional paragraph of speaker notes in "content".`,
		Shape: `{"slides": [{"title": "string", "bullets": ["string"], "content": "string"}]}`,
	},
	{
		ContentType: lessons.ContentQuiz,
		Version:     1,
		SchemaName:  "lesson_quiz",
		Schema:      QuestionsSchema,
		CountNoun:   "questions",
		Instruction: `
Create a short practice quiz that checks understanding of this topic.
Every question has exactly 4 answer options and exactly one correct option.
"correctAnswerIndex" is the zero-based index of the correct option.`,
		Shape: `{"questions": [{"question": "string", "options": ["string", "string", "string", "string"], "correctAnswerIndex": 0}]}`,
	},
	{
		ContentType: lessons.ContentTest,
		Version:     1,
		SchemaName:  "lesson_test",
		Schema:      QuestionsSchema,
		CountNoun:   "questions",
		Instruction: `
Create a graded exam for this topic with a mix of recall and application questions of medium difficulty.
Every question has exactly 4 answer options and exactly one correct option.
"correctAnswerIndex" is the zero-based index of the correct option.`,
		Shape: `{"questions": [{"question": "string", "options": ["string", "string", "string", "string"], "correctAnswerIndex": 0}]}`,
	},
	{
		ContentType: lessons.ContentPodcast,
		Version:     1,
		SchemaName:  "lesson_podcast",
		Schema:      PodcastSchema,
		Instruction: `
Write a podcast episode script explaining this topic as a conversation between a Host and a Guest expert.
"speaker" is always either "Host" or "Guest". The Host opens and closes the episode.`,
		Shape: `{"script": [{"speaker": "Host", "text": "string"}]}`,
	},
	{
		ContentType: lessons.ContentComic,
		Version:     1,
		SchemaName:  "lesson_comic",
		Schema:      ComicSchema,
		Instruction: `
Write a 4-panel educational comic script about this topic.
For every panel give its number, a visual description of the scene and the dialogue or caption.`,
		Shape: `{"panels": [{"panelNumber": 1, "description": "string", "dialogue": "string"}]}`,
	},
	{
		ContentType: lessons.ContentFlashcards,
		Version:     1,
		SchemaName:  "lesson_flashcards",
		Schema:      FlashcardsSchema,
		CountNoun:   "flashcards",
		Instruction: `
Create study flashcards for this topic. "front" holds a term or question, "back" a concise definition or answer.`,
		Shape: `{"flashcards": [{"front": "string", "back": "string"}]}`,
	},
	{
		ContentType: lessons.ContentMindmap,
		Version:     1,
		SchemaName:  "lesson_mindmap",
		Schema:      MindmapSchema,
		Instruction: `
Create a mind map of this topic as Mermaid diagram source (for example "graph TD" or "mindmap").
Use the topic as the root and group the key concepts beneath it. The source must be valid Mermaid syntax.`,
		Shape: `{"mermaid": "graph TD; A[Topic] --> B[Concept]"}`,
	},
}
