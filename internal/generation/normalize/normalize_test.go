package normalize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

func TestFlashcardsSameDeckAcrossShapes(t *testing.T) {
	want := lessons.FlashcardDeck{
		{Front: "A", Back: "B"},
		{Front: "C", Back: "D"},
	}
	bare := []any{
		map[string]any{"front": "A", "back": "B"},
		map[string]any{"front": "C", "back": "D"},
	}
	inputs := map[string]any{
		"bare array":   bare,
		"wrapped":      map[string]any{"flashcards": bare},
		"fenced json":  "```json\n[{\"front\":\"A\",\"back\":\"B\"},{\"front\":\"C\",\"back\":\"D\"}]\n```",
		"pairs":        []any{[]any{"A", "B"}, []any{"C", "D"}},
		"flat strings": []any{"A", "B", "C", "D"},
		"cards alias":  `{"cards":[{"term":"A","definition":"B"},{"term":"C","definition":"D"}]}`,
	}
	for name, raw := range inputs {
		got, err := Parse(lessons.ContentFlashcards, raw)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: want=%v got=%v", name, want, got)
		}
	}
}

func TestMindmapUnwrap(t *testing.T) {
	want := lessons.MindmapSource("graph TD;A-->B")
	inputs := []any{
		map[string]any{"mermaid": "graph TD;A-->B"},
		"```mermaid\ngraph TD;A-->B\n```",
		`{"mermaid": "graph TD;A-->B"}`,
		"```json\n{\"mermaid\": \"graph TD;A-->B\"}\n```",
		"graph TD;A-->B",
	}
	for i, raw := range inputs {
		got, err := Parse(lessons.ContentMindmap, raw)
		if err != nil {
			t.Fatalf("input %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Fatalf("input %d: want=%q got=%q", i, want, got)
		}
	}
}

func TestMindmapRejectsEmpty(t *testing.T) {
	if _, err := Parse(lessons.ContentMindmap, map[string]any{"nodes": []any{}}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
}

func TestTextAcceptsProseAndWrapped(t *testing.T) {
	got, err := Parse(lessons.ContentText, "```markdown\n# Photosynthesis\nPlants make sugar.\n```")
	if err != nil {
		t.Fatalf("prose: %v", err)
	}
	if got != lessons.TextBody("# Photosynthesis\nPlants make sugar.") {
		t.Fatalf("prose: got=%q", got)
	}
	got, err = Parse(lessons.ContentText, map[string]any{"text": "Plants make sugar."})
	if err != nil || got != lessons.TextBody("Plants make sugar.") {
		t.Fatalf("wrapped: got=%q err=%v", got, err)
	}
	if _, err := Parse(lessons.ContentText, "   "); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("blank text should be malformed, got %v", err)
	}
}

func TestJSONEncodedStringsAreUnquoted(t *testing.T) {
	got, err := Parse(lessons.ContentMindmap, `"graph TD;A-->B"`)
	if err != nil || got != lessons.MindmapSource("graph TD;A-->B") {
		t.Fatalf("mindmap: got=%q err=%v", got, err)
	}
	got, err = Parse(lessons.ContentMindmap, `"{\"mermaid\": \"graph TD;A-->B\"}"`)
	if err != nil || got != lessons.MindmapSource("graph TD;A-->B") {
		t.Fatalf("mindmap wrapped in string: got=%q err=%v", got, err)
	}
	got, err = Parse(lessons.ContentText, `"Photosynthesis is how plants make sugar."`)
	if err != nil || got != lessons.TextBody("Photosynthesis is how plants make sugar.") {
		t.Fatalf("text: got=%q err=%v", got, err)
	}
	got, err = Parse(lessons.ContentText, `"Light" is the key input.`)
	if err != nil || got != lessons.TextBody(`"Light" is the key input.`) {
		t.Fatalf("text starting with a quote: got=%q err=%v", got, err)
	}
}

func TestDoubleEncodedCollections(t *testing.T) {
	got, err := Parse(lessons.ContentFlashcards, `"[{\"front\":\"A\",\"back\":\"B\"}]"`)
	if err != nil {
		t.Fatalf("flashcards: %v", err)
	}
	if want := (lessons.FlashcardDeck{{Front: "A", Back: "B"}}); !reflect.DeepEqual(got, want) {
		t.Fatalf("flashcards: want=%v got=%v", want, got)
	}
	if _, err := Parse(lessons.ContentQuiz, `"just a sentence"`); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("quoted prose should stay malformed, got %v", err)
	}
}

func TestQuestionsLegacyKeys(t *testing.T) {
	raw := `{"questions":[{"question_text":"2+2?","options":["3","4","5","6"],"correct_option_index":1}]}`
	got, err := Parse(lessons.ContentTest, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	qs, ok := got.(lessons.QuestionSet)
	if !ok {
		t.Fatalf("type: %T", got)
	}
	if qs.Type() != lessons.ContentTest {
		t.Fatalf("kind: %s", qs.Type())
	}
	want := lessons.Question{Question: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswerIndex: 1}
	if !reflect.DeepEqual(qs.Questions[0], want) {
		t.Fatalf("want=%+v got=%+v", want, qs.Questions[0])
	}
}

func TestQuestionsAnswerByText(t *testing.T) {
	raw := []any{map[string]any{"question": "Capital of CZ?", "options": []any{"Brno", "Praha"}, "correct_answer": "praha"}}
	got, err := Parse(lessons.ContentQuiz, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(lessons.QuestionSet).Questions[0].CorrectAnswerIndex != 1 {
		t.Fatalf("answer index: %+v", got)
	}
}

func TestQuestionsOutOfRangeIndexIsMalformed(t *testing.T) {
	raw := map[string]any{"questions": []any{map[string]any{"question": "Q", "options": []any{"a", "b"}, "correctAnswerIndex": float64(4)}}}
	if _, err := Parse(lessons.ContentQuiz, raw); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("want ErrMalformedPayload, got %v", err)
	}
}

func TestPresentationCountIsNotEnforced(t *testing.T) {
	raw := `[{"title":"Light","points":["Chlorophyll absorbs light"]}]`
	got, err := Parse(lessons.ContentPresentation, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := got.(lessons.Presentation)
	if len(p.Slides) != 1 || p.Slides[0].Bullets[0] != "Chlorophyll absorbs light" {
		t.Fatalf("slides: %+v", p.Slides)
	}
}

func TestPodcastSpeakers(t *testing.T) {
	raw := map[string]any{"script": []any{
		map[string]any{"speaker": "Anna", "text": "Welcome."},
		map[string]any{"speaker": "Dr. Novak", "text": "Thanks."},
		map[string]any{"speaker": "anna", "text": "Let's start."},
		map[string]any{"speaker": "Guest", "text": "Sure."},
	}}
	got, err := Parse(lessons.ContentPodcast, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var speakers []lessons.Speaker
	for _, l := range got.(lessons.PodcastScript).Script {
		speakers = append(speakers, l.Speaker)
	}
	want := []lessons.Speaker{lessons.SpeakerHost, lessons.SpeakerGuest, lessons.SpeakerHost, lessons.SpeakerGuest}
	if !reflect.DeepEqual(speakers, want) {
		t.Fatalf("want=%v got=%v", want, speakers)
	}
}

func TestComicPanelsLegacyKeys(t *testing.T) {
	raw := "```json\n{\"panels\":[{\"panel_number\":1,\"visual_description\":\"A leaf in sun\",\"dialogue\":[{\"character\":\"Leaf\",\"text\":\"I'm hungry for light!\"}]},{\"visual_description\":\"Roots\",\"dialogue\":\"Water!\"}]}\n```"
	got, err := Parse(lessons.ContentComic, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := lessons.ComicScript{Panels: []lessons.Panel{
		{PanelNumber: 1, Description: "A leaf in sun", Dialogue: "Leaf: I'm hungry for light!"},
		{PanelNumber: 2, Description: "Roots", Dialogue: "Water!"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want=%+v got=%+v", want, got)
	}
}

func TestMalformedStrings(t *testing.T) {
	cases := []struct {
		ct  lessons.ContentType
		raw any
	}{
		{lessons.ContentQuiz, "Sorry, I can't help with that."},
		{lessons.ContentFlashcards, "```json\n[{\"front\":\"A\"\n```"},
		{lessons.ContentComic, map[string]any{"panels": "nope"}},
		{lessons.ContentPresentation, nil},
		{lessons.ContentFlashcards, []any{"A", "B", "C"}},
	}
	for i, tc := range cases {
		if _, err := Parse(tc.ct, tc.raw); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("case %d (%s): want ErrMalformedPayload, got %v", i, tc.ct, err)
		}
	}
}

func TestUnknownContentType(t *testing.T) {
	if _, err := Parse(lessons.ContentType("video"), "{}"); !errors.Is(err, ErrUnknownContentType) {
		t.Fatalf("want ErrUnknownContentType, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n[1,2]\n```":         "[1,2]",
		"```json {\"a\":1}```":    `{"a":1}`,
		"```graph TD;A-->B```":    "graph TD;A-->B",
		"  plain  ":               "plain",
		"```mermaid\ngraph TD```": "graph TD",
	}
	for in, want := range cases {
		if got := StripFences(in); got != want {
			t.Fatalf("StripFences(%q): want=%q got=%q", in, want, got)
		}
	}
}
