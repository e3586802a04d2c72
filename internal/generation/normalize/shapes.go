package normalize

import (
	"strings"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

func parseText(raw any) (lessons.Content, error) {
	var body string
	switch v := raw.(type) {
	case string:
		body = unquote(StripFences(v))
		if strings.HasPrefix(body, "{") {
			if decoded, err := decodeText(body); err == nil {
				if m, ok := decoded.(map[string]any); ok {
					body = str(m, "text", "content", "textContent", "markdown")
				}
			}
		}
	case []byte:
		return parseText(string(v))
	case map[string]any:
		body = str(v, "text", "content", "textContent", "markdown")
	default:
		return nil, malformed("text: unsupported payload %s", kind(raw))
	}
	if strings.TrimSpace(body) == "" {
		return nil, malformed("text: empty")
	}
	return lessons.TextBody(body), nil
}

func parseMindmap(raw any) (lessons.Content, error) {
	var src string
	switch v := raw.(type) {
	case string:
		src = unquote(StripFences(v))
		if strings.HasPrefix(src, "{") {
			decoded, err := decodeText(src)
			if err != nil {
				return nil, err
			}
			m, _ := decoded.(map[string]any)
			src = mermaidField(m)
		}
	case []byte:
		return parseMindmap(string(v))
	case map[string]any:
		src = mermaidField(v)
	default:
		return nil, malformed("mindmap: unsupported payload %s", kind(raw))
	}
	src = StripFences(src)
	if src == "" {
		return nil, malformed("mindmap: empty diagram source")
	}
	return lessons.MindmapSource(src), nil
}

func mermaidField(m map[string]any) string {
	if m == nil {
		return ""
	}
	if s, ok := m["mermaid"].(string); ok {
		return s
	}
	if s, ok := m["mindmap"].(string); ok {
		return s
	}
	return ""
}

func parsePresentation(raw any) (lessons.Content, error) {
	list, err := items(raw, "slides")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, malformed("presentation: no slides")
	}
	out := lessons.Presentation{Slides: make([]lessons.Slide, 0, len(list))}
	for i, it := range list {
		m, err := object(it, i)
		if err != nil {
			return nil, err
		}
		s := lessons.Slide{
			Title:   str(m, "title", "heading"),
			Bullets: strList(m, "bullets", "points", "bullet_points"),
			Content: str(m, "content", "notes", "speaker_notes"),
		}
		if s.Title == "" && len(s.Bullets) == 0 && s.Content == "" {
			return nil, malformed("presentation: slide %d is empty", i)
		}
		if s.Bullets == nil {
			s.Bullets = []string{}
		}
		out.Slides = append(out.Slides, s)
	}
	return out, nil
}

func parseQuestions(ct lessons.ContentType, raw any) (lessons.Content, error) {
	list, err := items(raw, "questions")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, malformed("%s: no questions", ct)
	}
	out := lessons.QuestionSet{Kind: ct, Questions: make([]lessons.Question, 0, len(list))}
	for i, it := range list {
		m, err := object(it, i)
		if err != nil {
			return nil, err
		}
		q := lessons.Question{
			Question: str(m, "question", "question_text", "text", "prompt"),
			Options:  strList(m, "options", "answers", "choices"),
		}
		if q.Question == "" {
			return nil, malformed("%s: question %d has no text", ct, i)
		}
		if len(q.Options) < 2 {
			return nil, malformed("%s: question %d has %d options", ct, i, len(q.Options))
		}
		idx, ok := intVal(m, "correctAnswerIndex", "correct_answer_index", "correct_option_index", "correctOptionIndex", "answer_index")
		if !ok {
			idx, ok = matchOption(q.Options, str(m, "correct_answer", "correctAnswer", "answer"))
		}
		if !ok || idx < 0 || idx >= len(q.Options) {
			return nil, malformed("%s: question %d has no valid answer index", ct, i)
		}
		q.CorrectAnswerIndex = idx
		out.Questions = append(out.Questions, q)
	}
	return out, nil
}

func matchOption(options []string, answer string) (int, bool) {
	if answer == "" {
		return 0, false
	}
	for i, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), answer) {
			return i, true
		}
	}
	return 0, false
}

func parsePodcast(raw any) (lessons.Content, error) {
	list, err := items(raw, "script", "lines", "dialogue")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, malformed("podcast: empty script")
	}
	out := lessons.PodcastScript{Script: make([]lessons.PodcastLine, 0, len(list))}
	speakers := speakerMap{}
	for i, it := range list {
		m, err := object(it, i)
		if err != nil {
			return nil, err
		}
		text := str(m, "text", "line", "content")
		if text == "" {
			return nil, malformed("podcast: line %d has no text", i)
		}
		out.Script = append(out.Script, lessons.PodcastLine{
			Speaker: speakers.resolve(str(m, "speaker", "role", "name")),
			Text:    text,
		})
	}
	return out, nil
}

// speakerMap folds free-form speaker names onto Host and Guest. Unknown names
// are assigned in order of appearance: the first becomes Host.
type speakerMap map[string]lessons.Speaker

func (sm speakerMap) resolve(name string) lessons.Speaker {
	key := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.Contains(key, "host"), strings.Contains(key, "moderat"):
		return lessons.SpeakerHost
	case strings.Contains(key, "guest"), strings.Contains(key, "expert"):
		return lessons.SpeakerGuest
	}
	if s, ok := sm[key]; ok {
		return s
	}
	s := lessons.SpeakerGuest
	if len(sm) == 0 {
		s = lessons.SpeakerHost
	}
	sm[key] = s
	return s
}

func parseComic(raw any) (lessons.Content, error) {
	list, err := items(raw, "panels")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, malformed("comic: no panels")
	}
	out := lessons.ComicScript{Panels: make([]lessons.Panel, 0, len(list))}
	for i, it := range list {
		m, err := object(it, i)
		if err != nil {
			return nil, err
		}
		p := lessons.Panel{
			Description: str(m, "description", "visual_description", "scene"),
			Dialogue:    dialogue(m),
		}
		if n, ok := intVal(m, "panelNumber", "panel_number", "panel", "number"); ok && n > 0 {
			p.PanelNumber = n
		} else {
			p.PanelNumber = i + 1
		}
		if p.Description == "" && p.Dialogue == "" {
			return nil, malformed("comic: panel %d is empty", i)
		}
		out.Panels = append(out.Panels, p)
	}
	return out, nil
}

// dialogue accepts a plain string or a list of lines / {character, text} pairs.
func dialogue(m map[string]any) string {
	if s := str(m, "dialogue", "caption", "text"); s != "" {
		return s
	}
	list, ok := m["dialogue"].([]any)
	if !ok {
		return ""
	}
	lines := make([]string, 0, len(list))
	for _, it := range list {
		switch t := it.(type) {
		case map[string]any:
			who, what := str(t, "character", "speaker", "name"), str(t, "text", "line")
			switch {
			case who != "" && what != "":
				lines = append(lines, who+": "+what)
			case what != "":
				lines = append(lines, what)
			}
		default:
			if s := scalar(t); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func parseFlashcards(raw any) (lessons.Content, error) {
	list, err := items(raw, "flashcards", "cards")
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, malformed("flashcards: empty deck")
	}
	if flat, ok := flatStrings(list); ok {
		if len(flat)%2 != 0 {
			return nil, malformed("flashcards: odd number of front/back values")
		}
		deck := make(lessons.FlashcardDeck, 0, len(flat)/2)
		for i := 0; i < len(flat); i += 2 {
			deck = append(deck, lessons.Flashcard{Front: flat[i], Back: flat[i+1]})
		}
		return deck, nil
	}
	deck := make(lessons.FlashcardDeck, 0, len(list))
	for i, it := range list {
		var card lessons.Flashcard
		switch t := it.(type) {
		case map[string]any:
			card = lessons.Flashcard{
				Front: str(t, "front", "term", "question"),
				Back:  str(t, "back", "definition", "answer"),
			}
		case []any:
			if len(t) == 2 {
				card = lessons.Flashcard{Front: scalar(t[0]), Back: scalar(t[1])}
			}
		}
		if card.Front == "" || card.Back == "" {
			return nil, malformed("flashcards: card %d needs front and back", i)
		}
		deck = append(deck, card)
	}
	return deck, nil
}

func flatStrings(list []any) ([]string, bool) {
	out := make([]string, 0, len(list))
	for _, it := range list {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, true
}
