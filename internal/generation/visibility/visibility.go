// Package visibility decides which lesson sections are shown after generation.
package visibility

import (
	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/domain/lessons"
)

// Reconcile returns the visible_sections value to store after a run that
// produced generated.
//
// A lesson without an explicit list shows every populated section, so the
// new list is every type that now has content. An explicit list is only
// ever extended with the newly generated types; nothing is removed.
func Reconcile(lesson *lessons.Lesson, generated []lessons.ContentType) []lessons.ContentType {
	existing, explicit, err := lesson.Visible()
	if err != nil {
		// unreadable list: treat as absent rather than drop sections
		explicit = false
	}

	if !explicit {
		seen := make(map[lessons.ContentType]bool, len(lessons.GenerationOrder))
		for _, ct := range lesson.PopulatedTypes() {
			seen[ct] = true
		}
		for _, ct := range generated {
			seen[ct] = true
		}
		out := make([]lessons.ContentType, 0, len(seen))
		for _, ct := range lessons.GenerationOrder {
			if seen[ct] {
				out = append(out, ct)
			}
		}
		return out
	}

	out := make([]lessons.ContentType, 0, len(existing)+len(generated))
	seen := make(map[lessons.ContentType]bool, len(existing)+len(generated))
	for _, ct := range existing {
		if seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	added := make(map[lessons.ContentType]bool, len(generated))
	for _, ct := range generated {
		added[ct] = true
	}
	for _, ct := range lessons.GenerationOrder {
		if added[ct] && !seen[ct] {
			seen[ct] = true
			out = append(out, ct)
		}
	}
	return out
}

// Changed reports whether next differs from what the lesson stores now.
func Changed(lesson *lessons.Lesson, next []lessons.ContentType) bool {
	existing, explicit, err := lesson.Visible()
	if err != nil || !explicit || len(existing) != len(next) {
		return true
	}
	for i := range existing {
		if existing[i] != next[i] {
			return true
		}
	}
	return false
}
