package course

import (
	"fmt"
	"strings"

	"github.com/artpar/coursesync/domain/content"
)

// MinDescriptionLength is the shortest accepted course description.
const MinDescriptionLength = 20

// Validate returns the human-readable issues that block a remote save or a
// publish, in a stable order. An empty result means the course is valid.
// This is a PURE function.
func Validate(c Course) []string {
	var issues []string

	if strings.TrimSpace(c.Title) == "" {
		issues = append(issues, "Add a course title before saving.")
	}
	if len([]rune(strings.TrimSpace(c.Description))) < MinDescriptionLength {
		issues = append(issues, fmt.Sprintf("Add a course description of at least %d characters.", MinDescriptionLength))
	}
	if len(c.Chapters) == 0 {
		issues = append(issues, "Add at least one chapter before saving.")
	}

	for i, ch := range c.Chapters {
		if len(ch.Lessons) == 0 {
			issues = append(issues, fmt.Sprintf("%s needs at least one lesson.", chapterLabel(ch, i)))
			continue
		}
		for j, l := range ch.Lessons {
			if strings.TrimSpace(l.Title) == "" {
				issues = append(issues, fmt.Sprintf("Lesson %d in chapter %d needs a title.", j+1, i+1))
			}
			switch lessonType(l) {
			case content.TypeVideo:
				if l.Content.Video == nil || strings.TrimSpace(l.Content.Video.URL) == "" {
					issues = append(issues, fmt.Sprintf("Video lesson %q needs a video URL.", lessonLabel(l, j)))
				}
			case content.TypeText:
				if l.Content.Text == nil || strings.TrimSpace(l.Content.Text.Body) == "" {
					issues = append(issues, fmt.Sprintf("Text lesson %q needs some content.", lessonLabel(l, j)))
				}
			}
		}
	}
	return issues
}

func lessonType(l Lesson) content.Type {
	if l.Type.IsKnown() {
		return l.Type
	}
	return l.Content.Type
}

func chapterLabel(ch Chapter, i int) string {
	if t := strings.TrimSpace(ch.Title); t != "" {
		return fmt.Sprintf("Chapter %q", t)
	}
	return fmt.Sprintf("Chapter %d", i+1)
}

func lessonLabel(l Lesson, j int) string {
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Lesson %d", j+1)
}
