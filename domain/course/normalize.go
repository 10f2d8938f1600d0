package course

import (
	"github.com/artpar/coursesync/domain/content"
	"github.com/artpar/coursesync/domain/duration"
	"github.com/artpar/coursesync/domain/slug"
)

// FallbackSlug is used when neither the title nor the id yields a slug.
const FallbackSlug = "untitled-course"

// Normalize reconciles a document of either shape into the dual shape.
// Chapters win when present; otherwise they are derived from Modules.
// The returned Modules are always regenerated from the canonical chapters.
// This is a PURE function.
func Normalize(d Document) Document {
	c := d.Course
	if len(c.Chapters) == 0 && len(d.Modules) > 0 {
		c.Chapters = ChaptersFromModules(d.Modules)
	}
	c = Canonical(c)
	return Document{Course: c, Modules: Legacy(c)}
}

// Denormalize returns the dual-shape document for a canonical course.
func Denormalize(c Course) Document {
	c = Canonical(c)
	return Document{Course: c, Modules: Legacy(c)}
}

// Canonical reassigns dense ordering, resolves lesson durations, upgrades
// lesson content, recomputes every derived field and guarantees a slug.
// The input is not modified.
// This is a PURE function.
func Canonical(c Course) Course {
	c = c.Clone()
	if !c.Status.IsValid() {
		c.Status = StatusDraft
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	if len(c.AssignedOrgs) == 0 {
		c.AssignedOrgs = nil
	}

	if c.Chapters == nil {
		c.Chapters = []Chapter{}
	}
	total, lessons := 0, 0
	for i := range c.Chapters {
		ch := &c.Chapters[i]
		ch.Order = i + 1
		if ch.Lessons == nil {
			ch.Lessons = []Lesson{}
		}
		sum := 0
		for j := range ch.Lessons {
			ch.Lessons[j] = normalizeLesson(ch.Lessons[j], j+1)
			sum += ch.Lessons[j].EstimatedDuration
		}
		ch.EstimatedDuration = sum
		ch.Duration = duration.Format(sum)
		total += sum
		lessons += len(ch.Lessons)
	}
	c.EstimatedDuration = total
	c.Duration = duration.Format(total)
	c.LessonCount = lessons
	c.Slug = DefaultSlug(c)
	return c
}

// DefaultSlug derives the slug from the title, then the id, then any stored
// slug, then FallbackSlug. An overridden slug is kept while it is usable.
func DefaultSlug(c Course) string {
	if c.SlugOverridden {
		if s := slug.Make(c.Slug); s != "" {
			return s
		}
	}
	for _, candidate := range []string{c.Title, c.ID, c.Slug} {
		if s := slug.Make(candidate); s != "" {
			return s
		}
	}
	return FallbackSlug
}

func normalizeLesson(l Lesson, order int) Lesson {
	l.Order = order

	if l.Content.SchemaVersion == 0 && !l.Content.IsZero() {
		l.Content = content.Migrate(l.Content.Map())
	}
	if !l.Type.IsKnown() {
		switch {
		case l.Content.Type.IsKnown():
			l.Type = l.Content.Type
		default:
			l.Type = content.TypeText
		}
	}
	// The lesson type is the tag; content that disagrees is rewritten.
	switch {
	case l.Content.IsZero():
		l.Content = content.Empty(l.Type)
	case l.Content.Type.IsKnown():
		l.Content = l.Content.Retype(l.Type)
	default:
		l.Content = l.Content.WithType(l.Type)
	}

	l.EstimatedDuration = LessonMinutes(l)
	l.Duration = duration.Format(l.EstimatedDuration)
	if l.Resources == nil {
		l.Resources = []Resource{}
	}
	return l
}

// LessonMinutes resolves a lesson's duration in minutes, in priority order:
// a positive estimatedDuration, the parsed duration string, the video length
// in seconds, the video duration in minutes.
func LessonMinutes(l Lesson) int {
	if l.EstimatedDuration > 0 {
		return l.EstimatedDuration
	}
	if m, ok := duration.Parse(l.Duration); ok && m > 0 {
		return m
	}
	if v := l.Content.Video; v != nil {
		if v.LengthSeconds > 0 {
			return duration.FromSeconds(v.LengthSeconds)
		}
		if v.Duration > 0 {
			return v.Duration
		}
	}
	return 0
}

// Legacy generates the module view from canonical chapters.
// This is a PURE function.
func Legacy(c Course) []Module {
	modules := make([]Module, len(c.Chapters))
	for i, ch := range c.Chapters {
		modules[i] = Module{
			ID:                ch.ID,
			Title:             ch.Title,
			Description:       ch.Description,
			Order:             ch.Order,
			EstimatedDuration: ch.EstimatedDuration,
			Duration:          ch.Duration,
			LessonCount:       len(ch.Lessons),
			Lessons:           cloneLessons(ch.Lessons),
		}
	}
	return modules
}

// ChaptersFromModules converts legacy modules to chapters without data loss.
func ChaptersFromModules(modules []Module) []Chapter {
	chapters := make([]Chapter, len(modules))
	for i, m := range modules {
		chapters[i] = Chapter{
			ID:                m.ID,
			Title:             m.Title,
			Description:       m.Description,
			Order:             m.Order,
			EstimatedDuration: m.EstimatedDuration,
			Duration:          m.Duration,
			Lessons:           cloneLessons(m.Lessons),
		}
	}
	return chapters
}

// AssignIDs fills empty course, chapter and lesson ids using newID.
func AssignIDs(c Course, newID func() string) Course {
	c = c.Clone()
	if c.ID == "" {
		c.ID = newID()
	}
	for i := range c.Chapters {
		if c.Chapters[i].ID == "" {
			c.Chapters[i].ID = newID()
		}
		for j := range c.Chapters[i].Lessons {
			if c.Chapters[i].Lessons[j].ID == "" {
				c.Chapters[i].Lessons[j].ID = newID()
			}
		}
	}
	return c
}
