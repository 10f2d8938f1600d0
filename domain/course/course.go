// Package course provides the course value types and the pure functions that
// keep them consistent: normalization between the canonical chapter shape and
// the legacy module shape, structural edits, validation and change detection.
// This package has NO dependencies on I/O.
package course

import (
	"time"

	"github.com/artpar/coursesync/domain/content"
)

// Status represents the course's publication state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// IsValid returns true if the status is a known valid status.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Course is the canonical course tree. Chapters are the single source of
// truth; the legacy module view only exists on Document.
type Course struct {
	ID           string     `json:"id"`
	Slug         string     `json:"slug"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       Status     `json:"status"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	AssignedOrgs []string   `json:"assignedOrgs,omitempty"`

	// SlugOverridden pins Slug. Otherwise the slug follows the title.
	SlugOverridden bool `json:"slugOverridden,omitempty"`

	// Derived on every normalization pass; direct edits are overwritten.
	EstimatedDuration int    `json:"estimatedDuration"`
	Duration          string `json:"duration"`
	LessonCount       int    `json:"lessonCount"`

	Chapters []Chapter `json:"chapters"`
}

// Chapter is an ordered child of a course.
type Chapter struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Order             int      `json:"order"`
	EstimatedDuration int      `json:"estimatedDuration"`
	Duration          string   `json:"duration"`
	Lessons           []Lesson `json:"lessons"`

	// Collapsed is editor state. It is kept in local drafts but never
	// compared or sent to the remote authority.
	Collapsed bool `json:"collapsed,omitempty"`
}

// Lesson is an ordered child of a chapter (or of a legacy module).
type Lesson struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Type  content.Type `json:"type"`
	Order int          `json:"order"`

	// EstimatedDuration may be supplied directly; otherwise it is resolved
	// from Duration or from the embedded video length.
	EstimatedDuration int    `json:"estimatedDuration"`
	Duration          string `json:"duration,omitempty"`

	Content    content.Content `json:"content"`
	IsRequired bool            `json:"isRequired"`
	Resources  []Resource      `json:"resources"`
}

// Resource is a supplementary link attached to a lesson.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Kind  string `json:"kind,omitempty"`
}

// Module is the legacy name for a chapter, kept for backward-compatible
// consumers.
type Module struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Order             int      `json:"order"`
	EstimatedDuration int      `json:"estimatedDuration"`
	Duration          string   `json:"duration"`
	LessonCount       int      `json:"lessonCount"`
	Lessons           []Lesson `json:"lessons"`
}

// Document is the serialization boundary shape: the canonical course plus
// the generated legacy module view. Drafts and remote payloads are Documents.
type Document struct {
	Course
	Modules []Module `json:"modules"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title        *string
	Description  *string
	Slug         *string
	ThumbnailURL *string
	Tags         *[]string
	Chapters     *[]Chapter

	// EstimatedDuration is accepted for compatibility with editing surfaces
	// that send it, and is immediately overwritten by recomputation.
	EstimatedDuration *int
}

// Apply returns a copy of c with the patch applied.
func (p Patch) Apply(c Course) Course {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
		c.SlugOverridden = *p.Slug != ""
	}
	if p.ThumbnailURL != nil {
		c.ThumbnailURL = *p.ThumbnailURL
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Chapters != nil {
		c.Chapters = cloneChapters(*p.Chapters)
	}
	if p.EstimatedDuration != nil {
		c.EstimatedDuration = *p.EstimatedDuration
	}
	return c
}

// IsPublished returns true if the course is published.
func (c Course) IsPublished() bool {
	return c.Status == StatusPublished
}

// FindChapter returns the index of the chapter with id, or -1.
func (c Course) FindChapter(id string) int {
	for i, ch := range c.Chapters {
		if ch.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy, so callers can mutate it freely.
func (c Course) Clone() Course {
	if c.PublishedAt != nil {
		t := *c.PublishedAt
		c.PublishedAt = &t
	}
	c.Tags = cloneStrings(c.Tags)
	c.AssignedOrgs = cloneStrings(c.AssignedOrgs)
	c.Chapters = cloneChapters(c.Chapters)
	return c
}

func cloneChapters(in []Chapter) []Chapter {
	if in == nil {
		return nil
	}
	out := make([]Chapter, len(in))
	for i, ch := range in {
		ch.Lessons = cloneLessons(ch.Lessons)
		out[i] = ch
	}
	return out
}

func cloneLessons(in []Lesson) []Lesson {
	if in == nil {
		return nil
	}
	out := make([]Lesson, len(in))
	for i, l := range in {
		l.Content = l.Content.Clone()
		if l.Resources != nil {
			l.Resources = append([]Resource(nil), l.Resources...)
		}
		out[i] = l
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
