package course

import (
	"bytes"
	"encoding/json"
)

// Snapshot is the comparable form of the remote-relevant part of a course.
// Derived fields and editor-only state are excluded.
type Snapshot struct {
	data []byte
}

type snapshotCourse struct {
	ID           string            `json:"id"`
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Status       Status            `json:"status"`
	ThumbnailURL string            `json:"thumbnailUrl"`
	Tags         []string          `json:"tags"`
	Chapters     []snapshotChapter `json:"chapters"`
}

type snapshotChapter struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Lessons     []snapshotLesson `json:"lessons"`
}

type snapshotLesson struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Type              string         `json:"type"`
	EstimatedDuration int            `json:"estimatedDuration"`
	Content           map[string]any `json:"content"`
	IsRequired        bool           `json:"isRequired"`
	Resources         []Resource     `json:"resources"`
}

// TakeSnapshot captures c after normalization, so two courses that normalize
// to the same tree produce equal snapshots.
// This is a PURE function.
func TakeSnapshot(c Course) Snapshot {
	c = Canonical(c)
	s := snapshotCourse{
		ID:           c.ID,
		Slug:         c.Slug,
		Title:        c.Title,
		Description:  c.Description,
		Status:       c.Status,
		ThumbnailURL: c.ThumbnailURL,
		Tags:         c.Tags,
		Chapters:     make([]snapshotChapter, len(c.Chapters)),
	}
	for i, ch := range c.Chapters {
		sc := snapshotChapter{
			ID:          ch.ID,
			Title:       ch.Title,
			Description: ch.Description,
			Lessons:     make([]snapshotLesson, len(ch.Lessons)),
		}
		for j, l := range ch.Lessons {
			sc.Lessons[j] = snapshotLesson{
				ID:                l.ID,
				Title:             l.Title,
				Type:              string(l.Type),
				EstimatedDuration: l.EstimatedDuration,
				Content:           l.Content.Map(),
				IsRequired:        l.IsRequired,
				Resources:         l.Resources,
			}
		}
		s.Chapters[i] = sc
	}
	// encoding/json sorts map keys, so the encoding is deterministic.
	data, err := json.Marshal(s)
	if err != nil {
		return Snapshot{}
	}
	return Snapshot{data: data}
}

// IsZero reports whether no snapshot was taken yet.
func (s Snapshot) IsZero() bool {
	return len(s.data) == 0
}

// Equal reports whether two snapshots describe the same remote state.
func (s Snapshot) Equal(o Snapshot) bool {
	return bytes.Equal(s.data, o.data)
}

// Changed reports whether current differs from the snapshot. A zero
// snapshot always reports a change.
func (s Snapshot) Changed(current Course) bool {
	if s.IsZero() {
		return true
	}
	return !s.Equal(TakeSnapshot(current))
}

// HasChanges reports whether current differs from lastPersisted in any field
// the remote authority would store.
// This is a PURE function.
func HasChanges(lastPersisted, current Course) bool {
	return TakeSnapshot(lastPersisted).Changed(current)
}
