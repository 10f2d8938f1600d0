package course

import (
	"errors"
	"strings"
	"testing"
)

func TestHasChanges(t *testing.T) {
	base := Canonical(fixture())

	tests := []struct {
		name   string
		mutate func(c *Course)
		want   bool
	}{
		{"identical", func(c *Course) {}, false},
		{"collapsed is editor state", func(c *Course) { c.Chapters[0].Collapsed = true }, false},
		{"derived fields ignored", func(c *Course) { c.Duration = "999h"; c.LessonCount = 0 }, false},
		{"order fields ignored", func(c *Course) { c.Chapters[1].Order = 7 }, false},
		{"title", func(c *Course) { c.Title = "New" }, true},
		{"lesson body", func(c *Course) { c.Chapters[0].Lessons[0].Content.Text.Body = "changed" }, true},
		{"lesson moved", func(c *Course) {
			ls := c.Chapters[0].Lessons
			ls[0], ls[1] = ls[1], ls[0]
		}, true},
		{"status", func(c *Course) { c.Status = StatusPublished }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base.Clone()
			tt.mutate(&c)
			if got := HasChanges(base, c); got != tt.want {
				t.Errorf("HasChanges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	var zero Snapshot
	if !zero.IsZero() || !zero.Changed(fixture()) {
		t.Error("zero snapshot must report a change")
	}
	s := TakeSnapshot(fixture())
	if s.Changed(fixture()) {
		t.Error("snapshot of the same course reported a change")
	}
	if !s.Equal(TakeSnapshot(Canonical(fixture()))) {
		t.Error("normalization changed the snapshot")
	}
}

type stubRandom struct {
	s   string
	err error
}

func (r stubRandom) String(n int) (string, error) { return r.s, r.err }

func TestResolveConflict(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		attempted string
		want      string
	}{
		{"server suggestion", &ConflictError{Code: CodeSlugTaken, Suggestion: "Leadership 101 (3)"}, "leadership-101", "leadership-101-3"},
		{"increment", &ConflictError{Code: CodeSlugTaken}, "leadership-101", "leadership-101-2"},
		{"increment counter", &ConflictError{Code: CodeSlugTaken}, "leadership-101-2", "leadership-101-3"},
		{"suggestion equals attempted", &ConflictError{Code: CodeSlugTaken, Suggestion: "intro"}, "intro", "intro-2"},
		{"random fallback", &ConflictError{Code: CodeSlugTaken}, "", "course-abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ResolveConflict(tt.err, tt.attempted, stubRandom{s: "abc123"})
			if r == nil {
				t.Fatal("ResolveConflict() = nil")
			}
			if r.Slug != tt.want {
				t.Errorf("Slug = %q, want %q", r.Slug, tt.want)
			}
			if !strings.Contains(r.Message, tt.want) {
				t.Errorf("Message %q does not mention %q", r.Message, tt.want)
			}
		})
	}
}

func TestResolveConflict_Deterministic(t *testing.T) {
	err := &ConflictError{Code: CodeSlugTaken}
	a := ResolveConflict(err, "leadership-101", nil)
	b := ResolveConflict(err, "leadership-101", nil)
	if a.Slug != b.Slug {
		t.Errorf("ResolveConflict not deterministic: %q vs %q", a.Slug, b.Slug)
	}
}

func TestResolveConflict_OtherErrors(t *testing.T) {
	for _, err := range []error{
		errors.New("connection reset"),
		&ValidationError{Issues: []string{"x"}},
		&ConflictError{Code: "version_mismatch"},
	} {
		if r := ResolveConflict(err, "a", nil); r != nil {
			t.Errorf("ResolveConflict(%v) = %+v, want nil", err, r)
		}
	}
}

func TestResolveConflict_RandomFailure(t *testing.T) {
	err := &ConflictError{Code: CodeSlugTaken}
	for _, rnd := range []RandomSource{nil, stubRandom{err: errors.New("boom")}, stubRandom{s: "!!"}} {
		if r := ResolveConflict(err, "", rnd); r != nil {
			t.Errorf("ResolveConflict(%v) = %+v, want nil", rnd, r)
		}
	}
}

func TestResolveConflict_RandomSuffix(t *testing.T) {
	r := ResolveConflict(&ConflictError{Code: CodeSlugTaken}, "", stubRandom{s: "abc123"})
	if r == nil || r.Slug != "course-abc123" {
		t.Errorf("ResolveConflict() = %+v, want course-abc123", r)
	}
}
