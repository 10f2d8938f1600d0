package course

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/artpar/coursesync/domain/content"
)

func textLesson(id, title, body string, minutes int) Lesson {
	return Lesson{
		ID:                id,
		Title:             title,
		Type:              content.TypeText,
		EstimatedDuration: minutes,
		Content: content.Content{
			SchemaVersion: content.SchemaVersion,
			Type:          content.TypeText,
			Text:          &content.Text{Body: body},
		},
	}
}

func fixture() Course {
	return Course{
		ID:          "c1",
		Title:       "Leadership 101",
		Description: "Foundations of leading small teams.",
		Chapters: []Chapter{
			{ID: "ch1", Title: "Intro", Lessons: []Lesson{
				textLesson("l1", "Welcome", "hello", 5),
				{
					ID:       "l2",
					Title:    "Watch",
					Type:     content.TypeVideo,
					Duration: "1h 5m",
					Content: content.Content{
						SchemaVersion: content.SchemaVersion,
						Type:          content.TypeVideo,
						Video:         &content.Video{URL: "https://v.example.com/a.mp4"},
					},
				},
			}},
			{ID: "ch2", Title: "Practice", Lessons: []Lesson{
				{
					ID:    "l3",
					Title: "Clip",
					Type:  content.TypeVideo,
					Content: content.Content{
						SchemaVersion: content.SchemaVersion,
						Type:          content.TypeVideo,
						Video:         &content.Video{URL: "https://v.example.com/b.mp4", LengthSeconds: 150},
					},
				},
			}},
		},
	}
}

func TestNormalize_LegacyImport(t *testing.T) {
	doc := Normalize(Document{
		Course: Course{ID: "c1", Title: "T"},
		Modules: []Module{
			{Title: "Intro", Lessons: []Lesson{{Title: "L1", Duration: "5 min"}}},
		},
	})

	if len(doc.Chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(doc.Chapters))
	}
	ch := doc.Chapters[0]
	if ch.Title != "Intro" {
		t.Errorf("chapter title = %q, want Intro", ch.Title)
	}
	if ch.Lessons[0].EstimatedDuration != 5 {
		t.Errorf("lesson estimatedDuration = %d, want 5", ch.Lessons[0].EstimatedDuration)
	}
	if ch.Duration != "5 min" {
		t.Errorf("chapter duration = %q, want 5 min", ch.Duration)
	}
	if doc.EstimatedDuration != 5 || doc.LessonCount != 1 {
		t.Errorf("course totals = %d min / %d lessons", doc.EstimatedDuration, doc.LessonCount)
	}
	if len(doc.Modules) != 1 || doc.Modules[0].LessonCount != 1 {
		t.Errorf("modules = %+v", doc.Modules)
	}
	if ch.Lessons[0].Type != content.TypeText || ch.Lessons[0].Content.Type != content.TypeText {
		t.Errorf("untyped lesson defaulted to %q / %q", ch.Lessons[0].Type, ch.Lessons[0].Content.Type)
	}
}

func TestNormalize_LessonTypeTagsContent(t *testing.T) {
	var doc Document
	data := `{"id": "c1", "title": "T", "chapters": [{"title": "Intro", "lessons": [
		{"title": "Watch", "type": "video", "content": {"content": "hello"}}
	]}]}`
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	l := Normalize(doc).Chapters[0].Lessons[0]
	if l.Type != content.TypeVideo || l.Content.Type != content.TypeVideo {
		t.Fatalf("types = %q / %q, want video / video", l.Type, l.Content.Type)
	}
	if l.Content.Video == nil || l.Content.Text != nil {
		t.Errorf("variants = video %v, text %v", l.Content.Video, l.Content.Text)
	}
	if l.Content.Extra["textContent"] != "hello" {
		t.Errorf("Extra = %v, want textContent kept", l.Content.Extra)
	}

	again := Canonical(Normalize(doc).Course).Chapters[0].Lessons[0]
	if !reflect.DeepEqual(again.Content, l.Content) {
		t.Errorf("renormalized content = %+v, want %+v", again.Content, l.Content)
	}
}

func TestNormalize_ChaptersWinOverModules(t *testing.T) {
	doc := Normalize(Document{
		Course:  Course{Title: "T", Chapters: []Chapter{{Title: "Canonical"}}},
		Modules: []Module{{Title: "Stale"}, {Title: "Stale 2"}},
	})
	if len(doc.Chapters) != 1 || doc.Chapters[0].Title != "Canonical" {
		t.Errorf("chapters = %+v", doc.Chapters)
	}
	if len(doc.Modules) != 1 || doc.Modules[0].Title != "Canonical" {
		t.Errorf("modules were not regenerated: %+v", doc.Modules)
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	canon := Canonical(fixture())

	// Through the legacy module view only.
	legacyOnly := canon.Clone()
	legacyOnly.Chapters = nil
	got := Normalize(Document{Course: legacyOnly, Modules: Legacy(canon)})
	if !reflect.DeepEqual(got.Course, canon) {
		t.Errorf("module round trip changed the course:\n got=%+v\nwant=%+v", got.Course, canon)
	}

	// Through JSON.
	data, err := json.Marshal(Denormalize(canon))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again := Normalize(decoded)
	if !reflect.DeepEqual(again.Course, canon) {
		t.Errorf("JSON round trip changed the course:\n got=%+v\nwant=%+v", again.Course, canon)
	}
}

func TestCanonical_Durations(t *testing.T) {
	c := Canonical(fixture())

	wantLessons := []int{5, 65, 3}
	var got []int
	sum := 0
	for _, ch := range c.Chapters {
		chSum := 0
		for _, l := range ch.Lessons {
			got = append(got, l.EstimatedDuration)
			chSum += l.EstimatedDuration
		}
		if ch.EstimatedDuration != chSum {
			t.Errorf("chapter %s duration = %d, want %d", ch.ID, ch.EstimatedDuration, chSum)
		}
		sum += ch.EstimatedDuration
	}
	if !reflect.DeepEqual(got, wantLessons) {
		t.Errorf("lesson durations = %v, want %v", got, wantLessons)
	}
	if c.EstimatedDuration != sum || sum != 73 {
		t.Errorf("course duration = %d, sum = %d, want 73", c.EstimatedDuration, sum)
	}
	if c.Duration != "1h 13m" {
		t.Errorf("course duration string = %q, want 1h 13m", c.Duration)
	}
	if c.LessonCount != 3 {
		t.Errorf("LessonCount = %d, want 3", c.LessonCount)
	}
}

func TestLessonMinutes_Priority(t *testing.T) {
	video := func(minutes int, seconds float64) content.Content {
		return content.Content{
			SchemaVersion: content.SchemaVersion,
			Type:          content.TypeVideo,
			Video:         &content.Video{Duration: minutes, LengthSeconds: seconds},
		}
	}
	tests := []struct {
		name string
		l    Lesson
		want int
	}{
		{"explicit wins", Lesson{EstimatedDuration: 7, Duration: "20 min", Content: video(30, 600)}, 7},
		{"string next", Lesson{Duration: "20 min", Content: video(30, 600)}, 20},
		{"video seconds", Lesson{Duration: "soon", Content: video(30, 90)}, 2},
		{"video minutes", Lesson{Content: video(30, 0)}, 30},
		{"nothing", Lesson{}, 0},
		{"negative ignored", Lesson{EstimatedDuration: -4, Duration: "3 min"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LessonMinutes(tt.l); got != tt.want {
				t.Errorf("LessonMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCanonical_Idempotent(t *testing.T) {
	once := Canonical(fixture())
	twice := Canonical(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Canonical is not idempotent")
	}
}

func TestCanonical_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	in.Chapters[0].Lessons[0].Order = 99
	_ = Canonical(in)
	if in.Chapters[0].Lessons[0].Order != 99 {
		t.Error("Canonical modified its input")
	}
}

func TestDefaultSlug(t *testing.T) {
	tests := []struct {
		name string
		c    Course
		want string
	}{
		{"follows title", Course{Slug: "my-course", Title: "Other"}, "other"},
		{"keeps override", Course{Slug: "my-course-2", Title: "My Course", SlugOverridden: true}, "my-course-2"},
		{"cleans override", Course{Slug: "My Course!", Title: "Other", SlugOverridden: true}, "my-course"},
		{"unusable override", Course{Slug: "!!", Title: "Other", SlugOverridden: true}, "other"},
		{"stored slug last", Course{Slug: "My Course!"}, "my-course"},
		{"from title", Course{Title: "Leadership 101"}, "leadership-101"},
		{"from id", Course{ID: "abc-123"}, "abc-123"},
		{"fallback", Course{Title: "!!!"}, FallbackSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSlug(tt.c)
			if got != tt.want {
				t.Errorf("DefaultSlug() = %q, want %q", got, tt.want)
			}
			if again := DefaultSlug(tt.c); again != got {
				t.Errorf("DefaultSlug not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestCanonical_RetitleMovesSlug(t *testing.T) {
	c := Canonical(Course{ID: "c1", Title: "Leadership 101"})
	c.Title = "Leading Teams"
	if got := Canonical(c).Slug; got != "leading-teams" {
		t.Errorf("slug after retitle = %q, want leading-teams", got)
	}

	slugPatch := "leadership-101-2"
	c = Patch{Slug: &slugPatch}.Apply(c)
	c.Title = "Leading Teams Well"
	if got := Canonical(c).Slug; got != "leadership-101-2" {
		t.Errorf("overridden slug after retitle = %q, want leadership-101-2", got)
	}
}

func TestCanonical_DefaultsStatus(t *testing.T) {
	if got := Canonical(Course{Title: "x"}).Status; got != StatusDraft {
		t.Errorf("Status = %q, want draft", got)
	}
}

func TestAssignIDs(t *testing.T) {
	n := 0
	gen := func() string {
		n++
		return "id-" + string(rune('a'+n-1))
	}
	c := AssignIDs(Course{Chapters: []Chapter{{ID: "keep", Lessons: []Lesson{{}}}, {}}}, gen)

	if c.ID != "id-a" {
		t.Errorf("course id = %q", c.ID)
	}
	if c.Chapters[0].ID != "keep" {
		t.Errorf("existing id replaced: %q", c.Chapters[0].ID)
	}
	if c.Chapters[0].Lessons[0].ID != "id-b" || c.Chapters[1].ID != "id-c" {
		t.Errorf("ids = %q, %q", c.Chapters[0].Lessons[0].ID, c.Chapters[1].ID)
	}
}

func TestSampleCourses(t *testing.T) {
	samples := SampleCourses()
	if len(samples) < 2 {
		t.Fatalf("samples = %d, want >= 2", len(samples))
	}
	legacy := samples[1]
	if len(legacy.Chapters) != 1 || legacy.Chapters[0].Title != "Intro" {
		t.Errorf("legacy sample chapters = %+v", legacy.Chapters)
	}
	if legacy.EstimatedDuration != 20 {
		t.Errorf("legacy sample duration = %d, want 20", legacy.EstimatedDuration)
	}
	if q := legacy.Chapters[0].Lessons[1]; q.Type != content.TypeQuiz {
		t.Errorf("quiz lesson type = %q", q.Type)
	}
	if issues := Validate(samples[0].Course); len(issues) != 0 {
		t.Errorf("onboarding sample should be valid: %v", issues)
	}
}
