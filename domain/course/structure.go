package course

// Structural edits. Each returns a new canonical course and reports whether
// the target was found; the input is never modified.

// AddChapter appends ch and renormalizes.
// This is a PURE function.
func AddChapter(c Course, ch Chapter) Course {
	c = c.Clone()
	ch.Lessons = cloneLessons(ch.Lessons)
	c.Chapters = append(c.Chapters, ch)
	return Canonical(c)
}

// RemoveChapter removes the chapter with id.
func RemoveChapter(c Course, id string) (Course, bool) {
	i := c.FindChapter(id)
	if i < 0 {
		return c, false
	}
	c = c.Clone()
	c.Chapters = append(c.Chapters[:i], c.Chapters[i+1:]...)
	return Canonical(c), true
}

// MoveChapter moves the chapter with id to index to (clamped).
func MoveChapter(c Course, id string, to int) (Course, bool) {
	i := c.FindChapter(id)
	if i < 0 {
		return c, false
	}
	c = c.Clone()
	c.Chapters = move(c.Chapters, i, to)
	return Canonical(c), true
}

// AddLesson appends l to the chapter with chapterID.
func AddLesson(c Course, chapterID string, l Lesson) (Course, bool) {
	i := c.FindChapter(chapterID)
	if i < 0 {
		return c, false
	}
	c = c.Clone()
	l.Content = l.Content.Clone()
	c.Chapters[i].Lessons = append(c.Chapters[i].Lessons, l)
	return Canonical(c), true
}

// RemoveLesson removes a lesson from a chapter.
func RemoveLesson(c Course, chapterID, lessonID string) (Course, bool) {
	i := c.FindChapter(chapterID)
	if i < 0 {
		return c, false
	}
	j := findLesson(c.Chapters[i].Lessons, lessonID)
	if j < 0 {
		return c, false
	}
	c = c.Clone()
	lessons := c.Chapters[i].Lessons
	c.Chapters[i].Lessons = append(lessons[:j], lessons[j+1:]...)
	return Canonical(c), true
}

// MoveLesson moves a lesson within its chapter to index to (clamped).
func MoveLesson(c Course, chapterID, lessonID string, to int) (Course, bool) {
	i := c.FindChapter(chapterID)
	if i < 0 {
		return c, false
	}
	j := findLesson(c.Chapters[i].Lessons, lessonID)
	if j < 0 {
		return c, false
	}
	c = c.Clone()
	c.Chapters[i].Lessons = move(c.Chapters[i].Lessons, j, to)
	return Canonical(c), true
}

// UpdateLesson replaces the lesson with the same id in the given chapter.
func UpdateLesson(c Course, chapterID string, l Lesson) (Course, bool) {
	i := c.FindChapter(chapterID)
	if i < 0 {
		return c, false
	}
	j := findLesson(c.Chapters[i].Lessons, l.ID)
	if j < 0 {
		return c, false
	}
	c = c.Clone()
	l.Content = l.Content.Clone()
	c.Chapters[i].Lessons[j] = l
	return Canonical(c), true
}

func findLesson(lessons []Lesson, id string) int {
	for i, l := range lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func move[T any](s []T, from, to int) []T {
	if to < 0 {
		to = 0
	}
	if to > len(s)-1 {
		to = len(s) - 1
	}
	if from == to {
		return s
	}
	item := s[from]
	s = append(s[:from], s[from+1:]...)
	s = append(s[:to], append([]T{item}, s[to:]...)...)
	return s
}
