package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/artpar/coursesync/adapters/clock"
	"github.com/artpar/coursesync/adapters/idgen"
	"github.com/artpar/coursesync/adapters/memory"
	"github.com/artpar/coursesync/adapters/random"
	"github.com/artpar/coursesync/app"
	"github.com/artpar/coursesync/domain/content"
	"github.com/artpar/coursesync/domain/course"
	"github.com/rs/zerolog"
)

func validCourse(id, s string) course.Document {
	d := course.Document{Course: course.Course{
		ID:          id,
		Slug:        s,
		Title:       "Leadership 101",
		Description: "Foundations of leading small teams.",
		Chapters: []course.Chapter{{
			ID:    id + "-ch1",
			Title: "Intro",
			Lessons: []course.Lesson{{
				ID:       id + "-l1",
				Title:    "Welcome",
				Type:     content.TypeText,
				Duration: "5 min",
				Content: content.Content{
					SchemaVersion: content.SchemaVersion,
					Type:          content.TypeText,
					Text:          &content.Text{Body: "hello"},
				},
			}},
		}},
	}}
	d.SlugOverridden = s != ""
	return d
}

// countingStore counts draft writes per key.
type countingStore struct {
	*memory.DraftStore
	mu   sync.Mutex
	sets map[string]int
}

func newCountingStore() *countingStore {
	return &countingStore{DraftStore: memory.NewDraftStore(), sets: map[string]int{}}
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets[key]++
	s.mu.Unlock()
	return s.DraftStore.Set(ctx, key, value)
}

func (s *countingStore) writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

// noticeLog records autosave notices.
type noticeLog struct {
	mu   sync.Mutex
	list []app.Notice
}

func (l *noticeLog) add(n app.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list = append(l.list, n)
}

func (l *noticeLog) kinds() []app.NoticeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]app.NoticeKind, len(l.list))
	for i, n := range l.list {
		out[i] = n.Kind
	}
	return out
}

func (l *noticeLog) last() app.Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.list) == 0 {
		return app.Notice{}
	}
	return l.list[len(l.list)-1]
}

type testEnv struct {
	clock     *clock.Fake
	authority *memory.CourseAuthority
	store     *countingStore
	drafts    *app.DraftService
	sync      *app.SyncService
	registry  *app.Registry
	autosave  *app.Autosave
	notices   *noticeLog
}

type envOptions struct {
	local    bool // no remote authority
	seed     []course.Document
	remote   []course.Document
	failList bool
	random   *random.Fake
}

func newEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	e := &testEnv{
		clock:   clock.NewFake(baseTime),
		store:   newCountingStore(),
		notices: &noticeLog{},
	}
	logger := zerolog.Nop()
	ids := idgen.NewSequential("id-")

	var syncDeps app.SyncDeps
	if !opts.local {
		e.authority = memory.NewCourseAuthority(e.clock)
		e.authority.Seed(opts.remote...)
		if opts.failList {
			e.authority.FailNext(memory.OpList, context.DeadlineExceeded)
		}
		syncDeps = app.SyncDeps{Gateway: e.authority, IDs: ids, Clock: e.clock, Logger: logger}
	}
	e.sync = app.NewSyncService(syncDeps, app.SyncConfig{})

	e.drafts = app.NewDraftService(e.store, logger, app.DraftConfig{})
	e.registry = app.NewRegistry(app.RegistryDeps{
		Sync:   e.sync,
		IDs:    ids,
		Clock:  e.clock,
		Logger: logger,
	}, app.RegistryConfig{Seed: opts.seed})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.registry.Ready(ctx); err != nil {
		t.Fatalf("Ready() = %v", err)
	}

	var rnd *random.Fake
	if opts.random != nil {
		rnd = opts.random
	} else {
		rnd = random.NewFake()
	}
	e.autosave = app.NewAutosave(app.AutosaveDeps{
		Registry: e.registry,
		Drafts:   e.drafts,
		Sync:     e.sync,
		Clock:    e.clock,
		Random:   rnd,
		Logger:   logger,
	}, app.AutosaveConfig{OnNotice: e.notices.add})

	t.Cleanup(func() {
		e.autosave.Stop()
		e.registry.Dispose()
	})
	return e
}

func (e *testEnv) open(t *testing.T, id string) course.Course {
	t.Helper()
	c, err := e.autosave.Open(context.Background(), id)
	if err != nil {
		t.Fatalf("Open(%s) = %v", id, err)
	}
	return c
}

func (e *testEnv) edit(t *testing.T, id string, fn func(c *course.Course)) {
	t.Helper()
	if _, err := e.autosave.Edit(id, fn); err != nil {
		t.Fatalf("Edit(%s) = %v", id, err)
	}
}
