package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/ports"
	"github.com/rs/zerolog"
)

// Default debounce delays for the two autosave tiers.
const (
	DefaultLocalDelay  = 800 * time.Millisecond
	DefaultRemoteDelay = 1500 * time.Millisecond
)

// NoticeKind classifies an autosave outcome shown to the editor.
type NoticeKind string

const (
	NoticeSaved       NoticeKind = "saved"
	NoticeUnchanged   NoticeKind = "unchanged"
	NoticeInvalid     NoticeKind = "invalid"
	NoticeSlugChanged NoticeKind = "slug_changed"
	NoticeFailed      NoticeKind = "failed"
)

// Notice reports the outcome of a remote-tier save or a publish attempt.
type Notice struct {
	Kind     NoticeKind
	CourseID string
	Issues   []string // NoticeInvalid
	Slug     string   // NoticeSlugChanged
	Message  string
	Err      error // NoticeFailed
}

// Autosave keeps one working document per open course and persists it on
// two debounced tiers: a fast local draft write and a slower remote write
// that is skipped when nothing structural changed.
type Autosave struct {
	registry *Registry
	drafts   *DraftService
	sync     *SyncService
	random   ports.Random
	logger   zerolog.Logger
	metrics  ports.SyncMetrics
	notify   func(Notice)

	local  *Debouncer
	remote *Debouncer

	mu          sync.Mutex
	sessions    map[string]*session
	localDelay  time.Duration
	remoteDelay time.Duration
	stopped     bool
}

// session is the editing state of one open course.
type session struct {
	working   course.Course
	persisted course.Snapshot
	// resolvedSlug is set after a slug conflict was auto-resolved; a second
	// conflict on that slug is a plain failure.
	resolvedSlug string
}

// AutosaveDeps contains dependencies for Autosave.
type AutosaveDeps struct {
	Registry *Registry
	Drafts   *DraftService
	Sync     *SyncService // nil or disabled means the registry is the only authority
	Clock    ports.Clock
	Random   ports.Random
	Logger   zerolog.Logger
	Metrics  ports.SyncMetrics
}

// AutosaveConfig contains configuration for Autosave.
type AutosaveConfig struct {
	LocalDelay  time.Duration // Default: 800ms
	RemoteDelay time.Duration // Default: 1500ms
	OnNotice    func(Notice)
}

// NewAutosave creates an autosave scheduler.
func NewAutosave(deps AutosaveDeps, cfg AutosaveConfig) *Autosave {
	if cfg.LocalDelay <= 0 {
		cfg.LocalDelay = DefaultLocalDelay
	}
	if cfg.RemoteDelay <= 0 {
		cfg.RemoteDelay = DefaultRemoteDelay
	}
	notify := cfg.OnNotice
	if notify == nil {
		notify = func(Notice) {}
	}
	return &Autosave{
		registry:    deps.Registry,
		drafts:      deps.Drafts,
		sync:        deps.Sync,
		random:      deps.Random,
		logger:      deps.Logger,
		metrics:     metricsOrNoop(deps.Metrics),
		notify:      notify,
		local:       NewDebouncer(deps.Clock),
		remote:      NewDebouncer(deps.Clock),
		sessions:    make(map[string]*session),
		localDelay:  cfg.LocalDelay,
		remoteDelay: cfg.RemoteDelay,
	}
}

// SetDelays changes the debounce delays. Timers already armed keep their
// original deadline.
func (a *Autosave) SetDelays(local, remote time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if local > 0 {
		a.localDelay = local
	}
	if remote > 0 {
		a.remoteDelay = remote
	}
}

// Open starts editing a course. The working document is the local draft
// when one exists, otherwise the registry copy. The registry copy is taken
// as the last persisted state.
func (a *Autosave) Open(ctx context.Context, id string) (course.Course, error) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return course.Course{}, ErrDisposed
	}
	if s, ok := a.sessions[id]; ok {
		c := s.working.Clone()
		a.mu.Unlock()
		return c, nil
	}
	a.mu.Unlock()

	base, inRegistry := a.registry.Get(id)
	draft, hasDraft := a.drafts.Load(ctx, id)
	if !inRegistry && !hasDraft {
		return course.Course{}, fmt.Errorf("open %s: %w", id, ErrNotFound)
	}

	s := &session{working: base}
	if inRegistry {
		s.persisted = course.TakeSnapshot(base)
	}
	if hasDraft {
		s.working = draft.Course
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.sessions[id]; ok {
		return existing.working.Clone(), nil
	}
	a.sessions[id] = s
	return s.working.Clone(), nil
}

// Working returns the current working document of an open course.
func (a *Autosave) Working(id string) (course.Course, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		return course.Course{}, false
	}
	return s.working.Clone(), true
}

// Edit applies fn to the working document and re-arms both tiers.
func (a *Autosave) Edit(id string, fn func(c *course.Course)) (course.Course, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[id]
	if !ok {
		return course.Course{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	next := s.working.Clone()
	fn(&next)
	next.ID = id
	a.replaceLocked(s, next)
	return s.working.Clone(), nil
}

// Replace swaps in a whole working document and re-arms both tiers.
func (a *Autosave) Replace(c course.Course) (course.Course, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[c.ID]
	if !ok {
		return course.Course{}, fmt.Errorf("replace %s: %w", c.ID, ErrNotFound)
	}
	a.replaceLocked(s, c.Clone())
	return s.working.Clone(), nil
}

func (a *Autosave) replaceLocked(s *session, next course.Course) {
	if next.Slug != s.working.Slug {
		s.resolvedSlug = ""
	}
	s.working = course.Canonical(next)
	a.armLocked(next.ID)
}

// armLocked (re)arms both tiers for id. Must be called with a.mu held.
func (a *Autosave) armLocked(id string) {
	a.local.Schedule(id, a.localDelay, func() { a.writeLocal(context.Background(), id) })
	a.armRemoteLocked(id)
}

func (a *Autosave) armRemoteLocked(id string) {
	a.remote.Schedule(id, a.remoteDelay, func() { a.writeRemote(context.Background(), id) })
}

// Flush cancels pending timers for id and runs both tiers now. It returns
// the remote-tier error, if any.
func (a *Autosave) Flush(ctx context.Context, id string) error {
	a.local.Cancel(id)
	a.remote.Cancel(id)

	if !a.writeLocal(ctx, id) {
		return fmt.Errorf("flush %s: %w", id, ErrNotFound)
	}
	return a.writeRemote(ctx, id)
}

// Publish flushes pending edits and publishes the course. Validation issues
// block it with *course.ValidationError, while the local draft is still
// written. The remote publish is always issued, even when nothing else
// changed.
func (a *Autosave) Publish(ctx context.Context, id string) (course.Course, error) {
	a.local.Cancel(id)
	a.remote.Cancel(id)

	working, ok := a.Working(id)
	if !ok {
		return course.Course{}, fmt.Errorf("publish %s: %w", id, ErrNotFound)
	}
	a.writeLocal(ctx, id)

	if issues := course.Validate(working); len(issues) > 0 {
		a.metrics.ValidationBlocked(opPublish)
		a.notify(Notice{Kind: NoticeInvalid, CourseID: id, Issues: issues})
		return course.Course{}, &course.ValidationError{Issues: issues}
	}

	if err := a.writeRemote(ctx, id); err != nil {
		if _, invalid := course.Issues(err); invalid {
			return course.Course{}, err
		}
		a.logger.Warn().Err(err).Str("course_id", id).Msg("pre-publish save failed, publishing local state")
	}

	working, ok = a.Working(id)
	if !ok {
		return course.Course{}, fmt.Errorf("publish %s: %w", id, ErrNotFound)
	}
	if _, err := a.registry.Set(working); err != nil {
		return course.Course{}, err
	}
	published, err := a.registry.Publish(id)
	if err != nil {
		return course.Course{}, err
	}

	a.mu.Lock()
	if s, ok := a.sessions[id]; ok {
		s.working = published.Clone()
		s.persisted = course.TakeSnapshot(published)
	}
	a.mu.Unlock()

	a.drafts.Save(ctx, course.Denormalize(published))
	return published, nil
}

// Close ends editing of a course. Pending timers are cancelled and nothing
// more is written for it.
func (a *Autosave) Close(id string) {
	a.local.Cancel(id)
	a.remote.Cancel(id)

	a.mu.Lock()
	delete(a.sessions, id)
	a.mu.Unlock()
}

// Stop cancels every pending timer and closes every session.
func (a *Autosave) Stop() {
	a.local.Stop()
	a.remote.Stop()

	a.mu.Lock()
	a.stopped = true
	a.sessions = make(map[string]*session)
	a.mu.Unlock()
}

// writeLocal persists the working document as a draft. It reports false
// if the course is not open.
func (a *Autosave) writeLocal(ctx context.Context, id string) bool {
	a.mu.Lock()
	s, ok := a.sessions[id]
	if !ok {
		a.mu.Unlock()
		return false
	}
	doc := course.Denormalize(s.working)
	a.mu.Unlock()

	a.drafts.Save(ctx, doc)
	return true
}

// writeRemote runs the remote tier for id: diff, validate, save, and on
// success move the last-persisted pointer. The lock is not held across
// the remote call.
func (a *Autosave) writeRemote(ctx context.Context, id string) error {
	a.mu.Lock()
	s, ok := a.sessions[id]
	if !ok {
		a.mu.Unlock()
		return nil
	}
	current := s.working.Clone()
	persisted := s.persisted
	resolved := s.resolvedSlug
	a.mu.Unlock()

	if !persisted.Changed(current) {
		a.metrics.DiffSkipped()
		a.notify(Notice{Kind: NoticeUnchanged, CourseID: id})
		return nil
	}

	if issues := course.Validate(current); len(issues) > 0 {
		a.metrics.ValidationBlocked(opSave)
		a.notify(Notice{Kind: NoticeInvalid, CourseID: id, Issues: issues})
		return &course.ValidationError{Issues: issues}
	}

	saved := current
	if a.sync.Enabled() {
		out, err := a.sync.Save(ctx, current)
		if err != nil {
			return a.remoteFailed(ctx, id, current, resolved, err)
		}
		saved = out
	}

	stored, err := a.registry.Set(saved)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if s, ok := a.sessions[id]; ok {
		s.persisted = course.TakeSnapshot(stored)
		s.resolvedSlug = ""
		if course.TakeSnapshot(s.working).Equal(course.TakeSnapshot(current)) {
			// No edits landed during the call: adopt the authoritative copy.
			s.working = stored.Clone()
		}
	}
	a.mu.Unlock()

	a.notify(Notice{Kind: NoticeSaved, CourseID: id})
	return nil
}

// remoteFailed classifies a failed remote save. Slug conflicts are resolved
// once by patching the working slug and re-arming the remote tier.
func (a *Autosave) remoteFailed(ctx context.Context, id string, attempted course.Course, resolved string, err error) error {
	if issues, ok := course.Issues(err); ok {
		a.notify(Notice{Kind: NoticeInvalid, CourseID: id, Issues: issues})
		return err
	}

	var res *course.Resolution
	if resolved == "" || resolved != attempted.Slug {
		res = course.ResolveConflict(err, attempted.Slug, a.random)
	}
	if res != nil {
		a.mu.Lock()
		s, ok := a.sessions[id]
		if ok {
			s.working.Slug = res.Slug
			s.working.SlugOverridden = true
			s.resolvedSlug = res.Slug
			a.armRemoteLocked(id)
		}
		var doc course.Document
		if ok {
			doc = course.Denormalize(s.working)
		}
		a.mu.Unlock()

		if ok {
			a.drafts.Save(ctx, doc)
		}
		a.metrics.SlugConflict("resolved")
		a.logger.Info().Str("course_id", id).Str("slug", res.Slug).Msg("slug conflict resolved")
		a.notify(Notice{Kind: NoticeSlugChanged, CourseID: id, Slug: res.Slug, Message: res.Message})
		return err
	}

	if course.IsSlugTaken(err) {
		a.metrics.SlugConflict("failed")
	}
	a.logger.Warn().Err(err).Str("course_id", id).Msg("remote save failed, draft kept")
	a.notify(Notice{Kind: NoticeFailed, CourseID: id, Err: err, Message: failureMessage(err)})
	return err
}

func failureMessage(err error) string {
	var ce *course.ConflictError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return "Your changes are saved on this device but could not be synced yet."
}
