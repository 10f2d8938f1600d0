package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/ports"
	"github.com/rs/zerolog"
)

// Registry is the in-process authoritative cache of courses.
// Every write re-normalizes before storing, so callers never observe a
// partially normalized course. Values handed out are deep copies.
type Registry struct {
	sync    *SyncService
	ids     ports.IDGenerator
	clock   ports.Clock
	logger  zerolog.Logger
	metrics ports.SyncMetrics

	mu       sync.RWMutex
	courses  map[string]course.Course
	touched  map[string]bool // written locally since construction
	disposed bool

	ready         chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
	stopHydration context.CancelFunc
	pending       sync.WaitGroup
}

// RegistryDeps contains dependencies for Registry.
type RegistryDeps struct {
	Sync    *SyncService // nil or disabled means no hydration and no remote writes
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Logger  zerolog.Logger
	Metrics ports.SyncMetrics
}

// RegistryConfig contains configuration for Registry.
type RegistryConfig struct {
	// Seed is stored synchronously at construction. It stays in place if
	// hydration fails.
	Seed []course.Document
}

// DeleteOptions controls Delete.
type DeleteOptions struct {
	SkipRemote bool
}

// NewRegistry creates a registry seeded with cfg.Seed. When a remote
// authority is configured it hydrates once in the background; Ready waits
// for that.
func NewRegistry(deps RegistryDeps, cfg RegistryConfig) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		sync:    deps.Sync,
		ids:     deps.IDs,
		clock:   deps.Clock,
		logger:  deps.Logger,
		metrics: metricsOrNoop(deps.Metrics),
		courses: make(map[string]course.Course),
		touched: make(map[string]bool),
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, d := range cfg.Seed {
		c := course.AssignIDs(course.Normalize(d).Course, r.ids.New)
		r.courses[c.ID] = course.Canonical(c)
	}
	r.metrics.RegistrySize(len(r.courses))

	if !r.sync.Enabled() {
		close(r.ready)
		return r
	}

	hctx, stop := context.WithCancel(ctx)
	r.stopHydration = stop
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		defer close(r.ready)
		defer stop()
		r.hydrate(hctx)
	}()
	return r
}

// hydrate merges every remote course into the map. Courses written locally
// in the meantime win. Failure leaves the seed in place.
func (r *Registry) hydrate(ctx context.Context) {
	remote, err := r.sync.List(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("course hydration failed, keeping local data")
		return
	}

	r.mu.Lock()
	merged := 0
	for _, c := range remote {
		if c.ID == "" || r.touched[c.ID] {
			continue
		}
		r.courses[c.ID] = course.Canonical(c)
		merged++
	}
	size := len(r.courses)
	r.mu.Unlock()

	r.metrics.RegistrySize(size)
	r.logger.Info().Int("courses", merged).Msg("courses hydrated from remote")
}

// Ready blocks until hydration has finished or ctx is done. Hydration
// failure is not an error.
func (r *Registry) Ready(ctx context.Context) error {
	select {
	case <-r.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until background remote work started so far has finished.
func (r *Registry) Wait() {
	r.pending.Wait()
}

// Dispose rejects further writes, abandons a running hydration and waits
// for in-flight remote writes.
func (r *Registry) Dispose() {
	r.mu.Lock()
	r.disposed = true
	r.mu.Unlock()

	if r.stopHydration != nil {
		r.stopHydration()
	}
	r.pending.Wait()
	r.cancel()
}

// Create stores a new course. Missing ids are generated and the status
// defaults to draft.
func (r *Registry) Create(c course.Course) (course.Course, error) {
	c = course.Canonical(course.AssignIDs(c, r.ids.New))

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return course.Course{}, ErrDisposed
	}
	if _, ok := r.courses[c.ID]; ok {
		r.mu.Unlock()
		return course.Course{}, fmt.Errorf("create %s: %w", c.ID, ErrExists)
	}
	r.store(c)
	size := len(r.courses)
	r.mu.Unlock()

	r.metrics.RegistrySize(size)
	return c.Clone(), nil
}

// Get returns the course with id.
func (r *Registry) Get(id string) (course.Course, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.courses[id]
	if !ok {
		return course.Course{}, false
	}
	return c.Clone(), true
}

// GetAll returns every course ordered by id.
func (r *Registry) GetAll() []course.Course {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]course.Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Set re-normalizes c and overwrites any course with the same id.
func (r *Registry) Set(c course.Course) (course.Course, error) {
	c = course.Canonical(course.AssignIDs(c, r.ids.New))

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return course.Course{}, ErrDisposed
	}
	r.store(c)
	size := len(r.courses)
	r.mu.Unlock()

	r.metrics.RegistrySize(size)
	return c.Clone(), nil
}

// Update applies p to the course with id.
func (r *Registry) Update(id string, p course.Patch) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return p.Apply(c), true
	})
}

// Delete removes the course with id. Remote deletion runs in the
// background unless skipped. Local drafts are not touched.
func (r *Registry) Delete(id string, opts DeleteOptions) bool {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return false
	}
	_, ok := r.courses[id]
	delete(r.courses, id)
	delete(r.touched, id)
	size := len(r.courses)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.metrics.RegistrySize(size)

	if !opts.SkipRemote {
		r.background(func(ctx context.Context) {
			if err := r.sync.Delete(ctx, id); err != nil {
				r.logger.Warn().Err(err).Str("course_id", id).Msg("remote delete failed")
			}
		})
	}
	return true
}

// Publish marks the course published, stamping PublishedAt if unset, and
// stores it immediately. The remote publish runs in the background and its
// failure does not roll back the local state.
// Courses with validation issues are refused with *course.ValidationError.
func (r *Registry) Publish(id string) (course.Course, error) {
	var blocked []string
	c, err := r.mutate(id, func(c course.Course) (course.Course, bool) {
		if issues := course.Validate(c); len(issues) > 0 {
			blocked = issues
			return c, false
		}
		c.Status = course.StatusPublished
		if c.PublishedAt == nil {
			now := r.clock.Now()
			c.PublishedAt = &now
		}
		return c, true
	})
	if blocked != nil {
		r.metrics.ValidationBlocked(opPublish)
		return course.Course{}, &course.ValidationError{Issues: blocked}
	}
	if err != nil {
		return course.Course{}, err
	}

	published := c.Clone()
	r.background(func(ctx context.Context) {
		if _, err := r.sync.Publish(ctx, published); err != nil {
			r.logger.Error().Err(err).Str("course_id", id).Msg("remote publish failed, local state kept")
		}
	})
	return c, nil
}

// Assign records orgID on the course and forwards the assignment to the
// remote authority, waiting for the result.
func (r *Registry) Assign(ctx context.Context, id, orgID string) error {
	_, err := r.mutate(id, func(c course.Course) (course.Course, bool) {
		for _, o := range c.AssignedOrgs {
			if o == orgID {
				return c, true
			}
		}
		c.AssignedOrgs = append(c.AssignedOrgs, orgID)
		return c, true
	})
	if err != nil {
		return err
	}
	if !r.sync.Enabled() {
		return nil
	}
	if err := r.sync.Assign(ctx, id, orgID); err != nil {
		return fmt.Errorf("assign %s to %s: %w", id, orgID, err)
	}
	return nil
}

// AddChapter appends a chapter, generating missing ids.
func (r *Registry) AddChapter(id string, ch course.Chapter) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.AddChapter(c, ch), true
	})
}

// RemoveChapter removes a chapter.
func (r *Registry) RemoveChapter(id, chapterID string) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.RemoveChapter(c, chapterID)
	})
}

// MoveChapter moves a chapter to a zero-based index.
func (r *Registry) MoveChapter(id, chapterID string, to int) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.MoveChapter(c, chapterID, to)
	})
}

// AddLesson appends a lesson to a chapter.
func (r *Registry) AddLesson(id, chapterID string, l course.Lesson) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.AddLesson(c, chapterID, l)
	})
}

// RemoveLesson removes a lesson from a chapter.
func (r *Registry) RemoveLesson(id, chapterID, lessonID string) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.RemoveLesson(c, chapterID, lessonID)
	})
}

// MoveLesson moves a lesson within its chapter.
func (r *Registry) MoveLesson(id, chapterID, lessonID string, to int) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.MoveLesson(c, chapterID, lessonID, to)
	})
}

// UpdateLesson replaces a lesson in place.
func (r *Registry) UpdateLesson(id, chapterID string, l course.Lesson) (course.Course, error) {
	return r.mutate(id, func(c course.Course) (course.Course, bool) {
		return course.UpdateLesson(c, chapterID, l)
	})
}

// mutate applies fn to the stored course under the write lock. fn reports
// false when its target does not exist.
func (r *Registry) mutate(id string, fn func(course.Course) (course.Course, bool)) (course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return course.Course{}, ErrDisposed
	}
	c, ok := r.courses[id]
	if !ok {
		return course.Course{}, fmt.Errorf("course %s: %w", id, ErrNotFound)
	}
	next, ok := fn(c.Clone())
	if !ok {
		return course.Course{}, fmt.Errorf("course %s: child %w", id, ErrNotFound)
	}
	next = course.Canonical(course.AssignIDs(next, r.ids.New))
	next.ID = id
	r.store(next)
	return next.Clone(), nil
}

// store must be called with r.mu held.
func (r *Registry) store(c course.Course) {
	r.courses[c.ID] = c
	r.touched[c.ID] = true
}

// background runs fn on its own goroutine when a remote is configured and
// the registry is live.
func (r *Registry) background(fn func(ctx context.Context)) {
	if !r.sync.Enabled() {
		return
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.pending.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.pending.Done()
		fn(r.ctx)
	}()
}
