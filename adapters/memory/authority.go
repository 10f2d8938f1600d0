package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/domain/slug"
	"github.com/artpar/coursesync/ports"
)

// Operation names used for call counting and error injection.
const (
	OpList    = "list"
	OpSave    = "save"
	OpPublish = "publish"
	OpAssign  = "assign"
	OpDelete  = "delete"
)

// CourseAuthority is an in-process remote course authority.
// It validates with the same rule set as clients, enforces globally unique
// slugs and replays responses for repeated idempotency keys.
type CourseAuthority struct {
	mu       sync.Mutex
	clock    ports.Clock
	courses  map[string]course.Document
	replies  map[string]reply
	calls    map[string]int
	failures map[string][]error
	suggest  bool
}

type reply struct {
	doc course.Document
	err error
}

func (r reply) result() (course.Document, error) {
	if r.err != nil {
		return course.Document{}, r.err
	}
	return course.Denormalize(r.doc.Course), nil
}

// NewCourseAuthority creates an empty authority.
func NewCourseAuthority(clock ports.Clock) *CourseAuthority {
	return &CourseAuthority{
		clock:    clock,
		courses:  make(map[string]course.Document),
		replies:  make(map[string]reply),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
	}
}

// WithSlugSuggestions makes slug conflicts carry the next free slug.
func (a *CourseAuthority) WithSlugSuggestions(on bool) *CourseAuthority {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.suggest = on
	return a
}

// Seed stores documents directly, bypassing validation.
func (a *CourseAuthority) Seed(docs ...course.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, d := range docs {
		d = course.Normalize(d)
		a.courses[d.ID] = d
	}
}

// List returns every stored course ordered by id.
func (a *CourseAuthority) List(ctx context.Context) ([]course.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[OpList]++
	if err := a.injected(OpList); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(a.courses))
	for id := range a.courses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]course.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, course.Denormalize(a.courses[id].Course))
	}
	return out, nil
}

// Save upserts a course by id.
func (a *CourseAuthority) Save(ctx context.Context, req ports.SaveRequest) (course.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[OpSave]++
	if err := a.injected(OpSave); err != nil {
		return course.Document{}, err
	}
	if r, ok := a.replay(OpSave, req.IdempotencyKey); ok {
		return r.result()
	}

	doc, err := a.save(req.Document)
	a.remember(OpSave, req.IdempotencyKey, doc, err)
	return doc, err
}

func (a *CourseAuthority) save(in course.Document) (course.Document, error) {
	doc := course.Normalize(in)
	if doc.ID == "" {
		return course.Document{}, &course.ValidationError{Issues: []string{"Course id is required."}}
	}
	if issues := course.Validate(doc.Course); len(issues) > 0 {
		return course.Document{}, &course.ValidationError{Issues: issues}
	}
	if a.slugTaken(doc.Slug, doc.ID) {
		conflict := &course.ConflictError{
			Code:    course.CodeSlugTaken,
			Field:   "slug",
			Value:   doc.Slug,
			Message: fmt.Sprintf("The course URL %q is already in use.", doc.Slug),
		}
		if a.suggest {
			conflict.Suggestion = a.freeSlug(doc.Slug, doc.ID)
		}
		return course.Document{}, conflict
	}

	if prev, ok := a.courses[doc.ID]; ok {
		if doc.PublishedAt == nil {
			doc.PublishedAt = prev.PublishedAt
		}
		if len(doc.AssignedOrgs) == 0 {
			doc.AssignedOrgs = prev.AssignedOrgs
		}
	}
	a.courses[doc.ID] = doc
	return course.Denormalize(doc.Course), nil
}

// Publish marks a stored course published.
func (a *CourseAuthority) Publish(ctx context.Context, req ports.PublishRequest) (course.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[OpPublish]++
	if err := a.injected(OpPublish); err != nil {
		return course.Document{}, err
	}
	if r, ok := a.replay(OpPublish, req.IdempotencyKey); ok {
		return r.result()
	}

	doc, err := a.publish(req.CourseID)
	a.remember(OpPublish, req.IdempotencyKey, doc, err)
	return doc, err
}

func (a *CourseAuthority) publish(id string) (course.Document, error) {
	doc, ok := a.courses[id]
	if !ok {
		return course.Document{}, fmt.Errorf("publish %s: %w", id, course.ErrNotFound)
	}
	if issues := course.Validate(doc.Course); len(issues) > 0 {
		return course.Document{}, &course.ValidationError{Issues: issues}
	}
	doc.Status = course.StatusPublished
	if doc.PublishedAt == nil {
		now := a.clock.Now()
		doc.PublishedAt = &now
	}
	a.courses[id] = doc
	return course.Denormalize(doc.Course), nil
}

// Assign grants an organisation access to a course.
func (a *CourseAuthority) Assign(ctx context.Context, req ports.AssignRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[OpAssign]++
	if err := a.injected(OpAssign); err != nil {
		return err
	}
	if r, ok := a.replay(OpAssign, req.IdempotencyKey); ok {
		return r.err
	}

	doc, ok := a.courses[req.CourseID]
	if !ok {
		err := fmt.Errorf("assign %s: %w", req.CourseID, course.ErrNotFound)
		a.remember(OpAssign, req.IdempotencyKey, course.Document{}, err)
		return err
	}
	if !contains(doc.AssignedOrgs, req.OrgID) {
		doc.AssignedOrgs = append(append([]string(nil), doc.AssignedOrgs...), req.OrgID)
	}
	a.courses[req.CourseID] = doc
	a.remember(OpAssign, req.IdempotencyKey, course.Document{}, nil)
	return nil
}

// Delete removes a course.
func (a *CourseAuthority) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[OpDelete]++
	if err := a.injected(OpDelete); err != nil {
		return err
	}
	delete(a.courses, id)
	return nil
}

// FailNext queues err as the result of the next call to op.
func (a *CourseAuthority) FailNext(op string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[op] = append(a.failures[op], err)
}

// Calls returns how many times op was invoked, including failed calls.
func (a *CourseAuthority) Calls(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[op]
}

// Get returns a stored course (for testing).
func (a *CourseAuthority) Get(id string) (course.Document, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	doc, ok := a.courses[id]
	if !ok {
		return course.Document{}, false
	}
	return course.Denormalize(doc.Course), true
}

// Clear removes all courses, cached replies and counters (for testing).
func (a *CourseAuthority) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.courses = make(map[string]course.Document)
	a.replies = make(map[string]reply)
	a.calls = make(map[string]int)
	a.failures = make(map[string][]error)
}

// injected pops a queued failure for op. Must be called with a.mu held.
func (a *CourseAuthority) injected(op string) error {
	queue := a.failures[op]
	if len(queue) == 0 {
		return nil
	}
	a.failures[op] = queue[1:]
	return queue[0]
}

func (a *CourseAuthority) replay(op, key string) (reply, bool) {
	if key == "" {
		return reply{}, false
	}
	r, ok := a.replies[op+":"+key]
	return r, ok
}

func (a *CourseAuthority) remember(op, key string, doc course.Document, err error) {
	if key == "" {
		return
	}
	a.replies[op+":"+key] = reply{doc: doc, err: err}
}

func (a *CourseAuthority) slugTaken(s, ownerID string) bool {
	for id, doc := range a.courses {
		if id != ownerID && doc.Slug == s {
			return true
		}
	}
	return false
}

func (a *CourseAuthority) freeSlug(s, ownerID string) string {
	for candidate := slug.Next(s); candidate != ""; candidate = slug.Next(candidate) {
		if !a.slugTaken(candidate, ownerID) {
			return candidate
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Ensure interface compliance.
var _ ports.CourseGateway = (*CourseAuthority)(nil)
