// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/coursesync/domain/course"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes generates n random bytes.
	Bytes(n int) ([]byte, error)
	// String generates a random string of n characters.
	String(n int) (string, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// DraftStore is a durable string key-value store for local drafts.
type DraftStore interface {
	// Get returns the stored value, or nil and no error if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// SaveRequest creates or updates a course.
type SaveRequest struct {
	Document       course.Document
	IdempotencyKey string
}

// PublishRequest publishes a course.
type PublishRequest struct {
	CourseID       string
	IdempotencyKey string
}

// AssignRequest assigns a course to an organisation.
type AssignRequest struct {
	CourseID       string
	OrgID          string
	IdempotencyKey string
}

// CourseGateway is the remote course authority.
// Write failures are *course.ValidationError, *course.ConflictError or a
// transport error. Validation failures must never be retried automatically.
type CourseGateway interface {
	// List returns every course the authority knows.
	List(ctx context.Context) ([]course.Document, error)

	// Save creates or updates a course and returns the authoritative record.
	Save(ctx context.Context, req SaveRequest) (course.Document, error)

	// Publish marks a course published and returns the authoritative record.
	Publish(ctx context.Context, req PublishRequest) (course.Document, error)

	// Assign grants an organisation access to a course.
	Assign(ctx context.Context, req AssignRequest) error

	// Delete removes a course. Deleting an unknown course is not an error.
	Delete(ctx context.Context, id string) error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// SyncMetrics records autosave and sync outcomes.
// Implementations must be safe for concurrent use.
type SyncMetrics interface {
	LocalWrite(ok bool)
	RemoteWrite(op string, ok bool, d time.Duration)
	DiffSkipped()
	SlugConflict(outcome string)
	ValidationBlocked(op string)
	RegistrySize(n int)
}
