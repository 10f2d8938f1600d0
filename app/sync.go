package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/ports"
	"github.com/rs/zerolog"
)

// Remote operation names used in metrics and logs.
const (
	opSave    = "save"
	opPublish = "publish"
	opAssign  = "assign"
	opDelete  = "delete"
	opList    = "list"
)

// SyncService is the call boundary to the remote course authority. Every
// write gets a fresh idempotency key. Results come back canonical.
type SyncService struct {
	gateway ports.CourseGateway
	ids     ports.IDGenerator
	clock   ports.Clock
	metrics ports.SyncMetrics
	logger  zerolog.Logger
	timeout time.Duration
}

// SyncDeps contains dependencies for SyncService.
type SyncDeps struct {
	Gateway ports.CourseGateway // nil means local-only
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Metrics ports.SyncMetrics
	Logger  zerolog.Logger
}

// SyncConfig contains configuration for SyncService.
type SyncConfig struct {
	Timeout time.Duration // Per-call timeout (default: 10s)
}

// NewSyncService creates a sync service.
func NewSyncService(deps SyncDeps, cfg SyncConfig) *SyncService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SyncService{
		gateway: deps.Gateway,
		ids:     deps.IDs,
		clock:   deps.Clock,
		metrics: metricsOrNoop(deps.Metrics),
		logger:  deps.Logger,
		timeout: cfg.Timeout,
	}
}

// Enabled reports whether a remote authority is configured.
func (s *SyncService) Enabled() bool {
	return s != nil && s.gateway != nil
}

// List fetches every remote course in canonical shape.
func (s *SyncService) List(ctx context.Context) ([]course.Course, error) {
	if !s.Enabled() {
		return nil, ErrNoRemote
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.gateway.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opList, err)
	}
	out := make([]course.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, course.Normalize(d).Course)
	}
	return out, nil
}

// Save upserts c and returns the authoritative record.
// Failures are *course.ValidationError, *course.ConflictError or transport
// errors.
func (s *SyncService) Save(ctx context.Context, c course.Course) (course.Course, error) {
	if !s.Enabled() {
		return course.Course{}, ErrNoRemote
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.clock.Now()
	doc, err := s.gateway.Save(ctx, ports.SaveRequest{
		Document:       course.Denormalize(c),
		IdempotencyKey: s.ids.New(),
	})
	s.record(opSave, c.ID, start, err)
	if err != nil {
		return course.Course{}, err
	}
	return course.Normalize(doc).Course, nil
}

// Publish publishes c remotely. If the authority has never seen the course
// the published document is upserted instead.
func (s *SyncService) Publish(ctx context.Context, c course.Course) (course.Course, error) {
	if !s.Enabled() {
		return course.Course{}, ErrNoRemote
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.clock.Now()
	doc, err := s.gateway.Publish(ctx, ports.PublishRequest{
		CourseID:       c.ID,
		IdempotencyKey: s.ids.New(),
	})
	if errors.Is(err, course.ErrNotFound) {
		s.logger.Debug().Str("course_id", c.ID).Msg("course unknown remotely, publishing by upsert")
		doc, err = s.gateway.Save(ctx, ports.SaveRequest{
			Document:       course.Denormalize(c),
			IdempotencyKey: s.ids.New(),
		})
	}
	s.record(opPublish, c.ID, start, err)
	if err != nil {
		return course.Course{}, err
	}
	return course.Normalize(doc).Course, nil
}

// Assign grants orgID access to a course.
func (s *SyncService) Assign(ctx context.Context, courseID, orgID string) error {
	if !s.Enabled() {
		return ErrNoRemote
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.clock.Now()
	err := s.gateway.Assign(ctx, ports.AssignRequest{
		CourseID:       courseID,
		OrgID:          orgID,
		IdempotencyKey: s.ids.New(),
	})
	s.record(opAssign, courseID, start, err)
	return err
}

// Delete removes a course remotely.
func (s *SyncService) Delete(ctx context.Context, id string) error {
	if !s.Enabled() {
		return ErrNoRemote
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.clock.Now()
	err := s.gateway.Delete(ctx, id)
	s.record(opDelete, id, start, err)
	return err
}

func (s *SyncService) record(op, id string, start time.Time, err error) {
	s.metrics.RemoteWrite(op, err == nil, s.clock.Now().Sub(start))
	if err == nil {
		s.logger.Debug().Str("op", op).Str("course_id", id).Msg("remote write succeeded")
		return
	}
	if _, ok := course.Issues(err); ok {
		s.metrics.ValidationBlocked(op)
	}
}
