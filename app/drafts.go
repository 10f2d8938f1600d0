package app

import (
	"context"
	"encoding/json"

	"github.com/artpar/coursesync/domain/course"
	"github.com/artpar/coursesync/ports"
	"github.com/rs/zerolog"
)

// DefaultDraftPrefix namespaces draft keys in a shared store.
const DefaultDraftPrefix = "course-draft:"

// DraftService keeps the in-progress working document of each course in a
// durable key-value store. Failures are logged and never returned: a
// missing or unreadable draft is treated as no draft.
type DraftService struct {
	store   ports.DraftStore
	prefix  string
	logger  zerolog.Logger
	metrics ports.SyncMetrics
}

// DraftConfig configures a DraftService.
type DraftConfig struct {
	Prefix  string // Default: DefaultDraftPrefix
	Metrics ports.SyncMetrics
}

// NewDraftService creates a draft service over store.
func NewDraftService(store ports.DraftStore, logger zerolog.Logger, cfg DraftConfig) *DraftService {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultDraftPrefix
	}
	return &DraftService{
		store:   store,
		prefix:  cfg.Prefix,
		logger:  logger,
		metrics: metricsOrNoop(cfg.Metrics),
	}
}

// Key returns the store key for a course id.
func (s *DraftService) Key(id string) string {
	return s.prefix + id
}

// Load returns the normalized draft for id, if a readable one exists.
func (s *DraftService) Load(ctx context.Context, id string) (course.Document, bool) {
	data, err := s.store.Get(ctx, s.Key(id))
	if err != nil {
		s.logger.Warn().Err(err).Str("course_id", id).Msg("draft read failed")
		return course.Document{}, false
	}
	if data == nil {
		return course.Document{}, false
	}

	var doc course.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("course_id", id).Msg("draft is corrupt, ignoring")
		return course.Document{}, false
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return course.Normalize(doc), true
}

// Save writes the dual-shape document for doc. It reports whether the
// write succeeded.
func (s *DraftService) Save(ctx context.Context, doc course.Document) bool {
	doc = course.Normalize(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", doc.ID).Msg("draft encode failed")
		s.metrics.LocalWrite(false)
		return false
	}
	if err := s.store.Set(ctx, s.Key(doc.ID), data); err != nil {
		s.logger.Warn().Err(err).Str("course_id", doc.ID).Msg("draft write failed")
		s.metrics.LocalWrite(false)
		return false
	}
	s.metrics.LocalWrite(true)
	return true
}

// Remove deletes the draft for id.
func (s *DraftService) Remove(ctx context.Context, id string) {
	if err := s.store.Remove(ctx, s.Key(id)); err != nil {
		s.logger.Warn().Err(err).Str("course_id", id).Msg("draft remove failed")
	}
}
