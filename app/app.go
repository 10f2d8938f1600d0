// Package app provides application services that orchestrate domain logic.
package app

import (
	"errors"
	"time"

	"github.com/artpar/coursesync/ports"
)

var (
	// ErrNotFound is returned when a course, chapter or lesson does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("course already exists")

	// ErrDisposed is returned by a registry or autosave after teardown.
	ErrDisposed = errors.New("disposed")

	// ErrNoRemote is returned by sync calls when no remote authority is
	// configured.
	ErrNoRemote = errors.New("no remote authority configured")
)

// noopMetrics discards everything.
type noopMetrics struct{}

func (noopMetrics) LocalWrite(bool)                         {}
func (noopMetrics) RemoteWrite(string, bool, time.Duration) {}
func (noopMetrics) DiffSkipped()                            {}
func (noopMetrics) SlugConflict(string)                     {}
func (noopMetrics) ValidationBlocked(string)                {}
func (noopMetrics) RegistrySize(int)                        {}

func metricsOrNoop(m ports.SyncMetrics) ports.SyncMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
