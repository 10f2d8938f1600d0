package course

import (
	"errors"
	"fmt"

	"github.com/artpar/coursesync/domain/slug"
)

// RandomSource supplies random suffixes when no other slug candidate exists.
type RandomSource interface {
	String(n int) (string, error)
}

// Resolution is the outcome of a slug conflict.
type Resolution struct {
	Slug    string
	Message string
}

// ResolveConflict turns a slug conflict into a replacement slug and a
// user-facing message. It returns nil for any other error.
// The remote suggestion wins; otherwise the attempted slug's numeric
// suffix is incremented; otherwise a random suffix from rnd is used. It
// returns nil when no slug can be produced.
func ResolveConflict(err error, attempted string, rnd RandomSource) *Resolution {
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Code != CodeSlugTaken {
		return nil
	}

	next := slug.Make(ce.Suggestion)
	if next == "" || next == attempted {
		next = slug.Next(attempted)
	}
	if next == "" {
		suffix := randomSuffix(rnd)
		if suffix == "" {
			return nil
		}
		next = "course-" + suffix
	}

	return &Resolution{
		Slug:    next,
		Message: fmt.Sprintf("The course URL %q is already in use, so it was changed to %q.", attempted, next),
	}
}

func randomSuffix(rnd RandomSource) string {
	if rnd != nil {
		if s, err := rnd.String(6); err == nil {
			if s = slug.Make(s); s != "" {
				return s
			}
		}
	}
	return ""
}
