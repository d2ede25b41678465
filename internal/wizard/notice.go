package wizard

import (
	"context"
	"errors"

	"github.com/atozfamily/homescholar/internal/curriculum"
)

// User-facing failure notices. Raw errors are never shown.
const (
	NoticeResearchFailed    = "We couldn't complete the research. Please check your connection and try again."
	NoticeResearchTimeout   = "Research is taking longer than expected. Please try again."
	NoticeGenerationFailed  = "We couldn't generate the curriculum. Your research is saved, so you can try again."
	NoticeGenerationTimeout = "Curriculum generation took too long. Your research is saved, so you can try again."
	NoticeMalformedOutput   = "Curriculum generation produced an unexpected result. Please try again."
)

// timeouter matches errors that know whether they were a timeout, such as
// the HTTP client's APIError for a 504.
type timeouter interface{ Timeout() bool }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}

func researchNotice(err error) string {
	if isTimeout(err) {
		return NoticeResearchTimeout
	}
	return NoticeResearchFailed
}

func generationNotice(err error) string {
	switch {
	case errors.Is(err, curriculum.ErrMalformedOutput):
		return NoticeMalformedOutput
	case isTimeout(err):
		return NoticeGenerationTimeout
	default:
		return NoticeGenerationFailed
	}
}
