// Package plan decides how a requested session duration maps onto
// generation batches bounded by the synthesizer's byte ceiling.
package plan

import (
	"errors"
	"fmt"

	"github.com/mindsphere/mindsphere/internal/ssml"
)

// Kind selects the narration style and pacing of a session.
type Kind string

const (
	KindMeditation Kind = "meditation"
	KindSleepStory Kind = "sleep_story"
)

// ErrBadRequest reports invalid planning input.
var ErrBadRequest = errors.New("invalid plan request")

const (
	// MaxBatchMinutes bounds one batch to roughly one synthesis request.
	MaxBatchMinutes = 5
	// estimatedBytesPerWord is the rough serialized cost of one generated
	// word including its share of markup.
	estimatedBytesPerWord = 4
)

// ParseKind validates a request kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMeditation, KindSleepStory:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrBadRequest, s)
	}
}

// WordsPerMinute is the pacing assumption for a kind: sleep stories read
// faster than breath-paced meditations.
func (k Kind) WordsPerMinute() int {
	if k == KindSleepStory {
		return 125
	}
	return 100
}

// Mode is the explicit generation strategy discriminant.
type Mode string

const (
	ModeSingleShot Mode = "single_shot"
	ModeBatched    Mode = "batched"
)

// Batch is one bounded-duration slice of a session.
type Batch struct {
	Index           int
	Total           int
	DurationMinutes int
	TargetWords     int
	IsLast          bool
}

// Plan is the ordered batch set for one session request.
type Plan struct {
	Mode    Mode
	Kind    Kind
	Batches []Batch
}

// Compute derives the batch set for a kind and requested duration in
// minutes. Multi-batch generation applies when the duration exceeds one
// batch, or when the single-shot byte estimate would overflow the working
// ceiling; short but verbose requests can still overflow it.
func Compute(kind Kind, durationMinutes int) (Plan, error) {
	if durationMinutes < 1 {
		return Plan{}, fmt.Errorf("%w: duration %d minutes", ErrBadRequest, durationMinutes)
	}

	wpm := kind.WordsPerMinute()
	estimatedBytes := durationMinutes * wpm * estimatedBytesPerWord

	mode := ModeSingleShot
	if durationMinutes > MaxBatchMinutes || estimatedBytes > ssml.WorkingByteLimit {
		mode = ModeBatched
	}

	total := (durationMinutes + MaxBatchMinutes - 1) / MaxBatchMinutes
	batches := make([]Batch, 0, total)
	remaining := durationMinutes
	for i := 1; i <= total; i++ {
		d := remaining
		if d > MaxBatchMinutes {
			d = MaxBatchMinutes
		}
		batches = append(batches, Batch{
			Index:           i,
			Total:           total,
			DurationMinutes: d,
			TargetWords:     d * wpm,
			IsLast:          i == total,
		})
		remaining -= d
	}

	return Plan{Mode: mode, Kind: kind, Batches: batches}, nil
}
