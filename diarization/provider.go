package diarization

import (
	"context"

	"github.com/ocobra/meeting-minutes-sub000/provider"
)

// SegmentRequest selects the audio a segmenter should process. Offset and
// Duration select a window in seconds; Duration 0 means to the end.
type SegmentRequest struct {
	AudioPath  string  `json:"audio_path"`
	SampleRate int     `json:"sample_rate"`
	Offset     float64 `json:"offset,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

// RawSegment is segmenter output before the embedding is hashed. Times are
// relative to the request Offset.
type RawSegment struct {
	Speaker    string    `json:"speaker"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Confidence float64   `json:"confidence"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// Segmenter partitions audio by speaker.
type Segmenter interface {
	provider.Provider
	Segment(ctx context.Context, req SegmentRequest) ([]RawSegment, error)
}

// Identifier proposes names for speaker labels from transcript text.
type Identifier interface {
	provider.Provider
	Identify(ctx context.Context, transcript string, labels []string) ([]IdentificationCandidate, error)
}

// Backends holds the local and external implementation of one capability.
// Either side may be nil when it is not configured.
type Backends[T provider.Provider] struct {
	Local    T
	External T
}

// For returns the implementation for b.
func (bs Backends[T]) For(b Backend) T {
	if b == BackendExternal {
		return bs.External
	}
	return bs.Local
}
