package alignment

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
)

// Synchronizer aligns transcripts with speaker segments.
type Synchronizer struct {
	cfg Config
}

// New creates a Synchronizer. Zero config fields take defaults.
func New(cfg Config) *Synchronizer {
	cfg.ApplyDefaults()
	return &Synchronizer{cfg: cfg}
}

// Synchronize partitions words into time-ordered segments of equal speaker
// sets. Malformed timestamps are rejected before any work is done.
func (s *Synchronizer) Synchronize(words []diarization.TranscriptWord, segments []diarization.SpeakerSegment) ([]diarization.SynchronizedSegment, error) {
	for i, w := range words {
		if err := checkSpan(w.StartTime, w.EndTime); err != nil {
			return nil, errors.Alignment(fmt.Sprintf("word %d (%q): %v", i, w.Text, err))
		}
	}
	for i, seg := range segments {
		if err := checkSpan(seg.StartTime, seg.EndTime); err != nil {
			return nil, errors.Alignment(fmt.Sprintf("segment %d (%s): %v", i, seg.SpeakerLabel, err))
		}
	}
	if len(words) == 0 {
		return []diarization.SynchronizedSegment{}, nil
	}

	words = slices.Clone(words)
	slices.SortStableFunc(words, func(a, b diarization.TranscriptWord) int {
		return cmpFloat(a.StartTime, b.StartTime)
	})
	segments = slices.Clone(segments)
	slices.SortStableFunc(segments, func(a, b diarization.SpeakerSegment) int {
		return cmpFloat(a.StartTime, b.StartTime)
	})

	var (
		out     []diarization.SynchronizedSegment
		pending []diarization.TranscriptWord
		current []string
	)
	flush := func() error {
		seg, err := build(pending, current)
		if err != nil {
			return err
		}
		out = append(out, seg)
		pending = pending[:0]
		return nil
	}

	for i, w := range words {
		labels := s.labelsFor(w, segments)
		if i > 0 && !slices.Equal(labels, current) {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = labels
		pending = append(pending, w)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// labelsFor returns the label set heard during w, sorted so equal sets
// compare equal.
func (s *Synchronizer) labelsFor(w diarization.TranscriptWord, segments []diarization.SpeakerSegment) []string {
	labels := []string{}
	for _, seg := range segments {
		if seg.StartTime >= w.EndTime {
			break
		}
		overlap := math.Min(w.EndTime, seg.EndTime) - math.Max(w.StartTime, seg.StartTime)
		if overlap > s.cfg.OverlapTolerance && !slices.Contains(labels, seg.SpeakerLabel) {
			labels = append(labels, seg.SpeakerLabel)
		}
	}
	if len(labels) == 0 {
		// Words shorter than the tolerance belong to every segment that
		// contains them.
		for _, seg := range segments {
			if seg.StartTime > w.StartTime {
				break
			}
			if seg.EndTime >= w.EndTime && !slices.Contains(labels, seg.SpeakerLabel) {
				labels = append(labels, seg.SpeakerLabel)
			}
		}
	}
	if len(labels) > 0 {
		slices.Sort(labels)
		return labels
	}

	// Nearest preceding segment: started at or before the word, latest end.
	var prev *diarization.SpeakerSegment
	for i := range segments {
		seg := &segments[i]
		if seg.StartTime > w.StartTime {
			break
		}
		if prev == nil || seg.EndTime > prev.EndTime {
			prev = seg
		}
	}
	if prev != nil && math.Max(0, w.StartTime-prev.EndTime) < s.cfg.GapFill {
		labels = append(labels, prev.SpeakerLabel)
	}
	return labels
}

func build(words []diarization.TranscriptWord, labels []string) (diarization.SynchronizedSegment, error) {
	if len(words) == 0 {
		return diarization.SynchronizedSegment{}, errors.Alignment("produced a segment with no words")
	}
	texts := make([]string, len(words))
	end := words[0].EndTime
	for i, w := range words {
		texts[i] = strings.TrimSpace(w.Text)
		end = math.Max(end, w.EndTime)
	}
	return diarization.SynchronizedSegment{
		Text:          strings.Join(texts, " "),
		StartTime:     words[0].StartTime,
		EndTime:       end,
		SpeakerLabels: slices.Clone(labels),
		IsOverlapping: len(labels) > 1,
	}, nil
}

func checkSpan(start, end float64) error {
	switch {
	case math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0):
		return fmt.Errorf("non-finite time [%v, %v]", start, end)
	case start < 0:
		return fmt.Errorf("negative start %v", start)
	case end <= start:
		return fmt.Errorf("end %v not after start %v", end, start)
	}
	return nil
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
