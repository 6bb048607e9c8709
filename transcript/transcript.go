// Package transcript turns aligned segments and speaker mappings into the
// attributed transcript users read, with per-speaker statistics and export
// formats.
package transcript

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
)

// UnknownSpeaker is shown for segments without a speaker.
const UnknownSpeaker = "Unknown"

// AttributedSegment is a synchronized segment with display names.
type AttributedSegment struct {
	Text          string   `json:"text"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	SpeakerLabels []string `json:"speaker_labels"`
	SpeakerNames  []string `json:"speaker_names"`
	// Speaker is the display string: names joined with " & ", or Unknown.
	Speaker string `json:"speaker"`
	// Confidence is the lowest confidence among named mappings, 1 when no
	// label is named.
	Confidence    float64 `json:"confidence"`
	Uncertain     bool    `json:"uncertain"`
	IsOverlapping bool    `json:"is_overlapping"`
}

// Attributed reports whether any speaker is known.
func (s AttributedSegment) Attributed() bool { return len(s.SpeakerLabels) > 0 }

// SpeakerStatistic summarizes one speaker's participation.
type SpeakerStatistic struct {
	Name            string   `json:"name"`
	Labels          []string `json:"labels"`
	SpeakingSeconds float64  `json:"speaking_seconds"`
	Percentage      float64  `json:"percentage"`
	Turns           int      `json:"turns"`
	AverageTurn     float64  `json:"average_turn_seconds"`
}

// Statistics summarizes a transcript.
type Statistics struct {
	TotalDuration float64            `json:"total_duration"`
	Speakers      []SpeakerStatistic `json:"speakers"`
}

// Transcript is an attributed meeting transcript.
type Transcript struct {
	MeetingID  string              `json:"meeting_id"`
	Segments   []AttributedSegment `json:"segments"`
	Statistics Statistics          `json:"statistics"`
}

// Build applies mappings to segments and computes statistics.
func Build(meetingID string, segments []diarization.SynchronizedSegment, mappings []diarization.SpeakerMapping, isLow func(float64) bool) Transcript {
	attributed := ApplyMappings(segments, mappings, isLow)
	return Transcript{
		MeetingID:  meetingID,
		Segments:   attributed,
		Statistics: ComputeStatistics(attributed),
	}
}

// ApplyMappings resolves each segment's labels to display names. Labels
// without a named mapping display as themselves. isLow marks named
// mappings whose confidence is too low to trust; nil marks none.
func ApplyMappings(segments []diarization.SynchronizedSegment, mappings []diarization.SpeakerMapping, isLow func(float64) bool) []AttributedSegment {
	byLabel := make(map[string]diarization.SpeakerMapping, len(mappings))
	for _, m := range mappings {
		byLabel[m.SpeakerLabel] = m
	}

	out := make([]AttributedSegment, 0, len(segments))
	for _, s := range segments {
		a := AttributedSegment{
			Text:          s.Text,
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			SpeakerLabels: append([]string{}, s.SpeakerLabels...),
			SpeakerNames:  make([]string, 0, len(s.SpeakerLabels)),
			Confidence:    1,
			IsOverlapping: len(s.SpeakerLabels) > 1,
		}
		for _, label := range s.SpeakerLabels {
			m, ok := byLabel[label]
			if !ok {
				a.SpeakerNames = append(a.SpeakerNames, label)
				continue
			}
			a.SpeakerNames = append(a.SpeakerNames, m.DisplayName())
			if m.SpeakerName != nil && *m.SpeakerName != "" {
				a.Confidence = math.Min(a.Confidence, m.Confidence)
				if isLow != nil && isLow(m.Confidence) {
					a.Uncertain = true
				}
			}
		}
		if len(a.SpeakerNames) == 0 {
			a.Speaker = UnknownSpeaker
		} else {
			a.Speaker = strings.Join(a.SpeakerNames, " & ")
		}
		out = append(out, a)
	}
	return out
}

// ComputeStatistics totals speaking time per display name. Overlapping
// segments count for every speaker in them; unattributed segments count
// only toward the meeting span.
func ComputeStatistics(segments []AttributedSegment) Statistics {
	if len(segments) == 0 {
		return Statistics{Speakers: []SpeakerStatistic{}}
	}

	first, last := math.Inf(1), math.Inf(-1)
	byName := make(map[string]*SpeakerStatistic)
	var order []string
	for _, s := range segments {
		first = math.Min(first, s.StartTime)
		last = math.Max(last, s.EndTime)
		for i, name := range s.SpeakerNames {
			st, ok := byName[name]
			if !ok {
				st = &SpeakerStatistic{Name: name}
				byName[name] = st
				order = append(order, name)
			}
			if label := s.SpeakerLabels[i]; !slices.Contains(st.Labels, label) {
				st.Labels = append(st.Labels, label)
			}
			st.SpeakingSeconds += s.EndTime - s.StartTime
			st.Turns++
		}
	}

	total := last - first
	stats := Statistics{TotalDuration: total, Speakers: make([]SpeakerStatistic, 0, len(order))}
	for _, name := range order {
		st := byName[name]
		if total > 0 {
			st.Percentage = st.SpeakingSeconds / total * 100
		}
		st.AverageTurn = st.SpeakingSeconds / float64(st.Turns)
		stats.Speakers = append(stats.Speakers, *st)
	}
	sort.SliceStable(stats.Speakers, func(i, j int) bool {
		return stats.Speakers[i].SpeakingSeconds > stats.Speakers[j].SpeakingSeconds
	})
	return stats
}
