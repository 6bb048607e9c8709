package diarization

import (
	"fmt"
	"time"
)

// PrivacyMode controls whether external (cloud) backends may be used.
type PrivacyMode string

const (
	// LocalOnly never contacts an external backend, not even to probe it.
	LocalOnly PrivacyMode = "local_only"
	// PreferExternal uses the external backend when it answers a probe.
	PreferExternal PrivacyMode = "prefer_external"
	// ExternalOnly always uses the external backend and never downgrades.
	ExternalOnly PrivacyMode = "external_only"
)

// Valid reports whether m is a known privacy mode.
func (m PrivacyMode) Valid() bool {
	switch m {
	case LocalOnly, PreferExternal, ExternalOnly:
		return true
	}
	return false
}

// ParsePrivacyMode parses a privacy mode name.
func ParsePrivacyMode(s string) (PrivacyMode, error) {
	m := PrivacyMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown privacy mode %q", s)
	}
	return m, nil
}

// Capability names a kind of backend call.
type Capability string

const (
	CapabilityDiarization    Capability = "diarization"
	CapabilityIdentification Capability = "identification"
)

// Backend is where a capability runs.
type Backend string

const (
	BackendLocal    Backend = "local"
	BackendExternal Backend = "external"
)

// ProcessingMode selects whole-file or windowed processing.
type ProcessingMode string

const (
	// ModeAuto asks the resource monitor for a recommendation.
	ModeAuto    ProcessingMode = "auto"
	ModeBatch   ProcessingMode = "batch"
	ModeChunked ProcessingMode = "chunked"
)

// Valid reports whether m is a known processing mode.
func (m ProcessingMode) Valid() bool {
	switch m {
	case ModeAuto, ModeBatch, ModeChunked:
		return true
	}
	return false
}

// SpeakerSegment is one contiguous span attributed to one acoustic source.
// Segments are immutable once produced; corrections happen on mappings.
type SpeakerSegment struct {
	SpeakerLabel  string  `json:"speaker_label"`
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	Confidence    float64 `json:"confidence"`
	EmbeddingHash string  `json:"embedding_hash,omitempty"`
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 { return s.EndTime - s.StartTime }

// TranscriptWord is a word with timestamps from the transcription engine.
type TranscriptWord struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// SynchronizedSegment is a transcript span with the speakers heard during it.
// More than one label means overlapping speech; none means unattributed.
type SynchronizedSegment struct {
	Text          string   `json:"text"`
	StartTime     float64  `json:"start_time"`
	EndTime       float64  `json:"end_time"`
	SpeakerLabels []string `json:"speaker_labels"`
	IsOverlapping bool     `json:"is_overlapping"`
}

// HasLabel reports whether label is among the segment's speakers.
func (s SynchronizedSegment) HasLabel(label string) bool {
	for _, l := range s.SpeakerLabels {
		if l == label {
			return true
		}
	}
	return false
}

// IdentificationCandidate is a name proposed for a speaker label.
type IdentificationCandidate struct {
	SpeakerLabel  string  `json:"speaker_label"`
	CandidateName string  `json:"candidate_name"`
	Confidence    float64 `json:"confidence"`
	SourceExcerpt string  `json:"source_excerpt"`
}

// SpeakerMapping is the durable per-meeting resolution of one label.
type SpeakerMapping struct {
	MeetingID      string    `json:"meeting_id"`
	SpeakerLabel   string    `json:"speaker_label"`
	SpeakerName    *string   `json:"speaker_name,omitempty"`
	VoiceProfileID *string   `json:"voice_profile_id,omitempty"`
	Confidence     float64   `json:"confidence"`
	IsManual       bool      `json:"is_manual"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName returns the mapped name, or the label when unnamed.
func (m SpeakerMapping) DisplayName() string {
	if m.SpeakerName != nil && *m.SpeakerName != "" {
		return *m.SpeakerName
	}
	return m.SpeakerLabel
}

// VoiceProfile is a named identity reusable across meetings.
type VoiceProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	EmbeddingHash string    `json:"embedding_hash"`
	CreatedAt     time.Time `json:"created_at"`
	LastSeen      time.Time `json:"last_seen"`
	MeetingCount  int       `json:"meeting_count"`
}

// EnrollmentSession records the audio that produced a voice profile.
type EnrollmentSession struct {
	ID                   string    `json:"id"`
	VoiceProfileID       string    `json:"voice_profile_id"`
	AudioDurationSeconds float64   `json:"audio_duration_seconds"`
	SampleCount          int       `json:"sample_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// RouterDecision is a cached backend choice. It is never persisted.
type RouterDecision struct {
	Backend   Backend   `json:"backend"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
