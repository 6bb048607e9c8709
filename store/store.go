// Package store defines durable storage for diarization results, speaker
// mappings and voice profiles.
//
// Implementations live in store/memory and store/gormstore. Lookups of a
// missing record return an errors.NotFound AppError; multi-record writes
// are atomic.
package store

import (
	"context"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
)

// Store is the persistence boundary of the diarization core.
type Store interface {
	// SaveSpeakerSegments replaces the speaker segments of a meeting.
	SaveSpeakerSegments(ctx context.Context, meetingID string, segments []diarization.SpeakerSegment) error
	ListSpeakerSegments(ctx context.Context, meetingID string) ([]diarization.SpeakerSegment, error)

	// SaveSynchronizedSegments replaces the aligned transcript of a meeting.
	SaveSynchronizedSegments(ctx context.Context, meetingID string, segments []diarization.SynchronizedSegment) error
	ListSynchronizedSegments(ctx context.Context, meetingID string) ([]diarization.SynchronizedSegment, error)

	GetMapping(ctx context.Context, meetingID, label string) (*diarization.SpeakerMapping, error)
	ListMappings(ctx context.Context, meetingID string) ([]diarization.SpeakerMapping, error)
	// SaveMappings upserts mappings keyed by (MeetingID, SpeakerLabel) in
	// one write.
	SaveMappings(ctx context.Context, mappings []diarization.SpeakerMapping) error

	// MergeLabels moves every reference to source onto target, stores
	// merged as the target's mapping and deletes the source mapping. It
	// returns NotFound when nothing references source.
	MergeLabels(ctx context.Context, meetingID, source, target string, merged diarization.SpeakerMapping) error

	// DeleteMeeting removes segments, aligned transcript and mappings of a
	// meeting. Voice profiles are untouched.
	DeleteMeeting(ctx context.Context, meetingID string) error

	// CreateVoiceProfile stores a profile together with the enrollment
	// session that produced it.
	CreateVoiceProfile(ctx context.Context, profile diarization.VoiceProfile, session diarization.EnrollmentSession) error
	GetVoiceProfile(ctx context.Context, id string) (*diarization.VoiceProfile, error)
	ListVoiceProfiles(ctx context.Context) ([]diarization.VoiceProfile, error)
	// TouchVoiceProfile records that a profile was recognized in a meeting.
	TouchVoiceProfile(ctx context.Context, id string, seenAt time.Time) error
	// DeleteVoiceProfile removes a profile and its enrollment sessions.
	// Mappings keep their now dangling profile ID.
	DeleteVoiceProfile(ctx context.Context, id string) error
	// DeleteInactiveProfiles removes profiles last seen before cutoff and
	// returns how many were removed.
	DeleteInactiveProfiles(ctx context.Context, cutoff time.Time) (int, error)
	ListEnrollmentSessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error)
}

// Relabel replaces source with target in labels, keeping the first
// occurrence of each label. It reports whether anything changed.
func Relabel(labels []string, source, target string) ([]string, bool) {
	changed := false
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == source {
			l = target
			changed = true
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, changed
}

// RelabelSynchronized applies Relabel to one aligned segment and keeps its
// overlap flag consistent.
func RelabelSynchronized(seg diarization.SynchronizedSegment, source, target string) (diarization.SynchronizedSegment, bool) {
	labels, changed := Relabel(seg.SpeakerLabels, source, target)
	if !changed {
		return seg, false
	}
	seg.SpeakerLabels = labels
	seg.IsOverlapping = len(labels) > 1
	return seg, true
}
