// Package memory is an in-process Store backed by maps.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/store"
)

var _ store.Store = (*Store)(nil)

type mappingKey struct {
	meetingID string
	label     string
}

// Store keeps everything in memory. It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	segments     map[string][]diarization.SpeakerSegment
	synchronized map[string][]diarization.SynchronizedSegment
	mappings     map[mappingKey]diarization.SpeakerMapping
	profiles     map[string]diarization.VoiceProfile
	sessions     map[string][]diarization.EnrollmentSession
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		segments:     make(map[string][]diarization.SpeakerSegment),
		synchronized: make(map[string][]diarization.SynchronizedSegment),
		mappings:     make(map[mappingKey]diarization.SpeakerMapping),
		profiles:     make(map[string]diarization.VoiceProfile),
		sessions:     make(map[string][]diarization.EnrollmentSession),
	}
}

func (s *Store) SaveSpeakerSegments(ctx context.Context, meetingID string, segments []diarization.SpeakerSegment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[meetingID] = slices.Clone(segments)
	return nil
}

func (s *Store) ListSpeakerSegments(ctx context.Context, meetingID string) ([]diarization.SpeakerSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.segments[meetingID]), nil
}

func (s *Store) SaveSynchronizedSegments(ctx context.Context, meetingID string, segments []diarization.SynchronizedSegment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synchronized[meetingID] = cloneSynchronized(segments)
	return nil
}

func (s *Store) ListSynchronizedSegments(ctx context.Context, meetingID string) ([]diarization.SynchronizedSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSynchronized(s.synchronized[meetingID]), nil
}

func (s *Store) GetMapping(ctx context.Context, meetingID, label string) (*diarization.SpeakerMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[mappingKey{meetingID, label}]
	if !ok {
		return nil, errors.NotFound("speaker mapping", label)
	}
	return cloneMapping(m), nil
}

func (s *Store) ListMappings(ctx context.Context, meetingID string) ([]diarization.SpeakerMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []diarization.SpeakerMapping
	for k, m := range s.mappings {
		if k.meetingID == meetingID {
			out = append(out, *cloneMapping(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeakerLabel < out[j].SpeakerLabel })
	return out, nil
}

func (s *Store) SaveMappings(ctx context.Context, mappings []diarization.SpeakerMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mappings {
		s.mappings[mappingKey{m.MeetingID, m.SpeakerLabel}] = *cloneMapping(m)
	}
	return nil
}

func (s *Store) MergeLabels(ctx context.Context, meetingID, source, target string, merged diarization.SpeakerMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sourceKey := mappingKey{meetingID, source}
	_, found := s.mappings[sourceKey]

	segments := slices.Clone(s.segments[meetingID])
	for i := range segments {
		if segments[i].SpeakerLabel == source {
			segments[i].SpeakerLabel = target
			found = true
		}
	}
	synchronized := cloneSynchronized(s.synchronized[meetingID])
	for i := range synchronized {
		var changed bool
		synchronized[i], changed = store.RelabelSynchronized(synchronized[i], source, target)
		found = found || changed
	}
	if !found {
		return errors.NotFound("speaker label", source)
	}

	s.segments[meetingID] = segments
	s.synchronized[meetingID] = synchronized
	merged.MeetingID = meetingID
	merged.SpeakerLabel = target
	s.mappings[mappingKey{meetingID, target}] = *cloneMapping(merged)
	delete(s.mappings, sourceKey)
	return nil
}

func (s *Store) DeleteMeeting(ctx context.Context, meetingID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.segments, meetingID)
	delete(s.synchronized, meetingID)
	for k := range s.mappings {
		if k.meetingID == meetingID {
			delete(s.mappings, k)
		}
	}
	return nil
}

func (s *Store) CreateVoiceProfile(ctx context.Context, profile diarization.VoiceProfile, session diarization.EnrollmentSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[profile.ID]; exists {
		return errors.Conflict("voice profile " + profile.ID + " already exists")
	}
	s.profiles[profile.ID] = profile
	session.VoiceProfileID = profile.ID
	s.sessions[profile.ID] = append(s.sessions[profile.ID], session)
	return nil
}

func (s *Store) GetVoiceProfile(ctx context.Context, id string) (*diarization.VoiceProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, errors.NotFound("voice profile", id)
	}
	return &p, nil
}

func (s *Store) ListVoiceProfiles(ctx context.Context) ([]diarization.VoiceProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]diarization.VoiceProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) TouchVoiceProfile(ctx context.Context, id string, seenAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return errors.NotFound("voice profile", id)
	}
	p.LastSeen = seenAt
	p.MeetingCount++
	s.profiles[id] = p
	return nil
}

func (s *Store) DeleteVoiceProfile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return errors.NotFound("voice profile", id)
	}
	delete(s.profiles, id)
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteInactiveProfiles(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, p := range s.profiles {
		if p.LastSeen.Before(cutoff) {
			delete(s.profiles, id)
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) ListEnrollmentSessions(ctx context.Context, profileID string) ([]diarization.EnrollmentSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions[profileID]), nil
}

func cloneMapping(m diarization.SpeakerMapping) *diarization.SpeakerMapping {
	if m.SpeakerName != nil {
		name := *m.SpeakerName
		m.SpeakerName = &name
	}
	if m.VoiceProfileID != nil {
		id := *m.VoiceProfileID
		m.VoiceProfileID = &id
	}
	return &m
}

func cloneSynchronized(in []diarization.SynchronizedSegment) []diarization.SynchronizedSegment {
	if in == nil {
		return nil
	}
	out := make([]diarization.SynchronizedSegment, len(in))
	for i, seg := range in {
		seg.SpeakerLabels = slices.Clone(seg.SpeakerLabels)
		out[i] = seg
	}
	return out
}
