package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/confidence"
	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/logger"
	"github.com/ocobra/meeting-minutes-sub000/store/memory"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

func newMapper() (*Mapper, *memory.Store) {
	s := memory.New()
	return NewMapper(s, confidence.New(confidence.Config{}), Config{}, logger.Nop()), s
}

func seg(label string, start, end float64, hash string) diarization.SpeakerSegment {
	return diarization.SpeakerSegment{SpeakerLabel: label, StartTime: start, EndTime: end, Confidence: 0.9, EmbeddingHash: hash}
}

func candidate(label, name string, conf float64) diarization.IdentificationCandidate {
	return diarization.IdentificationCandidate{
		SpeakerLabel:  label,
		CandidateName: name,
		Confidence:    conf,
		SourceExcerpt: "Hi everyone, my name is " + name,
	}
}

func embedding(seed float64) []float64 {
	v := make([]float64, 256)
	for i := range v {
		v[i] = math.Sin(seed + float64(i)*0.7)
	}
	return v
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

func TestMapSpeakers_CandidatesAndUnnamed(t *testing.T) {
	m, s := newMapper()
	ctx := context.Background()
	segments := []diarization.SpeakerSegment{seg("S1", 0, 2, ""), seg("S0", 2, 4, ""), seg("S1", 4, 5, "")}
	candidates := []diarization.IdentificationCandidate{
		candidate("S1", "Ana Lopez", 0.9),
		{SpeakerLabel: "S0", CandidateName: "X", Confidence: 0.2, SourceExcerpt: "um uh like"},
	}

	got, err := m.MapSpeakers(ctx, "m1", segments, candidates)
	if err != nil {
		t.Fatalf("MapSpeakers: %v", err)
	}
	if len(got) != 2 || got[0].SpeakerLabel != "S1" || got[1].SpeakerLabel != "S0" {
		t.Fatalf("expected first-seen order [S1 S0], got %+v", got)
	}
	if got[0].DisplayName() != "Ana Lopez" || got[0].IsManual {
		t.Errorf("S1 = %+v", got[0])
	}
	if got[1].SpeakerName != nil {
		t.Errorf("rejected candidate should leave S0 unnamed, got %q", *got[1].SpeakerName)
	}

	stored, _ := s.ListMappings(ctx, "m1")
	if len(stored) != 2 {
		t.Errorf("expected both mappings persisted, got %d", len(stored))
	}
}

func TestMapSpeakers_ManualSurvivesRerun(t *testing.T) {
	m, s := newMapper()
	ctx := context.Background()
	segments := []diarization.SpeakerSegment{seg("S0", 0, 3, "")}

	if err := m.UpdateMapping(ctx, "m1", "S0", "Jane", true); err != nil {
		t.Fatalf("UpdateMapping: %v", err)
	}
	got, err := m.MapSpeakers(ctx, "m1", segments, []diarization.IdentificationCandidate{candidate("S0", "Mark Stone", 1)})
	if err != nil {
		t.Fatalf("MapSpeakers: %v", err)
	}
	if got[0].DisplayName() != "Jane" || !got[0].IsManual {
		t.Errorf("manual mapping changed: %+v", got[0])
	}
	stored, _ := s.GetMapping(ctx, "m1", "S0")
	if stored.DisplayName() != "Jane" {
		t.Errorf("stored mapping changed to %q", stored.DisplayName())
	}
}

func TestMapSpeakers_AutomatedOverrideNeedsHigherScore(t *testing.T) {
	m, _ := newMapper()
	ctx := context.Background()
	segments := []diarization.SpeakerSegment{seg("S0", 0, 3, "")}

	first, _ := m.MapSpeakers(ctx, "m1", segments, []diarization.IdentificationCandidate{candidate("S0", "Ana Lopez", 0.9)})
	weaker, _ := m.MapSpeakers(ctx, "m1", segments, []diarization.IdentificationCandidate{candidate("S0", "Bob Stone", 0.7)})
	if weaker[0].DisplayName() != "Ana Lopez" {
		t.Errorf("weaker candidate replaced the mapping: %+v", weaker[0])
	}
	stronger, _ := m.MapSpeakers(ctx, "m1", segments, []diarization.IdentificationCandidate{candidate("S0", "Bob Stone", 1)})
	if stronger[0].DisplayName() != "Bob Stone" || stronger[0].Confidence <= first[0].Confidence {
		t.Errorf("stronger candidate should win: %+v", stronger[0])
	}
}

func TestMapSpeakers_VoiceProfileMatch(t *testing.T) {
	m, s := newMapper()
	pm := NewProfileManager(s, Config{}, logger.Nop())
	ctx := context.Background()

	e := embedding(3)
	profile, err := pm.Enroll(ctx, EnrollRequest{Name: "Priya Natarajan", Consent: true, Embedding: e, AudioDurationSeconds: 20})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	segments := []diarization.SpeakerSegment{
		seg("S0", 0, 2, voiceprint.Hash(e)),
		seg("S1", 2, 4, voiceprint.Hash(negate(e))),
	}
	got, err := m.MapSpeakers(ctx, "m1", segments, []diarization.IdentificationCandidate{candidate("S0", "Someone Else", 1)})
	if err != nil {
		t.Fatalf("MapSpeakers: %v", err)
	}
	if got[0].DisplayName() != "Priya Natarajan" || got[0].VoiceProfileID == nil || *got[0].VoiceProfileID != profile.ID {
		t.Errorf("S0 should match the profile: %+v", got[0])
	}
	if got[0].Confidence != 1 {
		t.Errorf("identical digests should score 1, got %v", got[0].Confidence)
	}
	if got[1].VoiceProfileID != nil {
		t.Errorf("S1 should not match: %+v", got[1])
	}

	touched, _ := s.GetVoiceProfile(ctx, profile.ID)
	if touched.MeetingCount != 1 {
		t.Errorf("expected profile touched once, meeting count %d", touched.MeetingCount)
	}
}

func TestMapSpeakers_RerunDoesNotRecountMeeting(t *testing.T) {
	m, s := newMapper()
	pm := NewProfileManager(s, Config{}, logger.Nop())
	ctx := context.Background()

	e := embedding(5)
	profile, err := pm.Enroll(ctx, EnrollRequest{Name: "Tomas Ruiz", Consent: true, Embedding: e, AudioDurationSeconds: 20})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	segments := []diarization.SpeakerSegment{seg("S0", 0, 2, voiceprint.Hash(e))}

	for i := 0; i < 3; i++ {
		if _, err := m.MapSpeakers(ctx, "m1", segments, nil); err != nil {
			t.Fatalf("MapSpeakers run %d: %v", i, err)
		}
	}
	got, _ := s.GetVoiceProfile(ctx, profile.ID)
	if got.MeetingCount != 1 {
		t.Errorf("reruns of one meeting should count once, got %d", got.MeetingCount)
	}

	if _, err := m.MapSpeakers(ctx, "m2", segments, nil); err != nil {
		t.Fatalf("MapSpeakers m2: %v", err)
	}
	got, _ = s.GetVoiceProfile(ctx, profile.ID)
	if got.MeetingCount != 2 {
		t.Errorf("a second meeting should count, got %d", got.MeetingCount)
	}
}

func TestUpdateMapping_RejectsAutomatedOverManual(t *testing.T) {
	m, s := newMapper()
	ctx := context.Background()
	if err := m.UpdateMapping(ctx, "m1", "S0", "Jane", true); err != nil {
		t.Fatalf("manual update: %v", err)
	}

	err := m.UpdateMapping(ctx, "m1", "S0", "Robot Guess", false)
	if !stderrors.Is(err, ErrManualMapping) {
		t.Fatalf("expected ErrManualMapping, got %v", err)
	}
	if !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected CONFLICT code, got %v", err)
	}
	got, _ := s.GetMapping(ctx, "m1", "S0")
	if got.DisplayName() != "Jane" {
		t.Errorf("mapping changed to %q", got.DisplayName())
	}

	if err := m.UpdateMapping(ctx, "m1", "S0", "Jane Doe", true); err != nil {
		t.Errorf("manual rename should succeed: %v", err)
	}
}

func TestUpdateMapping_Validation(t *testing.T) {
	m, _ := newMapper()
	if err := m.UpdateMapping(context.Background(), "m1", "S0", "  ", true); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input for blank manual name, got %v", err)
	}
}

func TestMergeLabels(t *testing.T) {
	m, s := newMapper()
	ctx := context.Background()
	_ = s.SaveSpeakerSegments(ctx, "m1", []diarization.SpeakerSegment{seg("S0", 0, 1, ""), seg("S1", 1, 2, "")})
	_ = s.SaveSynchronizedSegments(ctx, "m1", []diarization.SynchronizedSegment{
		{Text: "a", StartTime: 0, EndTime: 1, SpeakerLabels: []string{"S0"}},
		{Text: "b", StartTime: 1, EndTime: 2, SpeakerLabels: []string{"S0", "S1"}, IsOverlapping: true},
	})
	if _, err := m.MapSpeakers(ctx, "m1", []diarization.SpeakerSegment{seg("S0", 0, 1, ""), seg("S1", 1, 2, "")}, nil); err != nil {
		t.Fatalf("MapSpeakers: %v", err)
	}
	if err := m.UpdateMapping(ctx, "m1", "S1", "Jane", true); err != nil {
		t.Fatalf("UpdateMapping: %v", err)
	}

	if err := m.MergeLabels(ctx, "m1", "S1", "S0"); err != nil {
		t.Fatalf("MergeLabels: %v", err)
	}

	if _, err := s.GetMapping(ctx, "m1", "S1"); !errors.IsNotFound(err) {
		t.Errorf("source mapping should be gone, got %v", err)
	}
	target, err := s.GetMapping(ctx, "m1", "S0")
	if err != nil {
		t.Fatalf("target mapping: %v", err)
	}
	if target.DisplayName() != "Jane" || !target.IsManual {
		t.Errorf("target should inherit the source name: %+v", target)
	}
	synced, _ := s.ListSynchronizedSegments(ctx, "m1")
	for _, sg := range synced {
		if sg.HasLabel("S1") || sg.IsOverlapping {
			t.Errorf("segment still references source: %+v", sg)
		}
	}
}

func TestMergeLabels_Errors(t *testing.T) {
	m, _ := newMapper()
	ctx := context.Background()
	if err := m.MergeLabels(ctx, "m1", "S0", "S0"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if err := m.MergeLabels(ctx, "m1", "S9", "S0"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestUpdateMapping_ConcurrentSameMeeting(t *testing.T) {
	m, s := newMapper()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label := fmt.Sprintf("S%d", i)
			if err := m.UpdateMapping(ctx, "m1", label, "Name "+label, true); err != nil {
				t.Errorf("UpdateMapping(%s): %v", label, err)
			}
		}(i)
	}
	wg.Wait()
	if got, _ := s.ListMappings(ctx, "m1"); len(got) != 20 {
		t.Errorf("expected 20 mappings, got %d", len(got))
	}
}

func TestMeetingLocks_Independent(t *testing.T) {
	l := newMeetingLocks()
	unlock := l.lock("m1")

	done := make(chan struct{})
	go func() {
		l.lock("m2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different meeting was blocked")
	}

	unlock()
	if len(l.locks) != 0 {
		t.Errorf("expected lock entries to be released, have %d", len(l.locks))
	}
}

func TestResolveVoiceProfile(t *testing.T) {
	m, s := newMapper()
	pm := NewProfileManager(s, Config{}, logger.Nop())
	ctx := context.Background()
	e := embedding(7)
	if _, err := pm.Enroll(ctx, EnrollRequest{Name: "Omar", Consent: true, Embedding: e}); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	p, sim, err := m.ResolveVoiceProfile(ctx, voiceprint.Hash(e))
	if err != nil || p == nil || p.Name != "Omar" || sim != 1 {
		t.Errorf("expected exact match, got %+v %v %v", p, sim, err)
	}
	p, _, err = m.ResolveVoiceProfile(ctx, voiceprint.Hash(negate(e)))
	if err != nil || p != nil {
		t.Errorf("expected no match, got %+v %v", p, err)
	}
	p, _, _ = m.ResolveVoiceProfile(ctx, "")
	if p != nil {
		t.Error("empty digest must not match")
	}
}

func TestProfileManager(t *testing.T) {
	s := memory.New()
	pm := NewProfileManager(s, Config{Retention: 90 * 24 * time.Hour}, logger.Nop())
	ctx := context.Background()

	_, err := pm.Enroll(ctx, EnrollRequest{Name: "Lee", Embedding: embedding(1)})
	if errors.Classify(err) != errors.KindConsent {
		t.Fatalf("expected consent error, got %v", err)
	}
	if list, _ := pm.List(ctx); len(list) != 0 {
		t.Fatal("profile stored without consent")
	}

	if _, err := pm.Enroll(ctx, EnrollRequest{Name: "Lee", Consent: true}); !errors.HasCode(err, errors.ErrCodePermanentInput) {
		t.Errorf("expected permanent input error for empty embedding, got %v", err)
	}

	p, err := pm.Enroll(ctx, EnrollRequest{Name: "Lee", Consent: true, Embedding: embedding(1), AudioDurationSeconds: 15, SampleCount: 240000})
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	sessions, err := pm.Sessions(ctx, p.ID)
	if err != nil || len(sessions) != 1 || sessions[0].AudioDurationSeconds != 15 {
		t.Fatalf("sessions = %+v, %v", sessions, err)
	}

	if n, _ := pm.PurgeInactive(ctx); n != 0 {
		t.Errorf("fresh profile purged")
	}
	pm.now = func() time.Time { return time.Now().Add(91 * 24 * time.Hour) }
	if n, err := pm.PurgeInactive(ctx); err != nil || n != 1 {
		t.Errorf("PurgeInactive = %d, %v; want 1", n, err)
	}
}

func TestProfileManager_DeleteLeavesMappingReference(t *testing.T) {
	m, s := newMapper()
	pm := NewProfileManager(s, Config{}, logger.Nop())
	ctx := context.Background()
	e := embedding(5)
	p, _ := pm.Enroll(ctx, EnrollRequest{Name: "Kai", Consent: true, Embedding: e})
	if _, err := m.MapSpeakers(ctx, "m1", []diarization.SpeakerSegment{seg("S0", 0, 1, voiceprint.Hash(e))}, nil); err != nil {
		t.Fatalf("MapSpeakers: %v", err)
	}

	if err := pm.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	mapping, err := s.GetMapping(ctx, "m1", "S0")
	if err != nil {
		t.Fatalf("mapping lost: %v", err)
	}
	if mapping.VoiceProfileID == nil || *mapping.VoiceProfileID != p.ID {
		t.Errorf("mapping should keep the dangling profile id: %+v", mapping)
	}
}
