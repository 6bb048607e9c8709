// Package storetest is a conformance suite shared by Store implementations.
package storetest

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises every Store operation against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("SpeakerSegments", func(t *testing.T) { testSpeakerSegments(t, newStore(t)) })
	t.Run("SynchronizedSegments", func(t *testing.T) { testSynchronized(t, newStore(t)) })
	t.Run("Mappings", func(t *testing.T) { testMappings(t, newStore(t)) })
	t.Run("MergeLabels", func(t *testing.T) { testMergeLabels(t, newStore(t)) })
	t.Run("MergeUnknownLabel", func(t *testing.T) { testMergeUnknown(t, newStore(t)) })
	t.Run("DeleteMeeting", func(t *testing.T) { testDeleteMeeting(t, newStore(t)) })
	t.Run("VoiceProfiles", func(t *testing.T) { testVoiceProfiles(t, newStore(t)) })
	t.Run("DeleteInactiveProfiles", func(t *testing.T) { testDeleteInactive(t, newStore(t)) })
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seg(label string, start, end float64) diarization.SpeakerSegment {
	return diarization.SpeakerSegment{SpeakerLabel: label, StartTime: start, EndTime: end, Confidence: 0.8, EmbeddingHash: "00000000000000ff"}
}

func testSpeakerSegments(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := []diarization.SpeakerSegment{seg("A", 0, 1), seg("B", 1, 2)}
	if err := s.SaveSpeakerSegments(ctx, "m1", first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := []diarization.SpeakerSegment{seg("C", 5, 6), seg("A", 2, 3), seg("B", 3, 4)}
	if err := s.SaveSpeakerSegments(ctx, "m1", second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListSpeakerSegments(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !slices.Equal(got, second) {
		t.Errorf("segments = %+v, want %+v", got, second)
	}

	empty, err := s.ListSpeakerSegments(ctx, "other")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected no segments for unknown meeting, got %v, %v", empty, err)
	}
}

func testSynchronized(t *testing.T, s store.Store) {
	ctx := context.Background()
	in := []diarization.SynchronizedSegment{
		{Text: "hello there", StartTime: 0, EndTime: 1, SpeakerLabels: []string{"A"}},
		{Text: "yes", StartTime: 1, EndTime: 1.5, SpeakerLabels: []string{"A", "B"}, IsOverlapping: true},
		{Text: "hmm", StartTime: 9, EndTime: 9.2, SpeakerLabels: []string{}},
	}
	if err := s.SaveSynchronizedSegments(ctx, "m1", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.ListSynchronizedSegments(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d segments, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i].Text != in[i].Text || !slices.Equal(got[i].SpeakerLabels, in[i].SpeakerLabels) ||
			got[i].IsOverlapping != in[i].IsOverlapping || got[i].StartTime != in[i].StartTime {
			t.Errorf("segment %d = %+v, want %+v", i, got[i], in[i])
		}
	}
}

func testMappings(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.GetMapping(ctx, "m1", "A"); !errors.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	err := s.SaveMappings(ctx, []diarization.SpeakerMapping{
		{MeetingID: "m1", SpeakerLabel: "B", Confidence: 0.4, UpdatedAt: epoch},
		{MeetingID: "m1", SpeakerLabel: "A", SpeakerName: diarization.StringPtr("Ana"), Confidence: 0.9, UpdatedAt: epoch},
		{MeetingID: "m2", SpeakerLabel: "A", UpdatedAt: epoch},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	err = s.SaveMappings(ctx, []diarization.SpeakerMapping{
		{MeetingID: "m1", SpeakerLabel: "B", SpeakerName: diarization.StringPtr("Jane"), IsManual: true, Confidence: 1, UpdatedAt: epoch},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	list, err := s.ListMappings(ctx, "m1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].SpeakerLabel != "A" || list[1].SpeakerLabel != "B" {
		t.Fatalf("unexpected mappings %+v", list)
	}
	b, err := s.GetMapping(ctx, "m1", "B")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if b.DisplayName() != "Jane" || !b.IsManual || b.Confidence != 1 {
		t.Errorf("upsert not applied: %+v", b)
	}
	if b.VoiceProfileID != nil {
		t.Errorf("unexpected profile id %v", *b.VoiceProfileID)
	}
}

func testMergeLabels(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustSaveSegments(t, s, "m1", []diarization.SpeakerSegment{seg("A", 0, 2), seg("B", 1, 3), seg("C", 3, 4)})
	mustSaveSynchronized(t, s, "m1", []diarization.SynchronizedSegment{
		{Text: "one", StartTime: 0, EndTime: 1, SpeakerLabels: []string{"A"}},
		{Text: "two", StartTime: 1, EndTime: 2, SpeakerLabels: []string{"A", "B"}, IsOverlapping: true},
		{Text: "three", StartTime: 2, EndTime: 3, SpeakerLabels: []string{"B"}},
		{Text: "four", StartTime: 3, EndTime: 4, SpeakerLabels: []string{"C"}},
	})
	if err := s.SaveMappings(ctx, []diarization.SpeakerMapping{
		{MeetingID: "m1", SpeakerLabel: "A", UpdatedAt: epoch},
		{MeetingID: "m1", SpeakerLabel: "B", SpeakerName: diarization.StringPtr("Bob"), UpdatedAt: epoch},
	}); err != nil {
		t.Fatalf("save mappings: %v", err)
	}

	merged := diarization.SpeakerMapping{SpeakerName: diarization.StringPtr("Bob"), Confidence: 0.8, UpdatedAt: epoch}
	if err := s.MergeLabels(ctx, "m1", "B", "A", merged); err != nil {
		t.Fatalf("merge: %v", err)
	}

	segments, _ := s.ListSpeakerSegments(ctx, "m1")
	for _, sg := range segments {
		if sg.SpeakerLabel == "B" {
			t.Errorf("speaker segment still labelled B: %+v", sg)
		}
	}
	if len(segments) != 3 {
		t.Errorf("merge must not drop segments, got %d", len(segments))
	}

	synchronized, _ := s.ListSynchronizedSegments(ctx, "m1")
	want := [][]string{{"A"}, {"A"}, {"A"}, {"C"}}
	for i, sg := range synchronized {
		if !slices.Equal(sg.SpeakerLabels, want[i]) {
			t.Errorf("segment %d labels = %v, want %v", i, sg.SpeakerLabels, want[i])
		}
		if sg.IsOverlapping {
			t.Errorf("segment %d should no longer overlap", i)
		}
	}

	if _, err := s.GetMapping(ctx, "m1", "B"); !errors.IsNotFound(err) {
		t.Errorf("source mapping should be gone, got %v", err)
	}
	a, err := s.GetMapping(ctx, "m1", "A")
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if a.DisplayName() != "Bob" || a.MeetingID != "m1" {
		t.Errorf("target mapping = %+v", a)
	}
}

func testMergeUnknown(t *testing.T, s store.Store) {
	mustSaveSegments(t, s, "m1", []diarization.SpeakerSegment{seg("A", 0, 1)})
	err := s.MergeLabels(context.Background(), "m1", "Z", "A", diarization.SpeakerMapping{})
	if !errors.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func testDeleteMeeting(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, id := range []string{"m1", "m2"} {
		mustSaveSegments(t, s, id, []diarization.SpeakerSegment{seg("A", 0, 1)})
		mustSaveSynchronized(t, s, id, []diarization.SynchronizedSegment{{Text: "hi", StartTime: 0, EndTime: 1, SpeakerLabels: []string{"A"}}})
		if err := s.SaveMappings(ctx, []diarization.SpeakerMapping{{MeetingID: id, SpeakerLabel: "A", UpdatedAt: epoch}}); err != nil {
			t.Fatalf("save mappings: %v", err)
		}
	}

	if err := s.DeleteMeeting(ctx, "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if segs, _ := s.ListSpeakerSegments(ctx, "m1"); len(segs) != 0 {
		t.Error("segments survived delete")
	}
	if segs, _ := s.ListSynchronizedSegments(ctx, "m1"); len(segs) != 0 {
		t.Error("aligned transcript survived delete")
	}
	if maps, _ := s.ListMappings(ctx, "m1"); len(maps) != 0 {
		t.Error("mappings survived delete")
	}
	if maps, _ := s.ListMappings(ctx, "m2"); len(maps) != 1 {
		t.Error("other meeting was affected")
	}
	if err := s.DeleteMeeting(ctx, "m1"); err != nil {
		t.Errorf("deleting twice should succeed, got %v", err)
	}
}

func profile(id string, lastSeen time.Time) diarization.VoiceProfile {
	return diarization.VoiceProfile{ID: id, Name: "Person " + id, EmbeddingHash: "0f0f0f0f0f0f0f0f", CreatedAt: lastSeen, LastSeen: lastSeen, MeetingCount: 1}
}

func session(id string) diarization.EnrollmentSession {
	return diarization.EnrollmentSession{ID: "s-" + id, AudioDurationSeconds: 12.5, SampleCount: 200000, CreatedAt: epoch}
}

func testVoiceProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()
	if err := s.CreateVoiceProfile(ctx, profile("p1", epoch), session("p1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateVoiceProfile(ctx, profile("p2", epoch.Add(time.Hour)), session("p2")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateVoiceProfile(ctx, profile("p1", epoch), session("dup")); !errors.HasCode(err, errors.ErrCodeConflict) {
		t.Errorf("expected conflict for duplicate id, got %v", err)
	}

	list, err := s.ListVoiceProfiles(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "p1" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	seen := epoch.Add(48 * time.Hour)
	if err := s.TouchVoiceProfile(ctx, "p1", seen); err != nil {
		t.Fatalf("touch: %v", err)
	}
	p, err := s.GetVoiceProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.MeetingCount != 2 || !p.LastSeen.Equal(seen) {
		t.Errorf("touch not applied: %+v", p)
	}
	if err := s.TouchVoiceProfile(ctx, "missing", seen); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}

	sessions, err := s.ListEnrollmentSessions(ctx, "p1")
	if err != nil || len(sessions) != 1 || sessions[0].VoiceProfileID != "p1" {
		t.Fatalf("sessions = %+v, %v", sessions, err)
	}

	if err := s.DeleteVoiceProfile(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetVoiceProfile(ctx, "p1"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound after delete, got %v", err)
	}
	if sessions, _ := s.ListEnrollmentSessions(ctx, "p1"); len(sessions) != 0 {
		t.Error("enrollment sessions survived profile delete")
	}
	if err := s.DeleteVoiceProfile(ctx, "p1"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound deleting twice, got %v", err)
	}
}

func testDeleteInactive(t *testing.T, s store.Store) {
	ctx := context.Background()
	old := epoch.Add(-100 * 24 * time.Hour)
	for id, seen := range map[string]time.Time{"old": old, "new": epoch} {
		if err := s.CreateVoiceProfile(ctx, profile(id, seen), session(id)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	n, err := s.DeleteInactiveProfiles(ctx, epoch.Add(-90*24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteInactiveProfiles = %d, %v; want 1", n, err)
	}
	if _, err := s.GetVoiceProfile(ctx, "new"); err != nil {
		t.Errorf("recent profile was purged: %v", err)
	}
}

func mustSaveSegments(t *testing.T, s store.Store, meetingID string, segs []diarization.SpeakerSegment) {
	t.Helper()
	if err := s.SaveSpeakerSegments(context.Background(), meetingID, segs); err != nil {
		t.Fatalf("save segments: %v", err)
	}
}

func mustSaveSynchronized(t *testing.T, s store.Store, meetingID string, segs []diarization.SynchronizedSegment) {
	t.Helper()
	if err := s.SaveSynchronizedSegments(context.Background(), meetingID, segs); err != nil {
		t.Fatalf("save synchronized: %v", err)
	}
}
