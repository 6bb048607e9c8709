package engine

import (
	"math"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/voiceprint"
)

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

func TestWindows(t *testing.T) {
	got := windows(25, 10)
	want := []window{{0, 10}, {10, 10}, {20, 5}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("window %d = %v, want %v", i, got[i], want[i])
		}
	}
	if windows(0, 10) != nil || windows(10, 0) != nil {
		t.Error("expected no windows for empty input")
	}
}

func TestLabelTracker_MatchesVoiceprints(t *testing.T) {
	tr := newLabelTracker(0.9)
	a, b := voiceprint.Hash(embedding(1)), voiceprint.Hash(negate(embedding(1)))

	if got := tr.assign(a, nil); got != "SPEAKER_00" {
		t.Errorf("first speaker = %s", got)
	}
	if got := tr.assign(b, nil); got != "SPEAKER_01" {
		t.Errorf("second speaker = %s", got)
	}
	if got := tr.assign(a, nil); got != "SPEAKER_00" {
		t.Errorf("returning speaker = %s", got)
	}
}

func TestLabelTracker_ClaimedLabelNotReused(t *testing.T) {
	tr := newLabelTracker(0.9)
	a := voiceprint.Hash(embedding(1))
	tr.assign(a, nil)

	if got := tr.assign(a, map[string]bool{"SPEAKER_00": true}); got != "SPEAKER_01" {
		t.Errorf("expected a new label, got %s", got)
	}
}

func TestLabelTracker_NoEmbeddingGetsNewLabel(t *testing.T) {
	tr := newLabelTracker(0.9)
	tr.assign("", nil)
	if got := tr.assign("", nil); got != "SPEAKER_01" {
		t.Errorf("expected a new label without voiceprint, got %s", got)
	}
}

func TestRelabelChunk_ShiftsAndRenames(t *testing.T) {
	tr := newLabelTracker(0.9)
	e := embedding(3)
	out := tr.relabelChunk([]diarization.RawSegment{
		{Speaker: "local_1", Start: 0, End: 2, Embedding: e},
		{Speaker: "local_1", Start: 3, End: 4, Embedding: e},
	}, 30)
	for _, s := range out {
		if s.Speaker != "SPEAKER_00" {
			t.Errorf("expected SPEAKER_00, got %s", s.Speaker)
		}
	}
	if out[0].Start != 30 || out[1].End != 34 {
		t.Errorf("times not shifted: %+v", out)
	}
}

func TestMeanEmbedding(t *testing.T) {
	got := meanEmbedding([][]float64{{1, 3}, {3, 5}, {9}})
	if len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Errorf("meanEmbedding = %v", got)
	}
	if meanEmbedding(nil) != nil {
		t.Error("expected nil for no vectors")
	}
}
