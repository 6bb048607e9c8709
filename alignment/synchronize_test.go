package alignment

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
)

func word(text string, start, end float64) diarization.TranscriptWord {
	return diarization.TranscriptWord{Text: text, StartTime: start, EndTime: end}
}

func seg(label string, start, end float64) diarization.SpeakerSegment {
	return diarization.SpeakerSegment{SpeakerLabel: label, StartTime: start, EndTime: end, Confidence: 0.9}
}

func TestSynchronize_NoSegments(t *testing.T) {
	out, err := New(Config{}).Synchronize([]diarization.TranscriptWord{word("hi", 0, 0.5)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(out))
	}
	if out[0].Text != "hi" || len(out[0].SpeakerLabels) != 0 || out[0].IsOverlapping {
		t.Errorf("unexpected segment %+v", out[0])
	}
	if out[0].SpeakerLabels == nil {
		t.Error("label set should be empty, not nil")
	}
}

func TestSynchronize_Overlap(t *testing.T) {
	segments := []diarization.SpeakerSegment{seg("B", 1, 3), seg("A", 0, 2)}
	out, err := New(Config{}).Synchronize([]diarization.TranscriptWord{word("both", 1.5, 1.8)}, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(out))
	}
	if !slices.Equal(out[0].SpeakerLabels, []string{"A", "B"}) {
		t.Errorf("labels = %v, want [A B]", out[0].SpeakerLabels)
	}
	if !out[0].IsOverlapping {
		t.Error("expected overlapping segment")
	}
}

func TestSynchronize_GroupsConsecutiveWords(t *testing.T) {
	words := []diarization.TranscriptWord{
		word("hello", 0.0, 0.4),
		word("there", 0.5, 0.9),
		word("hi", 2.1, 2.4),
		word("back", 2.5, 2.9),
		word("ok", 3.0, 3.3),
	}
	segments := []diarization.SpeakerSegment{seg("S0", 0, 1), seg("S1", 2, 3)}

	out, err := New(Config{}).Synchronize(words, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 segments, got %+v", out)
	}
	if out[0].Text != "hello there" || !slices.Equal(out[0].SpeakerLabels, []string{"S0"}) {
		t.Errorf("first segment = %+v", out[0])
	}
	// "ok" starts 0.0s after S1 ends and inherits it.
	if out[1].Text != "hi back ok" || !slices.Equal(out[1].SpeakerLabels, []string{"S1"}) {
		t.Errorf("second segment = %+v", out[1])
	}
	if out[1].StartTime != 2.1 || out[1].EndTime != 3.3 {
		t.Errorf("second segment span = [%v, %v]", out[1].StartTime, out[1].EndTime)
	}
}

func TestSynchronize_GapFill(t *testing.T) {
	segments := []diarization.SpeakerSegment{seg("A", 0, 1)}
	tests := []struct {
		name   string
		w      diarization.TranscriptWord
		labels []string
	}{
		{"short pause inherits", word("um", 1.3, 1.5), []string{"A"}},
		{"long pause is unattributed", word("later", 1.6, 2.0), []string{}},
		{"short word at segment start", word("pre", 0, 0.02), []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(Config{}).Synchronize([]diarization.TranscriptWord{tt.w}, segments)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(out[0].SpeakerLabels, tt.labels) {
				t.Errorf("labels = %v, want %v", out[0].SpeakerLabels, tt.labels)
			}
		})
	}
}

func TestSynchronize_ShortWordInsideSegments(t *testing.T) {
	segments := []diarization.SpeakerSegment{seg("A", 0, 1), seg("B", 1.2, 3), seg("C", 1.8, 2.5)}
	tests := []struct {
		name   string
		w      diarization.TranscriptWord
		labels []string
	}{
		{"inside one segment", word("ok", 1.5, 1.53), []string{"B"}},
		{"inside an overlap", word("mm", 2.0, 2.03), []string{"B", "C"}},
		{"in a short pause", word("uh", 1.05, 1.08), []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(Config{}).Synchronize([]diarization.TranscriptWord{tt.w}, segments)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(out[0].SpeakerLabels, tt.labels) {
				t.Errorf("labels = %v, want %v", out[0].SpeakerLabels, tt.labels)
			}
			if got := len(tt.labels) > 1; out[0].IsOverlapping != got {
				t.Errorf("IsOverlapping = %v, want %v", out[0].IsOverlapping, got)
			}
		})
	}
}

func TestSynchronize_GroupsByLabelSet(t *testing.T) {
	// B starts first around "one", A starts first around "two".
	segments := []diarization.SpeakerSegment{seg("B", 0, 3), seg("A", 1, 10), seg("B", 4, 6)}
	words := []diarization.TranscriptWord{word("one", 2.0, 2.4), word("two", 5.0, 5.4)}
	out, err := New(Config{}).Synchronize(words, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 segment, got %d: %+v", len(out), out)
	}
	if out[0].Text != "one two" || !slices.Equal(out[0].SpeakerLabels, []string{"A", "B"}) {
		t.Errorf("unexpected segment %+v", out[0])
	}
}

func TestSynchronize_ToleranceExcludesGrazingSegments(t *testing.T) {
	// B overlaps the word by 0.03s only.
	segments := []diarization.SpeakerSegment{seg("A", 0, 2), seg("B", 1.97, 4)}
	out, err := New(Config{}).Synchronize([]diarization.TranscriptWord{word("x", 1.5, 2.0)}, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(out[0].SpeakerLabels, []string{"A"}) {
		t.Errorf("labels = %v, want [A]", out[0].SpeakerLabels)
	}
}

func TestSynchronize_PartitionsWords(t *testing.T) {
	var words []diarization.TranscriptWord
	for i := 0; i < 40; i++ {
		start := float64(i) * 0.37
		words = append(words, word("w", start, start+0.3))
	}
	// Unsorted input with overlaps and holes.
	segments := []diarization.SpeakerSegment{
		seg("C", 9, 12), seg("A", 0, 4), seg("B", 3.5, 6), seg("A", 10, 11),
	}
	out, err := New(Config{}).Synchronize(words, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	total := 0
	for i, s := range out {
		total += len(strings.Fields(s.Text))
		if s.IsOverlapping != (len(s.SpeakerLabels) > 1) {
			t.Errorf("segment %d overlap flag inconsistent: %+v", i, s)
		}
		if i > 0 && s.StartTime < out[i-1].EndTime {
			t.Errorf("segment %d overlaps previous: %+v after %+v", i, s, out[i-1])
		}
		if i > 0 && slices.Equal(s.SpeakerLabels, out[i-1].SpeakerLabels) {
			t.Errorf("segment %d has the same labels as its predecessor", i)
		}
	}
	if total != len(words) {
		t.Errorf("output holds %d words, want %d", total, len(words))
	}
}

func TestSynchronize_EmptyWords(t *testing.T) {
	out, err := New(Config{}).Synchronize(nil, []diarization.SpeakerSegment{seg("A", 0, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
}

func TestSynchronize_RejectsMalformedTimes(t *testing.T) {
	tests := []struct {
		name     string
		words    []diarization.TranscriptWord
		segments []diarization.SpeakerSegment
	}{
		{"zero-length word", []diarization.TranscriptWord{word("a", 1, 1)}, nil},
		{"inverted segment", []diarization.TranscriptWord{word("a", 0, 1)}, []diarization.SpeakerSegment{seg("A", 2, 1)}},
		{"negative word", []diarization.TranscriptWord{word("a", -1, 1)}, nil},
		{"NaN segment", nil, []diarization.SpeakerSegment{seg("A", math.NaN(), 1)}},
		{"infinite word", []diarization.TranscriptWord{word("a", 0, math.Inf(1))}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{}).Synchronize(tt.words, tt.segments)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Classify(err) != errors.KindAlignment {
				t.Errorf("expected alignment error, got %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{OverlapTolerance: -1}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative tolerance")
	}

	cfg = Config{}
	cfg.ApplyDefaults()
	if cfg.OverlapTolerance != 0.05 || cfg.GapFill != 0.5 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
