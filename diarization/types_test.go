package diarization

import "testing"

func TestParsePrivacyMode(t *testing.T) {
	for _, s := range []string{"local_only", "prefer_external", "external_only"} {
		if _, err := ParsePrivacyMode(s); err != nil {
			t.Errorf("ParsePrivacyMode(%q): %v", s, err)
		}
	}
	if _, err := ParsePrivacyMode("cloud"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSpeakerMapping_DisplayName(t *testing.T) {
	m := SpeakerMapping{SpeakerLabel: "Speaker 1"}
	if m.DisplayName() != "Speaker 1" {
		t.Errorf("unnamed mapping should show label, got %q", m.DisplayName())
	}
	m.SpeakerName = StringPtr("Jane")
	if m.DisplayName() != "Jane" {
		t.Errorf("expected Jane, got %q", m.DisplayName())
	}
	if StringPtr("") != nil {
		t.Error("empty string should map to nil")
	}
}

func TestBackends_For(t *testing.T) {
	bs := Backends[Segmenter]{}
	if bs.For(BackendExternal) != nil || bs.For(BackendLocal) != nil {
		t.Error("expected nil for unconfigured backends")
	}
}

func TestSynchronizedSegment_HasLabel(t *testing.T) {
	s := SynchronizedSegment{SpeakerLabels: []string{"A", "B"}}
	if !s.HasLabel("B") || s.HasLabel("C") {
		t.Errorf("unexpected HasLabel results for %v", s.SpeakerLabels)
	}
}
