package identification

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/llm"
)

type fakeLLM struct {
	content string
	err     error
	last    llm.CompletionRequest
	calls   int
}

func (f *fakeLLM) Name() string                    { return "fake" }
func (f *fakeLLM) IsAvailable(context.Context) bool { return true }
func (f *fakeLLM) Execute(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	f.last = req
	return llm.CompletionResponse{Content: f.content}, f.err
}

func TestIdentify(t *testing.T) {
	fake := &fakeLLM{content: "```json\n" + `{"identifications":[
		{"speaker_label":"SPEAKER_00","name":"John Smith","confidence":95,"source_text":"Hi, I'm John Smith"},
		{"speaker_label":"SPEAKER_01","name":null,"confidence":0,"source_text":""},
		{"speaker_label":"SPEAKER_09","name":"Ghost","confidence":80,"source_text":"..."},
		{"speaker_label":"SPEAKER_02","name":"Sarah","confidence":140,"source_text":"This is Sarah"}
	]}` + "\n```"}
	id := NewLLMIdentifier(fake, Config{})

	got, err := id.Identify(context.Background(), "SPEAKER_00: Hi, I'm John Smith\n", []string{"SPEAKER_00", "SPEAKER_01", "SPEAKER_02"})
	if err != nil {
		t.Fatalf("Identify() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", got)
	}
	if got[0].CandidateName != "John Smith" || got[0].Confidence != 0.95 || got[0].SourceExcerpt != "Hi, I'm John Smith" {
		t.Errorf("unexpected first candidate %+v", got[0])
	}
	if got[1].SpeakerLabel != "SPEAKER_02" || got[1].Confidence != 1 {
		t.Errorf("confidence should clamp to 1, got %+v", got[1])
	}

	if fake.last.Temperature != 0.3 || fake.last.MaxTokens != 2000 || !fake.last.JSON {
		t.Errorf("unexpected request settings %+v", fake.last)
	}
	if !strings.Contains(fake.last.Messages[0].Content, "SPEAKER_00: Hi, I'm John Smith") {
		t.Error("prompt should include the transcript")
	}
}

func TestIdentify_EmptyTranscript(t *testing.T) {
	fake := &fakeLLM{}
	got, err := NewLLMIdentifier(fake, Config{}).Identify(context.Background(), "  ", []string{"A"})
	if err != nil || got != nil || fake.calls != 0 {
		t.Errorf("empty transcript should skip the LLM, got %v %v calls=%d", got, err, fake.calls)
	}
}

func TestIdentify_Errors(t *testing.T) {
	t.Run("unparseable", func(t *testing.T) {
		fake := &fakeLLM{content: "no names here"}
		_, err := NewLLMIdentifier(fake, Config{}).Identify(context.Background(), "A: hi", []string{"A"})
		if errors.Classify(err) != errors.KindPermanent {
			t.Errorf("expected permanent error, got %v", err)
		}
	})
	t.Run("backend", func(t *testing.T) {
		fake := &fakeLLM{err: errors.TransientBackend("fake", stderrors.New("503"))}
		_, err := NewLLMIdentifier(fake, Config{}).Identify(context.Background(), "A: hi", []string{"A"})
		if !errors.IsTransient(err) {
			t.Errorf("backend errors should pass through, got %v", err)
		}
	})
}

func TestBuildTranscript(t *testing.T) {
	got := BuildTranscript([]diarization.SynchronizedSegment{
		{Text: "hello", SpeakerLabels: []string{"SPEAKER_00"}},
		{Text: "both", SpeakerLabels: []string{"SPEAKER_00", "SPEAKER_01"}},
		{Text: "who", SpeakerLabels: []string{}},
	})
	want := "SPEAKER_00: hello\nSPEAKER_00 & SPEAKER_01: both\nUnknown: who\n"
	if got != want {
		t.Errorf("BuildTranscript() = %q, want %q", got, want)
	}
}
