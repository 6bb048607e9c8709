// Package identification extracts speaker names from transcript text with
// an LLM.
package identification

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
	"github.com/ocobra/meeting-minutes-sub000/errors"
	"github.com/ocobra/meeting-minutes-sub000/llm"
)

// UnknownSpeaker labels transcript lines without a speaker.
const UnknownSpeaker = "Unknown"

const systemPrompt = "You are a helpful assistant that identifies speaker names from meeting transcripts. " +
	"You always respond with valid JSON only, no markdown formatting."

const promptTemplate = `Analyze the following meeting transcript and identify speaker names from introductions.

Look for patterns like:
- "I'm [name]" or "I am [name]"
- "This is [name]"
- "My name is [name]"
- "[name] here" or "[name] speaking"

Transcript:
%s

For each speaker label (%s), provide:
1. The identified name (if found, otherwise null)
2. Confidence score (0-100, where 100 is certain)
3. The sentence where the name was mentioned

Return JSON in this exact format:
{
  "identifications": [
    {"speaker_label": "SPEAKER_00", "name": "John Smith", "confidence": 95, "source_text": "Hi everyone, I'm John Smith from engineering"},
    {"speaker_label": "SPEAKER_01", "name": null, "confidence": 0, "source_text": ""}
  ]
}`

// Config tunes the identification request.
type Config struct {
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	// MaxTranscriptChars truncates long transcripts; introductions happen early.
	MaxTranscriptChars int `yaml:"max_transcript_chars" mapstructure:"max_transcript_chars"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.MaxTranscriptChars == 0 {
		c.MaxTranscriptChars = 24000
	}
}

// LLMIdentifier implements diarization.Identifier over an llm.Provider.
type LLMIdentifier struct {
	llm llm.Provider
	cfg Config
}

var _ diarization.Identifier = (*LLMIdentifier)(nil)

// NewLLMIdentifier wraps p.
func NewLLMIdentifier(p llm.Provider, cfg Config) *LLMIdentifier {
	cfg.ApplyDefaults()
	return &LLMIdentifier{llm: p, cfg: cfg}
}

// Name returns the identifier name.
func (i *LLMIdentifier) Name() string { return "llm:" + i.llm.Name() }

// IsAvailable reports whether the underlying LLM answers.
func (i *LLMIdentifier) IsAvailable(ctx context.Context) bool { return i.llm.IsAvailable(ctx) }

type identificationResponse struct {
	Identifications []struct {
		SpeakerLabel string  `json:"speaker_label"`
		Name         *string `json:"name"`
		Confidence   float64 `json:"confidence"`
		SourceText   string  `json:"source_text"`
	} `json:"identifications"`
}

// Identify asks the LLM for names of the given labels. Entries without a
// name or for labels not asked about are dropped. Confidences are
// normalized from 0-100 to 0-1.
func (i *LLMIdentifier) Identify(ctx context.Context, transcript string, labels []string) ([]diarization.IdentificationCandidate, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" || len(labels) == 0 {
		return nil, nil
	}
	if len(transcript) > i.cfg.MaxTranscriptChars {
		transcript = transcript[:i.cfg.MaxTranscriptChars]
	}

	var resp identificationResponse
	err := llm.CompleteStructured(ctx, i.llm, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: BuildPrompt(transcript, labels)}},
		Temperature:  i.cfg.Temperature,
		MaxTokens:    i.cfg.MaxTokens,
	}, &resp)
	if err != nil {
		if errors.IsAppError(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.PermanentInput("unreadable identification response", err)
	}

	out := make([]diarization.IdentificationCandidate, 0, len(resp.Identifications))
	for _, e := range resp.Identifications {
		if e.Name == nil || strings.TrimSpace(*e.Name) == "" {
			continue
		}
		if !slices.Contains(labels, e.SpeakerLabel) {
			continue
		}
		out = append(out, diarization.IdentificationCandidate{
			SpeakerLabel:  e.SpeakerLabel,
			CandidateName: strings.TrimSpace(*e.Name),
			Confidence:    normalizeConfidence(e.Confidence),
			SourceExcerpt: e.SourceText,
		})
	}
	return out, nil
}

// BuildPrompt renders the identification prompt.
func BuildPrompt(transcript string, labels []string) string {
	return fmt.Sprintf(promptTemplate, transcript, strings.Join(labels, ", "))
}

// BuildTranscript renders aligned segments as "Label: text" lines.
// Overlapping speech joins labels with " & ".
func BuildTranscript(segments []diarization.SynchronizedSegment) string {
	var b strings.Builder
	for _, s := range segments {
		label := UnknownSpeaker
		if len(s.SpeakerLabels) > 0 {
			label = strings.Join(s.SpeakerLabels, " & ")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(s.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

func normalizeConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(1, c/100))
}
