// Package confidence scores speaker name candidates.
//
// A score is a weighted average of the name-extraction model's own
// confidence, the strength of the introduction pattern in the source text,
// the plausibility of the name itself, and the segmentation confidence.
// Scoring is pure and deterministic.
package confidence

import (
	"math"
	"strings"
	"unicode"

	"github.com/ocobra/meeting-minutes-sub000/diarization"
)

// Scorer combines identification signals into one acceptance score.
type Scorer struct {
	cfg Config
}

// New creates a Scorer. Zero config fields take defaults.
func New(cfg Config) *Scorer {
	cfg.ApplyDefaults()
	return &Scorer{cfg: cfg}
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config { return s.cfg }

// WithThreshold returns a copy of s using a different accept threshold.
func (s *Scorer) WithThreshold(threshold float64) *Scorer {
	cfg := s.cfg
	cfg.AcceptThreshold = threshold
	return &Scorer{cfg: cfg}
}

// Score returns the weighted score of c in [0,1]. context is the transcript
// excerpt the name was extracted from; when empty the candidate's own
// excerpt is used.
func (s *Scorer) Score(c diarization.IdentificationCandidate, segmentConfidence float64, context string) float64 {
	if context == "" {
		context = c.SourceExcerpt
	}
	w := s.cfg.Weights
	score := w.LLM*clamp(c.Confidence) +
		w.Pattern*PatternStrength(context, c.CandidateName) +
		w.Plausibility*NamePlausibility(c.CandidateName) +
		w.Segmentation*clamp(segmentConfidence)
	return clamp(score)
}

// Accept reports whether score meets the accept threshold.
func (s *Scorer) Accept(score float64) bool {
	return score >= s.cfg.AcceptThreshold
}

// IsLowConfidence reports whether a name with this score should be shown
// as uncertain.
func (s *Scorer) IsLowConfidence(score float64) bool {
	return score < s.cfg.LowThreshold
}

// Level buckets a score for display.
func Level(score float64) string {
	switch {
	case score >= 0.9:
		return "very high"
	case score >= 0.7:
		return "high"
	case score >= 0.5:
		return "medium"
	case score >= 0.3:
		return "low"
	default:
		return "very low"
	}
}

var introductions = []string{"my name is", "i'm", "i am", "this is", "call me", "speaking is"}

var fillers = map[string]bool{"um": true, "uh": true, "er": true, "erm": true, "hmm": true, "like": true}

var fillerPhrases = []string{"you know", "i mean"}

// fillerCount counts filler words and phrases in lower-cased text.
func fillerCount(lower string) int {
	count := 0
	words := strings.Fields(lower)
	for i := range words {
		words[i] = strings.TrimFunc(words[i], unicode.IsPunct)
		if fillers[words[i]] {
			count++
		}
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, p := range fillerPhrases {
		count += strings.Count(joined, " "+p+" ")
	}
	return count
}

// PatternStrength rates how clearly context introduces name.
func PatternStrength(context, name string) float64 {
	lower := strings.ToLower(context)
	strength := 0.4
	for _, p := range introductions {
		if strings.Contains(lower, p) {
			strength += 0.4
			break
		}
	}
	if ln := strings.ToLower(name); ln != "" && fillerCount(ln) == 0 && strings.Contains(lower, ln) {
		strength += 0.2
	}

	if len(strings.TrimSpace(context)) < 20 {
		strength *= 0.7
	}
	if fillerCount(lower) > 2 {
		strength *= 0.8
	}
	return clamp(strength)
}

// NamePlausibility rates how much name looks like a person's name.
func NamePlausibility(name string) float64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	quality := 1.0
	switch n := len([]rune(name)); {
	case n < 2:
		quality *= 0.3
	case n < 4:
		quality *= 0.7
	}

	digits, special := false, false
	for _, r := range name {
		switch {
		case unicode.IsDigit(r):
			digits = true
		case unicode.IsLetter(r), r == ' ', r == '-', r == '\'':
		default:
			special = true
		}
	}
	if digits {
		quality *= 0.5
	}
	if special {
		quality *= 0.6
	}
	// A filler picked up as a name is almost never a person.
	if n := fillerCount(strings.ToLower(name)); n > 0 {
		quality *= math.Pow(0.3, float64(n))
	}
	if len(strings.Fields(name)) >= 2 {
		quality *= 1.1
	}
	return clamp(quality)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
