package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ocobra/meeting-minutes-sub000/errors"
)

// Format is an export format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat parses an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "txt":
		return FormatText, nil
	}
	return "", errors.InvalidInput("format", fmt.Sprintf("unknown export format %q", s))
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	}
	return ".txt"
}

// Export renders t in format f.
func Export(t Transcript, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(exportText(t)), nil
	case FormatMarkdown:
		return []byte(exportMarkdown(t)), nil
	case FormatJSON:
		b, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, errors.Internal(err)
		}
		return b, nil
	}
	return nil, errors.InvalidInput("format", fmt.Sprintf("unknown export format %q", f))
}

func exportText(t Transcript) string {
	var b strings.Builder
	b.WriteString("=== Meeting Transcript ===\n\n")
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "[%s] %s%s%s: %s\n",
			Timestamp(s.StartTime), s.Speaker,
			marker(s.Uncertain, " (?)"), marker(s.IsOverlapping, " [overlapping]"), s.Text)
	}

	b.WriteString("\n=== Speaker Statistics ===\n\n")
	fmt.Fprintf(&b, "Total Duration: %.2f seconds\n\n", t.Statistics.TotalDuration)
	for _, sp := range t.Statistics.Speakers {
		fmt.Fprintf(&b, "%s: %.2fs (%.1f%%), %d turns, avg %.2fs/turn\n",
			sp.Name, sp.SpeakingSeconds, sp.Percentage, sp.Turns, sp.AverageTurn)
	}
	return b.String()
}

func exportMarkdown(t Transcript) string {
	var b strings.Builder
	b.WriteString("# Meeting Transcript\n\n## Transcript\n\n")
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "**[%s] %s%s%s:** %s\n\n",
			Timestamp(s.StartTime), s.Speaker,
			marker(s.Uncertain, " *(?)*"), marker(s.IsOverlapping, " *[overlapping]*"), s.Text)
	}

	b.WriteString("## Speaker Statistics\n\n")
	fmt.Fprintf(&b, "**Total Duration:** %.2f seconds\n\n", t.Statistics.TotalDuration)
	b.WriteString("| Speaker | Speaking Time | Percentage | Turns | Avg Turn Duration |\n")
	b.WriteString("|---------|---------------|------------|-------|-------------------|\n")
	for _, sp := range t.Statistics.Speakers {
		fmt.Fprintf(&b, "| %s | %.2fs | %.1f%% | %d | %.2fs |\n",
			sp.Name, sp.SpeakingSeconds, sp.Percentage, sp.Turns, sp.AverageTurn)
	}
	return b.String()
}

// Timestamp formats seconds as mm:ss.
func Timestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func marker(on bool, s string) string {
	if on {
		return s
	}
	return ""
}
