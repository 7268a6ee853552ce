package protocol

import (
	"context"
	"log"
	"strings"

	"github.com/wby/protokoll/internal/meeting"
)

const (
	fallbackTitle      = "Mötesprotokoll"
	fallbackSummaryLen = 200
	fallbackMaxPoints  = 5
)

// Fallback builds a degenerate protocol directly from the transcript. It
// never fails: the title falls back to the meeting name, the summary to
// the leading characters, and the main points to a sentence split that is
// guaranteed non-empty for any non-blank transcript.
func Fallback(name, transcript string) *meeting.Protocol {
	title := strings.TrimSpace(name)
	if title == "" {
		title = fallbackTitle
	}

	trimmed := strings.TrimSpace(transcript)

	summary := trimmed
	if runes := []rune(summary); len(runes) > fallbackSummaryLen {
		summary = string(runes[:fallbackSummaryLen])
	}

	var points []string
	for _, s := range strings.Split(trimmed, ".") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		points = append(points, s)
		if len(points) == fallbackMaxPoints {
			break
		}
	}
	if len(points) == 0 && trimmed != "" {
		points = []string{trimmed}
	}

	return &meeting.Protocol{
		Title:       title,
		Summary:     summary,
		MainPoints:  points,
		Decisions:   []string{},
		ActionItems: []string{},
	}
}

// GenerateOrFallback tries remote generation and degrades locally on any
// failure. The second return reports whether the result is degraded so
// callers can surface a notice.
func GenerateOrFallback(ctx context.Context, g *Generator, name, transcript string) (*meeting.Protocol, bool) {
	p, err := g.Generate(ctx, transcript)
	if err != nil {
		log.Printf("protocol generation degraded to local fallback: %v", err)
		return Fallback(name, transcript), true
	}
	return p, false
}
