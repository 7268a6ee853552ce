package meeting

import (
	"strings"
	"testing"
)

func TestCombinedTranscript(t *testing.T) {
	m := &Meeting{Transcript: "Hej alla ", InterimTranscript: "och välkomna"}
	if got := m.CombinedTranscript(); got != "Hej alla och välkomna" {
		t.Errorf("CombinedTranscript() = %q, want %q", got, "Hej alla och välkomna")
	}
}

func TestCombinedTranscript_NoInterim(t *testing.T) {
	m := &Meeting{Transcript: "Hej alla "}
	if got := m.CombinedTranscript(); got != "Hej alla " {
		t.Errorf("CombinedTranscript() = %q, want %q", got, "Hej alla ")
	}
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		interim    string
		want       bool
	}{
		{"both empty", "", "", false},
		{"whitespace only", "   \n\t", "  ", false},
		{"transcript only", "Hej ", "", true},
		{"interim only", "", "välkomna", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Meeting{Transcript: tt.transcript, InterimTranscript: tt.interim}
			if got := m.HasContent(); got != tt.want {
				t.Errorf("HasContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"General", "general"},
		{"  Projekt   X  ", "projekt x"},
		{"ALLMÄNT", "allmänt"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("Hej alla och välkomna"); got != 4 {
		t.Errorf("WordCount = %d, want 4", got)
	}
	if got := WordCount("  "); got != 0 {
		t.Errorf("WordCount of whitespace = %d, want 0", got)
	}
}

func TestToSummary_PreviewTruncation(t *testing.T) {
	long := strings.Repeat("ord ", 100)
	m := &Meeting{ID: "x", Name: DefaultName, Folder: DefaultFolder, Transcript: long}
	s := m.ToSummary()

	if len([]rune(s.Preview)) > previewChars+1 {
		t.Errorf("preview too long: %d runes", len([]rune(s.Preview)))
	}
	if !strings.HasSuffix(s.Preview, "…") {
		t.Error("truncated preview should end with ellipsis")
	}
	if s.WordCount != 100 {
		t.Errorf("WordCount = %d, want 100", s.WordCount)
	}
}

func TestToSummary_InterimFallback(t *testing.T) {
	m := &Meeting{ID: "x", InterimTranscript: "pågående hypotes"}
	if got := m.ToSummary().Preview; got != "pågående hypotes" {
		t.Errorf("Preview = %q, want interim fallback", got)
	}
}
