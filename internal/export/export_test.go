package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wby/protokoll/internal/meeting"
)

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testProtocol() *meeting.Protocol {
	return &meeting.Protocol{
		Title:       "Budgetmöte Q3",
		Summary:     "Budgetramen för tredje kvartalet diskuterades.",
		MainPoints:  []string{"Budgetram fastställd", "Prognosen ses över"},
		Decisions:   []string{"Ramen godkändes"},
		ActionItems: []string{"Ekonomi uppdaterar prognosen"},
	}
}

func TestBuildRendersAllSections(t *testing.T) {
	doc, err := Build(testProtocol(), testTime)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	for _, want := range []string{
		"# MÖTESPROTOKOLL",
		"## Budgetmöte Q3",
		"**Datum:** 2026-03-14 | **Tid:** 09:30",
		"## Sammanfattning",
		"## Huvudpunkter",
		"- Budgetram fastställd",
		"## Beslut",
		"- Ramen godkändes",
		"## Åtgärdspunkter",
		"- Ekonomi uppdaterar prognosen",
	} {
		if !strings.Contains(doc.Markdown, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	if !strings.Contains(doc.HTML, "<h1>MÖTESPROTOKOLL</h1>") {
		t.Error("HTML should carry the rendered title")
	}
	if !strings.Contains(doc.HTML, "<li>Budgetram fastställd</li>") {
		t.Error("HTML should carry rendered list items")
	}
}

func TestBuildOmitsEmptySections(t *testing.T) {
	p := testProtocol()
	p.Decisions = nil
	p.ActionItems = nil

	doc, err := Build(p, testTime)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if strings.Contains(doc.Markdown, "## Beslut") {
		t.Error("empty decisions section should be omitted")
	}
	if strings.Contains(doc.Markdown, "## Åtgärdspunkter") {
		t.Error("empty action items section should be omitted")
	}
}

func TestBuildFileName(t *testing.T) {
	doc, err := Build(testProtocol(), testTime)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if doc.FileName != "Motesprotokoll_2026-03-14_09-30.md" {
		t.Errorf("file name = %q", doc.FileName)
	}
}

func TestWriteStoresBothRenderings(t *testing.T) {
	dir := t.TempDir()
	doc, err := Build(testProtocol(), testTime)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	mdPath, err := doc.Write(dir)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if mdPath != filepath.Join(dir, doc.FileName) {
		t.Errorf("markdown path = %q", mdPath)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("reading markdown: %v", err)
	}
	if string(md) != doc.Markdown {
		t.Error("stored markdown differs from rendering")
	}

	htmlPath := filepath.Join(dir, "Motesprotokoll_2026-03-14_09-30.html")
	if _, err := os.Stat(htmlPath); err != nil {
		t.Errorf("expected HTML file: %v", err)
	}
}
