// Package export renders a protocol into downloadable documents. The
// canonical form is markdown; an HTML rendering is produced alongside it
// for mail bodies and browser display.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

// Document is a rendered protocol ready to download or attach.
type Document struct {
	FileName string
	Markdown string
	HTML     string
}

// Build renders the protocol. The timestamp feeds both the document header
// and the generated file name.
func Build(p *meeting.Protocol, at time.Time) (*Document, error) {
	var b strings.Builder

	b.WriteString("# MÖTESPROTOKOLL\n\n")
	b.WriteString("## " + p.Title + "\n\n")
	fmt.Fprintf(&b, "**Datum:** %s | **Tid:** %s\n\n", at.Format("2006-01-02"), at.Format("15:04"))
	b.WriteString("---\n\n")

	b.WriteString("## Sammanfattning\n\n")
	b.WriteString(p.Summary + "\n\n")

	b.WriteString("## Huvudpunkter\n\n")
	for _, point := range p.MainPoints {
		b.WriteString("- " + point + "\n")
	}
	b.WriteString("\n")

	if len(p.Decisions) > 0 {
		b.WriteString("## Beslut\n\n")
		for _, d := range p.Decisions {
			b.WriteString("- " + d + "\n")
		}
		b.WriteString("\n")
	}

	if len(p.ActionItems) > 0 {
		b.WriteString("## Åtgärdspunkter\n\n")
		for _, a := range p.ActionItems {
			b.WriteString("- " + a + "\n")
		}
		b.WriteString("\n")
	}

	markdown := b.String()

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &html); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("rendering HTML: %w", err))
	}

	return &Document{
		FileName: fileName(at),
		Markdown: markdown,
		HTML:     html.String(),
	}, nil
}

// Write stores the markdown and HTML files under dir. Returns the path of
// the markdown file.
func (d *Document) Write(dir string) (string, error) {
	mdPath := filepath.Join(dir, d.FileName)
	if err := os.WriteFile(mdPath, []byte(d.Markdown), 0600); err != nil {
		return "", errors.NewPersistence(fmt.Errorf("writing %s: %w", d.FileName, err))
	}

	htmlName := strings.TrimSuffix(d.FileName, filepath.Ext(d.FileName)) + ".html"
	if err := os.WriteFile(filepath.Join(dir, htmlName), []byte(d.HTML), 0600); err != nil {
		return "", errors.NewPersistence(fmt.Errorf("writing %s: %w", htmlName, err))
	}

	return mdPath, nil
}

func fileName(at time.Time) string {
	return fmt.Sprintf("Motesprotokoll_%s_%s.md", at.Format("2006-01-02"), at.Format("15-04"))
}
