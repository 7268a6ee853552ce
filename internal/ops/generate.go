package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wby/protokoll/internal/db"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/export"
	"github.com/wby/protokoll/internal/mail"
	"github.com/wby/protokoll/internal/meeting"
	"github.com/wby/protokoll/internal/protocol"
)

// GenerateDeps carries the collaborators of the GenerateProtocol operation.
type GenerateDeps struct {
	DB         *sql.DB
	Generator  *protocol.Generator
	Mailer     mail.Mailer
	ExportsDir string
	Now        func() time.Time // nil means time.Now
}

// GenerateInput contains parameters for the GenerateProtocol operation.
type GenerateInput struct {
	ID string

	// Recipients, when non-empty, sends the document by email after export.
	Recipients []string

	// Message is the email body accompanying the document.
	Message string
}

// GenerateOutput contains the result of the GenerateProtocol operation.
type GenerateOutput struct {
	Protocol meeting.Protocol `json:"protocol"`

	// Degraded reports that remote generation failed and the protocol was
	// built locally from the raw transcript.
	Degraded bool `json:"degraded"`

	FileName string `json:"file_name"`
	Path     string `json:"path"`

	EmailedTo int `json:"emailed_to,omitempty"`
}

// GenerateProtocol turns a stored meeting's transcript into a protocol
// document: remote generation with local fallback, export to the exports
// directory, and optional email delivery of the markdown document.
func GenerateProtocol(ctx context.Context, deps GenerateDeps, input GenerateInput) (*GenerateOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id must not be empty")
	}

	m, err := db.GetMeeting(deps.DB, id)
	if err != nil {
		return nil, err
	}

	transcript := strings.TrimSpace(m.CombinedTranscript())
	if transcript == "" {
		return nil, errors.NewInvalidRequest("meeting has no transcript to generate from")
	}

	p, degraded := protocol.GenerateOrFallback(ctx, deps.Generator, m.Name, transcript)

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	doc, err := export.Build(p, now())
	if err != nil {
		return nil, err
	}

	path, err := doc.Write(deps.ExportsDir)
	if err != nil {
		return nil, err
	}

	out := &GenerateOutput{
		Protocol: *p,
		Degraded: degraded,
		FileName: doc.FileName,
		Path:     path,
	}

	if len(input.Recipients) > 0 {
		if deps.Mailer == nil {
			return nil, errors.NewEmailFailed(fmt.Errorf("no mailer configured"))
		}
		msg := mail.Message{
			Recipients: input.Recipients,
			Subject:    "Mötesprotokoll: " + p.Title,
			Body:       input.Message,
			Document:   []byte(doc.Markdown),
			FileName:   doc.FileName,
		}
		if err := deps.Mailer.Send(ctx, msg); err != nil {
			return nil, err
		}
		out.EmailedTo = len(input.Recipients)
	}

	return out, nil
}
