// Package mail delivers protocol documents by email through a
// Resend-compatible HTTP endpoint.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/errors"
)

// Message is one protocol email: a plain-text body plus the rendered
// document as an attachment.
type Message struct {
	Recipients []string
	Subject    string
	Body       string
	Document   []byte
	FileName   string
}

// Mailer sends protocol emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer posts messages to an email-delivery endpoint.
type HTTPMailer struct {
	Endpoint string
	APIKey   string
	From     string
	Client   *http.Client
}

// NewHTTPMailer builds a mailer from application configuration.
func NewHTTPMailer(cfg *config.Config) *HTTPMailer {
	return &HTTPMailer{
		Endpoint: cfg.MailEndpoint,
		APIKey:   cfg.MailAPIKey,
		From:     cfg.MailFrom,
	}
}

type sendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Send delivers one message. The body is wrapped in a minimal HTML shell
// with newlines preserved; the document travels base64-encoded.
func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients) == 0 {
		return errors.NewInvalidRequest("no recipients given")
	}
	for _, r := range msg.Recipients {
		if !strings.Contains(r, "@") {
			return errors.NewInvalidRequest("invalid recipient address: " + r)
		}
	}
	if m.APIKey == "" {
		return errors.NewEmailFailed(fmt.Errorf("mail API key not configured"))
	}

	body, err := json.Marshal(sendRequest{
		From:    m.From,
		To:      msg.Recipients,
		Subject: msg.Subject,
		HTML:    bodyHTML(msg.Body),
		Attachments: []attachment{
			{
				Filename: msg.FileName,
				Content:  base64.StdEncoding.EncodeToString(msg.Document),
			},
		},
	})
	if err != nil {
		return errors.NewEmailFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewEmailFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	resp, err := m.client().Do(req)
	if err != nil {
		return errors.NewEmailFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.NewEmailFailed(fmt.Errorf("mail endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}
	return nil
}

func (m *HTTPMailer) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func bodyHTML(body string) string {
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(body)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return `<p style="white-space: pre-wrap;">` + escaped + `</p>`
}
