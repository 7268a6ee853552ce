// Package protocol turns a finished transcript into structured meeting
// minutes. Generation is remote-first through a chat-completions endpoint;
// a local fallback guarantees the hand-off always yields a usable document.
package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/wby/protokoll/internal/config"
	"github.com/wby/protokoll/internal/errors"
	"github.com/wby/protokoll/internal/meeting"
)

const systemPrompt = `Du är en erfaren mötessekreterare som skapar DETALJERADE och PROFESSIONELLA mötesprotokoll på svenska.

VIKTIGT: Du måste ALLTID ge ett komplett protokoll, även om transkriptionen är kort eller oklar!

Din uppgift:
1. Skapa en BESKRIVANDE titel (max 60 tecken) baserat på vad som diskuterades
2. Skriv en GRUNDLIG sammanfattning i 3-5 meningar som fångar essensen av mötet
3. Identifiera 5-10 huvudpunkter som diskuterades (var generös och analysera noggrant)
4. Leta efter och dokumentera ALLA beslut som fattades
5. Identifiera och lista ALLA uppgifter eller action items som nämndes

REGLER:
- Även om transkriptionen är kort, analysera den noggrant och skapa ett meningsfullt protokoll
- Var kreativ och tolka innehållet professionellt
- Om något är otydligt, gör en kvalificerad tolkning
- Skapa ALLTID minst 3-5 huvudpunkter, även från korta diskussioner
- Om inga tydliga beslut finns, tolka vad som diskuterades som potentiella beslutspunkter

Svara ENDAST med JSON i detta format:
{
  "title": "Beskrivande titel baserat på innehållet",
  "summary": "Detaljerad sammanfattning i 3-5 meningar som fångar hela mötet",
  "mainPoints": ["Huvudpunkt 1 med detaljer", "Huvudpunkt 2 med kontext", "Huvudpunkt 3...", "..."],
  "decisions": ["Beslut 1 om det finns", "Beslut 2..."],
  "actionItems": ["Uppgift 1 med ansvarig om möjligt", "Uppgift 2..."]
}

Ge ALDRIG tomma arrayer för mainPoints - det ska alltid finnas minst 3-5 punkter!`

const userPromptFormat = "Analysera denna mötestranskription noggrant och skapa ett DETALJERAT protokoll:\n\n%s\n\nKom ihåg: Ge ALLTID ett komplett protokoll med minst 3-5 huvudpunkter, även om transkriptionen är kort!"

// jsonObject captures the first JSON object in a completion, tolerating
// prose or code fences around it.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// Generator calls a chat-completions endpoint to produce a protocol.
type Generator struct {
	Endpoint string
	Model    string
	APIKey   string
	Client   *http.Client
}

// NewGenerator builds a Generator from application configuration.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		Endpoint: cfg.GeneratorEndpoint,
		Model:    cfg.GeneratorModel,
		APIKey:   cfg.GeneratorAPIKey,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate requests a protocol for the transcript. All failure modes come
// back as GENERATION_FAILED so the caller can uniformly degrade to the
// local fallback.
func (g *Generator) Generate(ctx context.Context, transcript string) (*meeting.Protocol, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.NewInvalidRequest("no transcript provided")
	}
	if g.APIKey == "" {
		return nil, errors.NewGenerationFailed(fmt.Errorf("generator API key not configured"))
	}

	body, err := json.Marshal(chatRequest{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, transcript)},
		},
		Temperature: 0.7,
		MaxTokens:   3000,
	})
	if err != nil {
		return nil, errors.NewGenerationFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewGenerationFailed(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.client().Do(req)
	if err != nil {
		return nil, errors.NewGenerationFailed(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewGenerationFailed(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewGenerationFailed(fmt.Errorf("generation endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, errors.NewGenerationFailed(fmt.Errorf("parsing completion: %w", err))
	}
	if len(completion.Choices) == 0 {
		return nil, errors.NewGenerationFailed(fmt.Errorf("completion carried no choices"))
	}

	raw := jsonObject.FindString(completion.Choices[0].Message.Content)
	if raw == "" {
		return nil, errors.NewGenerationFailed(fmt.Errorf("could not extract JSON from completion"))
	}

	var p meeting.Protocol
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, errors.NewGenerationFailed(fmt.Errorf("parsing protocol JSON: %w", err))
	}
	if p.Title == "" || p.Summary == "" {
		return nil, errors.NewGenerationFailed(fmt.Errorf("completion missing title or summary"))
	}

	return &p, nil
}

func (g *Generator) client() *http.Client {
	if g.Client != nil {
		return g.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}
