// Package advisory produces the optional free-text note attached to a
// compensation record for staff reviewers. Notes are opaque annotations: the
// engine never branches on them and a failing advisor never blocks issuance.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tbourn/go-delay-guarantee/internal/domain"
)

// MaxNoteRunes bounds the stored note length.
const MaxNoteRunes = 600

// Request carries what a reviewer would want summarised.
type Request struct {
	Assessment     domain.DelayAssessment
	Terms          domain.Compensation
	DiscountAmount float64
	Currency       string
}

// Advisor returns an advisory note for a pending compensation.
type Advisor interface {
	Note(ctx context.Context, req Request) (string, error)
}

// NopAdvisor returns no note.
type NopAdvisor struct{}

// Note implements Advisor.
func (NopAdvisor) Note(context.Context, Request) (string, error) { return "", nil }

// GeminiAdvisor asks a Gemini model for a short reviewer note.
type GeminiAdvisor struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGeminiAdvisor creates a client for modelName using apiKey.
func NewGeminiAdvisor(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*GeminiAdvisor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.SetMaxOutputTokens(200)
	return &GeminiAdvisor{client: client, model: model, timeout: timeout}, nil
}

// Note implements Advisor.
func (g *GeminiAdvisor) Note(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(Prompt(req)))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return Clip(sb.String()), nil
}

// Close releases the underlying client.
func (g *GeminiAdvisor) Close() error {
	return g.client.Close()
}

// Prompt renders the reviewer-note prompt for req.
func Prompt(req Request) string {
	a := req.Assessment
	var b strings.Builder
	b.WriteString("You assist staff reviewing proactive compensation for possibly late transfers.\n")
	b.WriteString("Write two short sentences: whether the compensation looks proportionate, and anything the reviewer should double-check.\n")
	fmt.Fprintf(&b, "Route: %s to %s, %.1f km, %.0f minutes.\n", orUnknown(a.Route.Origin), orUnknown(a.Route.Destination), a.Route.DistanceKm, a.Route.DurationMinutes)
	fmt.Fprintf(&b, "Delay risk score: %d/100 (%s tier); estimated delay: %d minutes.\n", a.Score, a.Tier, a.EstimatedDelayMinutes)
	switch req.Terms.Kind {
	case domain.KindPercentage:
		fmt.Fprintf(&b, "Proposed compensation: %.0f%% discount", req.Terms.Value)
	case domain.KindFixed:
		fmt.Fprintf(&b, "Proposed compensation: fixed %.2f discount", req.Terms.Value)
	}
	fmt.Fprintf(&b, " worth %.2f %s.\n", req.DiscountAmount, req.Currency)
	return b.String()
}

// Clip trims s and bounds it to MaxNoteRunes.
func Clip(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxNoteRunes {
		return s
	}
	return string([]rune(s)[:MaxNoteRunes])
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
