// Package script turns one planned batch into a validated markup
// document via the generative text service.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindsphere/mindsphere/internal/llm"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/plan"
	"github.com/mindsphere/mindsphere/internal/ssml"
)

const (
	contentTemperature = 0.7
	nameTemperature    = 0.8
	nameMaxTokens      = 50
	maxOutputTokens    = 8000
)

// BatchRequest carries everything one generation call needs.
type BatchRequest struct {
	Batch    plan.Batch
	Kind     plan.Kind
	Mood     string
	Notes    string
	UserName string
	Context  personalization.Context
}

// Generator invokes the generative language service once per batch and
// owns structural validation of the result. There is no regeneration on
// validation failure: the caller treats any error as fatal for the
// script phase.
type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// GenerateBatch produces one validated document for a planned batch.
func (g *Generator) GenerateBatch(ctx context.Context, req BatchRequest) (ssml.Document, error) {
	system := systemPromptMeditation
	if req.Kind == plan.KindSleepStory {
		system = systemPromptSleepStory
	}

	maxTokens := req.Batch.TargetWords * 3
	if maxTokens > maxOutputTokens {
		maxTokens = maxOutputTokens
	}

	raw, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      system,
		User:        batchPrompt(req),
		MaxTokens:   maxTokens,
		Temperature: contentTemperature,
	})
	if err != nil {
		return ssml.Document{}, fmt.Errorf("batch %d/%d generation: %w", req.Batch.Index, req.Batch.Total, err)
	}

	doc, err := ssml.Normalize(raw)
	if err != nil {
		return ssml.Document{}, fmt.Errorf("batch %d/%d: %w", req.Batch.Index, req.Batch.Total, err)
	}
	if size := doc.ByteSize(); size > ssml.BatchByteLimit {
		return ssml.Document{}, fmt.Errorf("batch %d/%d: %w: %d bytes", req.Batch.Index, req.Batch.Total, ssml.ErrTooLarge, size)
	}
	return doc, nil
}

func batchPrompt(req BatchRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a personalized %s as SSML for Google TTS Studio voices.\n\n", req.Kind)
	fmt.Fprintf(&b, "DURATION (minutes): %d\n", req.Batch.DurationMinutes)
	fmt.Fprintf(&b, "TARGET WORDS: Approximately %d words (for %d minute duration)\n", req.Batch.TargetWords, req.Batch.DurationMinutes)
	fmt.Fprintf(&b, "MOOD: %s\n", req.Mood)
	fmt.Fprintf(&b, "NOTES: %s%s\n", req.Notes, req.Context.PromptText())
	fmt.Fprintf(&b, "NAME: %s\n", req.UserName)

	if req.Batch.Total > 1 {
		fmt.Fprintf(&b, "\nBATCH INFO:\n- This is batch %d of %d\n", req.Batch.Index, req.Batch.Total)
		if req.Batch.IsLast {
			b.WriteString("- This is the FINAL batch - provide a proper conclusion\n")
		} else {
			b.WriteString("- This is a CONTINUATION batch - focus on content flow\n")
		}
	}

	b.WriteString("\nCRITICAL PERSONALIZATION INSTRUCTIONS:\n")
	b.WriteString("- MUST reference specific details from the user's long-term memories and recent thoughts\n")
	b.WriteString("- MUST incorporate their professional context, personal goals, and emotional state\n")
	b.WriteString("- MUST use their memories to shape themes, imagery, and guidance\n")
	b.WriteString("- The content should feel like it was written specifically for this person\n")

	return b.String()
}

// NameRequest parameterizes the short auxiliary name generation call.
type NameRequest struct {
	Kind            plan.Kind
	Mood            string
	DurationMinutes int
	Notes           string
	UserName        string
	Context         personalization.Context
}

// SessionName generates a short display name. Name generation is
// best-effort: on any failure it falls back to a templated name.
func (g *Generator) SessionName(ctx context.Context, req NameRequest) string {
	user := fmt.Sprintf(
		"Create a personalized session name for:\nTYPE: %s\nMOOD: %s\nDURATION: %d minutes\nNOTES: %s\nUSER: %s\nPersonalization Context: %s",
		req.Kind, req.Mood, req.DurationMinutes, orNone(req.Notes), req.UserName, req.Context.PromptText(),
	)

	name, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      systemPromptSessionName,
		User:        user,
		MaxTokens:   nameMaxTokens,
		Temperature: nameTemperature,
	})
	if err != nil {
		return fallbackName(req.Kind, req.Mood)
	}

	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return fallbackName(req.Kind, req.Mood)
	}
	return name
}

func fallbackName(kind plan.Kind, mood string) string {
	return fmt.Sprintf("%s for %s moments", strings.ReplaceAll(string(kind), "_", " "), mood)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
