package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mindsphere/mindsphere/internal/llm"
	"github.com/mindsphere/mindsphere/internal/plan"
	"github.com/mindsphere/mindsphere/internal/ssml"
)

func batchReq(kind plan.Kind) BatchRequest {
	return BatchRequest{
		Batch:    plan.Batch{Index: 1, Total: 2, DurationMinutes: 5, TargetWords: 500},
		Kind:     kind,
		Mood:     "anxious",
		Notes:    "long day at work",
		UserName: "Sam",
	}
}

func TestGenerateBatchValidDocument(t *testing.T) {
	mock := llm.NewMockClient()
	var gotSystem, gotUser string
	mock.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (string, error) {
		gotSystem = req.System
		gotUser = req.User
		return "```xml\nnoise\n```\n<speak><prosody rate=\"x-slow\"><p><s>Hi Sam, settle in.</s></p></prosody></speak>", nil
	}

	doc, err := NewGenerator(mock).GenerateBatch(context.Background(), batchReq(plan.KindMeditation))
	if err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if doc.WordCount() == 0 {
		t.Fatalf("document has no words")
	}
	if !strings.Contains(gotSystem, "meditation scripts") {
		t.Fatalf("meditation request used wrong system prompt")
	}
	for _, want := range []string{"TARGET WORDS: Approximately 500", "MOOD: anxious", "batch 1 of 2", "CONTINUATION"} {
		if !strings.Contains(gotUser, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, gotUser)
		}
	}
}

func TestGenerateBatchSelectsSleepStoryPrompt(t *testing.T) {
	mock := llm.NewMockClient()
	var gotSystem string
	mock.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (string, error) {
		gotSystem = req.System
		return `<speak><prosody rate="x-slow"><p><s>Once upon a quiet night.</s></p></prosody></speak>`, nil
	}

	req := batchReq(plan.KindSleepStory)
	req.Batch.IsLast = true
	if _, err := NewGenerator(mock).GenerateBatch(context.Background(), req); err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if !strings.Contains(gotSystem, "bedtime stories") {
		t.Fatalf("sleep story request used wrong system prompt")
	}
}

func TestGenerateBatchMissingRootIsFatal(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFn = func(_ context.Context, _ llm.CompletionRequest) (string, error) {
		return "Here is your meditation: take a deep breath.", nil
	}

	_, err := NewGenerator(mock).GenerateBatch(context.Background(), batchReq(plan.KindMeditation))
	if !errors.Is(err, ssml.ErrNoRoot) {
		t.Fatalf("GenerateBatch() error = %v, want ErrNoRoot", err)
	}
	if mock.Completions() != 1 {
		t.Fatalf("completions = %d, want exactly 1 (no retry)", mock.Completions())
	}
}

func TestGenerateBatchMissingProsodyIsFatal(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFn = func(_ context.Context, _ llm.CompletionRequest) (string, error) {
		return `<speak><p><s>Bare paragraph.</s></p></speak>`, nil
	}

	_, err := NewGenerator(mock).GenerateBatch(context.Background(), batchReq(plan.KindMeditation))
	if !errors.Is(err, ssml.ErrNoProsody) {
		t.Fatalf("GenerateBatch() error = %v, want ErrNoProsody", err)
	}
}

func TestGenerateBatchOverBatchCeiling(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFn = func(_ context.Context, _ llm.CompletionRequest) (string, error) {
		filler := strings.Repeat("<s>A slow and weightless drift toward rest.</s>", 110)
		return `<speak><prosody rate="x-slow"><p>` + filler + `</p></prosody></speak>`, nil
	}

	_, err := NewGenerator(mock).GenerateBatch(context.Background(), batchReq(plan.KindMeditation))
	if !errors.Is(err, ssml.ErrTooLarge) {
		t.Fatalf("GenerateBatch() error = %v, want ErrTooLarge", err)
	}
}

func TestGenerateBatchCapsMaxTokens(t *testing.T) {
	mock := llm.NewMockClient()
	var gotMax int
	mock.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (string, error) {
		gotMax = req.MaxTokens
		return `<speak><prosody rate="x-slow"><p><s>ok.</s></p></prosody></speak>`, nil
	}

	req := batchReq(plan.KindSleepStory)
	req.Batch.TargetWords = 5000
	if _, err := NewGenerator(mock).GenerateBatch(context.Background(), req); err != nil {
		t.Fatalf("GenerateBatch() error = %v", err)
	}
	if gotMax != maxOutputTokens {
		t.Fatalf("MaxTokens = %d, want cap %d", gotMax, maxOutputTokens)
	}
}

func TestSessionNameTrimsQuotes(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (string, error) {
		if req.Temperature != nameTemperature {
			t.Fatalf("Temperature = %v, want %v", req.Temperature, nameTemperature)
		}
		return "\"Moonlit Garden of Quiet Thoughts\"\n", nil
	}

	name := NewGenerator(mock).SessionName(context.Background(), NameRequest{Kind: plan.KindSleepStory, Mood: "tired", DurationMinutes: 10})
	if name != "Moonlit Garden of Quiet Thoughts" {
		t.Fatalf("SessionName() = %q", name)
	}
}

func TestSessionNameFallsBack(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFn = func(_ context.Context, _ llm.CompletionRequest) (string, error) {
		return "", errors.New("provider down")
	}

	name := NewGenerator(mock).SessionName(context.Background(), NameRequest{Kind: plan.KindSleepStory, Mood: "restless", DurationMinutes: 10})
	if name != "sleep story for restless moments" {
		t.Fatalf("SessionName() fallback = %q", name)
	}
}
