package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mindsphere/mindsphere/internal/llm"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/script"
	"github.com/mindsphere/mindsphere/internal/store"
	"github.com/mindsphere/mindsphere/internal/tts"
)

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{data: make(map[string][]byte)} }

func (b *memBlobs) Put(_ context.Context, key string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = data
	return "blob://" + key, nil
}

type fixture struct {
	svc   *Service
	store *store.InMemoryStore
	llm   *llm.MockClient
	synth *tts.MockSynthesizer
	blobs *memBlobs
}

func newFixture(opts ...func(*Options)) *fixture {
	st := store.NewInMemoryStore()
	client := llm.NewMockClient()
	synth := tts.NewMockSynthesizer()
	blobs := newMemBlobs()

	o := Options{
		Store:     st,
		Blobs:     blobs,
		Resolver:  personalization.NewResolver(client, st),
		Generator: script.NewGenerator(client),
		Synth:     synth,
	}
	for _, fn := range opts {
		fn(&o)
	}

	return &fixture{svc: NewService(o), store: st, llm: client, synth: synth, blobs: blobs}
}

func createReq() CreateRequest {
	return CreateRequest{UserID: "u1", Kind: "meditation", Mood: "anxious", DurationMinutes: 3}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*CreateRequest)
	}{
		{"missing user", func(r *CreateRequest) { r.UserID = "" }},
		{"missing mood", func(r *CreateRequest) { r.Mood = "" }},
		{"unknown kind", func(r *CreateRequest) { r.Kind = "nap" }},
		{"zero duration", func(r *CreateRequest) { r.DurationMinutes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createReq()
			tc.mut(&req)
			if _, err := f.svc.Create(ctx, req); !errors.Is(err, ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTwoPhaseHappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.svc.Create(ctx, createReq())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Status() != store.StatusCreated {
		t.Fatalf("status = %q, want created", sess.Status())
	}
	if sess.SessionName == "" {
		t.Fatalf("session name not set")
	}

	sess, err = f.svc.GenerateScript(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	if sess.Status() != store.StatusScriptGenerated {
		t.Fatalf("status = %q, want script_generated", sess.Status())
	}

	sess, err = f.svc.GenerateAudio(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}
	if sess.Status() != store.StatusAudioGenerated {
		t.Fatalf("status = %q, want audio_generated", sess.Status())
	}
	if sess.AudioURL != "blob://"+sess.ID+".mp3" {
		t.Fatalf("audio url = %q", sess.AudioURL)
	}
	if sess.DurationSec < 30 {
		t.Fatalf("duration = %d, want at least the 30s floor", sess.DurationSec)
	}
	if f.synth.Calls() != 1 {
		t.Fatalf("synth calls = %d, want 1 for a single-shot session", f.synth.Calls())
	}
}

func TestScriptFailureLeavesSessionCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.llm.CompleteFn = func(_ context.Context, req llm.CompletionRequest) (string, error) {
		if req.MaxTokens <= 64 {
			return "Name", nil
		}
		return "no markup at all, just prose", nil
	}

	sess, err := f.svc.Create(ctx, createReq())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.GenerateScript(ctx, sess.ID); !errors.Is(err, ErrGeneration) {
		t.Fatalf("GenerateScript() error = %v, want ErrGeneration", err)
	}

	got, err := f.store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Status() != store.StatusCreated || got.Script != "" {
		t.Fatalf("failed phase must not persist markup: %+v", got)
	}
}

func TestAudioRequiresScript(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.svc.Create(ctx, createReq())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.GenerateAudio(ctx, sess.ID); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("GenerateAudio() error = %v, want ErrPrecondition", err)
	}
	if f.synth.Calls() != 0 {
		t.Fatalf("synth calls = %d, want 0 before script phase", f.synth.Calls())
	}
}

func TestGenerateScriptIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.svc.Create(ctx, createReq())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	first, err := f.svc.GenerateScript(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	completions := f.llm.Completions()

	second, err := f.svc.GenerateScript(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second GenerateScript() error = %v", err)
	}
	if second.Script != first.Script {
		t.Fatalf("idempotent call changed the stored script")
	}
	if f.llm.Completions() != completions {
		t.Fatalf("idempotent call made %d extra completions", f.llm.Completions()-completions)
	}
}

func TestGenerateAudioIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	sess, err := f.svc.Create(ctx, createReq())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.GenerateScript(ctx, sess.ID); err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	first, err := f.svc.GenerateAudio(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}

	second, err := f.svc.GenerateAudio(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second GenerateAudio() error = %v", err)
	}
	if second.AudioURL != first.AudioURL || second.DurationSec != first.DurationSec {
		t.Fatalf("idempotent call changed the artifact: %+v vs %+v", first, second)
	}
	if f.synth.Calls() != 1 {
		t.Fatalf("synth calls = %d, want 1", f.synth.Calls())
	}
}

func TestBatchedAudioStitchOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	var mu sync.Mutex
	n := 0
	f.synth.SynthesizeFn = func(_ context.Context, _ tts.SynthesisInput) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return []byte(fmt.Sprintf("[%d]", n)), nil
	}

	req := CreateRequest{UserID: "u1", Kind: "sleep_story", Mood: "restless", DurationMinutes: 20}
	sess, err := f.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.GenerateScript(ctx, sess.ID); err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	if _, err := f.svc.GenerateAudio(ctx, sess.ID); err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}

	got := string(f.blobs.data[sess.ID+".mp3"])
	if got != "[1][2][3][4]" {
		t.Fatalf("stitched artifact = %q, want batches in order", got)
	}
}

func TestStartIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Start(ctx, createReq(), "key-1")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	synthCalls := f.synth.Calls()
	completions := f.llm.Completions()

	second, err := f.svc.Start(ctx, createReq(), "key-1")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate submission created a new session: %s vs %s", second.ID, first.ID)
	}
	if f.synth.Calls() != synthCalls || f.llm.Completions() != completions {
		t.Fatalf("duplicate submission reached providers")
	}

	third, err := f.svc.Start(ctx, createReq(), "key-2")
	if err != nil {
		t.Fatalf("Start() with new key error = %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("distinct keys must not share results")
	}
}

func TestStartSynthesisTimeout(t *testing.T) {
	f := newFixture()
	f.svc.synthesisTimeout = 30 * time.Millisecond
	f.synth.SynthesizeFn = func(ctx context.Context, _ tts.SynthesisInput) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if _, err := f.svc.Start(context.Background(), createReq(), ""); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Start() error = %v, want ErrTimeout", err)
	}
}

func TestSessionsRequiresUser(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Sessions(context.Background(), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("Sessions() error = %v, want ErrValidation", err)
	}
}

func TestSessionNotFound(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Session(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Session() error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.GenerateScript(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GenerateScript() error = %v, want ErrNotFound", err)
	}
}
