package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mindsphere/mindsphere/internal/config"
	"github.com/mindsphere/mindsphere/internal/lifecycle"
	"github.com/mindsphere/mindsphere/internal/llm"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/script"
	"github.com/mindsphere/mindsphere/internal/store"
	"github.com/mindsphere/mindsphere/internal/tts"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.InMemoryStore) {
	t.Helper()

	st := store.NewInMemoryStore()
	client := llm.NewMockClient()
	blobDir := t.TempDir()
	blobs, err := store.NewDiskBlobStore(blobDir, "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewDiskBlobStore() error = %v", err)
	}

	svc := lifecycle.NewService(lifecycle.Options{
		Store:     st,
		Blobs:     blobs,
		Resolver:  personalization.NewResolver(client, st),
		Generator: script.NewGenerator(client),
		Synth:     tts.NewMockSynthesizer(),
	})

	cfg := config.Config{BlobDir: blobDir}
	srv := httptest.NewServer(New(cfg, svc, st, client, nil).Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, user, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp, decoded
}

const createBody = `{"type":"meditation","mood":"anxious","duration":3,"notes":"busy week"}`

func TestCreateRequiresUser(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/session/create", "", createBody)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %v", resp.StatusCode, body)
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/session/create", "u1",
		`{"type":"nap","mood":"tired","duration":3}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %v", resp.StatusCode, body)
	}
	if body["code"] != "invalid_request" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestTwoPhaseFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, created := doJSON(t, http.MethodPost, srv.URL+"/v1/session/create", "u1", createBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %v", resp.StatusCode, created)
	}
	if created["status"] != "created" {
		t.Fatalf("status = %v, want created", created["status"])
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("no session id in response: %v", created)
	}

	resp, scripted := doJSON(t, http.MethodPost, srv.URL+"/v1/session/"+id+"/generate-script", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("script status = %d: %v", resp.StatusCode, scripted)
	}
	if scripted["status"] != "script_generated" {
		t.Fatalf("status = %v, want script_generated", scripted["status"])
	}
	if s, _ := scripted["script"].(string); !strings.Contains(s, "<speak>") {
		t.Fatalf("script not returned: %v", scripted["script"])
	}

	resp, audio := doJSON(t, http.MethodPost, srv.URL+"/v1/session/"+id+"/generate-audio", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audio status = %d: %v", resp.StatusCode, audio)
	}
	if audio["status"] != "audio_generated" {
		t.Fatalf("status = %v, want audio_generated", audio["status"])
	}
	if u, _ := audio["audio_url"].(string); !strings.Contains(u, "/v1/audio/") {
		t.Fatalf("audio_url = %v", audio["audio_url"])
	}

	resp, got := doJSON(t, http.MethodGet, srv.URL+"/v1/session/"+id, "u1", "")
	if resp.StatusCode != http.StatusOK || got["status"] != "audio_generated" {
		t.Fatalf("get status = %d body = %v", resp.StatusCode, got)
	}

	resp, list := doJSON(t, http.MethodGet, srv.URL+"/v1/sessions", "u1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d: %v", resp.StatusCode, list)
	}
	sessions, _ := list["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %v, want 1", list["sessions"])
	}
}

func TestAudioBeforeScriptConflicts(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := doJSON(t, http.MethodPost, srv.URL+"/v1/session/create", "u1", createBody)
	id, _ := created["id"].(string)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/session/"+id+"/generate-audio", "u1", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %v", resp.StatusCode, body)
	}
	if body["code"] != "precondition_failed" {
		t.Fatalf("code = %v", body["code"])
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/session/nope", "u1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %v", resp.StatusCode, body)
	}
}

func TestStartIdempotencyHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	req1, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/session/start", strings.NewReader(createBody))
	req1.Header.Set("X-User-ID", "u1")
	req1.Header.Set("X-Idempotency-Key", "abc")
	resp1, err := http.DefaultClient.Do(req1)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	var first map[string]any
	json.NewDecoder(resp1.Body).Decode(&first)
	resp1.Body.Close()
	if resp1.StatusCode != http.StatusOK || first["status"] != "audio_generated" {
		t.Fatalf("first start = %d %v", resp1.StatusCode, first)
	}

	req2, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/session/start", strings.NewReader(createBody))
	req2.Header.Set("X-User-ID", "u1")
	req2.Header.Set("X-Idempotency-Key", "abc")
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	var second map[string]any
	json.NewDecoder(resp2.Body).Decode(&second)
	resp2.Body.Close()

	if second["id"] != first["id"] {
		t.Fatalf("duplicate submission created a new session: %v vs %v", second["id"], first["id"])
	}
}

func TestSaveSnippetFeedsPersonalization(t *testing.T) {
	srv, st := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/snippets", "u1",
		`{"content":"felt calmer after the evening walk"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/memories", "u1",
		`{"content":"keeps a small garden","category":"hobby","importance":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}

	// The stored rows are visible to the same similarity search the
	// resolver runs.
	client := llm.NewMockClient()
	vec, _ := client.Embed(context.Background(), "felt calmer after the evening walk")
	snippets, err := st.SearchSnippets(context.Background(), "u1", vec, 5, 0.1)
	if err != nil || len(snippets) != 1 {
		t.Fatalf("SearchSnippets() = %v, %v", snippets, err)
	}
}

func TestSnippetRequiresContent(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/snippets", "u1", `{"content":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %v", resp.StatusCode, body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", path, resp.StatusCode)
		}
	}
}
