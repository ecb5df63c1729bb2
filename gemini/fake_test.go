package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/genai"
)

// fakeGen answers GenerateContent from memory.
type fakeGen struct {
	resp *genai.GenerateContentResponse
	err  error

	mu      sync.Mutex
	calls   int
	model   string
	cfg     *genai.GenerateContentConfig
	content []*genai.Content
}

func (f *fakeGen) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	f.calls++
	f.model, f.cfg, f.content = model, cfg, contents
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.resp, f.err
}

func (f *fakeGen) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func partsResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

// fakeServer is a stand-in for the generateContent endpoint. body is the
// JSON response; every request is captured.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []map[string]any
	keys     []string
}

func newFakeServer(t *testing.T, status int, body string) *fakeServer {
	t.Helper()
	fs := &fakeServer{status: status, body: body}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		var req map[string]any
		json.Unmarshal(raw, &req)

		fs.mu.Lock()
		fs.requests = append(fs.requests, req)
		fs.keys = append(fs.keys, r.Header.Get("x-goog-api-key"))
		status, body := fs.status, fs.body
		fs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		APIKey:         "test-key",
		BaseURL:        fs.URL,
		AnalysisModel:  "analysis-model",
		SynthesisModel: "speech-model",
		Voice:          "Kore",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func (fs *fakeServer) lastRequest(t *testing.T) map[string]any {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) == 0 {
		t.Fatal("no request reached the server")
	}
	return fs.requests[len(fs.requests)-1]
}

func (fs *fakeServer) key(i int) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if i >= len(fs.keys) {
		return ""
	}
	return fs.keys[i]
}
