package perspective_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neighborly/moderation/internal/domain"
	"github.com/neighborly/moderation/internal/perspective"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestClient(serverURL string) *perspective.Client {
	return perspective.NewClient(perspective.Config{
		Endpoint:    serverURL,
		APIKey:      "test-key",
		MinInterval: time.Millisecond,
		Timeout:     time.Second,
	}, nopLogger{})
}

func TestClient_Score_ParsesAttributeScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"attributeScores": map[string]any{
				"TOXICITY":  map[string]any{"summaryScore": map[string]any{"value": 0.82}},
				"INSULT":    map[string]any{"summaryScore": map[string]any{"value": 0.41}},
				"PROFANITY": map[string]any{"summaryScore": map[string]any{"value": 0.12}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	scores := client.Score(context.Background(), "some text")

	if got := scores.Get(domain.AttributeToxicity); got != 0.82 {
		t.Errorf("TOXICITY = %v, want 0.82", got)
	}
	if got := scores.Get(domain.AttributeInsult); got != 0.41 {
		t.Errorf("INSULT = %v, want 0.41", got)
	}
	// Attributes the service omitted come back as zero, not missing.
	if got := scores.Get(domain.AttributeThreat); got != 0 {
		t.Errorf("THREAT = %v, want 0", got)
	}
	if got := scores.Get(domain.AttributeIdentityAttack); got != 0 {
		t.Errorf("IDENTITY_ATTACK = %v, want 0", got)
	}
}

func TestClient_Score_RequestShape(t *testing.T) {
	var gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"attributeScores":{}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.Score(context.Background(), "check me")

	if gotKey != "test-key" {
		t.Errorf("key query parameter = %q, want test-key", gotKey)
	}

	comment, ok := gotBody["comment"].(map[string]any)
	if !ok || comment["text"] != "check me" {
		t.Errorf("comment.text = %v, want %q", gotBody["comment"], "check me")
	}

	attrs, ok := gotBody["requestedAttributes"].(map[string]any)
	if !ok {
		t.Fatalf("requestedAttributes missing from body: %v", gotBody)
	}
	for _, attr := range domain.AttributePriority {
		if _, present := attrs[string(attr)]; !present {
			t.Errorf("requestedAttributes missing %s", attr)
		}
	}

	langs, ok := gotBody["languages"].([]any)
	if !ok || len(langs) == 0 {
		t.Errorf("languages = %v, want a non-empty list", gotBody["languages"])
	}
}

func TestClient_Score_DegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	scores := client.Score(context.Background(), "anything")

	for _, attr := range domain.AttributePriority {
		if got := scores.Get(attr); got != 0 {
			t.Errorf("%s = %v, want 0 after degraded call", attr, got)
		}
	}
}

func TestClient_Score_DegradesOnUnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	scores := client.Score(context.Background(), "anything")

	if got := scores.Max(); got != 0 {
		t.Errorf("Max() = %v, want 0 after unreachable service", got)
	}
}

func TestClient_Score_NoKeyOmitsQueryParameter(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"attributeScores":{}}`))
	}))
	defer server.Close()

	client := perspective.NewClient(perspective.Config{
		Endpoint:    server.URL,
		MinInterval: time.Millisecond,
		Timeout:     time.Second,
	}, nopLogger{})
	client.Score(context.Background(), "text")

	if rawQuery != "" {
		t.Errorf("query = %q, want empty when no key is configured", rawQuery)
	}
}
