// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package companion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/companion-tui/internal/model"
)

func TestSendStreamingScenario(t *testing.T) {
	// One full exchange: empty history, four frames, stream close.
	var gotVisitor string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/companion" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotVisitor = r.Header.Get("X-Visitor-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		frames := []string{
			`data: {"debug":{"step":"keywordsAndExpansion"}}`,
			`data: {"content":"Wenezuela"}`,
			`data: {"content":" ma nowe"}`,
			`data: {"sources":[{"id":"e1","title":"Wybory"}],"remaining":19}`,
		}
		for _, f := range frames {
			w.Write([]byte(f + "\n\n"))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "v1", "pl")
	resp, err := client.Send(context.Background(), "Co się stało w Wenezueli?", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !resp.Streaming {
		t.Fatalf("expected streaming response")
	}
	defer resp.Body.Close()

	acc := NewAccumulator()
	if err := ReadStream(context.Background(), resp.Body, acc.Fold); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	if gotVisitor != "v1" {
		t.Errorf("visitor header %q", gotVisitor)
	}
	if gotBody.Message != "Co się stało w Wenezueli?" || gotBody.Language != "pl" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
	if len(gotBody.History) != 0 {
		t.Errorf("expected empty history, got %+v", gotBody.History)
	}
	if acc.Content() != "Wenezuela ma nowe" {
		t.Errorf("content %q", acc.Content())
	}
	if len(acc.Sources) != 1 || acc.Sources[0].ID != "e1" {
		t.Errorf("sources %+v", acc.Sources)
	}
	if acc.Remaining != 19 {
		t.Errorf("remaining %d", acc.Remaining)
	}
	if len(acc.Debug) != 1 || acc.Debug[0].Step != model.StageKeywords {
		t.Errorf("debug %+v", acc.Debug)
	}
}

func TestSendFallbackResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content":   "gotowa odpowiedź",
			"remaining": 3,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "v1", "pl")
	resp, err := client.Send(context.Background(), "pytanie", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Streaming || resp.Fallback == nil {
		t.Fatalf("expected fallback response: %+v", resp)
	}
	if resp.Fallback.Content != "gotowa odpowiedź" {
		t.Errorf("content %q", resp.Fallback.Content)
	}
	if resp.Fallback.Remaining == nil || *resp.Fallback.Remaining != 3 {
		t.Errorf("remaining %+v", resp.Fallback.Remaining)
	}
}

func TestSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"limit zapytań wyczerpany"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "v1", "pl")
	_, err := client.Send(context.Background(), "pytanie", nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "limit zapytań wyczerpany" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companion/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Visitor-Id") != "v_status" {
			t.Errorf("missing visitor header")
		}
		json.NewEncoder(w).Encode(StatusInfo{Remaining: 12, Limit: 20})
	}))
	defer server.Close()

	client := NewClient(server.URL, "v_status", "en")
	info, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if info.Remaining != 12 || info.Limit != 20 || info.Authenticated {
		t.Errorf("unexpected status: %+v", info)
	}
}

func TestSuggestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assistant/suggestions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "de" {
			t.Errorf("language query %q", got)
		}
		json.NewEncoder(w).Encode(map[string][]string{
			"suggestions": {"Was ist passiert?", "Warum?"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "v1", "de-AT")
	got, err := client.Suggestions(context.Background())
	if err != nil {
		t.Fatalf("Suggestions failed: %v", err)
	}
	if len(got) != 2 || got[0] != "Was ist passiert?" {
		t.Errorf("unexpected suggestions: %v", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"pl":     "pl",
		"pl-PL":  "pl",
		"en":     "en",
		"en-US":  "en",
		"de-AT":  "de",
		"fr":     "pl",
		"":       "pl",
		"nonsen": "pl",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
