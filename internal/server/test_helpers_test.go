package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"tale-weaver/internal/config"
)

type fakeNarrator struct {
	mu       sync.Mutex
	calls    int
	failures int
	complete bool
	lastReq  AdvanceRequest
}

func (f *fakeNarrator) Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("%w: injected failure", ErrNarrator)
	}
	story := "The companions press on into the dark."
	if req.Opening {
		story = "The tavern door creaks open."
	}
	return &AdvanceResult{
		Story:    story,
		Summary:  "A short summary of the scene.",
		Options:  []string{"Open the iron door.", "Listen at the wall.", "Retreat quietly."},
		Complete: f.complete,
	}, nil
}

func (f *fakeNarrator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestConfig() config.Config {
	cfg := config.Default()
	cfg.AllowedOrigins = nil
	return cfg
}

func newTestServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func createLobby(t *testing.T, ts *httptest.Server, name string) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies", map[string]string{
		"display_name": name,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["lobby_code"].(string), body["member_id"].(string)
}

func joinMember(t *testing.T, ts *httptest.Server, code, name string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/join", map[string]string{
		"display_name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["member_id"].(string)
}

func setReady(t *testing.T, ts *httptest.Server, code, memberID string, ready bool) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/ready", map[string]any{
		"member_id": memberID,
		"ready":     ready,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func startGame(t *testing.T, ts *httptest.Server, code, memberID string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": memberID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, code string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/lobbies/"+code, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["lobby"].(map[string]any)
}

// firstOption digs a member's first offered option out of the latest
// collaborative message in a snapshot payload.
func firstOption(t *testing.T, snapshot map[string]any, memberID string) string {
	t.Helper()
	messages := snapshot["messages"].([]any)
	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i].(map[string]any)
		if message["kind"] != messageKindCollaborative {
			continue
		}
		options := message["member_options"].(map[string]any)
		list, ok := options[memberID].([]any)
		if !ok || len(list) == 0 {
			t.Fatalf("no options for member %s", memberID)
		}
		return list[0].(string)
	}
	t.Fatalf("no collaborative message in snapshot")
	return ""
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
