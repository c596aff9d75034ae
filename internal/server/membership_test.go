package server

import (
	"net/http"
	"testing"
)

func TestCreateLobbyRequiresName(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies", map[string]string{
		"display_name": "   ",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestCreateLobbyCodeFormat(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, _ := createLobby(t, ts, "Ada")
	if len(code) != lobbyCodeLength {
		t.Fatalf("expected %d-char code, got %q", lobbyCodeLength, code)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			t.Fatalf("unexpected character %q in code %q", r, code)
		}
	}
}

func TestGetLobbyCaseInsensitive(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, _ := createLobby(t, ts, "Ada")
	lower := ""
	for _, r := range code {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		lower += string(r)
	}
	resp := doRequest(t, ts, http.MethodGet, "/api/lobbies/"+lower, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestGetLobbyNotFound(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	resp := doRequest(t, ts, http.MethodGet, "/api/lobbies/ZZZZZZZZ", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestJoinLobbyFull(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, _ := createLobby(t, ts, "Ada")
	joinMember(t, ts, code, "Ben")
	joinMember(t, ts, code, "Cal")

	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/join", map[string]string{
		"display_name": "Dee",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	benID := joinMember(t, ts, code, "Ben")
	setReady(t, ts, code, hostID, true)
	setReady(t, ts, code, benID, true)
	startGame(t, ts, code, hostID)

	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/join", map[string]string{
		"display_name": "Cal",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestSetReadyIdempotent(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	setReady(t, ts, code, hostID, true)
	setReady(t, ts, code, hostID, true)

	snapshot := fetchSnapshot(t, ts, code)
	members := snapshot["members"].([]any)
	member := members[0].(map[string]any)
	if member["ready"] != true {
		t.Fatalf("expected member ready, got %#v", member["ready"])
	}
}

func TestSetReadyUnknownMember(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, _ := createLobby(t, ts, "Ada")
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/ready", map[string]any{
		"member_id": "not-a-member",
		"ready":     true,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestStartPreconditions(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")

	// Alone in the lobby.
	setReady(t, ts, code, hostID, true)
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	// Second member not ready yet.
	benID := joinMember(t, ts, code, "Ben")
	resp = doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	// Non-host cannot start.
	setReady(t, ts, code, benID, true)
	resp = doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": benID,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}

	// Failed attempts mutated nothing.
	snapshot := fetchSnapshot(t, ts, code)
	if snapshot["status"] != statusWaiting {
		t.Fatalf("expected status waiting, got %v", snapshot["status"])
	}
	if snapshot["current_round"] != float64(0) {
		t.Fatalf("expected round 0, got %v", snapshot["current_round"])
	}

	startGame(t, ts, code, hostID)
	snapshot = fetchSnapshot(t, ts, code)
	if snapshot["status"] != statusPlaying {
		t.Fatalf("expected status playing, got %v", snapshot["status"])
	}
	if snapshot["current_round"] != float64(1) {
		t.Fatalf("expected round 1, got %v", snapshot["current_round"])
	}

	// Starting twice is rejected.
	resp = doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestStartClearsReadyAndAssignsOptions(t *testing.T) {
	narrator := &fakeNarrator{}
	srv := New(newTestConfig(), narrator)
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	benID := joinMember(t, ts, code, "Ben")
	setReady(t, ts, code, hostID, true)
	setReady(t, ts, code, benID, true)
	startGame(t, ts, code, hostID)

	snapshot := fetchSnapshot(t, ts, code)
	if snapshot["events_remaining"] != float64(newTestConfig().StartingEvents) {
		t.Fatalf("opening advance must not consume an event, got %v", snapshot["events_remaining"])
	}
	for _, raw := range snapshot["members"].([]any) {
		member := raw.(map[string]any)
		if member["ready"] != false {
			t.Fatalf("expected ready reset after start, got %#v", member)
		}
	}
	hostOptions := firstOption(t, snapshot, hostID)
	benOptions := firstOption(t, snapshot, benID)
	if hostOptions == "" || benOptions == "" {
		t.Fatalf("expected options for both members")
	}
	if hostOptions == benOptions {
		t.Fatalf("expected distinct option sets, both got %q", hostOptions)
	}
	if narrator.callCount() != 1 {
		t.Fatalf("expected exactly one opening advance, got %d", narrator.callCount())
	}
}

func TestStartFailureLeavesLobbyUntouched(t *testing.T) {
	narrator := &fakeNarrator{failures: 1}
	srv := New(newTestConfig(), narrator)
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	benID := joinMember(t, ts, code, "Ben")
	setReady(t, ts, code, hostID, true)
	setReady(t, ts, code, benID, true)

	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/start", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
	snapshot := fetchSnapshot(t, ts, code)
	if snapshot["status"] != statusWaiting {
		t.Fatalf("expected status waiting after failed start, got %v", snapshot["status"])
	}
	if len(snapshot["messages"].([]any)) != 0 {
		t.Fatalf("expected no messages after failed start")
	}

	// The guard is released, so a retry succeeds.
	startGame(t, ts, code, hostID)
}

func TestLeavePromotesHost(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	benID := joinMember(t, ts, code, "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/leave", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	snapshot := fetchSnapshot(t, ts, code)
	if snapshot["host_id"] != benID {
		t.Fatalf("expected host promotion to %s, got %v", benID, snapshot["host_id"])
	}
}

func TestLeaveLastMemberDeletesLobby(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, hostID := createLobby(t, ts, "Ada")
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/leave", map[string]string{
		"member_id": hostID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["lobby_deleted"] != true {
		t.Fatalf("expected lobby_deleted=true, got %#v", body)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/lobbies/"+code, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d after deletion, got %d", http.StatusNotFound, resp.StatusCode)
	}
	if srv.store.Len() != 0 {
		t.Fatalf("expected empty store, got %d lobbies", srv.store.Len())
	}
}

func TestLeaveUnknownMember(t *testing.T) {
	srv := New(newTestConfig(), &fakeNarrator{})
	ts := newTestServer(t, srv)

	code, _ := createLobby(t, ts, "Ada")
	resp := doRequest(t, ts, http.MethodPost, "/api/lobbies/"+code+"/leave", map[string]string{
		"member_id": "nobody",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
