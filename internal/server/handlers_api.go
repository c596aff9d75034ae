package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createLobbyRequest struct {
	DisplayName string `json:"display_name"`
}

type joinRequest struct {
	DisplayName string `json:"display_name"`
}

type readyRequest struct {
	MemberID string `json:"member_id"`
	Ready    bool   `json:"ready"`
}

type startRequest struct {
	MemberID string `json:"member_id"`
}

type choiceRequest struct {
	MemberID string `json:"member_id"`
	Choice   string `json:"choice"`
}

type leaveRequest struct {
	MemberID string `json:"member_id"`
}

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, memberID, err := s.CreateLobby(req.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"lobby_code": lobby.Code,
		"member_id":  memberID,
		"lobby":      snapshotLobby(lobby),
	})
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lobby, err := s.GetLobby(code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lobby": snapshotLobby(lobby),
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, memberID, err := s.JoinLobby(code, req.DisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lobby_code": lobby.Code,
		"member_id":  memberID,
		"lobby":      snapshotLobby(lobby),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req readyRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, err := s.SetReady(code, req.MemberID, req.Ready)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lobby": snapshotLobby(lobby),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req startRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, err := s.StartGame(r.Context(), code, req.MemberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lobby": snapshotLobby(lobby),
	})
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req choiceRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, waiting, err := s.SubmitChoice(r.Context(), code, req.MemberID, req.Choice)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"waiting_for_others": waiting,
		"lobby":              snapshotLobby(lobby),
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	code, err := validateLobbyCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req leaveRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	lobby, deleted, err := s.Leave(r.Context(), code, req.MemberID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	payload := map[string]any{
		"left":          true,
		"lobby_deleted": deleted,
	}
	if lobby != nil {
		payload["lobby"] = snapshotLobby(lobby)
	}
	writeJSON(w, http.StatusOK, payload)
}
