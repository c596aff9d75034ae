package server

import (
	"errors"
	"net/http"
)

var (
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrMemberNotFound   = errors.New("member not in lobby")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrLobbyFull        = errors.New("lobby is full")
	ErrGameStarted      = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrStoryComplete    = errors.New("story already complete")
	ErrNotEnoughMembers = errors.New("need at least 2 members to start")
	ErrNotAllReady      = errors.New("all members must be ready to start")
	ErrAdvanceInFlight  = errors.New("story advance already in progress")
	ErrChoiceNotOffered = errors.New("choice is not among the offered options")
	ErrNarrator         = errors.New("narrator unavailable")
	ErrSpeech           = errors.New("speech synthesis unavailable")
)

// statusForError maps coordinator errors onto HTTP statuses. Unrecognized
// errors are treated as bad input so validation failures need no wrapping.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrLobbyNotFound), errors.Is(err, ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, ErrLobbyFull),
		errors.Is(err, ErrGameStarted),
		errors.Is(err, ErrGameNotStarted),
		errors.Is(err, ErrStoryComplete),
		errors.Is(err, ErrNotEnoughMembers),
		errors.Is(err, ErrNotAllReady),
		errors.Is(err, ErrAdvanceInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrNarrator), errors.Is(err, ErrSpeech):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
