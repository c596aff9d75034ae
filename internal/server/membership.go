package server

import (
	"context"
	"log"

	"tale-weaver/internal/idgen"
)

// CreateLobby opens a fresh lobby with the caller as host and sole member.
func (s *Server) CreateLobby(displayName string) (*Lobby, string, error) {
	name, err := validateName(displayName)
	if err != nil {
		return nil, "", err
	}
	host := Member{
		ID:          idgen.NewMemberID(),
		DisplayName: name,
		JoinedAt:    timeNowUTC(),
	}
	lobby := s.store.Create(host, s.cfg.StartingEvents)
	log.Printf("lobby created code=%s host=%s", lobby.Code, name)
	return lobby, host.ID, nil
}

// GetLobby returns a consistent snapshot of the lobby.
func (s *Server) GetLobby(code string) (*Lobby, error) {
	return s.store.Snapshot(code)
}

// JoinLobby adds a member to a waiting lobby. Joining is rejected once the
// game has started; membership is frozen for the life of the story.
func (s *Server) JoinLobby(code, displayName string) (*Lobby, string, error) {
	name, err := validateName(displayName)
	if err != nil {
		return nil, "", err
	}
	memberID := idgen.NewMemberID()
	lobby, err := s.store.Update(code, func(lobby *Lobby) error {
		if lobby.Status != statusWaiting {
			return ErrGameStarted
		}
		if len(lobby.Members) >= s.cfg.LobbyCapacity {
			return ErrLobbyFull
		}
		lobby.Members = append(lobby.Members, Member{
			ID:          memberID,
			DisplayName: name,
			JoinedAt:    timeNowUTC(),
		})
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	log.Printf("member joined code=%s name=%s members=%d", code, name, len(lobby.Members))
	return lobby, memberID, nil
}

// SetReady flips a member's ready flag. Setting the current value again is a
// no-op, so retried polls are harmless.
func (s *Server) SetReady(code, memberID string, ready bool) (*Lobby, error) {
	return s.store.Update(code, func(lobby *Lobby) error {
		member := lobby.findMember(memberID)
		if member == nil {
			return ErrMemberNotFound
		}
		member.Ready = ready
		return nil
	})
}

// Leave removes a member. An emptied lobby is deleted immediately; a lobby
// losing its host promotes the earliest remaining joiner. If the departure
// leaves every remaining member with a recorded choice, the round resolves
// here instead of stalling until someone resubmits.
func (s *Server) Leave(ctx context.Context, code, memberID string) (*Lobby, bool, error) {
	var capture *advanceCapture
	lobby, err := s.store.Update(code, func(lobby *Lobby) error {
		index := -1
		for i := range lobby.Members {
			if lobby.Members[i].ID == memberID {
				index = i
				break
			}
		}
		if index < 0 {
			return ErrMemberNotFound
		}
		lobby.Members = append(lobby.Members[:index], lobby.Members[index+1:]...)
		if lobby.HostID == memberID && len(lobby.Members) > 0 {
			lobby.HostID = lobby.Members[0].ID
		}
		if lobby.Status == statusPlaying && !lobby.StoryComplete &&
			len(lobby.Members) > 0 && lobby.allChosen() && !lobby.advancing {
			lobby.advancing = true
			capture = captureAdvance(lobby)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if len(lobby.Members) == 0 {
		s.store.Delete(code)
		log.Printf("lobby deleted code=%s", code)
		return nil, true, nil
	}
	if capture != nil {
		if resolved, resolveErr := s.resolveRound(ctx, code, capture); resolveErr != nil {
			log.Printf("round resolve after leave failed code=%s err=%v", code, resolveErr)
		} else {
			lobby = resolved
		}
	}
	return lobby, false, nil
}

// StartGame transitions a lobby from waiting to playing. Preconditions are
// checked atomically; the opening story advance happens outside the lobby
// lock under a single-flight guard, and a generator failure leaves the lobby
// exactly as it was.
func (s *Server) StartGame(ctx context.Context, code, memberID string) (*Lobby, error) {
	var req AdvanceRequest
	_, err := s.store.Update(code, func(lobby *Lobby) error {
		if lobby.Status != statusWaiting {
			return ErrGameStarted
		}
		member := lobby.findMember(memberID)
		if member == nil {
			return ErrMemberNotFound
		}
		if lobby.HostID != memberID {
			return ErrNotHost
		}
		if len(lobby.Members) < 2 {
			return ErrNotEnoughMembers
		}
		if !lobby.allReady() {
			return ErrNotAllReady
		}
		if lobby.advancing {
			return ErrAdvanceInFlight
		}
		lobby.advancing = true
		req = AdvanceRequest{
			LobbyCode:       lobby.Code,
			Opening:         true,
			MemberCount:     len(lobby.Members),
			MemberNames:     memberNames(lobby),
			EventsRemaining: lobby.EventsRemaining,
			TotalEvents:     lobby.EventsRemaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, advanceErr := s.narrator.Advance(ctx, req)
	var sceneImage string
	if advanceErr == nil {
		sceneImage = s.sceneImage(ctx, code, result.Summary)
	}

	lobby, commitErr := s.store.Update(code, func(lobby *Lobby) error {
		lobby.advancing = false
		if advanceErr != nil {
			return advanceErr
		}
		if len(lobby.Members) < 2 {
			return ErrNotEnoughMembers
		}
		lobby.Status = statusPlaying
		lobby.CurrentRound = 1
		lobby.StoryComplete = result.Complete
		lobby.Messages = append(lobby.Messages, StoryMessage{
			ID:         idgen.NewMessageID(),
			Kind:       messageKindCollaborative,
			Content:    result.Story,
			Summary:    result.Summary,
			Choices:    map[string]string{},
			Options:    assignMemberOptions(lobby.Members, result.Options, openingOptionSets),
			SceneImage: sceneImage,
			CreatedAt:  timeNowUTC(),
		})
		lobby.resetReady()
		lobby.resetChoices()
		return nil
	})
	if commitErr != nil {
		return nil, commitErr
	}
	log.Printf("game started code=%s members=%d events=%d", code, len(lobby.Members), lobby.EventsRemaining)
	return lobby, nil
}

func memberNames(lobby *Lobby) map[string]string {
	names := make(map[string]string, len(lobby.Members))
	for _, member := range lobby.Members {
		names[member.ID] = member.DisplayName
	}
	return names
}

func (s *Server) sceneImage(ctx context.Context, code, summary string) string {
	if summary == "" {
		return ""
	}
	image, err := s.images.GenerateSceneImage(ctx, summary, code)
	if err != nil {
		log.Printf("scene image failed code=%s err=%v", code, err)
		return ""
	}
	return image
}
