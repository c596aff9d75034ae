package server

import (
	"context"
	"log"
	"slices"

	"tale-weaver/internal/idgen"
)

// advanceCapture is everything the narrator needs for one round, captured
// under the lobby lock at trigger time so the resolved message records the
// choices verbatim even if membership changes while the advance is in flight.
type advanceCapture struct {
	choices         map[string]string
	names           map[string]string
	memberCount     int
	previousStory   string
	eventsRemaining int
	totalEvents     int
}

func captureAdvance(lobby *Lobby) *advanceCapture {
	capture := &advanceCapture{
		choices:         lobby.choiceMap(),
		names:           memberNames(lobby),
		memberCount:     len(lobby.Members),
		eventsRemaining: lobby.EventsRemaining,
		totalEvents:     lobby.EventsRemaining + lobby.CurrentRound - 1,
	}
	if message := lobby.latestCollaborative(); message != nil {
		capture.previousStory = message.Content
	}
	return capture
}

// SubmitChoice records one member's choice for the current round. The call
// returns immediately in every case: callers that do not complete the round
// get waitingForOthers=true, and the single call that observes the full
// choice set resolves the round before returning. A member may overwrite
// their own choice until the round resolves; that is also the retry path
// after a narrator failure.
func (s *Server) SubmitChoice(ctx context.Context, code, memberID, choiceText string) (*Lobby, bool, error) {
	choice, err := validateChoice(choiceText)
	if err != nil {
		return nil, false, err
	}

	var capture *advanceCapture
	lobby, err := s.store.Update(code, func(lobby *Lobby) error {
		member := lobby.findMember(memberID)
		if member == nil {
			return ErrMemberNotFound
		}
		if lobby.Status != statusPlaying {
			return ErrGameNotStarted
		}
		if lobby.StoryComplete {
			return ErrStoryComplete
		}
		offered := lobby.optionsFor(memberID)
		if !slices.Contains(offered, choice) {
			return ErrChoiceNotOffered
		}
		member.Choice = choice
		if lobby.allChosen() && !lobby.advancing {
			lobby.advancing = true
			capture = captureAdvance(lobby)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if capture == nil {
		return lobby, true, nil
	}

	resolved, err := s.resolveRound(ctx, code, capture)
	if err != nil {
		return nil, false, err
	}
	return resolved, false, nil
}

// resolveRound performs the story advance for a fully chosen round. The
// caller must have flipped the advancing guard; the guard is cleared here
// whether the advance commits or fails. On failure choices stay recorded and
// no counters move, so the same round can be retried.
func (s *Server) resolveRound(ctx context.Context, code string, capture *advanceCapture) (*Lobby, error) {
	result, advanceErr := s.narrator.Advance(ctx, AdvanceRequest{
		LobbyCode:       code,
		MemberCount:     capture.memberCount,
		MemberNames:     capture.names,
		Choices:         capture.choices,
		PreviousStory:   capture.previousStory,
		EventsRemaining: capture.eventsRemaining,
		TotalEvents:     capture.totalEvents,
	})
	var sceneImage string
	if advanceErr == nil {
		sceneImage = s.sceneImage(ctx, code, result.Summary)
	}

	lobby, err := s.store.Update(code, func(lobby *Lobby) error {
		lobby.advancing = false
		if advanceErr != nil {
			return advanceErr
		}
		if lobby.EventsRemaining > 0 {
			lobby.EventsRemaining--
		}
		lobby.CurrentRound++
		lobby.StoryComplete = lobby.EventsRemaining == 0 || result.Complete
		var options map[string][]string
		if !lobby.StoryComplete {
			options = assignMemberOptions(lobby.Members, result.Options, roundOptionSets)
		}
		lobby.Messages = append(lobby.Messages, StoryMessage{
			ID:         idgen.NewMessageID(),
			Kind:       messageKindCollaborative,
			Content:    result.Story,
			Summary:    result.Summary,
			Choices:    capture.choices,
			Options:    options,
			SceneImage: sceneImage,
			CreatedAt:  timeNowUTC(),
		})
		lobby.resetChoices()
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("round resolved code=%s round=%d events=%d complete=%v",
		code, lobby.CurrentRound, lobby.EventsRemaining, lobby.StoryComplete)
	return lobby, nil
}
