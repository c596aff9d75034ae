package server

import "time"

// snapshotLobby builds the poll payload. Clients treat it as a disposable
// cache: every field they render comes from here, nothing is pushed.
func snapshotLobby(lobby *Lobby) map[string]any {
	members := make([]map[string]any, 0, len(lobby.Members))
	for _, member := range lobby.Members {
		members = append(members, map[string]any{
			"member_id":    member.ID,
			"display_name": member.DisplayName,
			"ready":        member.Ready,
			"choice":       member.Choice,
			"has_chosen":   member.Choice != "",
			"joined_at":    member.JoinedAt.UTC().Format(time.RFC3339),
		})
	}

	messages := make([]map[string]any, 0, len(lobby.Messages))
	for _, message := range lobby.Messages {
		entry := map[string]any{
			"id":         message.ID,
			"kind":       message.Kind,
			"content":    message.Content,
			"summary50":  message.Summary,
			"created_at": message.CreatedAt.UTC().Format(time.RFC3339),
		}
		if message.SceneImage != "" {
			entry["scene_image"] = message.SceneImage
		}
		entry["member_choices"] = message.Choices
		entry["member_options"] = optionsPayload(message.Options)
		messages = append(messages, entry)
	}

	return map[string]any{
		"lobby_code":       lobby.Code,
		"host_id":          lobby.HostID,
		"status":           lobby.Status,
		"current_round":    lobby.CurrentRound,
		"events_remaining": lobby.EventsRemaining,
		"story_complete":   lobby.StoryComplete,
		"members":          members,
		"messages":         messages,
		"created_at":       lobby.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func optionsPayload(options map[string][]string) map[string][]string {
	if options == nil {
		return map[string][]string{}
	}
	return options
}
