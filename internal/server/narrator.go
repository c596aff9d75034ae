package server

import (
	"context"
	"fmt"
	"strings"
)

// Narrator is the external narrative generator. One call produces one story
// advance; failures are retryable and never consume the round.
type Narrator interface {
	Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error)
}

type AdvanceRequest struct {
	LobbyCode       string
	Opening         bool
	MemberCount     int
	MemberNames     map[string]string
	Choices         map[string]string
	PreviousStory   string
	EventsRemaining int
	TotalEvents     int
}

type AdvanceResult struct {
	Story    string
	Summary  string
	Options  []string
	Complete bool
}

func (r AdvanceRequest) eventNumber() int {
	return r.TotalEvents - r.EventsRemaining + 1
}

func openingPrompt(req AdvanceRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a Dungeon Master starting a collaborative adventure for %d players. ", req.MemberCount)
	b.WriteString("Begin the story with an evocative opening in 1-2 vivid paragraphs. ")
	fmt.Fprintf(&b, "This is the opening scene; the story will then unfold over %d events. ", req.TotalEvents)
	b.WriteString(responseSchemaInstructions)
	b.WriteString(" Session start: create opening scene and choices.")
	return b.String()
}

func continuationPrompt(req AdvanceRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a Dungeon Master managing a collaborative story with %d players. ", req.MemberCount)
	fmt.Fprintf(&b, "This is event %d of %d total events. ", req.eventNumber(), req.TotalEvents)
	if req.EventsRemaining == 1 {
		b.WriteString("This is the FINAL event - conclude the story with a satisfying ending! ")
	} else {
		fmt.Fprintf(&b, "You have %d events remaining after this one. ", req.EventsRemaining-1)
	}
	b.WriteString("Each player has made their choice. Weave their actions together into a cohesive story continuation. ")
	b.WriteString(responseSchemaInstructions)
	b.WriteString("\n\nPlayer choices:\n")
	b.WriteString(formatChoices(req))
	b.WriteString("\n\nPrevious story context: ")
	if req.PreviousStory != "" {
		b.WriteString(req.PreviousStory)
	} else {
		b.WriteString("Beginning of story")
	}
	return b.String()
}

const responseSchemaInstructions = "THEN produce a concise 50-word summary of the new scene. " +
	"THEN produce 3-4 distinct actionable next-step options for the next round, terse but evocative. " +
	"Respond ONLY as strict JSON matching this schema: {\n" +
	"  \"story\": string,\n" +
	"  \"summary50\": string,\n" +
	"  \"options\": [string, string, string, string],\n" +
	"  \"complete\": boolean\n" +
	"} without any extra text. Set \"complete\" true only when the story has reached its ending."

func formatChoices(req AdvanceRequest) string {
	lines := make([]string, 0, len(req.Choices))
	for id, choice := range req.Choices {
		name := req.MemberNames[id]
		if name == "" {
			name = id
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, choice))
	}
	return strings.Join(lines, "\n")
}

// optionSets are the rotating fallback option lists handed to members when
// the generator output cannot cover everyone. Each member gets a distinct
// set based on join order, so no two members see identical choices.
var openingOptionSets = [][]string{
	{
		"Approach the hooded figure and examine the map.",
		"Order drinks and listen for rumors from other patrons.",
		"Investigate the tavern's back rooms for secrets.",
		"Leave the tavern and explore the surrounding town.",
	},
	{
		"Challenge the hooded figure to a game of dice.",
		"Search for hidden passages in the walls.",
		"Buy information from the bartender.",
		"Follow a suspicious patron outside.",
	},
	{
		"Cast a detection spell to reveal secrets.",
		"Use stealth to eavesdrop on conversations.",
		"Offer to help the tavern keeper.",
		"Examine the map for magical properties.",
	},
}

var roundOptionSets = [][]string{
	{
		"Investigate the mysterious sounds coming from below.",
		"Search for hidden treasure in the room.",
		"Attempt to communicate with the spirits.",
		"Look for secret passages in the walls.",
	},
	{
		"Cast a protective spell around the group.",
		"Use magic to illuminate the dark corners.",
		"Try to dispel any curses in the area.",
		"Summon a familiar to scout ahead.",
	},
	{
		"Draw your weapon and prepare for combat.",
		"Use stealth to avoid detection.",
		"Set up traps for potential enemies.",
		"Call out to announce your presence.",
	},
}

// assignMemberOptions builds the per-member option map for the next round.
// The generator's own options go to the first member; remaining members get
// rotating sets so every member sees a distinct list.
func assignMemberOptions(members []Member, generated []string, sets [][]string) map[string][]string {
	options := make(map[string][]string, len(members))
	for i, member := range members {
		if i == 0 && len(generated) > 0 {
			options[member.ID] = append([]string(nil), generated...)
			continue
		}
		set := sets[i%len(sets)]
		options[member.ID] = append([]string(nil), set...)
	}
	return options
}
