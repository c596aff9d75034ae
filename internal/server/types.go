package server

import "time"

const (
	statusWaiting = "waiting"
	statusPlaying = "playing"
)

const messageKindCollaborative = "collaborative"

// defaultChoice is recorded for a member who has no option list to choose
// from in the current round, so a round never blocks on them.
const defaultChoice = "No action"

type Lobby struct {
	Code            string
	HostID          string
	Status          string
	CurrentRound    int
	EventsRemaining int
	StoryComplete   bool
	Members         []Member
	Messages        []StoryMessage
	CreatedAt       time.Time

	// advancing guards the lobby while a story advance is in flight, so
	// that exactly one caller triggers the narrator per round.
	advancing bool
}

type Member struct {
	ID          string
	DisplayName string
	Ready       bool
	Choice      string
	JoinedAt    time.Time
}

type StoryMessage struct {
	ID         string
	Kind       string
	Content    string
	Summary    string
	Choices    map[string]string
	Options    map[string][]string
	SceneImage string
	CreatedAt  time.Time
}

func (l *Lobby) findMember(memberID string) *Member {
	for i := range l.Members {
		if l.Members[i].ID == memberID {
			return &l.Members[i]
		}
	}
	return nil
}

func (l *Lobby) allReady() bool {
	for _, member := range l.Members {
		if !member.Ready {
			return false
		}
	}
	return len(l.Members) > 0
}

func (l *Lobby) latestCollaborative() *StoryMessage {
	for i := len(l.Messages) - 1; i >= 0; i-- {
		if l.Messages[i].Kind == messageKindCollaborative {
			return &l.Messages[i]
		}
	}
	return nil
}

// optionsFor returns the option list offered to a member in the latest
// collaborative message. A nil result means no options were offered.
func (l *Lobby) optionsFor(memberID string) []string {
	message := l.latestCollaborative()
	if message == nil {
		return nil
	}
	return message.Options[memberID]
}

// allChosen reports whether every member has a recorded choice. Members with
// no offered options count as having chosen (they get the default choice at
// resolution time).
func (l *Lobby) allChosen() bool {
	for _, member := range l.Members {
		if member.Choice == "" && l.optionsFor(member.ID) != nil {
			return false
		}
	}
	return len(l.Members) > 0
}

// choiceMap collects each member's choice for the round, filling in the
// default for members who had nothing to choose from.
func (l *Lobby) choiceMap() map[string]string {
	choices := make(map[string]string, len(l.Members))
	for _, member := range l.Members {
		if member.Choice != "" {
			choices[member.ID] = member.Choice
		} else {
			choices[member.ID] = defaultChoice
		}
	}
	return choices
}

func (l *Lobby) resetChoices() {
	for i := range l.Members {
		l.Members[i].Choice = ""
	}
}

func (l *Lobby) resetReady() {
	for i := range l.Members {
		l.Members[i].Ready = false
	}
}

// clone returns a deep copy safe to use after the lobby lock is released.
func (l *Lobby) clone() *Lobby {
	copied := *l
	copied.Members = make([]Member, len(l.Members))
	copy(copied.Members, l.Members)
	copied.Messages = make([]StoryMessage, len(l.Messages))
	for i, message := range l.Messages {
		copied.Messages[i] = message.clone()
	}
	return &copied
}

func (m StoryMessage) clone() StoryMessage {
	copied := m
	if m.Choices != nil {
		copied.Choices = make(map[string]string, len(m.Choices))
		for id, choice := range m.Choices {
			copied.Choices[id] = choice
		}
	}
	if m.Options != nil {
		copied.Options = make(map[string][]string, len(m.Options))
		for id, options := range m.Options {
			copied.Options[id] = append([]string(nil), options...)
		}
	}
	return copied
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
