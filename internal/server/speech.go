package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"tale-weaver/internal/config"
)

// Voice roles for narration synthesis. Dialogue is read by rotating
// character voices, creatures get the deep voice, everything else is the
// narrator.
const (
	voiceNarrator   = "JBFqnCBsd6RMkjVDRZzb"
	voiceCharacter1 = "EXAVITQu4vr4xnSDxMaL"
	voiceCharacter2 = "onwK4e9ZLuTAKqWW03F9"
	voiceCharacter3 = "TX3LPaxmHKxFdv7VOQHJ"
	voiceMonster    = "21m00Tcm4TlvDq8ikWAM"
)

var characterVoices = []string{voiceCharacter1, voiceCharacter2, voiceCharacter3}

var monsterKeywords = []string{"monster", "dragon", "beast", "creature", "demon"}

// dialoguePattern matches a quoted span with an optional speaker attribution
// trailing it ("...," the knight said).
var dialoguePattern = regexp.MustCompile(`"([^"]+)"(?:\s*[,.]?\s*([^.!?"]*(?:said|asked|replied|shouted|whispered|exclaimed)[^.!?"]*))?`)

type speechSegment struct {
	Text    string
	VoiceID string
}

// splitNarration breaks story text into narration and dialogue segments and
// assigns a voice to each. Speakers keep their voice across the text.
func splitNarration(text string) []speechSegment {
	matches := dialoguePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []speechSegment{{Text: strings.TrimSpace(text), VoiceID: voiceNarrator}}
	}

	var segments []speechSegment
	speakerVoices := map[string]string{}
	nextVoice := 0
	last := 0
	for _, match := range matches {
		if narrative := strings.TrimSpace(text[last:match[0]]); narrative != "" {
			segments = append(segments, speechSegment{Text: narrative, VoiceID: voiceNarrator})
		}
		dialogue := strings.TrimSpace(text[match[2]:match[3]])
		attribution := ""
		if match[4] >= 0 {
			attribution = strings.TrimSpace(text[match[4]:match[5]])
		}

		voice := ""
		if attribution != "" {
			lower := strings.ToLower(attribution)
			for _, keyword := range monsterKeywords {
				if strings.Contains(lower, keyword) {
					voice = voiceMonster
					break
				}
			}
			if voice == "" {
				if assigned, ok := speakerVoices[attribution]; ok {
					voice = assigned
				} else {
					voice = characterVoices[nextVoice%len(characterVoices)]
					speakerVoices[attribution] = voice
					nextVoice++
				}
			}
		} else {
			voice = characterVoices[len(segments)%len(characterVoices)]
		}

		segments = append(segments, speechSegment{Text: dialogue, VoiceID: voice})
		last = match[1]
	}
	if remaining := strings.TrimSpace(text[last:]); remaining != "" {
		segments = append(segments, speechSegment{Text: remaining, VoiceID: voiceNarrator})
	}
	return segments
}

// speechClient synthesizes narration audio through an ElevenLabs-compatible
// text-to-speech API.
type speechClient struct {
	apiKey     string
	baseURL    string
	voiceModel string
	client     *http.Client
}

func newSpeechClient(cfg config.Config) *speechClient {
	return &speechClient{
		apiKey:     cfg.SpeechAPIKey,
		baseURL:    strings.TrimRight(cfg.SpeechBaseURL, "/"),
		voiceModel: cfg.SpeechVoiceModel,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *speechClient) configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *speechClient) Synthesize(ctx context.Context, segment speechSegment) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{
		"text":     segment.Text,
		"model_id": c.voiceModel,
	})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, segment.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", strings.TrimSpace(c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpeech, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: request failed (%d)", ErrSpeech, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type speechRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !s.speech.configured() {
		writeServiceError(w, fmt.Errorf("%w: API key is not configured", ErrSpeech))
		return
	}

	var audio bytes.Buffer
	for _, segment := range splitNarration(req.Text) {
		chunk, err := s.speech.Synthesize(r.Context(), segment)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		audio.Write(chunk)
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", "inline; filename=speech.mp3")
	_, _ = w.Write(audio.Bytes())
}
