package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tale-weaver/internal/config"
)

const narratorSystemPrompt = "You are the narrative engine for a collaborative fantasy adventure. " +
	"Follow the instructions exactly and respond with strict JSON only."

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type narratorPayload struct {
	Story     string   `json:"story"`
	Summary50 string   `json:"summary50"`
	Options   []string `json:"options"`
	Complete  bool     `json:"complete"`
}

// openAINarrator generates story advances through the chat completions API.
type openAINarrator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewOpenAINarrator(cfg config.Config) Narrator {
	timeout := time.Duration(cfg.NarratorTimeoutSeconds) * time.Second
	return &openAINarrator{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: "https://api.openai.com/v1/chat/completions",
		client:  &http.Client{Timeout: timeout},
	}
}

func (n *openAINarrator) Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	if strings.TrimSpace(n.apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is not configured", ErrNarrator)
	}

	userPrompt := continuationPrompt(req)
	if req.Opening {
		userPrompt = openingPrompt(req)
	}

	reqBody := openAIChatRequest{
		Model: n.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: narratorSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.9,
		MaxTokens:   900,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request", ErrNarrator)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request", ErrNarrator)
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(n.apiKey))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarrator, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response", ErrNarrator)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: request failed (%d)", ErrNarrator, resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response", ErrNarrator)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrNarrator, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrNarrator)
	}

	return parseNarratorText(parsed.Choices[0].Message.Content)
}

// parseNarratorText decodes the strict-JSON contract, tolerating code fences
// and surrounding prose. A response with no usable story is an upstream
// failure; a response flagged complete is a graceful ending, not an error.
func parseNarratorText(text string) (*AdvanceResult, error) {
	raw, ok := extractJSON(text)
	if !ok {
		// Some models ignore the schema and reply with plain prose.
		story := strings.TrimSpace(text)
		if story == "" {
			return nil, fmt.Errorf("%w: no story in response", ErrNarrator)
		}
		return &AdvanceResult{Story: story}, nil
	}
	var payload narratorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed story payload", ErrNarrator)
	}
	if strings.TrimSpace(payload.Story) == "" {
		return nil, fmt.Errorf("%w: no story in response", ErrNarrator)
	}
	options := make([]string, 0, len(payload.Options))
	for _, option := range payload.Options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			options = append(options, trimmed)
		}
	}
	return &AdvanceResult{
		Story:    strings.TrimSpace(payload.Story),
		Summary:  strings.TrimSpace(payload.Summary50),
		Options:  options,
		Complete: payload.Complete,
	}, nil
}

// extractJSON finds the outermost JSON object in arbitrary model output,
// stripping any markdown code fences first.
func extractJSON(text string) (json.RawMessage, bool) {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return nil, false
	}
	if strings.HasPrefix(stripped, "```") {
		lines := strings.Split(stripped, "\n")
		lines = lines[1:]
		if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
			lines = lines[:len(lines)-1]
		}
		stripped = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start != -1 && end > start {
		candidate := stripped[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), true
		}
	}
	if json.Valid([]byte(stripped)) {
		return json.RawMessage(stripped), true
	}
	return nil, false
}
