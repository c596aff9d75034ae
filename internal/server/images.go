package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tale-weaver/internal/config"
)

// imageClient fetches a scene illustration for a round summary. Scene images
// are decoration: every failure is reported to the caller but never blocks a
// story advance.
type imageClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func newImageClient(cfg config.Config) *imageClient {
	return &imageClient{
		apiURL: cfg.ImageAPIURL,
		apiKey: cfg.ImageAPIKey,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *imageClient) configured() bool {
	return strings.TrimSpace(c.apiURL) != "" && strings.TrimSpace(c.apiKey) != ""
}

func (c *imageClient) GenerateSceneImage(ctx context.Context, summary, lobbyCode string) (string, error) {
	if !c.configured() {
		return "", nil
	}
	payload, err := json.Marshal(map[string]string{
		"user_id": lobbyCode,
		"in-0":    summary,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image request failed (%d)", resp.StatusCode)
	}
	return extractImageURL(body)
}

// extractImageURL digs the image URL out of the generator's response. The
// upstream wraps its result either in an "outputs" envelope keyed by port
// name or in a flat field, depending on deployment.
func extractImageURL(body []byte) (string, error) {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		var direct string
		if json.Unmarshal(body, &direct) == nil && strings.HasPrefix(direct, "http") {
			return direct, nil
		}
		return "", errors.New("unrecognized image response")
	}
	if raw, ok := parsed["outputs"]; ok {
		var outputs map[string]json.RawMessage
		if err := json.Unmarshal(raw, &outputs); err == nil {
			if out, ok := outputs["out-0"]; ok {
				if url := urlFromValue(out); url != "" {
					return url, nil
				}
			}
		}
	}
	for _, field := range []string{"image_url", "url", "output", "result", "image"} {
		if raw, ok := parsed[field]; ok {
			if url := urlFromValue(raw); url != "" {
				return url, nil
			}
		}
	}
	return "", errors.New("no image URL in response")
}

func urlFromValue(raw json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if strings.HasPrefix(asString, "http") {
			return asString
		}
		return ""
	}
	var asObject struct {
		ImageURL string `json:"image_url"`
		URL      string `json:"url"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if asObject.ImageURL != "" {
			return asObject.ImageURL
		}
		return asObject.URL
	}
	return ""
}
