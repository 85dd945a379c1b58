package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chatterbox/pkg/domain"
)

const (
	defaultMistralBaseURL = "https://api.mistral.ai/v1"
	defaultMistralModel   = "mistral-large-latest"
)

// MistralClient calls the Mistral chat completions API. The endpoint is
// OpenAI-compatible, so the client also works against vLLM, LiteLLM and
// other /v1/chat/completions servers.
type MistralClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewMistralClient builds a streaming ChatStreamer. baseURL should
// include the /v1 prefix; empty values fall back to the hosted Mistral
// API and mistral-large-latest.
func NewMistralClient(baseURL, apiKey, model string) *MistralClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultMistralModel
	}
	return &MistralClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		// No client-wide timeout: replies stream until the model
		// finishes or ctx is canceled.
		httpClient: &http.Client{},
	}
}

// StreamChat implements ChatStreamer using SSE chat completions.
func (c *MistralClient) StreamChat(ctx context.Context, messages []domain.ChatMessage, onDelta func(string) error) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("mistral: at least one message required")
	}
	wireMessages := make([]mistralMessage, 0, len(messages))
	for _, msg := range messages {
		wireMessages = append(wireMessages, mistralMessage{
			Role:    wireRole(msg.Role),
			Content: msg.Content,
		})
	}
	body, err := json.Marshal(mistralChatRequest{
		Model:    c.model,
		Messages: wireMessages,
		Stream:   true,
	})
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mistral request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp mistralErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("mistral api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("mistral api error: %s", resp.Status)
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			if payload == "[DONE]" {
				break
			}
			continue
		}
		var chunk mistralChatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return reply.String(), fmt.Errorf("mistral decode chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			reply.WriteString(choice.Delta.Content)
			if onDelta != nil {
				if err := onDelta(choice.Delta.Content); err != nil {
					return reply.String(), err
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return reply.String(), fmt.Errorf("mistral read stream: %w", err)
	}
	if reply.Len() == 0 {
		return "", fmt.Errorf("empty response from mistral api")
	}
	return reply.String(), nil
}

func wireRole(role domain.Role) string {
	switch role {
	case domain.RoleHuman:
		return "user"
	case domain.RoleAssistant:
		return "assistant"
	case domain.RoleSystem:
		return "system"
	default:
		return "user"
	}
}

// Mistral wire types (OpenAI-compatible).

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralChatRequest struct {
	Model    string           `json:"model"`
	Messages []mistralMessage `json:"messages"`
	Stream   bool             `json:"stream"`
}

type mistralChatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type mistralErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
