package generativeAI

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const openAIChatCompletionsEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient talks to the chat completions API directly over HTTP.
type OpenAIClient struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float32
	endpoint    string
}

var _ Backend = (*OpenAIClient)(nil)

func NewOpenAIClient(model string, temperature float32) (*OpenAIClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	return &OpenAIClient{
		httpClient:  &http.Client{Timeout: 45 * time.Second},
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		endpoint:    openAIChatCompletionsEndpoint,
	}, nil
}

func (o *OpenAIClient) Provider() string { return "openai" }

func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":       o.model,
		"temperature": o.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal openai payload: %v", types.ErrGenerationBackend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build openai request: %v", types.ErrGenerationBackend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: openai request failed: %v", types.ErrGenerationBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: %v", types.ErrGenerationBackend, parseOpenAIError(resp))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: decode openai response: %v", types.ErrGenerationBackend, err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: openai returned no content", types.ErrGenerationBackend)
	}
	return completion.Choices[0].Message.Content, nil
}

func parseOpenAIError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return fmt.Errorf("openai api error: %s", resp.Status)
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("openai api error: %s", payload.Error.Message)
	}
	return fmt.Errorf("openai api error: %s", resp.Status)
}
