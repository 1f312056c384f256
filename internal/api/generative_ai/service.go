package generativeAI

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Backend is the uniform contract over interchangeable generation providers.
// Implementations return raw model text; cleaning and structural parsing
// happen in the caller.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// NewBackend selects the concrete provider from configuration at construction
// time so nothing downstream branches on provider identity.
func NewBackend(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.AI.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg.AI.Models.Gemini, cfg.AI.Temperature)
	case "openai":
		return NewOpenAIClient(cfg.AI.Models.OpenAI, cfg.AI.Temperature)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AI.Provider)
	}
}

type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

var _ Backend = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, model string, temperature float32) (*GeminiClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

func (g *GeminiClient) Provider() string { return "gemini" }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](g.temperature)}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate content: %v", types.ErrGenerationBackend, err)
	}
	txt := result.Text()
	if txt == "" {
		return "", fmt.Errorf("%w: gemini returned no content", types.ErrGenerationBackend)
	}
	return txt, nil
}
