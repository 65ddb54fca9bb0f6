package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

var DefaultOpenRouterModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

// OpenRouterService prompts chat models through the OpenRouter API.
type OpenRouterService struct {
	apiKey  string
	baseURL string
	models  []string
	client  *http.Client
}

func NewOpenRouterService(apiKey string, baseURL string, models []string) *OpenRouterService {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if len(models) == 0 {
		models = DefaultOpenRouterModels
	}
	return &OpenRouterService{
		apiKey:  apiKey,
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OpenRouterService) Name() string {
	return "openrouter"
}

func (s *OpenRouterService) model(cfg ServiceConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if len(s.models) == 0 {
		return "google/gemini-2.0-flash-exp:free"
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OpenRouterService) SetModels(models []string) {
	if len(models) > 0 {
		s.models = models
	}
}

func (s *OpenRouterService) GetModels() []string {
	return s.models
}

func (s *OpenRouterService) complete(ctx context.Context, cfg ServiceConfig, system, user string) (string, string, error) {
	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return "", "", errors.New("OpenRouter API key required")
	}
	model := s.model(cfg)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("HTTP-Referer", "https://transcompare.local")
	header.Set("X-Title", "transcompare")

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := doJSON(ctx, s.client, http.MethodPost, s.baseURL+"/chat/completions", header, map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"max_tokens": 4096,
	}, &resp)
	if err != nil {
		return "", model, err
	}
	if len(resp.Choices) == 0 {
		return "", model, fmt.Errorf("empty response from API")
	}
	return resp.Choices[0].Message.Content, model, nil
}

func (s *OpenRouterService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	return llmTranslate(ctx, s, cfg, req)
}

func (s *OpenRouterService) TranslateBatch(ctx context.Context, cfg ServiceConfig, req BatchRequest) ([]string, error) {
	return llmTranslateBatch(ctx, s, cfg, req)
}

func (s *OpenRouterService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenRouter API key not configured")
	}
	return nil
}

func (s *OpenRouterService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}
