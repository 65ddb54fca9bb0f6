package translator

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

var DefaultOllamaModels = []string{
	"llama3.2",
	"gemma2:2b",
	"qwen2.5:3b",
	"mistral:7b",
	"phi4:14b",
}

// OllamaTranslator prompts a local Ollama server.
type OllamaTranslator struct {
	baseURL string
	models  []string
	client  *http.Client
}

func NewOllamaTranslator(baseURL string, models []string) *OllamaTranslator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if len(models) == 0 {
		models = DefaultOllamaModels
	}
	return &OllamaTranslator{
		baseURL: baseURL,
		models:  models,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OllamaTranslator) Name() string {
	return "ollama"
}

// model picks the configured model, or a random one from the pool so that
// repeated columns of the same provider exercise different models.
func (s *OllamaTranslator) model(cfg ServiceConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	if len(s.models) == 0 {
		return "llama3.2"
	}
	return s.models[rand.Intn(len(s.models))]
}

func (s *OllamaTranslator) SetModels(models []string) {
	if len(models) > 0 {
		s.models = models
	}
}

func (s *OllamaTranslator) GetModels() []string {
	return s.models
}

func (s *OllamaTranslator) complete(ctx context.Context, cfg ServiceConfig, system, user string) (string, string, error) {
	model := s.model(cfg)

	var resp struct {
		Response string `json:"response"`
	}
	err := doJSON(ctx, s.client, http.MethodPost, s.baseURL+"/api/generate", nil, map[string]any{
		"model":  model,
		"system": system,
		"prompt": user,
		"stream": false,
	}, &resp)
	if err != nil {
		return "", model, err
	}
	return resp.Response, model, nil
}

func (s *OllamaTranslator) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	return llmTranslate(ctx, s, cfg, req)
}

func (s *OllamaTranslator) TranslateBatch(ctx context.Context, cfg ServiceConfig, req BatchRequest) ([]string, error) {
	return llmTranslateBatch(ctx, s, cfg, req)
}

func (s *OllamaTranslator) IsAvailable(ctx context.Context) error {
	if err := doJSON(ctx, s.client, http.MethodGet, s.baseURL+"/api/tags", nil, nil, nil); err != nil {
		return fmt.Errorf("Ollama not available: %w", err)
	}
	return nil
}

func (s *OllamaTranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "uk"}, nil
}
