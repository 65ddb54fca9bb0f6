package translator

import (
	"fmt"
	"net/http"
)

// Kinds lists the provider types NewService can build.
var Kinds = []string{"google", "mymemory", "ollama", "openrouter", "systran"}

// NewService builds the provider of the given kind from its settings.
func NewService(kind string, cfg ServiceConfig) (TranslationService, error) {
	var svc TranslationService
	switch kind {
	case "google":
		svc = NewGoogleService(cfg)
	case "systran":
		s := NewSystranService(cfg.APIKey)
		if cfg.BaseURL != "" {
			s.baseURL = cfg.BaseURL
		}
		s.client = withTimeout(s.client, cfg)
		svc = s
	case "mymemory":
		s := NewMyMemoryService(cfg.Email)
		if cfg.BaseURL != "" {
			s.baseURL = cfg.BaseURL
		}
		s.client = withTimeout(s.client, cfg)
		svc = s
	case "ollama":
		s := NewOllamaTranslator(cfg.BaseURL, modelList(cfg))
		s.client = withTimeout(s.client, cfg)
		svc = s
	case "openrouter":
		s := NewOpenRouterService(cfg.APIKey, cfg.BaseURL, modelList(cfg))
		s.client = withTimeout(s.client, cfg)
		svc = s
	default:
		return nil, fmt.Errorf("unknown provider type %q (supported: %v)", kind, Kinds)
	}
	return svc, nil
}

func modelList(cfg ServiceConfig) []string {
	if len(cfg.Models) > 0 {
		return cfg.Models
	}
	if cfg.Model != "" {
		return []string{cfg.Model}
	}
	return nil
}

func withTimeout(c *http.Client, cfg ServiceConfig) *http.Client {
	if cfg.Timeout <= 0 {
		return c
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: c.Transport}
}
