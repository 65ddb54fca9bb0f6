package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	systranHost       = "api-systran-systran-translation-v1.p.rapidapi.com"
	systranDefaultURL = "https://" + systranHost
)

// SystranService calls the Systran text API through RapidAPI. The API takes
// a list of texts, so a whole column goes out in one request.
type SystranService struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSystranService(apiKey string) *SystranService {
	return &SystranService{
		apiKey:  apiKey,
		baseURL: systranDefaultURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SystranService) Name() string {
	return "systran"
}

func (s *SystranService) key(cfg ServiceConfig) string {
	if s.apiKey != "" {
		return s.apiKey
	}
	return cfg.APIKey
}

func (s *SystranService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	out, err := s.translate(ctx, cfg, []string{req.Text}, req.SourceLang, req.TargetLang)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.TranslatedText = out[0]
	result.Confidence = 1.0
	return result, nil
}

func (s *SystranService) TranslateBatch(ctx context.Context, cfg ServiceConfig, req BatchRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}
	return s.translate(ctx, cfg, req.Texts, req.SourceLang, req.TargetLang)
}

func (s *SystranService) translate(ctx context.Context, cfg ServiceConfig, texts []string, sourceLang, targetLang string) ([]string, error) {
	apiKey := s.key(cfg)
	if apiKey == "" {
		return nil, errors.New("Systran API key required")
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	header := http.Header{}
	header.Set("X-RapidAPI-Key", apiKey)
	header.Set("X-RapidAPI-Host", systranHost)

	var resp struct {
		Outputs []struct {
			Output string `json:"output"`
			Error  string `json:"error"`
		} `json:"outputs"`
	}
	err := doJSON(ctx, s.client, http.MethodPost, s.baseURL+"/translation/text/translate", header, map[string]any{
		"text":   texts,
		"source": sourceLang,
		"target": targetLang,
		"format": "text",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Outputs) != len(texts) {
		return nil, fmt.Errorf("got %d outputs for %d texts", len(resp.Outputs), len(texts))
	}
	out := make([]string, len(texts))
	for i, o := range resp.Outputs {
		if o.Error != "" {
			return nil, fmt.Errorf("text %d: %s", i+1, o.Error)
		}
		if o.Output == "" {
			return nil, fmt.Errorf("text %d: empty translation", i+1)
		}
		out[i] = o.Output
	}
	return out, nil
}

func (s *SystranService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Systran API key not configured")
	}
	return nil
}

func (s *SystranService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{"en", "fr", "es", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar"}, nil
}
