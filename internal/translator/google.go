package translator

import (
	"context"
	"fmt"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService calls Cloud Translation. cfg is used for health checks;
// translations take the settings passed with each call.
type GoogleService struct {
	cfg ServiceConfig
}

func NewGoogleService(cfg ServiceConfig) *GoogleService {
	return &GoogleService{cfg: cfg}
}

func newGoogleClient(ctx context.Context, cfg ServiceConfig) (*translate.Client, error) {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	texts, err := s.TranslateBatch(ctx, cfg, BatchRequest{
		Texts:      []string{req.Text},
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
	})
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.TranslatedText = texts[0]
	result.Confidence = 1.0

	return result, nil
}

// TranslateBatch sends all texts in a single Cloud Translation request.
func (s *GoogleService) TranslateBatch(ctx context.Context, cfg ServiceConfig, req BatchRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return nil, nil
	}

	targetLangTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("invalid target language: %v", err)
	}

	client, err := newGoogleClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	topts := &translate.Options{Format: translate.Text, Model: cfg.Model}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		sourceLangTag, err := language.Parse(req.SourceLang)
		if err != nil {
			return nil, fmt.Errorf("invalid source language: %v", err)
		}
		topts.Source = sourceLangTag
	}

	translations, err := client.Translate(ctx, req.Texts, targetLangTag, topts)
	if err != nil {
		return nil, fmt.Errorf("translation failed: %v", err)
	}

	if len(translations) != len(req.Texts) {
		return nil, fmt.Errorf("expected %d translations, got %d", len(req.Texts), len(translations))
	}

	out := make([]string, len(translations))
	for i, t := range translations {
		out[i] = t.Text
	}
	return out, nil
}

// IsAvailable lists the supported languages, which fails without usable
// credentials.
func (s *GoogleService) IsAvailable(ctx context.Context) error {
	if _, err := s.SupportedLanguages(ctx); err != nil {
		return fmt.Errorf("Cloud Translation not available: %w", err)
	}
	return nil
}

func (s *GoogleService) SupportedLanguages(ctx context.Context) ([]string, error) {
	client, err := newGoogleClient(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	langs, err := client.SupportedLanguages(ctx, language.English)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = l.Tag.String()
	}
	return out, nil
}
