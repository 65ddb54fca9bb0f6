package translator

import (
	"context"
	"time"
)

// ServiceConfig carries per-provider settings. It is decoded from the
// providers section of the config file.
type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	Models      []string      `mapstructure:"models" json:"models"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Email       string        `mapstructure:"email" json:"email"`
	// Batch makes LLM providers translate a whole column in one prompt
	// instead of one prompt per cell.
	Batch bool `mapstructure:"batch" json:"batch"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// Instructions is free text from the user steering LLM providers; MT
	// providers ignore it.
	Instructions string `json:"instructions,omitempty"`
	// Notes is the translator note for this text, if any.
	Notes string `json:"notes,omitempty"`
}

// BatchRequest asks for several texts to be translated with shared settings.
// Notes, when set, has one entry per text.
type BatchRequest struct {
	Texts        []string `json:"texts"`
	Notes        []string `json:"notes,omitempty"`
	SourceLang   string   `json:"source_lang"`
	TargetLang   string   `json:"target_lang"`
	Instructions string   `json:"instructions,omitempty"`
}

func (r BatchRequest) note(i int) string {
	if i < len(r.Notes) {
		return r.Notes[i]
	}
	return ""
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Confidence     float64           `json:"confidence"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

type TranslationService interface {
	Name() string
	Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
	SupportedLanguages(ctx context.Context) ([]string, error)
}

// BatchService is implemented by providers that translate many texts in one
// call. The result has one entry per input text, in input order.
type BatchService interface {
	TranslationService
	TranslateBatch(ctx context.Context, cfg ServiceConfig, req BatchRequest) ([]string, error)
}
