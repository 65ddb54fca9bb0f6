package translator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/transcompare/internal/chunker"
)

// myMemoryMaxChars is the longest query MyMemory accepts.
const myMemoryMaxChars = 500

type MyMemoryService struct {
	email   string
	baseURL string
	client  *http.Client
}

func NewMyMemoryService(email string) *MyMemoryService {
	return &MyMemoryService{
		email:   email,
		baseURL: "https://api.mymemory.translated.net",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *MyMemoryService) Name() string {
	return "mymemory"
}

func (s *MyMemoryService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	sourceLang := req.SourceLang
	if sourceLang == "" || sourceLang == "auto" {
		sourceLang = "en"
	}

	email := s.email
	if email == "" {
		email = cfg.Email
	}

	var parts []string
	var confidence float64
	chunks := chunker.Split(req.Text, myMemoryMaxChars)
	for _, chunk := range chunks {
		text, match, err := s.query(ctx, chunk, sourceLang, req.TargetLang, email)
		if err != nil {
			result.Error = err.Error()
			return result, err
		}
		parts = append(parts, text)
		confidence += match
	}

	result.TranslatedText = strings.Join(parts, " ")
	result.Confidence = confidence / float64(len(chunks))

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	if len(chunks) > 1 {
		result.Metadata = map[string]string{"chunks": fmt.Sprintf("%d", len(chunks))}
	}

	return result, nil
}

func (s *MyMemoryService) query(ctx context.Context, text, sourceLang, targetLang, email string) (string, float64, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", sourceLang+"|"+targetLang)
	if email != "" {
		q.Set("de", email)
	}

	var resp struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}
	if err := doJSON(ctx, s.client, http.MethodGet, s.baseURL+"/get?"+q.Encode(), nil, nil, &resp); err != nil {
		return "", 0, err
	}
	if resp.ResponseStatus != http.StatusOK {
		return "", 0, fmt.Errorf("API error: %s (%d)", resp.ResponseDetails, resp.ResponseStatus)
	}
	return resp.ResponseData.TranslatedText, resp.ResponseData.Match, nil
}

func (s *MyMemoryService) IsAvailable(ctx context.Context) error {
	return nil
}

func (s *MyMemoryService) SupportedLanguages(ctx context.Context) ([]string, error) {
	return []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
		"ar", "nl", "pl", "tr", "sv", "da", "no", "fi", "el", "he",
		"th", "vi", "id", "ms", "cs", "hu", "ro", "uk", "bg", "ca",
	}, nil
}
