// Package detector guesses the language of sheet text. It backs source
// language auto-detection and the target-language validator.
package detector

import (
	"fmt"
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over every language lingua knows. Building it loads
// all language models, so share one instance per process.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// NewFor builds a detector restricted to the given ISO 639-1 codes, which is
// faster and more accurate when the candidate languages are known. With no
// codes it behaves like New.
func NewFor(codes ...string) (*Detector, error) {
	if len(codes) == 0 {
		return New(), nil
	}
	seen := make(map[lingua.IsoCode639_1]bool)
	var isoCodes []lingua.IsoCode639_1
	for _, c := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(c)))
		if iso == lingua.UnknownIsoCode639_1 {
			return nil, fmt.Errorf("unsupported language code %q", c)
		}
		if !seen[iso] {
			seen[iso] = true
			isoCodes = append(isoCodes, iso)
		}
	}
	if len(isoCodes) < 2 {
		return nil, fmt.Errorf("at least two distinct languages are needed, got %v", codes)
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromIsoCodes639_1(isoCodes...).
		Build()
	return &Detector{detector: detector}, nil
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text's language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
