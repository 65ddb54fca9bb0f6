package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/transcompare/internal/placeholder"
	"github.com/valpere/transcompare/internal/postprocess"
)

// completer is an LLM endpoint: one system prompt and one user message in,
// the raw reply and the model that wrote it out.
type completer interface {
	Name() string
	complete(ctx context.Context, cfg ServiceConfig, system, user string) (reply, model string, err error)
}

func promptLang(lang string) string {
	if lang == "" || strings.EqualFold(lang, "auto") {
		return "the detected language"
	}
	return lang
}

// llmTranslate translates a single cell.
func llmTranslate(ctx context.Context, c completer, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: c.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	text, tokens := placeholder.Protect(req.Text)
	system := buildSystemPrompt(promptLang(req.SourceLang), req.TargetLang, req.Instructions, req.Notes, len(tokens) > 0)

	reply, model, err := c.complete(ctx, cfg, system, text)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	translated := postprocess.Clean(reply, text)
	result.TranslatedText = placeholder.Restore(translated, tokens)
	result.Confidence = 0.7
	result.Metadata = map[string]string{"model": model}
	if missing := placeholder.Missing(translated, tokens); len(missing) > 0 {
		result.Metadata["missing_placeholders"] = fmt.Sprint(missing)
	}
	return result, nil
}

// llmTranslateBatch translates a column. With cfg.Batch the column goes out
// as one JSON prompt; otherwise each text gets its own prompt.
func llmTranslateBatch(ctx context.Context, c completer, cfg ServiceConfig, req BatchRequest) ([]string, error) {
	if !cfg.Batch {
		out := make([]string, len(req.Texts))
		for i, text := range req.Texts {
			res, err := llmTranslate(ctx, c, cfg, TranslateRequest{
				Text:         text,
				SourceLang:   req.SourceLang,
				TargetLang:   req.TargetLang,
				Instructions: req.Instructions,
				Notes:        req.note(i),
			})
			if err != nil {
				return nil, fmt.Errorf("text %d: %w", i+1, err)
			}
			out[i] = res.TranslatedText
		}
		return out, nil
	}

	items := make([]batchItem, len(req.Texts))
	tokens := make([][]string, len(req.Texts))
	protected := false
	for i, text := range req.Texts {
		items[i] = batchItem{ID: i + 1, Note: req.note(i)}
		items[i].Text, tokens[i] = placeholder.Protect(text)
		protected = protected || len(tokens[i]) > 0
	}
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	system := buildBatchPrompt(promptLang(req.SourceLang), req.TargetLang, req.Instructions, len(items), protected)
	reply, _, err := c.complete(ctx, cfg, system, strings.TrimSpace(payload.String()))
	if err != nil {
		return nil, err
	}

	got, err := parseBatchReply(reply, len(items))
	if err != nil {
		return nil, err
	}
	for i := range got {
		got[i] = placeholder.Restore(got[i], tokens[i])
	}
	return got, nil
}

type batchItem struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// parseBatchReply extracts the JSON array from a batch reply. Elements may be
// plain strings or objects carrying a "translation" or "text" field.
func parseBatchReply(reply string, want int) ([]string, error) {
	text := postprocess.StripReasoning(reply)
	start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, errors.New("reply has no JSON array")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode batch reply: %w", err)
	}
	if len(raw) != want {
		return nil, fmt.Errorf("got %d translations for %d texts", len(raw), want)
	}

	out := make([]string, len(raw))
	for i, elem := range raw {
		var s string
		if err := json.Unmarshal(elem, &s); err == nil {
			out[i] = strings.TrimSpace(s)
			continue
		}
		var obj struct {
			Translation string `json:"translation"`
			Text        string `json:"text"`
		}
		if err := json.Unmarshal(elem, &obj); err != nil {
			return nil, fmt.Errorf("item %d: unexpected %s", i+1, elem)
		}
		out[i] = strings.TrimSpace(obj.Translation)
		if out[i] == "" {
			out[i] = strings.TrimSpace(obj.Text)
		}
	}
	return out, nil
}

// buildSystemPrompt is the single-cell prompt shared by the LLM providers. It
// carries the user's instructions, the translator note for the cell and, when
// tokens were protected, the marker hint.
func buildSystemPrompt(sourceLang, targetLang, instructions, notes string, protected bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a professional translator. Translate the following text from %s to %s.\n", sourceLang, targetLang)
	sb.WriteString("Only respond with the translation, nothing else. No explanations, no quotes, just the translation.")

	if protected {
		sb.WriteString(" ")
		sb.WriteString(placeholder.Hint())
	}

	if instructions != "" {
		sb.WriteString("\n\nINSTRUCTIONS:\n")
		sb.WriteString(instructions)
	}

	if notes != "" {
		sb.WriteString("\n\nTRANSLATOR NOTE (context for this text, do NOT translate it):\n")
		sb.WriteString(notes)
	}

	return sb.String()
}

func buildBatchPrompt(sourceLang, targetLang, instructions string, n int, protected bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a professional translator. The user message is a JSON array of %d items. ", n)
	fmt.Fprintf(&sb, "Translate the \"text\" of every item from %s to %s. ", sourceLang, targetLang)
	sb.WriteString("An item's \"note\" is context for the translator and must not be translated.\n")
	fmt.Fprintf(&sb, "Respond with a JSON array of exactly %d strings, the translations in item order, and nothing else.", n)

	if protected {
		sb.WriteString(" ")
		sb.WriteString(placeholder.Hint())
	}

	if instructions != "" {
		sb.WriteString("\n\nINSTRUCTIONS:\n")
		sb.WriteString(instructions)
	}

	return sb.String()
}
