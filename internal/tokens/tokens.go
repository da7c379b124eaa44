// Package tokens estimates token counts and context budgets per model.
package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Context window sizes for common model families. Unknown models fall back
// to a conservative default.
var contextWindows = map[string]int{
	"gpt-4o":           128000,
	"gpt-4o-mini":      128000,
	"gpt-4-turbo":      128000,
	"gpt-4":            8192,
	"gpt-3.5-turbo":    16385,
	"gemini-1.5-pro":   1048576,
	"gemini-1.5-flash": 1048576,
}

const defaultContextWindow = 4096

var (
	mu       sync.Mutex
	encoders = map[string]*tiktoken.Tiktoken{}
)

// Count returns the number of tokens in text for the given model. Models
// unknown to tiktoken are counted with the cl100k_base encoding; Ollama
// model tags like "qwen2.5:7b" are reduced to their family name first.
func Count(text, model string) int {
	enc, err := encoderFor(model)
	if err != nil {
		// Rough heuristic when no encoding is available at all.
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// MaxTokens returns the usable context budget for a model, scaled down by
// trimRatio to leave room for the response and schema overhead.
func MaxTokens(model string, trimRatio float64) int {
	if trimRatio <= 0 || trimRatio > 1 {
		trimRatio = 0.75
	}
	window := defaultContextWindow
	if w, ok := contextWindows[baseModel(model)]; ok {
		window = w
	}
	return int(float64(window) * trimRatio)
}

// Truncate cuts text to at most maxTokens tokens for the given model.
func Truncate(text, model string, maxTokens int) string {
	enc, err := encoderFor(model)
	if err != nil {
		return truncateRunes(text, maxTokens*4)
	}
	ids := enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return enc.Decode(ids[:maxTokens])
}

// truncateRunes cuts on rune boundaries so the fallback never splits a
// UTF-8 sequence.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func encoderFor(model string) (*tiktoken.Tiktoken, error) {
	name := baseModel(model)

	mu.Lock()
	defer mu.Unlock()
	if enc, ok := encoders[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	encoders[name] = enc
	return enc, nil
}

// baseModel strips an Ollama-style tag suffix, e.g. "qwen2.5:7b" -> "qwen2.5".
func baseModel(model string) string {
	if i := strings.IndexByte(model, ':'); i > 0 {
		return model[:i]
	}
	return model
}
