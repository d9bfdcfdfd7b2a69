// Package llm holds the language-model providers behind question answering
// and line-item extraction.
package llm

import (
	"context"
)

// Provider is the interface for all LLM providers.
//
// Recognised options: "model" (string), "temperature" (float64),
// "json" (bool, ask for a JSON object), "max_tokens" (int).
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

func optString(options map[string]interface{}, key, def string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return def
}

func optFloat(options map[string]interface{}, key string, def float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

func optInt(options map[string]interface{}, key string, def int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func optBool(options map[string]interface{}, key string) bool {
	v, _ := options[key].(bool)
	return v
}
