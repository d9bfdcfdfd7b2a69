// Package utils cleans up language-model output: lenient JSON decoding and
// markdown answers.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/go-playground/validator/v10"
	hjson "github.com/hjson/hjson-go/v4"
)

var validate = validator.New()

// RepairJSON fixes the usual model mistakes: single quotes, unquoted keys,
// trailing commas, unclosed objects and code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON reads Hjson (comments, unquoted strings, optional commas) and
// returns standard JSON.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("json marshal failed: %w", err)
	}
	return string(out), nil
}

// ExtractJSONObject returns the outermost {...} span of s, dropping any prose
// or fences around it. s is returned unchanged when no braces are found.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// SmartParse decodes model output into target, trying in order: plain JSON,
// repaired JSON, then Hjson. When target is a struct with `validate` tags the
// decoded value must also pass validation.
func SmartParse(input string, target interface{}) (string, error) {
	candidates := []func(string) (string, error){
		func(s string) (string, error) { return s, nil },
		RepairJSON,
		ParseHJSON,
	}

	body := ExtractJSONObject(CleanMarkdown(input))
	var lastErr error
	for _, next := range candidates {
		js, err := next(body)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(js), target); err != nil {
			lastErr = err
			continue
		}
		if err := validateStruct(target); err != nil {
			return js, err
		}
		return js, nil
	}
	return "", fmt.Errorf("smart parse failed: %w", lastErr)
}

func validateStruct(target interface{}) error {
	err := validate.Struct(target)
	if err == nil {
		return nil
	}
	if _, ok := err.(*validator.InvalidValidationError); ok {
		// not a struct (map, slice): nothing to validate
		return nil
	}
	return fmt.Errorf("model output failed validation: %w", err)
}
