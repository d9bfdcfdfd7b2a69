package utils

import (
	"strings"
	"testing"
)

type extraction struct {
	FY2024 *float64 `json:"fy_2024"`
	FY2023 *float64 `json:"fy_2023"`
	Unit   string   `json:"unit" validate:"omitempty,oneof=crore lakh million"`
}

func TestSmartParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain", `{"fy_2024": 12.5, "fy_2023": 10}`, 12.5},
		{"fenced", "```json\n{\"fy_2024\": 12.5, \"fy_2023\": 10}\n```", 12.5},
		{"prose around", "Here you go: {\"fy_2024\": 12.5, \"fy_2023\": 10} hope it helps", 12.5},
		{"trailing comma", `{"fy_2024": 12.5, "fy_2023": 10,}`, 12.5},
		{"single quotes", `{'fy_2024': 12.5, 'fy_2023': 10}`, 12.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out extraction
			if _, err := SmartParse(tt.input, &out); err != nil {
				t.Fatalf("SmartParse failed: %v", err)
			}
			if out.FY2024 == nil || *out.FY2024 != tt.want {
				t.Errorf("fy_2024 = %v, want %v", out.FY2024, tt.want)
			}
		})
	}
}

func TestSmartParse_NullStaysNil(t *testing.T) {
	var out extraction
	if _, err := SmartParse(`{"fy_2024": null, "fy_2023": 3}`, &out); err != nil {
		t.Fatalf("SmartParse failed: %v", err)
	}
	if out.FY2024 != nil {
		t.Errorf("fy_2024 should be nil, got %v", *out.FY2024)
	}
}

func TestSmartParse_Validation(t *testing.T) {
	var out extraction
	_, err := SmartParse(`{"fy_2024": 1, "fy_2023": 2, "unit": "bushels"}`, &out)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSmartParse_Map(t *testing.T) {
	out := map[string]interface{}{}
	if _, err := SmartParse(`{a: 1}`, &out); err != nil {
		t.Fatalf("SmartParse failed: %v", err)
	}
	if out["a"] != 1.0 {
		t.Errorf("a = %v", out["a"])
	}
}

func TestCleanMarkdown(t *testing.T) {
	tests := map[string]string{
		"  plain answer  ":          "plain answer",
		"```markdown\n# Title\n```": "# Title",
		"```\nbody\n```":            "body",
		"```json\n{\"a\": 1}\n```":  "{\"a\": 1}",
		"no fence ``` inside":       "no fence ``` inside",
		"```inline```":              "inline",
	}
	for in, want := range tests {
		if got := CleanMarkdown(in); got != want {
			t.Errorf("CleanMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("**Current ratio** is 2.0\n\n| KPI | FY24 |\n|---|---|\n| ROE | 0.15 |\n")
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	if !strings.Contains(html, "<strong>Current ratio</strong>") {
		t.Errorf("missing bold: %s", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("GFM table not rendered: %s", html)
	}
}
