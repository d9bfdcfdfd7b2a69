package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinsRender(t *testing.T) {
	r := NewRegistry()

	sys, user, err := r.Render(QAAnalyst, Vars{"Context": "ITC | balance_sheet | Total Assets | FY24 = 10.0, FY23 = NA", "Question": "Total assets?"})
	if err != nil {
		t.Fatal(err)
	}
	if sys != "" {
		t.Errorf("qa prompt has a system prompt: %q", sys)
	}
	if !strings.Contains(user, "Context: ITC | balance_sheet") || !strings.Contains(user, "Question: Total assets?\nAnswer:") {
		t.Errorf("unexpected user prompt:\n%s", user)
	}

	sys, user, err = r.Render(ExtractionLineItem, Vars{"Company": "ITC", "Item": "Total Assets", "Excerpts": []string{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sys, `"fy_2024"`) {
		t.Errorf("extraction system prompt = %q", sys)
	}
	if want := "Excerpts:\na\n---\nb\n---\n"; !strings.HasSuffix(user, want) {
		t.Errorf("user prompt = %q, want suffix %q", user, want)
	}
}

func TestRender_MissingVariable(t *testing.T) {
	if _, _, err := NewRegistry().Render(QAAnalyst, Vars{"Question": "x"}); err == nil {
		t.Error("expected error for missing Context")
	}
	if _, _, err := NewRegistry().Render("nope", nil); err == nil {
		t.Error("expected error for unknown prompt")
	}
}

func TestLoadDirectory_OverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	qaDir := filepath.Join(dir, "qa")
	if err := os.MkdirAll(qaDir, 0755); err != nil {
		t.Fatal(err)
	}
	body := `{"name": "terse", "system_prompt": "Be terse.", "user_prompt_template": "{{.Question}}"}`
	if err := os.WriteFile(filepath.Join(qaDir, "analyst.json"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadDirectory(dir); err != nil {
		t.Fatal(err)
	}
	pt, err := r.GetPrompt(QAAnalyst)
	if err != nil {
		t.Fatal(err)
	}
	if pt.Category != "qa" || pt.Name != "terse" {
		t.Errorf("loaded prompt = %+v", pt)
	}
	sys, user, err := r.Render(QAAnalyst, Vars{"Question": "why?", "Context": ""})
	if err != nil || sys != "Be terse." || user != "why?" {
		t.Errorf("Render = %q, %q, %v", sys, user, err)
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
}

func TestLoadDirectory_BadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"user_prompt_template": "{{.X"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewRegistry().LoadDirectory(dir); err == nil {
		t.Error("expected template parse error")
	}
	if err := NewRegistry().LoadDirectory(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
