package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type stubProvider struct {
	name    string
	options map[string]interface{}
}

func (s *stubProvider) GenerateResponse(_ context.Context, prompt, _ string, options map[string]interface{}) (string, error) {
	s.options = options
	return s.name + ":" + prompt, nil
}

func (s *stubProvider) AdaptInstructions(raw string) string { return raw }

func TestManager_TaskRouting(t *testing.T) {
	m := NewManager(Config{
		ActiveProvider: "a",
		Agents: map[string]AgentConfig{
			TaskExtraction: {Provider: "b", Model: "small", Temperature: 0},
		},
	})
	a, b := &stubProvider{name: "a"}, &stubProvider{name: "b"}
	m.Register("a", a)
	m.Register("b", b)

	out, err := m.ExecutePrompt(context.Background(), TaskQA, "q", "", nil)
	if err != nil || out != "a:q" {
		t.Errorf("qa routed to %q, %v", out, err)
	}
	out, err = m.ExecutePrompt(context.Background(), TaskExtraction, "q", "", map[string]interface{}{"json": true})
	if err != nil || out != "b:q" {
		t.Errorf("extraction routed to %q, %v", out, err)
	}
	if b.options["model"] != "small" || b.options["json"] != true {
		t.Errorf("options not merged: %v", b.options)
	}

	if err := m.SetGlobalProvider("b"); err != nil {
		t.Fatalf("SetGlobalProvider failed: %v", err)
	}
	if m.GetActiveProvider() != "b" {
		t.Errorf("active = %s", m.GetActiveProvider())
	}
	if err := m.SetGlobalProvider("nope"); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestManager_Available(t *testing.T) {
	got := NewManager(Config{ActiveProvider: "gemini"}).Available()
	want := []string{"deepseek", "gemini", "openai", "qwen"}
	if len(got) != len(want) {
		t.Fatalf("Available() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	data := "active_provider: deepseek\nagents:\n  qa:\n    provider: gemini\n    temperature: 0\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ActiveProvider != "deepseek" || cfg.Agents[TaskQA].Provider != "gemini" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
