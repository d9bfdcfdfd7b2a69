// Package agent routes each task (question answering, line-item extraction)
// to the LLM provider configured for it.
package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"fsi_kpi/pkg/core/llm"

	"gopkg.in/yaml.v2"
)

// Tasks the service sends to a model.
const (
	TaskQA         = "qa"
	TaskExtraction = "extraction"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider" validate:"required"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string  `yaml:"provider"` // Optional override
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Description string  `yaml:"description"`
}

// LoadConfig reads an agent config from a YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read agent config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse agent config: %w", err)
	}
	return cfg, nil
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
}

// NewManager registers the built-in providers. Extra providers (tests, local
// models) can be added with Register.
func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":   &llm.GeminiProvider{},
			"openai":   llm.NewOpenAIProvider(),
			"deepseek": llm.NewDeepSeekProvider(),
			"qwen":     llm.NewQwenProvider(),
		},
	}
}

// Register adds or replaces a provider under name.
func (m *Manager) Register(name string, p llm.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[name] = p
}

// GetProvider resolves the provider for a task: task override, then the
// active provider, then gemini.
func (m *Manager) GetProvider(task string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if agentConfig, ok := m.config.Agents[task]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["gemini"]
}

// GetProviderByName retrieves a provider instance by name, or nil.
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

// ExecutePrompt adapts instructions for the task's provider and applies the
// task's model and temperature unless options already set them.
func (m *Manager) ExecutePrompt(ctx context.Context, task string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(task)
	if provider == nil {
		return "", fmt.Errorf("no provider available for task %q", task)
	}

	merged := map[string]interface{}{}
	m.mu.RLock()
	if ac, ok := m.config.Agents[task]; ok {
		if ac.Model != "" {
			merged["model"] = ac.Model
		}
		merged["temperature"] = ac.Temperature
	}
	m.mu.RUnlock()
	for k, v := range options {
		merged[k] = v
	}

	return provider.GenerateResponse(ctx, prompt, provider.AdaptInstructions(systemPrompt), merged)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	fmt.Printf("[AGENT] Global provider set to: %s\n", newProvider)
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names, sorted.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
