package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenAICompatProvider talks to any chat-completions endpoint that follows the
// OpenAI wire format (OpenAI, DeepSeek, Qwen compatible mode).
type OpenAICompatProvider struct {
	Name      string
	BaseURL   string // up to and excluding /chat/completions
	Model     string
	APIKey    string
	APIKeyEnv string
	Client    *http.Client
}

var _ Provider = (*OpenAICompatProvider)(nil)

// NewOpenAIProvider returns a provider for api.openai.com.
func NewOpenAIProvider() *OpenAICompatProvider {
	return &OpenAICompatProvider{Name: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"}
}

// NewDeepSeekProvider returns a provider for api.deepseek.com.
func NewDeepSeekProvider() *OpenAICompatProvider {
	return &OpenAICompatProvider{Name: "deepseek", BaseURL: "https://api.deepseek.com", Model: "deepseek-chat", APIKeyEnv: "DEEPSEEK_API_KEY"}
}

// NewQwenProvider returns a provider for DashScope's compatible mode.
func NewQwenProvider() *OpenAICompatProvider {
	return &OpenAICompatProvider{Name: "qwen", BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", Model: "qwen-max", APIKeyEnv: "DASHSCOPE_API_KEY"}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAICompatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.APIKey
	if apiKey == "" && p.APIKeyEnv != "" {
		apiKey = os.Getenv(p.APIKeyEnv)
	}
	apiKey = optString(options, "api_key", apiKey)
	if apiKey == "" {
		return "", fmt.Errorf("%s: API key not set (%s)", p.Name, p.APIKeyEnv)
	}

	reqBody := chatRequest{
		Model:       optString(options, "model", p.Model),
		Temperature: optFloat(options, "temperature", 0),
		MaxTokens:   optInt(options, "max_tokens", 0),
	}
	if systemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, chatMessage{Role: "user", Content: prompt})
	if optBool(options, "json") {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", p.Name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: API call: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", p.Name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: status=%d body=%s", p.Name, res.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s: unmarshal response: %w", p.Name, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("%s: %s", p.Name, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", p.Name)
	}
	return response.Choices[0].Message.Content, nil
}

func (p *OpenAICompatProvider) AdaptInstructions(raw string) string {
	return raw
}
