package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	IsConfigured() bool
}

// Options configure a provider.
type Options struct {
	Provider    string // "ollama" or "openai"
	Model       string
	OllamaURL   string
	OpenAIModel string
	APIKeyEnv   string
	MaxTokens   int
}

// Ollama talks to a local Ollama server.
type Ollama struct {
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewOllama creates an Ollama-backed provider.
func NewOllama(model, baseURL string, maxTokens int) *Ollama {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Ollama{
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks that Ollama is reachable and the model is available.
func (o *Ollama) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	base := strings.SplitN(o.model, ":", 2)[0]
	for _, m := range tags.Models {
		if strings.Contains(m.Name, base) {
			return true
		}
	}
	log.Printf("ollama model %q not found", o.model)
	return false
}

// Generate sends a prompt to Ollama and returns the response text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"options": map[string]any{
			"num_predict": o.maxTokens,
			"temperature": 0.3,
		},
	}

	respBody, err := postJSON(ctx, o.client, o.baseURL+"/api/chat", payload, "")
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	return result.Message.Content, nil
}

// OpenAI talks to the OpenAI chat completions API.
type OpenAI struct {
	model     string
	apiKey    string
	maxTokens int
	client    *http.Client
}

// NewOpenAI creates an OpenAI-backed provider, reading the key from the
// given environment variable.
func NewOpenAI(model, apiKeyEnv string, maxTokens int) *OpenAI {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &OpenAI{
		model:     model,
		apiKey:    os.Getenv(apiKeyEnv),
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// IsConfigured checks that an API key is set.
func (o *OpenAI) IsConfigured() bool {
	return o.apiKey != ""
}

// Generate sends a prompt to OpenAI and returns the response text.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	payload := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  o.maxTokens,
		"temperature": 0.3,
	}

	respBody, err := postJSON(ctx, o.client, "https://api.openai.com/v1/chat/completions", payload, o.apiKey)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, bearer string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// CreateProvider picks a provider from config, preferring Ollama when it is
// available and falling back to OpenAI. Returns nil if neither is usable.
func CreateProvider(opts Options) Provider {
	if strings.ToLower(opts.Provider) == "ollama" {
		p := NewOllama(opts.Model, opts.OllamaURL, opts.MaxTokens)
		if p.IsConfigured() {
			log.Printf("using ollama with model %s", opts.Model)
			return p
		}
		log.Println("ollama not available, trying OpenAI fallback...")
	}

	p := NewOpenAI(opts.OpenAIModel, opts.APIKeyEnv, opts.MaxTokens)
	if p.IsConfigured() {
		log.Printf("using OpenAI with model %s", opts.OpenAIModel)
		return p
	}

	log.Println("no LLM provider available; check Ollama is running or set the API key")
	return nil
}
