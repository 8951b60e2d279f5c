// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestNewProvider_MockType(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "mock"})
	if err != nil {
		t.Fatalf("NewProvider(mock) error = %v", err)
	}
	if p.Name() != "mock" {
		t.Errorf("expected name 'mock', got %q", p.Name())
	}
}

func TestNewProvider_CompletionType(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "vllm", DefaultModel: "m"})
	if err != nil {
		t.Fatalf("NewProvider(vllm) error = %v", err)
	}
	if p.Name() != "completion" {
		t.Errorf("expected name 'completion', got %q", p.Name())
	}
}

func TestNewProvider_CompletionRequiresModel(t *testing.T) {
	if _, err := NewProvider(ProviderConfig{Type: "completion"}); err == nil {
		t.Fatal("expected error without a model")
	}
}

func TestNewProvider_OllamaType(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Type: "ollama"})
	if err != nil {
		t.Fatalf("NewProvider(ollama) error = %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("expected name 'ollama', got %q", p.Name())
	}
}

func TestNewProvider_KeyedTypesRequireKey(t *testing.T) {
	for _, typ := range []string{"openai", "anthropic"} {
		if _, err := NewProvider(ProviderConfig{Type: typ}); err == nil {
			t.Errorf("NewProvider(%s) without key: expected error", typ)
		}
	}
}

func TestNewProvider_UnknownType(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Type: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider type")
	}
	if !strings.Contains(err.Error(), "unknown LLM provider type") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRenderLlama(t *testing.T) {
	got := RenderLlama("SYS", "USER")
	want := "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\nSYS\n\n" +
		"<|eot_id|><|start_header_id|>user<|end_header_id|>\nUSER\n\n" +
		"<|eot_id|><|start_header_id|>assistant<|end_header_id|>"
	if got != want {
		t.Errorf("RenderLlama() =\n%q\nwant\n%q", got, want)
	}
}

func TestRenderLlama_BracesInUser(t *testing.T) {
	got := RenderLlama("s", "if (x) { return {user}; }")
	if !strings.Contains(got, "if (x) { return {user}; }") {
		t.Errorf("user text with braces was altered: %q", got)
	}
}

func TestCompletionProvider_Generate(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama","choices":[{"text":" **Answer: yes**"}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`))
	}))
	defer server.Close()

	p, err := NewProvider(ProviderConfig{Type: "completion", BaseURL: server.URL + "/v1/", APIKey: "secret", DefaultModel: "llama"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	resp, err := p.Generate(context.Background(), GenerateRequest{
		System: "sys", User: "question", Temperature: 0.8, TopP: 0.9, MaxTokens: 100,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != " **Answer: yes**" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.PromptTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("usage = %d/%d", resp.PromptTokens, resp.OutputTokens)
	}
	if got.Prompt != RenderLlama("sys", "question") {
		t.Errorf("prompt not rendered with Llama markup: %q", got.Prompt)
	}
	if got.Model != "llama" || got.Temperature != 0.8 || got.TopP != 0.9 || got.MaxTokens != 100 {
		t.Errorf("sampling parameters not forwarded: %+v", got)
	}
}

func TestCompletionProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p, _ := NewProvider(ProviderConfig{Type: "completion", BaseURL: server.URL, DefaultModel: "m"})
	_, err := p.Generate(context.Background(), GenerateRequest{User: "q"})
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestCompletionProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p, _ := NewProvider(ProviderConfig{Type: "completion", BaseURL: server.URL, DefaultModel: "m"})
	if _, err := p.Generate(context.Background(), GenerateRequest{User: "q"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

type recordingModel struct {
	mu   sync.Mutex
	msgs []llms.MessageContent
}

func (m *recordingModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.msgs = msgs
	m.mu.Unlock()
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Answer: no",
		GenerationInfo: map[string]any{"PromptTokens": 7, "CompletionTokens": 2},
	}}}, nil
}

func (m *recordingModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, opts...)
}

func TestLangchainProvider_Generate(t *testing.T) {
	model := &recordingModel{}
	p := NewLangchainProvider("fake", model)

	resp, err := p.Generate(context.Background(), GenerateRequest{System: "sys", User: "usr", Temperature: 0.8})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "Answer: no" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.PromptTokens != 7 || resp.OutputTokens != 2 {
		t.Errorf("usage = %d/%d", resp.PromptTokens, resp.OutputTokens)
	}
	if len(model.msgs) != 2 {
		t.Fatalf("expected system and human messages, got %d", len(model.msgs))
	}
	if model.msgs[0].Role != llms.ChatMessageTypeSystem || model.msgs[1].Role != llms.ChatMessageTypeHuman {
		t.Errorf("unexpected roles %s, %s", model.msgs[0].Role, model.msgs[1].Role)
	}
}

func TestLangchainProvider_NoSystem(t *testing.T) {
	model := &recordingModel{}
	p := NewLangchainProvider("fake", model)
	if _, err := p.Generate(context.Background(), GenerateRequest{User: "usr"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(model.msgs) != 1 {
		t.Errorf("expected one message, got %d", len(model.msgs))
	}
}

func TestMockProvider_CountsCalls(t *testing.T) {
	mock := &MockProvider{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mock.Generate(context.Background(), GenerateRequest{User: "x"})
		}()
	}
	wg.Wait()
	if mock.Calls() != 8 {
		t.Errorf("Calls() = %d, want 8", mock.Calls())
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvModel, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := ConfigFromEnv(ProviderConfig{Type: "openai"})
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want vendor fallback", cfg.APIKey)
	}

	t.Setenv(EnvAPIKey, "explicit")
	t.Setenv(EnvModel, "gpt-x")
	cfg = ConfigFromEnv(ProviderConfig{Type: "openai", DefaultModel: "base"})
	if cfg.APIKey != "explicit" || cfg.DefaultModel != "gpt-x" {
		t.Errorf("explicit variables not applied: %+v", cfg)
	}
}
