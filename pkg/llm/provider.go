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

// Package llm provides the text-generation backends the oracles run on.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider generates one completion for a system/user prompt pair.
type Provider interface {
	// Generate produces the model's answer for req.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider identifier.
	Name() string
}

// GenerateRequest is one prompt. System and User are the two role segments;
// how they are delivered (chat roles or delimiter markup) is up to the
// provider.
type GenerateRequest struct {
	System      string   `json:"system,omitempty"`
	User        string   `json:"user"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// GenerateResponse contains the model's text.
type GenerateResponse struct {
	Text         string        `json:"text"`
	Model        string        `json:"model"`
	PromptTokens int           `json:"prompt_tokens,omitempty"`
	OutputTokens int           `json:"output_tokens,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
}

// ProviderConfig holds configuration for creating providers.
type ProviderConfig struct {
	// Provider type: "completion", "ollama", "openai", "anthropic", "mock"
	Type string `json:"type" yaml:"provider"`

	// BaseURL for the API endpoint
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey for authenticated providers
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// DefaultModel to use if not specified in requests
	DefaultModel string `json:"default_model,omitempty" yaml:"model,omitempty"`

	// Timeout for a single request
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// NewProvider creates a Provider based on configuration.
//
// "completion" talks to an OpenAI-compatible /completions endpoint (vLLM,
// llama.cpp server) with prompts rendered in Llama 3 role markup. "ollama",
// "openai" and "anthropic" go through langchaingo chat models.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	switch strings.ToLower(cfg.Type) {
	case "completion", "vllm", "":
		return newCompletionProvider(cfg)
	case "ollama", "openai", "openai-compatible", "anthropic", "claude":
		return newLangchainProvider(cfg)
	case "mock", "test":
		return &MockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type: %s (supported: completion, ollama, openai, anthropic, mock)", cfg.Type)
	}
}
