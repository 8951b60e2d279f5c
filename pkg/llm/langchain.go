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
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainProvider adapts a langchaingo chat model. System and user
// segments are sent as separate chat messages.
type LangchainProvider struct {
	name  string
	model llms.Model
}

func newLangchainProvider(cfg ProviderConfig) (*LangchainProvider, error) {
	kind := strings.ToLower(cfg.Type)
	var (
		m   llms.Model
		err error
	)
	switch kind {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.DefaultModel
		if model == "" {
			model = "llama3.3"
		}
		m, err = ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	case "openai", "openai-compatible":
		kind = "openai"
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey)}
		if cfg.DefaultModel != "" {
			opts = append(opts, openai.WithModel(cfg.DefaultModel))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err = openai.New(opts...)
	case "anthropic", "claude":
		kind = "anthropic"
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey)}
		if cfg.DefaultModel != "" {
			opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
		}
		m, err = anthropic.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported langchain provider: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", kind, err)
	}
	return &LangchainProvider{name: kind, model: m}, nil
}

// NewLangchainProvider wraps an already constructed langchaingo model.
func NewLangchainProvider(name string, m llms.Model) *LangchainProvider {
	return &LangchainProvider{name: name, model: m}
}

func (p *LangchainProvider) Name() string { return p.name }

// Generate sends the prompt as a system and a human message.
func (p *LangchainProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var msgs []llms.MessageContent
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}

	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	out := &GenerateResponse{
		Text:     resp.Choices[0].Content,
		Model:    req.Model,
		Duration: time.Since(start),
	}
	if info := resp.Choices[0].GenerationInfo; info != nil {
		out.PromptTokens = intInfo(info, "PromptTokens")
		out.OutputTokens = intInfo(info, "CompletionTokens")
	}
	return out, nil
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
