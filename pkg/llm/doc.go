// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the text-generation backends behind the corpus
// oracles.
//
// Every oracle prompt is a pair of segments, a system instruction and a user
// message. A Provider turns that pair into one completion. How the pair is
// delivered depends on the backend:
//   - completion: an OpenAI-compatible /completions endpoint (vLLM,
//     llama.cpp). The pair is rendered into Llama 3 role markup by
//     RenderLlama. This is the default.
//   - ollama, openai, anthropic: langchaingo chat models. The pair is sent
//     as a system message and a human message.
//   - mock: MockProvider, for tests.
//
// # Quick Start
//
//	provider, err := llm.NewProvider(llm.ProviderConfig{
//	    Type:         "completion",
//	    BaseURL:      "http://gpu-box:8000/v1",
//	    DefaultModel: llm.DefaultModel,
//	})
//	if err != nil {
//	    return err
//	}
//	resp, err := provider.Generate(ctx, llm.GenerateRequest{
//	    System:      "You are a software security expert.",
//	    User:        prompt,
//	    Temperature: 0.8,
//	    TopP:        0.9,
//	    MaxTokens:   8096,
//	})
//
// # Environment
//
// ProviderFromEnv and ConfigFromEnv read SECCORPUS_LLM_PROVIDER,
// SECCORPUS_LLM_BASE_URL, SECCORPUS_LLM_MODEL and SECCORPUS_LLM_API_KEY,
// then fall back to OLLAMA_HOST, OPENAI_API_KEY or ANTHROPIC_API_KEY for the
// matching provider type.
//
// # Testing
//
//	mock := &llm.MockProvider{
//	    GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
//	        return &llm.GenerateResponse{Text: "**Answer: yes**"}, nil
//	    },
//	}
package llm
