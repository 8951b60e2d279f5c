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
	"sync/atomic"
	"time"
)

// MockProvider is a test provider that returns predictable responses.
// It is safe for concurrent use when GenerateFunc is.
type MockProvider struct {
	GenerateFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	calls atomic.Int64
}

func (p *MockProvider) Name() string { return "mock" }

// Calls reports how many times Generate has been invoked.
func (p *MockProvider) Calls() int { return int(p.calls.Load()) }

func (p *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	p.calls.Add(1)
	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, req)
	}
	return &GenerateResponse{
		Text:         fmt.Sprintf("[mock] Generated response for: %.50s...", req.User),
		Model:        "mock-model",
		PromptTokens: len(req.User) / 4,
		OutputTokens: 20,
		Duration:     10 * time.Millisecond,
	}, nil
}
