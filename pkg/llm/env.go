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

package llm

import (
	"os"
	"time"
)

// Environment variables consulted by ProviderFromEnv.
const (
	EnvProvider = "SECCORPUS_LLM_PROVIDER"
	EnvBaseURL  = "SECCORPUS_LLM_BASE_URL"
	EnvModel    = "SECCORPUS_LLM_MODEL"
	EnvAPIKey   = "SECCORPUS_LLM_API_KEY"
)

// DefaultModel is the instruct model the oracles were tuned against.
const DefaultModel = "meta-llama/Llama-3.3-70B-Instruct"

// ConfigFromEnv overlays environment settings on base. Explicit SECCORPUS_*
// variables win; vendor variables (OLLAMA_HOST, OPENAI_API_KEY,
// ANTHROPIC_API_KEY) fill gaps for their own provider type.
func ConfigFromEnv(base ProviderConfig) ProviderConfig {
	cfg := base
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Type = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}

	switch cfg.Type {
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_HOST")
		}
	case "openai", "openai-compatible":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return cfg
}

// DefaultProvider returns a completion provider for a local vLLM server
// serving DefaultModel.
func DefaultProvider() (Provider, error) {
	return NewProvider(ProviderConfig{
		Type:         "completion",
		BaseURL:      "http://localhost:8000/v1",
		DefaultModel: DefaultModel,
		Timeout:      10 * time.Minute,
	})
}

// ProviderFromEnv creates a provider from environment variables alone,
// falling back to DefaultProvider settings.
func ProviderFromEnv() (Provider, error) {
	return NewProvider(ConfigFromEnv(ProviderConfig{
		Type:         "completion",
		DefaultModel: DefaultModel,
	}))
}
