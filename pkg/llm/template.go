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

import "strings"

// llamaTemplate is the Llama 3 instruct role markup.
const llamaTemplate = "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\n{system}\n\n" +
	"<|eot_id|><|start_header_id|>user<|end_header_id|>\n{user}\n\n" +
	"<|eot_id|><|start_header_id|>assistant<|end_header_id|>"

// RenderLlama wraps the two role segments in Llama 3 delimiter markup.
func RenderLlama(system, user string) string {
	return strings.NewReplacer("{system}", system, "{user}", user).Replace(llamaTemplate)
}
