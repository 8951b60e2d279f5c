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

// Package oracle builds the prompts sent to the LLM judges of the funnel and
// runs them in bounded, timed batches.
//
// Five tasks consult an oracle:
//   - intent: does a commit fix a security vulnerability (grammar "Answer: x")
//   - elements: which identifiers a function snippet mentions ("name (type)")
//   - classify: group those identifiers into Functions, Variables, Structures
//   - locate: where in the prefix function the vulnerability sits
//   - explain: root cause and impact of the located segments
//
// Prompts are pairs of a system and a user segment. A Runner sends them to an
// llm.Provider, batch by batch, and returns one Result per request ID. A
// failed item never fails the batch: it comes back with Failure set and the
// caller decides what a failure means for its record.
package oracle
