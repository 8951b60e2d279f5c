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

package oracle

// Batcher splits requests into batches targeting a request count and a
// total prompt size.
type Batcher struct {
	targetRequests int
	maxPromptBytes int
}

// NewBatcher creates a new batcher. Non-positive limits are unbounded.
func NewBatcher(targetRequests, maxPromptBytes int) *Batcher {
	return &Batcher{targetRequests: targetRequests, maxPromptBytes: maxPromptBytes}
}

// Batch groups reqs in order. A request larger than the byte budget travels
// in a batch of its own.
func (b *Batcher) Batch(reqs []Request) [][]Request {
	if len(reqs) == 0 {
		return nil
	}

	var batches [][]Request
	var current []Request
	currentSize := 0

	for _, req := range reqs {
		size := len(req.Prompt.System) + len(req.Prompt.User)

		wouldExceedSize := b.maxPromptBytes > 0 && currentSize+size > b.maxPromptBytes
		wouldExceedTarget := b.targetRequests > 0 && len(current) >= b.targetRequests

		if len(current) > 0 && (wouldExceedSize || wouldExceedTarget) {
			batches = append(batches, current)
			current = nil
			currentSize = 0
		}

		current = append(current, req)
		currentSize += size
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
