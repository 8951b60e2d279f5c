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

package funnel

import (
	"unicode"
)

// Estimator approximates how many model tokens a text costs.
type Estimator interface {
	Tokens(text string) int
}

// ApproxEstimator counts every run of word characters and every other
// non-space character as one token. It tracks subword tokenizers closely
// enough for length gating.
type ApproxEstimator struct{}

// Tokens implements Estimator.
func (ApproxEstimator) Tokens(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				n++
				inWord = true
			}
		case unicode.IsSpace(r):
			inWord = false
		default:
			n++
			inWord = false
		}
	}
	return n
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(string) int

// Tokens implements Estimator.
func (f EstimatorFunc) Tokens(text string) int { return f(text) }
