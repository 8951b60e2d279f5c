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

package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MapOrdered applies fn to every element of in with at most workers
// goroutines and returns the results in input order. workers <= 0 means
// runtime.NumCPU(). fn receives the element's index. When ctx is cancelled
// the remaining elements are skipped and ctx's error is returned.
func MapOrdered[T, R any](ctx context.Context, workers int, in []T, fn func(ctx context.Context, i int, v T) R) ([]R, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]R, len(in))
	if len(in) == 0 {
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range in {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = fn(gctx, i, v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
