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

// Package contract states which CommitRecord fields each funnel stage
// guarantees, and checks them.
//
// The pipeline validates every record before a snapshot is written. A
// violation means a stage produced a record it should have dropped, which is
// a bug:
//
//	if res := contract.ValidateRecord(record.StageMask, rec); !res.OK {
//	    return fmt.Errorf("record %s: %s", rec.ID, res.Message)
//	}
//
// ValidateSnapshot additionally rejects duplicate record IDs, since every
// oracle answer is joined back to its record by ID.
//
// # Batch Size Limits
//
// Oracle batches are capped by summed prompt size. The default cap is
// 64 MiB and can be adjusted with SECCORPUS_SOFT_LIMIT_BYTES:
//
//	export SECCORPUS_SOFT_LIMIT_BYTES=33554432  # 32 MiB
package contract
