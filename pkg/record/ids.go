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

package record

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var shaPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// ID derives the stable identifier a record keeps through every stage.
// Oracle results and snapshots are joined on it, never on position.
func ID(repoID, sha string) string {
	hash := sha256.Sum256([]byte(normalizeRepo(repoID) + ":" + strings.ToLower(sha)))
	return hex.EncodeToString(hash[:16])
}

// ValidSHA reports whether s is a full 40-hex commit id.
func ValidSHA(s string) bool {
	return shaPattern.MatchString(s)
}

// SafeName turns a repository id such as "Android/kernel-common" into a
// file-name friendly form.
func SafeName(repoID string) string {
	return strings.ReplaceAll(normalizeRepo(repoID), "/", "-")
}

func normalizeRepo(repoID string) string {
	repoID = strings.TrimSpace(repoID)
	repoID = strings.TrimPrefix(repoID, "./")
	return strings.Trim(repoID, "/")
}
