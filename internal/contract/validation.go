// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/record"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for one oracle batch.
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB

	// MaskPlaceholder is the prefix of the token marking the change site.
	MaskPlaceholder = "<MASK_"
)

// SoftLimitBytes returns the effective prompt-size limit for an oracle batch.
// Controlled via env SECCORPUS_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int {
	if v := os.Getenv("SECCORPUS_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

func fail(format string, args ...any) *ValidationResult {
	return &ValidationResult{Message: fmt.Sprintf(format, args...)}
}

// ValidateRecord checks that rec carries every field stage guarantees.
// Requirements accumulate: a mask-stage record must also satisfy the
// refine, intent, filter and harvest contracts.
func ValidateRecord(stage record.Stage, rec record.CommitRecord) *ValidationResult {
	if rec.Stage != stage {
		return fail("stage tag %s, want %s", rec.Stage, stage)
	}
	for s := record.StageHarvest; s <= stage; s++ {
		if res := checks[s](rec); !res.OK {
			return res
		}
	}
	return &ValidationResult{OK: true}
}

var checks = map[record.Stage]func(record.CommitRecord) *ValidationResult{
	record.StageHarvest: func(r record.CommitRecord) *ValidationResult {
		switch {
		case !record.ValidSHA(r.SHA):
			return fail("invalid sha %q", r.SHA)
		case r.ID != record.ID(r.RepoID, r.SHA):
			return fail("id %s does not match repo and sha", r.ID)
		case r.RawDiff == "":
			return fail("empty commit text")
		}
		return &ValidationResult{OK: true}
	},
	record.StageFilter: func(r record.CommitRecord) *ValidationResult {
		if r.ChangedFile == "" {
			return fail("no changed file")
		}
		return &ValidationResult{OK: true}
	},
	record.StageIntent: func(r record.CommitRecord) *ValidationResult {
		switch {
		case r.Intent == nil:
			return fail("no intent verdict")
		case !r.Intent.Positive || r.Intent.Failure != "":
			return fail("intent verdict is not a positive")
		}
		return &ValidationResult{OK: true}
	},
	record.StageRefine: func(r record.CommitRecord) *ValidationResult {
		switch {
		case len(r.Hunks) == 0:
			return fail("no hunks")
		case len(r.Blocks) != 1:
			return fail("%d blocks, want 1", len(r.Blocks))
		case len(r.Blocks[0].Changes) == 0:
			return fail("block without changes")
		case r.Blocks[0].PrefixRange.Len() == 0:
			return fail("empty prefix range")
		case r.CommitYear == 0:
			return fail("no commit year")
		}
		return &ValidationResult{OK: true}
	},
	record.StageMask: func(r record.CommitRecord) *ValidationResult {
		if n := strings.Count(r.MaskSnippet, MaskPlaceholder); n != 1 {
			return fail("%d mask placeholders, want 1", n)
		}
		if len(r.UndefinedPrefix) == 0 && len(r.UndefinedFix) == 0 {
			return fail("no undefined elements")
		}
		return &ValidationResult{OK: true}
	},
	record.StageContext: func(r record.CommitRecord) *ValidationResult {
		switch {
		case r.Context == nil || r.Context.Empty():
			return fail("empty context groups")
		case r.ContextText == "":
			return fail("empty context text")
		}
		return &ValidationResult{OK: true}
	},
	record.StageLabel: func(r record.CommitRecord) *ValidationResult {
		switch {
		case strings.TrimSpace(r.Locate) == "":
			return fail("no locate label")
		case strings.TrimSpace(r.Explain) == "":
			return fail("no explain label")
		}
		for _, lr := range r.LocateRanges {
			if lr.Start < 1 || lr.End > r.Blocks[0].PrefixRange.Len() {
				return fail("locate range %d-%d outside function", lr.Start, lr.End)
			}
		}
		return &ValidationResult{OK: true}
	},
}

// ValidateSnapshot validates every record and rejects duplicate IDs.
func ValidateSnapshot(stage record.Stage, recs []record.CommitRecord) error {
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if seen[r.ID] {
			return fmt.Errorf("duplicate record id %s (sha %s)", r.ID, r.ShortSHA())
		}
		seen[r.ID] = true
		if res := ValidateRecord(stage, r); !res.OK {
			return fmt.Errorf("record %s at %s: %s", r.ShortSHA(), stage, res.Message)
		}
	}
	return nil
}
