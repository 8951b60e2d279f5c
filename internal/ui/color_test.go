// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withoutColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })
}

func TestInitColors(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	t.Setenv("NO_COLOR", "")
	InitColors(false)
	if color.NoColor {
		t.Errorf("InitColors(false) should enable colors")
	}
	InitColors(true)
	if !color.NoColor {
		t.Errorf("InitColors(true) should disable colors")
	}

	t.Setenv("NO_COLOR", "1")
	InitColors(false)
	if !color.NoColor {
		t.Errorf("NO_COLOR should win over the flag")
	}
}

func TestPrinter_StatusLines(t *testing.T) {
	withoutColor(t)

	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.Success("snapshot written")
	p.Warningf("%d records dropped", 3)
	p.Error("stage aborted")
	p.Info("resuming")

	want := "✓ snapshot written\n⚠ 3 records dropped\n✗ stage aborted\nℹ resuming\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrinter_Header(t *testing.T) {
	withoutColor(t)

	var buf bytes.Buffer
	NewPrinter(&buf).Header("Funnel → Summary")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if len(lines[1]) != len([]rune(lines[0])) {
		t.Errorf("underline length %d should match rune length of %q", len(lines[1]), lines[0])
	}
}

func TestPrinter_StageCounts(t *testing.T) {
	withoutColor(t)

	var buf bytes.Buffer
	NewPrinter(&buf).StageCounts("refine", 10, 4, map[string]int{
		"noop":         2,
		"single_block": 4,
		"date":         0,
	})

	out := buf.String()
	if !strings.Contains(out, "(-6)") {
		t.Errorf("missing drop delta in %q", out)
	}
	if strings.Contains(out, "date") {
		t.Errorf("zero-count reasons should be hidden: %q", out)
	}
	if strings.Index(out, "single_block") > strings.Index(out, "noop") {
		t.Errorf("reasons should be sorted by count: %q", out)
	}
}

func TestSortedReasons_TieBreakByName(t *testing.T) {
	got := sortedReasons(map[string]int{"b": 1, "a": 1, "c": 5})
	want := []string{"c", "a", "b"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sortedReasons = %v, want %v", got, want)
	}
}

func TestTextHelpers(t *testing.T) {
	withoutColor(t)

	if Label("Project:") != "Project:" {
		t.Errorf("Label should be plain without color")
	}
	if DimText("/tmp/x") != "/tmp/x" {
		t.Errorf("DimText should be plain without color")
	}
	if CountText(42) != "42" {
		t.Errorf("CountText should be plain without color")
	}
}
