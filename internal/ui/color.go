// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui renders the human-facing side of a funnel run: headers, status
// markers and the per-stage "in → out" count lines.
//
// Colors respect --no-color and NO_COLOR.
//   - Red: failures
//   - Yellow: warnings, records dropped
//   - Green: success, records kept
//   - Cyan: counts
//   - Bold: headers, labels
//   - Dim: paths, reasons
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
	Green  = color.New(color.FgGreen)
	Cyan   = color.New(color.FgCyan)
	Bold   = color.New(color.Bold)
	Dim    = color.New(color.Faint)
)

// InitColors turns color output on or off for the whole process.
func InitColors(noColor bool) {
	color.NoColor = noColor || os.Getenv("NO_COLOR") != ""
}

// Printer writes status output to a single destination. The zero value is
// not usable; use NewPrinter.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer on w. A nil w means stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w}
}

// Success prints "✓ msg".
func (p *Printer) Success(msg string) {
	_, _ = Green.Fprintln(p.w, "✓ "+msg)
}

// Successf is Success with formatting.
func (p *Printer) Successf(format string, args ...any) {
	p.Success(fmt.Sprintf(format, args...))
}

// Warning prints "⚠ msg".
func (p *Printer) Warning(msg string) {
	_, _ = Yellow.Fprintln(p.w, "⚠ "+msg)
}

// Warningf is Warning with formatting.
func (p *Printer) Warningf(format string, args ...any) {
	p.Warning(fmt.Sprintf(format, args...))
}

// Error prints "✗ msg".
func (p *Printer) Error(msg string) {
	_, _ = Red.Fprintln(p.w, "✗ "+msg)
}

// Info prints "ℹ msg".
func (p *Printer) Info(msg string) {
	_, _ = Cyan.Fprintln(p.w, "ℹ "+msg)
}

// Infof is Info with formatting.
func (p *Printer) Infof(format string, args ...any) {
	p.Info(fmt.Sprintf(format, args...))
}

// Header prints a bold title underlined with '='.
func (p *Printer) Header(text string) {
	_, _ = Bold.Fprintln(p.w, text)
	fmt.Fprintln(p.w, strings.Repeat("=", len([]rune(text))))
}

// SubHeader prints a bold title without underline.
func (p *Printer) SubHeader(text string) {
	_, _ = Bold.Fprintln(p.w, text)
}

// KeyValue prints an aligned "label value" line.
func (p *Printer) KeyValue(label string, value any) {
	fmt.Fprintf(p.w, "  %-18s %v\n", Label(label), value)
}

// StageCounts prints one funnel line:
//
//	refine        412 → 37   (-375)
//	    noop               120
//	    single_block       201
//
// Drop reasons are listed in descending count order, ties by name.
func (p *Printer) StageCounts(stage string, in, out int, reasons map[string]int) {
	dropped := in - out
	line := fmt.Sprintf("  %-10s %6s → %-6s", stage, CountText(in), Green.Sprint(out))
	if dropped > 0 {
		line += " " + Yellow.Sprintf("(-%d)", dropped)
	}
	fmt.Fprintln(p.w, line)

	for _, r := range sortedReasons(reasons) {
		fmt.Fprintf(p.w, "      %-22s %s\n", DimText(r), CountText(reasons[r]))
	}
}

func sortedReasons(reasons map[string]int) []string {
	keys := make([]string, 0, len(reasons))
	for k, v := range reasons {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if reasons[keys[i]] != reasons[keys[j]] {
			return reasons[keys[i]] > reasons[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Label returns bold text for inline use.
func Label(text string) string {
	return Bold.Sprint(text)
}

// DimText returns faint text for paths and reasons.
func DimText(text string) string {
	return Dim.Sprint(text)
}

// CountText returns a cyan count.
func CountText(count int) string {
	return Cyan.Sprint(count)
}
