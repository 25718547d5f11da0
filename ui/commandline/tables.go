// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"math/cmplx"
	"slices"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gaugebench/pkg/bench"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"

	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			Padding(0, 2, 0, 2)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			Padding(0, 2, 0, 2)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Padding(0, 2, 0, 2)
)

// CheckTolerance is the relative difference between the tiled and dense checksums above which
// a result is highlighted.
var CheckTolerance = 1e-9

// tableWithReds is a table where some rows can be highlighted in red.
type tableWithReds struct {
	table *lgtable.Table
	count int
	reds  map[int]bool
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.reds[t.count] = true
	}
	t.table.Row(row...)
	t.count++
}

func newPlainTable(alignments ...lipgloss.Position) *tableWithReds {
	t := &tableWithReds{reds: make(map[int]bool)}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return headerRowStyle
			}
			switch {
			case t.reds[row]:
				s = redRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	return t
}

// ChecksDiffer returns whether the tiled and dense checksums of the result disagree beyond
// CheckTolerance. It is false if the dense baseline was skipped.
func ChecksDiffer(r *bench.Result) bool {
	if r.DenseGFlops == 0 {
		return false
	}
	diff := cmplx.Abs(r.TiledCheck - r.DenseCheck)
	return diff > CheckTolerance*max(cmplx.Abs(r.DenseCheck), 1)
}

func formatGFlops(gflops float64) string {
	return humanize.FtoaWithDigits(gflops, 3)
}

func formatCheck(c complex128) string {
	return fmt.Sprintf("(%.6g, %.6g)", real(c), imag(c))
}

// RenderResults returns a table with one row per volume. Rows where the checksums of the tiled
// kernel and of the dense baseline disagree are shown in red.
func RenderResults(results []bench.Result) string {
	if len(results) == 0 {
		return ""
	}
	withDense := slices.ContainsFunc(results, func(r bench.Result) bool { return r.DenseGFlops > 0 })
	headers := []string{"Volume", "Memory", "Tiled time", "Tiled GFlops", "Tiled check"}
	if withDense {
		headers = append(headers, "Dense GFlops", "Speed-up", "Dense check")
	}
	t := newPlainTable(lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Left,
		lipgloss.Right, lipgloss.Right, lipgloss.Left)
	t.table.Headers(headers...)
	for ii := range results {
		r := &results[ii]
		row := []string{
			humanize.Comma(int64(r.Vol)),
			humanize.IBytes(uint64(r.Bytes)),
			FormatDuration(r.TiledDuration),
			formatGFlops(r.TiledGFlops),
			formatCheck(r.TiledCheck),
		}
		if withDense {
			row = append(row,
				formatGFlops(r.DenseGFlops),
				fmt.Sprintf("%.2fx", r.Speedup()),
				formatCheck(r.DenseCheck))
		}
		t.Row(ChecksDiffer(r), row...)
	}
	return t.table.String()
}

// RenderSummary returns a small table with the summary of a sweep.
func RenderSummary(s bench.Summary) string {
	t := newPlainTable(lipgloss.Right, lipgloss.Left)
	t.Row(false, "Volumes", humanize.Comma(int64(s.Count)))
	t.Row(false, "Mean tiled GFlops", formatGFlops(s.MeanTiledGFlops))
	t.Row(false, "Best tiled GFlops", fmt.Sprintf("%s (vol=%s)", formatGFlops(s.MaxTiledGFlops), humanize.Comma(int64(s.BestVol))))
	if s.MeanDenseGFlops > 0 {
		t.Row(false, "Mean dense GFlops", formatGFlops(s.MeanDenseGFlops))
		t.Row(false, "Mean speed-up", fmt.Sprintf("%.2fx", s.MeanSpeedup))
	}
	t.Row(false, "Memory touched", humanize.IBytes(uint64(s.TotalBytes)))
	return t.table.String()
}
