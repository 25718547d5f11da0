// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gaugebench/pkg/bench"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// SweepProgress displays a progress bar over the volumes of a benchmark sweep, with the
// throughput of the last volume benchmarked.
type SweepProgress struct {
	bar      *progressbar.ProgressBar
	output   *termenv.Output
	numVols  int
	done     int
	useColor bool
}

// NewSweepProgress creates a progress bar for numVols volumes written to w (os.Stdout if nil).
// Color and cursor control are only used if w is a terminal that supports them.
func NewSweepProgress(w io.Writer, numVols int) *SweepProgress {
	if w == nil {
		w = os.Stdout
	}
	output := termenv.NewOutput(w)
	p := &SweepProgress{
		output:   output,
		numVols:  numVols,
		useColor: output.Profile != termenv.Ascii,
	}
	description := "Benchmarking"
	if p.useColor {
		description = "[bold]" + description + "[reset]"
		output.HideCursor()
	}
	p.bar = progressbar.NewOptions(numVols,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionEnableColorCodes(p.useColor),
		progressbar.OptionUseANSICodes(p.useColor),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("volumes"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
	)
	return p
}

// Update advances the bar by one volume, describing the result just obtained.
func (p *SweepProgress) Update(r bench.Result) {
	p.done++
	p.bar.Describe(fmt.Sprintf("vol=%s: %s GFlops", humanize.Comma(int64(r.Vol)), formatGFlops(r.TiledGFlops)))
	_ = p.bar.Add(1)
}

// Done returns the number of volumes reported so far.
func (p *SweepProgress) Done() int { return p.done }

// Finish closes the bar, also if the sweep ended early, and restores the cursor.
func (p *SweepProgress) Finish() {
	_ = p.bar.Exit()
	if p.useColor {
		p.output.ShowCursor()
	}
	_, _ = fmt.Fprintln(p.output)
}
