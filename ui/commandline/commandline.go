// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline renders the benchmark on the terminal: the startup banner, a progress bar
// over the volume sweep and the tables of results.
package commandline

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/gaugebench/pkg/lattice"
	"github.com/google/uuid"
)

// BannerInfo is the information printed at startup.
type BannerInfo struct {
	Title       string
	Version     string
	RunID       uuid.UUID
	KernelPath  lattice.KernelPath
	CPUFeatures string
	Provider    string
	Parallelism string
}

// NewBannerInfo fills the build and machine information of the banner.
func NewBannerInfo(title, version string, runID uuid.UUID) BannerInfo {
	return BannerInfo{
		Title:       title,
		Version:     version,
		RunID:       runID,
		KernelPath:  lattice.CurrentPath(),
		CPUFeatures: lattice.CPUFeatures(),
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(tableBorderColor)).
			Padding(0, 1)
)

// RenderBanner returns the startup banner: title, version, and the build and machine
// configuration that affect the results.
func RenderBanner(info BannerInfo) string {
	table := lgtable.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle.Faint(true)
			}
			return normalStyle
		})
	table.Row("Version", info.Version)
	table.Row("Go", fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	table.Row("Lane width", fmt.Sprintf("%d x float64", lattice.LaneWidth))
	table.Row("Kernel", info.KernelPath.String())
	table.Row("CPU features", info.CPUFeatures)
	if info.Provider != "" {
		table.Row("Memory", info.Provider)
	}
	if info.Parallelism != "" {
		table.Row("Parallelism", info.Parallelism)
	}
	table.Row("Run", info.RunID.String())
	title := titleStyle.Render(strings.ToUpper(info.Title))
	return bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Center, title, table.String()))
}
