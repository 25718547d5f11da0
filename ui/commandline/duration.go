// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var reDurationFirstUnit = regexp.MustCompile(`^(\d+\.?\d*)([µa-z]+)`)

// FormatDuration pretty prints duration with at most 2 decimal places on its largest unit,
// e.g. "1.23ms" instead of "1.234567ms". Durations with more than one unit ("1m30.5s") are
// returned as is, and so is 0 ("0s").
func FormatDuration(d time.Duration) string {
	s := d.String()
	if d == 0 {
		return s
	}
	matches := reDurationFirstUnit.FindStringSubmatch(s)
	if len(matches) != 3 || len(matches[0]) != len(s) {
		return s
	}
	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f%s", num, matches[2])
}
