// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gaugebench times the multiply-accumulate of lattice gauge configurations in the SIMD-tiled
// layout over a sweep of volumes, and compares it with a dense complex-matrix baseline.
//
// Usage:
//
//	gaugebench [-min_vol_log2=4] [-max_vol_log2=19] [-iters=100] [-parallelism=0] [-provider=host] [-v=1]
//
// Set GAUGEBENCH_NO_SIMD=1 to force the generic kernel.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/gomlx/gaugebench/internal/workerspool"
	"github.com/gomlx/gaugebench/pkg/bench"
	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/gomlx/gaugebench/pkg/support/xsync"
	"github.com/gomlx/gaugebench/ui/commandline"
	"github.com/google/uuid"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagMinVolLog2 = flag.Int("min_vol_log2", 4, "Smallest volume benchmarked, as a power of 2.")
	flagMaxVolLog2 = flag.Int("max_vol_log2", 19, "Largest volume benchmarked, as a power of 2.")
	flagIters      = flag.Int("iters", 100, "Number of multiply-accumulates timed per volume.")
	flagFill       = flag.Float64("fill", 1.1, "Initial value of every entry of the configurations.")
	flagParallel   = flag.Int("parallelism", 0, "Number of workers running the kernel: 0 runs it "+
		"sequentially, -1 is unlimited, -2 uses one worker per CPU.")
	flagProvider = flag.String("provider", "host", "Memory provider of the scalar configurations: "+
		"\"host\" or \"device\". Tiled configurations always use host memory.")
	flagDense    = flag.Bool("dense", true, "Also time the dense complex-matrix baseline.")
	flagProgress = flag.Bool("progress", true, "Display a progress bar during the sweep.")
)

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func scalarProvider(host memory.Provider) memory.Provider {
	switch *flagProvider {
	case "host":
		return host
	case "device":
		return must.M1(memory.NewDeviceProvider())
	default:
		klog.Fatalf("unknown -provider=%q, valid values are \"host\" and \"device\"", *flagProvider)
		return nil
	}
}

// watchInterrupts triggers latch on the first signal received, and returns then or when done
// is closed.
func watchInterrupts(signals <-chan os.Signal, done <-chan struct{}, latch *xsync.Latch) {
	select {
	case <-signals:
		klog.Warning("interrupted, stopping after the current volume")
		latch.Trigger()
	case <-done:
	}
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	host := must.M1(memory.NewHostProvider())
	cfg := bench.DefaultConfig(host)
	cfg.MinVolLog2, cfg.MaxVolLog2 = *flagMinVolLog2, *flagMaxVolLog2
	cfg.Iterations = *flagIters
	cfg.Fill = *flagFill
	cfg.ScalarProvider = scalarProvider(host)
	cfg.SkipDense = !*flagDense
	var pool *workerspool.Pool
	if *flagParallel != 0 {
		pool = workerspool.New(*flagParallel)
		cfg.Parallelizer = pool
	}
	must.M(cfg.Validate())

	// Ctrl+C stops the sweep after the current volume.
	cfg.Interrupt = xsync.NewLatch()
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	done := make(chan struct{})
	go watchInterrupts(interrupts, done, cfg.Interrupt)

	info := commandline.NewBannerInfo("gaugebench", version(), uuid.New())
	info.Provider = fmt.Sprintf("%s (scalar), %s (tiled)", cfg.ScalarProvider.Name(), host.Name())
	info.Parallelism = "sequential"
	if pool != nil {
		info.Parallelism = fmt.Sprintf("%d workers", pool.MaxParallelism())
		if pool.MaxParallelism() < 0 {
			info.Parallelism = "unlimited"
		}
	}
	fmt.Println(commandline.RenderBanner(info))

	var progress *commandline.SweepProgress
	if *flagProgress {
		progress = commandline.NewSweepProgress(os.Stdout, len(cfg.Volumes()))
	}
	results, err := bench.Run(cfg, func(r bench.Result) {
		if progress != nil {
			progress.Update(r)
		}
	})
	signal.Stop(interrupts)
	close(done)
	if progress != nil {
		progress.Finish()
	}
	if err != nil && !errors.Is(err, bench.ErrInterrupted) {
		klog.Fatalf("benchmark failed: %+v", err)
	}

	fmt.Println(commandline.RenderResults(results))
	fmt.Println(commandline.RenderSummary(bench.Summarize(results)))
	if pool != nil {
		started, refused := pool.Stats()
		klog.V(1).Infof("worker pool: %d tasks started in workers, %d run inline", started, refused)
	}
	stats := host.Stats()
	klog.V(1).Infof("host memory: %d allocations (%d reused), peak %d bytes", stats.Allocations, stats.Reuses, stats.PeakBytes)
	if err != nil {
		klog.Warningf("%v", err)
		os.Exit(130)
	}
}
