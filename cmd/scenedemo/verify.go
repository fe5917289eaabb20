package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gogpu/scenegraph/scene"
)

var verifyFlags struct {
	maxThreads int
	frames     int
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that traces do not depend on the thread count",
	Long: `Draws the demo scene serially and with 1 to --max-threads draw threads,
plus one thread per item list, and fails if any submitted trace differs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		counts, err := runVerify(verifyFlags.maxThreads, verifyFlags.frames)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "traces identical for thread counts %v\n", counts)
		return err
	},
}

func init() {
	f := verifyCmd.Flags()
	f.IntVar(&verifyFlags.maxThreads, "max-threads", 4, "largest thread count to check")
	f.IntVarP(&verifyFlags.frames, "frames", "n", 3, "frames to draw per thread count")
	rootCmd.AddCommand(verifyCmd)
}

// drawFrames draws frames frames of a fresh demo scene with threads draw
// threads, or serially when threads is 0, and returns every trace.
func drawFrames(threads, frames int) ([][]string, error) {
	d, err := newDemo(globalFlags.width, globalFlags.height, globalFlags.objects)
	if err != nil {
		return nil, err
	}
	defer d.destroy()

	var tm *scene.ThreadManager
	if threads > 0 {
		tm, err = scene.NewThreadManager(d.r, threads, scene.WithLockOSThread(false))
		if err != nil {
			return nil, err
		}
		defer func() { _ = tm.Destroy() }()
	}

	traces := make([][]string, 0, frames)
	for frame := range frames {
		if err := d.step(frame, 1.0/60); err != nil {
			return nil, err
		}
		trace, err := d.draw(tm)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// runVerify compares the parallel traces with a one-thread reference and
// the draws with a serial one. It returns the thread counts checked.
func runVerify(maxThreads, frames int) ([]int, error) {
	if maxThreads < 1 || frames < 1 {
		return nil, fmt.Errorf("max-threads and frames must be positive")
	}
	d, err := newDemo(globalFlags.width, globalFlags.height, globalFlags.objects)
	if err != nil {
		return nil, err
	}
	items := d.itemCount()
	d.destroy()

	counts := make([]int, 0, maxThreads+1)
	for n := 1; n <= maxThreads; n++ {
		counts = append(counts, n)
	}
	if !slices.Contains(counts, items) {
		counts = append(counts, items)
	}

	want, err := drawFrames(1, frames)
	if err != nil {
		return nil, fmt.Errorf("1 thread: %w", err)
	}
	for _, n := range counts[1:] {
		got, err := drawFrames(n, frames)
		if err != nil {
			return nil, fmt.Errorf("%d threads: %w", n, err)
		}
		for i := range want {
			if !slices.Equal(got[i], want[i]) {
				return nil, fmt.Errorf("%d threads: frame %d trace differs from 1 thread", n, i)
			}
		}
	}

	serial, err := drawFrames(0, frames)
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}
	for i := range want {
		if !slices.Equal(drawLabels(serial[i]), drawLabels(want[i])) {
			return nil, fmt.Errorf("frame %d: serial draws differ from threaded draws", i)
		}
	}
	return counts, nil
}

// drawLabels returns the draw commands of a trace without nesting.
func drawLabels(trace []string) []string {
	var out []string
	for _, line := range trace {
		if l, ok := cutDraw(line); ok {
			out = append(out, l)
		}
	}
	return out
}
