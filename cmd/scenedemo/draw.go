package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gogpu/scenegraph/metrics"
	"github.com/gogpu/scenegraph/scene"
)

var drawFlags struct {
	threads     int
	frames      int
	serial      bool
	metricsAddr string
}

var drawCmd = &cobra.Command{
	Use:   "draw",
	Short: "Draw frames and print the trace of the last one",
	Long: `Draws the demo scene for the requested number of frames, spinning it a
little every frame, and prints the command trace of the last frame.

With --metrics-addr the draw statistics are served for Prometheus and the
command keeps running until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runDraw(ctx, cmd)
	},
}

func init() {
	f := drawCmd.Flags()
	f.IntVarP(&drawFlags.threads, "threads", "t", 4, "draw threads; 0 uses GOMAXPROCS")
	f.IntVarP(&drawFlags.frames, "frames", "n", 1, "frames to draw")
	f.BoolVar(&drawFlags.serial, "serial", false, "record on the calling goroutine without a thread manager")
	f.StringVar(&drawFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(drawCmd)
}

func runDraw(ctx context.Context, cmd *cobra.Command) error {
	if drawFlags.frames < 1 {
		return fmt.Errorf("frames must be positive, got %d", drawFlags.frames)
	}
	d, err := newDemo(globalFlags.width, globalFlags.height, globalFlags.objects)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	defer d.destroy()

	var tm *scene.ThreadManager
	if !drawFlags.serial {
		tm, err = scene.NewThreadManager(d.r, drawFlags.threads, scene.WithThreadName("scenedemo"))
		if err != nil {
			return fmt.Errorf("start draw threads: %w", err)
		}
		defer func() { _ = tm.Destroy() }()
	}

	report := &drawReport{Frames: drawFlags.frames}
	for frame := range drawFlags.frames {
		if err := d.step(frame, 1.0/60); err != nil {
			return err
		}
		if report.Trace, err = d.draw(tm); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
	}
	if tm != nil {
		st := tm.Stats()
		report.Threads = tm.ThreadCount()
		report.Stats = &statsView{
			Draws:         st.Draws,
			ItemsRecorded: st.ItemsRecorded,
			ItemsSkipped:  st.ItemsSkipped,
			Submitted:     st.CommandBuffersSubmitted,
			WorkerClaims:  st.WorkerClaims,
		}
	}

	out := cmd.OutOrStdout()
	if globalFlags.format == "yaml" {
		err = writeYAML(out, report)
	} else {
		err = writeDrawText(out, report)
	}
	if err != nil || drawFlags.metricsAddr == "" || tm == nil {
		return err
	}
	return serveMetrics(ctx, drawFlags.metricsAddr, tm, report)
}

// newServer routes the metrics endpoint and the last drawn trace.
func newServer(src metrics.StatsSource, report *drawReport) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(src, "scenedemo"),
		collectors.NewGoCollector(),
	)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/trace", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		if err := writeYAML(w, report); err != nil {
			scene.Logger().Warn("scenedemo: write trace", "err", err)
		}
	})
	return r
}

// serveMetrics serves the thread manager statistics until ctx is done.
func serveMetrics(ctx context.Context, addr string, tm *scene.ThreadManager, report *drawReport) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     newServer(tm, report),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	scene.Logger().Info("scenedemo: serving metrics", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
