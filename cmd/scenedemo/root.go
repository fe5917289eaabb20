package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/scenegraph/scene"
)

var rootCmd = &cobra.Command{
	Use:   "scenedemo",
	Short: "Draw a demo scene with parallel command recording",
	Long: `scenedemo builds a grid of meshes under transform nodes, draws it on the
recording backend and prints the command trace a GPU would execute.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch globalFlags.format {
		case "text", "yaml":
		default:
			return fmt.Errorf("unknown format %q", globalFlags.format)
		}
		if globalFlags.verbose {
			scene.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
		return nil
	},
}

var globalFlags struct {
	width   uint32
	height  uint32
	objects int
	format  string
	verbose bool
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Uint32Var(&globalFlags.width, "width", 64, "view width")
	pf.Uint32Var(&globalFlags.height, "height", 32, "view height")
	pf.IntVar(&globalFlags.objects, "objects", 6, "number of objects in the scene")
	pf.StringVar(&globalFlags.format, "format", "text", "output format: text or yaml")
	pf.BoolVarP(&globalFlags.verbose, "verbose", "v", false, "log to stderr")
}
