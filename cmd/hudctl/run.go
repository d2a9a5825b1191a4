package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/scenario"
)

var runOpts struct {
	out       string // Final composited frame
	framesDir string // Directory for externalized window frames
	quiet     bool
}

// runCmd plays a scenario and writes the resulting frame.
var runCmd = &cobra.Command{
	Use:   "run [scenario|file.yaml]",
	Short: "Play a scenario and render the overlay",
	Long: `Play a scenario against a display manager and render the composited overlay.

The argument is either the name of a built-in scenario (see 'hudctl scenarios')
or a path to a scenario YAML file. Each step is applied and settled before
the next one starts.

Examples:
  hudctl run modal --out modal.png
  hudctl run ./my-scenario.yaml --frames-dir ./frames`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOpts.out, "out", "o", "", "Write the final overlay frame as PNG")
	runCmd.Flags().StringVar(&runOpts.framesDir, "frames-dir", "", "Write frames of externalized windows to this directory")
	runCmd.Flags().BoolVarP(&runOpts.quiet, "quiet", "q", false, "Suppress the step summary")
}

func runRun(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return withBackend(ctx, func(ctx context.Context, b backend) error {
		sess, err := newSession(ctx, cfg, b.externalizer, logger)
		if err != nil {
			return err
		}
		defer sess.close(context.Background())

		player, err := scenario.NewPlayer(sc, scenario.Env{
			Manager:   sess.manager,
			Exec:      sess.exec,
			Frame:     sess.container.Update,
			DragStyle: cfg.Display.DragMarkerStyle,
			Logger:    logger.With("component", "scenario"),
		})
		if err != nil {
			return err
		}

		err = player.Play(ctx, func(i int, st scenario.Step) {
			if runOpts.quiet {
				return
			}
			fmt.Fprintf(os.Stdout, "%3d  %-28s attached=%d\n", i, st, len(sess.manager.Attached()))
		})
		if err != nil {
			return err
		}

		sess.container.Update()
		if err := sess.exec.Drain(ctx); err != nil {
			return err
		}

		if runOpts.out != "" {
			if err := writeFrame(runOpts.out, sess.container); err != nil {
				return err
			}
		}
		if runOpts.framesDir != "" && b.headless != nil {
			paths, err := b.headless.WriteFrames(runOpts.framesDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				logger.Info("wrote external frame", "path", p)
			}
		}

		if !runOpts.quiet {
			stats := sess.manager.Stats()
			fmt.Fprintf(os.Stdout, "\n%s: %d attached, %s reconciliation passes, %s notifications coalesced, %s frames\n",
				sc.Name, stats.Attached, humanize.Comma(int64(stats.Passes)),
				humanize.Comma(int64(stats.Suppressed)), humanize.Comma(int64(sess.container.Renders())))
		}
		return nil
	})
}

func writeFrame(path string, c *bridge.Container) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	img := c.Texture().Image()
	if err := bridge.EncodePNG(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	info, err := f.Stat()
	if err == nil {
		logger.Info("wrote frame", "path", path, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
