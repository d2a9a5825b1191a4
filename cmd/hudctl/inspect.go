package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/scenario"
	"github.com/jmylchreest/hudbridge/internal/tui"
)

var inspectOpts struct {
	play  bool // Play the scenario steps before opening the inspector
	watch bool // Reload the config file on change
}

// inspectCmd opens the stack inspector on a scenario's surfaces.
var inspectCmd = &cobra.Command{
	Use:   "inspect [scenario|file.yaml]",
	Short: "Inspect the surface stack interactively",
	Long: `Open a terminal UI listing every surface of a scenario in stacking order.

Surfaces can be attached, detached, raised and moved in and out of external
windows from the inspector. With --play the scenario's steps run first.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectOpts.play, "play", false, "Play the scenario steps before inspecting")
	inspectCmd.Flags().BoolVar(&inspectOpts.watch, "watch", true, "Reload the config file when it changes")
}

func runInspect(cmd *cobra.Command, args []string) error {
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
		if inspectOpts.play {
			if err := player.Play(ctx, nil); err != nil {
				return err
			}
		}

		if inspectOpts.watch {
			stop, err := watchConfig(ctx, sess)
			if err != nil {
				logger.Warn("config hot-reload disabled", "error", err)
			} else {
				defer stop()
			}
		}

		go sess.container.Run(ctx, cfg.Render.FrameInterval.Duration())

		src := tui.NewManagerSource(sess.manager, sess.exec, sess.container, player.Surfaces())
		stopControl := startControl(ctx, sess, src)
		defer stopControl()

		return tui.Run(ctx, src)
	})
}

// watchConfig reloads the config file on change and applies it to sess.
func watchConfig(ctx context.Context, sess *session) (func(), error) {
	path := globalOpts.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no config file at %s", path)
	}

	w, err := config.NewWatcher(path, cfg, logger.With("component", "config"))
	if err != nil {
		return nil, err
	}
	w.SetReloadCallback(func(next *config.Config) {
		sess.applyConfig(ctx, next, logger)
	})
	w.SetErrorCallback(func(err error) {
		logger.Warn("config reload failed", "error", err)
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return func() { _ = w.Stop() }, nil
}
