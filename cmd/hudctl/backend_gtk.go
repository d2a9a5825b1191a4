//go:build gtk

package main

import (
	"context"
	"os"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/external"
)

const appID = "io.github.jmylchreest.hudbridge"

// withBackend runs fn with the configured presenter for externalized windows.
// The GTK backend runs the GTK main loop on the calling goroutine and fn on
// its own goroutine, quitting the application when fn returns.
func withBackend(ctx context.Context, fn func(ctx context.Context, b backend) error) error {
	if cfg.External.Backend != config.BackendGTK {
		h := external.NewHeadless(logger.With("component", "external"))
		return fn(ctx, backend{externalizer: h, headless: h})
	}

	app := adw.NewApplication(appID, 0)
	presenter := external.NewGTK(&app.Application, cfg.External, logger.With("component", "external"))

	var runErr error
	app.ConnectActivate(func() {
		app.Hold()
		go func() {
			runErr = fn(ctx, backend{externalizer: presenter})
			glib.IdleAdd(func() {
				presenter.CloseAll()
				app.Release()
				app.Quit()
			})
		}()
	})

	if status := app.Run(os.Args[:1]); status != 0 && runErr == nil {
		logger.Error("application exited with error", "status", status)
	}
	return runErr
}
