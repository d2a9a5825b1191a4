package main

import (
	"context"

	hdbus "github.com/jmylchreest/hudbridge/internal/dbus"
	"github.com/jmylchreest/hudbridge/internal/tui"
)

// controlSource adapts the inspector source to the D-Bus controller.
type controlSource struct {
	tui.Source
}

func (c controlSource) Stack(ctx context.Context) ([]hdbus.StackEntry, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]hdbus.StackEntry, 0, len(snap.Stack))
	for _, e := range snap.Stack {
		entries = append(entries, hdbus.StackEntry{
			Name:     e.Name,
			Kind:     e.Kind,
			Attached: e.Attached,
			Disabled: e.Disabled,
			Focused:  e.Focused,
			External: e.External,
		})
	}
	return entries, nil
}

// startControl exports src on the session bus when enabled in the config.
// The returned stop function is never nil.
func startControl(ctx context.Context, sess *session, src tui.Source) func() {
	if !cfg.Control.DBus {
		return func() {}
	}
	server := hdbus.NewServer(controlSource{src}, cfg.Control.BusName, logger.With("component", "dbus"))
	if err := server.Start(ctx); err != nil {
		logger.Warn("D-Bus control disabled", "error", err)
		return func() {}
	}
	sess.feedback.server.Store(server)
	return func() {
		sess.feedback.server.Store(nil)
		_ = server.Stop()
	}
}
