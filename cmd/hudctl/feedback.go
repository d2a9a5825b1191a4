package main

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jmylchreest/hudbridge/internal/audio"
	"github.com/jmylchreest/hudbridge/internal/config"
	hdbus "github.com/jmylchreest/hudbridge/internal/dbus"
	"github.com/jmylchreest/hudbridge/internal/display"
)

// feedback reacts to focus being denied: it logs, plays the configured
// sound and emits the D-Bus signal when the control server is running.
type feedback struct {
	logger *slog.Logger
	log    bool
	sound  string
	player *audio.Player
	server atomic.Pointer[hdbus.Server]
}

func newFeedback(cfg *config.Config, logger *slog.Logger) *feedback {
	f := &feedback{
		logger: logger,
		log:    cfg.Display.FocusDeniedLog,
	}
	if cfg.Audio.Enabled && cfg.Audio.FocusDenied != "" {
		f.player = audio.NewPlayer(logger.With("component", "audio"))
		f.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
		f.sound = cfg.Audio.FocusDenied
		if err := f.player.Preload(f.sound); err != nil {
			logger.Warn("focus denied sound unavailable", "path", f.sound, "error", err)
			f.player = nil
		}
	}
	return f
}

func (f *feedback) focusDenied(_ context.Context, d display.FocusDenied) {
	if f.log {
		f.logger.Warn("focus denied, a modal window is open",
			"modal", d.Modal, "requester", d.Node)
	}
	if f.player != nil {
		if err := f.player.Play(f.sound); err != nil {
			f.logger.Debug("failed to play focus denied sound", "error", err)
		}
	}
	if s := f.server.Load(); s != nil {
		if err := s.EmitFocusDenied(d.Modal.Name(), requesterName(d)); err != nil {
			f.logger.Debug("failed to emit focus denied", "error", err)
		}
	}
}

func (f *feedback) close() {
	if f.player != nil {
		f.player.Close()
	}
}

// requesterName names the surface that was in front, or its bare node.
func requesterName(d display.FocusDenied) string {
	if d.Requester != nil {
		return d.Requester.Name()
	}
	if d.Node != nil {
		return d.Node.Name()
	}
	return ""
}
