package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/display"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// session wires an executor, render container and display manager.
type session struct {
	exec      *executor.Executor
	container *bridge.Container
	manager   *display.Manager
	feedback  *feedback
}

func newSession(ctx context.Context, cfg *config.Config, x surface.Externalizer, logger *slog.Logger) (*session, error) {
	opts, err := bridge.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	exec := executor.New(logger.With("component", "executor"))
	if err := exec.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start ui executor: %w", err)
	}

	fb := newFeedback(cfg, logger.With("component", "feedback"))
	container := bridge.NewContainer(exec, opts, logger.With("component", "bridge"))
	manager, err := display.NewManager(ctx, exec, container, cfg, logger.With("component", "display"),
		display.WithExternalizer(x),
		display.WithFocusDeniedFunc(fb.focusDenied))
	if err != nil {
		fb.close()
		exec.Stop()
		return nil, err
	}

	return &session{exec: exec, container: container, manager: manager, feedback: fb}, nil
}

// applyConfig applies a reloaded configuration to the running session.
// Only the render target size can change at runtime.
func (s *session) applyConfig(ctx context.Context, next *config.Config, logger *slog.Logger) {
	if err := s.container.Resize(ctx, next.Render.Width, next.Render.Height); err != nil {
		logger.Warn("failed to apply render size", "error", err)
		return
	}
	s.container.Update()
	logger.Info("config reloaded", "width", next.Render.Width, "height", next.Render.Height)
}

func (s *session) close(ctx context.Context) {
	if err := s.manager.Close(ctx); err != nil {
		slog.Default().Debug("manager close", "error", err)
	}
	s.exec.Stop()
	s.feedback.close()
}
