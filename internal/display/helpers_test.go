package display

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// captureHandler records log records for assertions.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count(level slog.Level, contains string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level && strings.Contains(r.Message, contains) {
			n++
		}
	}
	return n
}

func (h *captureHandler) warnings() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == slog.LevelWarn {
			n++
		}
	}
	return n
}

type harness struct {
	t         *testing.T
	exec      *executor.Executor
	container *bridge.Container
	logs      *captureHandler
	cfg       *config.Config
	m         *Manager
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessWithConfig(t, config.DefaultConfig(), opts...)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, opts ...Option) *harness {
	t.Helper()
	logs := &captureHandler{}
	logger := slog.New(logs)

	exec := executor.New(logger)
	require.NoError(t, exec.Start(context.Background()))
	t.Cleanup(exec.Stop)

	container := bridge.NewContainer(exec, bridge.Options{Width: 200, Height: 200}, logger)
	m, err := NewManager(context.Background(), exec, container, cfg, logger, opts...)
	require.NoError(t, err)

	return &harness{t: t, exec: exec, container: container, logs: logs, cfg: cfg, m: m}
}

// settle waits until every queued task, including reconciliation passes and
// promotions queued by other tasks, has run.
func (h *harness) settle() {
	h.t.Helper()
	require.NoError(h.t, h.exec.Drain(context.Background()))
}

func (h *harness) onLoop(fn func(ctx context.Context)) {
	h.t.Helper()
	require.NoError(h.t, h.exec.Invoke(context.Background(), func(ctx context.Context) error {
		fn(ctx)
		return nil
	}))
}

func (h *harness) children() []*scene.Node {
	var out []*scene.Node
	h.onLoop(func(context.Context) { out = h.m.Root().Children() })
	return out
}

func (h *harness) names() []string {
	var out []string
	for _, n := range h.children() {
		out = append(out, n.Name())
	}
	return out
}

func (h *harness) disabled(s surface.Surface) bool {
	var d bool
	h.onLoop(func(context.Context) { d = s.Node().Disabled() })
	return d
}

func (h *harness) focusOwner() *scene.Node {
	var n *scene.Node
	h.onLoop(func(context.Context) { n = h.m.Root().FocusOwner() })
	return n
}

func sized(n *scene.Node) error {
	n.SetBounds(image.Rect(0, 0, 20, 20))
	n.SetBackground(color.NRGBA{B: 255, A: 255})
	return nil
}

func newHud(t *testing.T, name string) *surface.Hud {
	t.Helper()
	h := surface.NewHud(name, sized)
	require.NoError(t, h.Prepare())
	return h
}

func newWindow(t *testing.T, name string, modal bool) *surface.Window {
	t.Helper()
	w := surface.NewWindow(name, sized)
	w.SetModal(modal)
	require.NoError(t, w.Prepare())
	return w
}

func ids(ss []surface.Surface) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name()
	}
	return out
}
