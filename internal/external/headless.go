package external

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// Presented is one window currently shown outside the render target.
type Presented struct {
	ID     string
	Title  string
	Modal  bool
	Bounds image.Rectangle
	Frame  *image.RGBA
}

// Headless records externalized windows without a windowing system.
type Headless struct {
	mu     sync.Mutex
	logger *slog.Logger

	windows map[string]Presented
	order   []string

	externalized int
	internalized int
}

// NewHeadless creates a headless presenter.
func NewHeadless(logger *slog.Logger) *Headless {
	if logger == nil {
		logger = slog.Default()
	}
	return &Headless{
		logger:  logger,
		windows: make(map[string]Presented),
	}
}

// Externalize snapshots the window and records it. Called on the executor.
func (h *Headless) Externalize(w surface.WindowSurface) error {
	frame, err := bridge.Snapshot(w.Node())
	if err != nil {
		return fmt.Errorf("externalize %s: %w", w.Name(), err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[w.ID()]; !ok {
		h.order = append(h.order, w.ID())
	}
	h.windows[w.ID()] = Presented{
		ID:     w.ID(),
		Title:  w.Title(),
		Modal:  w.Modal(),
		Bounds: w.Node().Bounds(),
		Frame:  frame,
	}
	h.externalized++
	h.logger.Debug("window externalized", "window", w.Name(), "id", w.ID())
	return nil
}

// Internalize forgets the window.
func (h *Headless) Internalize(w surface.WindowSurface) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[w.ID()]; !ok {
		return nil
	}
	delete(h.windows, w.ID())
	h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == w.ID() })
	h.internalized++
	h.logger.Debug("window internalized", "window", w.Name(), "id", w.ID())
	return nil
}

// Presented returns the externally presented windows in the order they
// were externalized.
func (h *Headless) Presented() []Presented {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Presented, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.windows[id])
	}
	return out
}

// Counts returns how many externalize and internalize calls took effect.
func (h *Headless) Counts() (externalized, internalized int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.externalized, h.internalized
}

// WriteFrames writes each presented window to dir as <title>-<id>.png and
// returns the paths written.
func (h *Headless) WriteFrames(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory: %w", err)
	}
	var paths []string
	for _, p := range h.Presented() {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", sanitize(p.Title), p.ID))
		if err := writePNG(path, p.Frame); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := bridge.EncodePNG(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func sanitize(s string) string {
	if s == "" {
		return "window"
	}
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
