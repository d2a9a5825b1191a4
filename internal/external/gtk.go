//go:build gtk

package external

import (
	"fmt"
	"log/slog"
	"sync"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// GTK presents each externalized window as a GTK4 toplevel showing a
// snapshot of the window's node. Snapshots are taken on the executor; the
// widgets are created and destroyed on the GTK main loop.
type GTK struct {
	app    *gtk.Application
	cfg    config.ExternalConfig
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*gtk.Window
}

// NewGTK creates a GTK presenter bound to app.
func NewGTK(app *gtk.Application, cfg config.ExternalConfig, logger *slog.Logger) *GTK {
	if logger == nil {
		logger = slog.Default()
	}
	return &GTK{
		app:     app,
		cfg:     cfg,
		logger:  logger,
		windows: make(map[string]*gtk.Window),
	}
}

// Externalize snapshots w and schedules a toplevel for it.
func (g *GTK) Externalize(w surface.WindowSurface) error {
	frame, err := bridge.Snapshot(w.Node())
	if err != nil {
		return fmt.Errorf("externalize %s: %w", w.Name(), err)
	}
	id, title, bounds := w.ID(), w.Title(), w.Node().Bounds()

	glib.IdleAdd(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if old, ok := g.windows[id]; ok {
			old.Close()
		}

		bytes := glib.NewBytes(frame.Pix)
		tex := gdk.NewMemoryTexture(bounds.Dx(), bounds.Dy(), gdk.MemoryR8G8B8A8Premultiplied, bytes, uint(frame.Stride))

		win := gtk.NewWindow()
		win.SetApplication(g.app)
		win.SetTitle(title)
		win.SetDecorated(false)
		win.SetResizable(false)
		win.SetDefaultSize(bounds.Dx(), bounds.Dy())
		win.SetChild(gtk.NewPictureForPaintable(tex))

		if g.cfg.LayerShell {
			layershell.InitForWindow(win)
			layershell.SetLayer(win, layershell.LayerShellLayerTop)
			layershell.SetExclusiveZone(win, 0)
			layershell.SetKeyboardMode(win, layershell.LayerShellKeyboardModeOnDemand)
			layershell.SetNamespace(win, "hudbridge-window")
			layershell.SetAnchor(win, layershell.LayerShellEdgeTop, true)
			layershell.SetAnchor(win, layershell.LayerShellEdgeLeft, true)
			layershell.SetMargin(win, layershell.LayerShellEdgeTop, bounds.Min.Y)
			layershell.SetMargin(win, layershell.LayerShellEdgeLeft, bounds.Min.X)
		}

		g.windows[id] = win
		win.Present()
		g.logger.Debug("external window presented", "id", id, "title", title)
	})
	return nil
}

// Internalize schedules the toplevel for w to close.
func (g *GTK) Internalize(w surface.WindowSurface) error {
	id := w.ID()
	glib.IdleAdd(func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		win, ok := g.windows[id]
		if !ok {
			return
		}
		delete(g.windows, id)
		win.Close()
		g.logger.Debug("external window closed", "id", id)
	})
	return nil
}

// CloseAll closes every external toplevel. Call on the GTK main loop.
func (g *GTK) CloseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, win := range g.windows {
		win.Close()
		delete(g.windows, id)
	}
}
