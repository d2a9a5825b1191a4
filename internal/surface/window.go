package surface

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/jmylchreest/hudbridge/internal/scene"
)

// Externalizer presents windows in their own host-level surfaces instead of
// the shared render target.
type Externalizer interface {
	Externalize(w WindowSurface) error
	Internalize(w WindowSurface) error
}

// WindowSurface is a Surface with window semantics.
type WindowSurface interface {
	Surface
	Title() string
	Modal() bool
	// Externalized reports whether the window asks to be presented in its own
	// host surface.
	Externalized() bool
	SetExternalized(externalized bool)
	// PresentedExternally reports whether the window currently is.
	PresentedExternally() bool
	Promote(x Externalizer) error
	Demote(x Externalizer) error
	Close(ctx context.Context) error
}

// Window is an orderable, closable overlay.
type Window struct {
	Hud

	title        string
	modal        atomic.Bool
	externalized atomic.Bool
	external     atomic.Bool
}

// NewWindow creates a detached, non-modal, embedded window.
func NewWindow(name string, build BuildFunc) *Window {
	w := &Window{title: name}
	w.init(name, build)
	w.node.SetRaiseOnPress(true)
	return w
}

// Title returns the window title shown by external presenters.
func (w *Window) Title() string { return w.title }

// SetTitle changes the title. Call before attaching.
func (w *Window) SetTitle(title string) { w.title = title }

// Modal reports whether the window blocks input to everything below it.
func (w *Window) Modal() bool { return w.modal.Load() }

// SetModal marks the window modal. It takes effect on the next reconciliation.
func (w *Window) SetModal(modal bool) { w.modal.Store(modal) }

// Externalized reports whether the window asks for its own host surface.
func (w *Window) Externalized() bool { return w.externalized.Load() }

// SetExternalized sets the externalized flag. Use the manager to change the
// presentation of an attached window.
func (w *Window) SetExternalized(externalized bool) { w.externalized.Store(externalized) }

// PresentedExternally reports whether the window is currently shown in its
// own host surface.
func (w *Window) PresentedExternally() bool { return w.external.Load() }

// Promote moves the window's presentation to x. It must run on the UI
// executor after the node is in the tree.
func (w *Window) Promote(x Externalizer) error {
	if w.external.Load() {
		return nil
	}
	if err := x.Externalize(w); err != nil {
		return err
	}
	w.node.SetPresentation(scene.External)
	w.external.Store(true)
	return nil
}

// Demote returns the window's presentation to the shared render target.
func (w *Window) Demote(x Externalizer) error {
	if !w.external.Load() {
		return nil
	}
	w.node.SetPresentation(scene.Embedded)
	w.external.Store(false)
	return x.Internalize(w)
}

// Bounds returns the window rectangle.
func (w *Window) Bounds() image.Rectangle { return w.node.Bounds() }

// SetPosition moves the window keeping its size. Call before attaching or
// from the UI executor.
func (w *Window) SetPosition(x, y int) {
	b := w.node.Bounds()
	w.node.SetBounds(image.Rect(x, y, x+b.Dx(), y+b.Dy()))
}

// SetSize resizes the window keeping its position. Call before attaching or
// from the UI executor.
func (w *Window) SetSize(width, height int) {
	b := w.node.Bounds()
	w.node.SetBounds(image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Min.Y+height))
}

// Close asks the owning manager to detach the window.
func (w *Window) Close(ctx context.Context) error {
	o := w.Owner()
	if o == nil {
		return ErrNotAttached
	}
	o.Detach(ctx, w)
	return nil
}
