package bridge

import (
	"context"

	"github.com/jmylchreest/hudbridge/internal/input"
	"github.com/jmylchreest/hudbridge/internal/scene"
)

// Redirector is the RawInputListener the host registers. For every event it
// notifies the ever-listening tap, decides on the host goroutine whether the
// overlay consumes the event, then queues routing onto the executor.
type Redirector struct {
	c            *Container
	consumeAlpha uint8
}

func newRedirector(c *Container, consumeAlpha uint8) *Redirector {
	if consumeAlpha == 0 {
		consumeAlpha = 1
	}
	return &Redirector{c: c, consumeAlpha: consumeAlpha}
}

func (r *Redirector) OnMouseMotion(e *input.MouseMotionEvent) { r.handle(e) }
func (r *Redirector) OnMouseButton(e *input.MouseButtonEvent) { r.handle(e) }
func (r *Redirector) OnKey(e *input.KeyEvent)                 { r.handle(e) }
func (r *Redirector) OnTouch(e *input.TouchEvent)             { r.handle(e) }

func (r *Redirector) handle(e input.Event) {
	if l := r.c.everListener(); l != nil {
		input.Dispatch(l, e)
	}
	if r.wants(e) {
		e.Consume()
	}
	if err := r.c.exec.Post(func(ctx context.Context) { r.route(ctx, e) }); err != nil {
		r.c.logger.Debug("input dropped", "error", err)
	}
}

// wants reports whether the overlay covers the event. Pointer events count
// when the last frame is opaque enough under the pointer; key events when a
// node holds focus.
func (r *Redirector) wants(e input.Event) bool {
	if p, ok := e.(input.Positional); ok {
		x, y := p.Position()
		return r.c.AlphaAt(x, y) >= r.consumeAlpha
	}
	if _, ok := e.(*input.KeyEvent); ok {
		return r.c.focusActive.Load()
	}
	return false
}

func (r *Redirector) route(_ context.Context, e input.Event) {
	root := r.c.Root()
	if root == nil {
		return
	}
	if p, ok := e.(input.Positional); ok {
		x, y := p.Position()
		target := root.HitTest(x, y)
		if target == nil {
			return
		}
		if target.Disabled() {
			return
		}
		if press, ok := e.(*input.MouseButtonEvent); ok && press.Pressed {
			r.activate(root, target)
		}
		target.Handle(e)
		return
	}
	if owner := root.FocusOwner(); owner != nil && !owner.Disabled() {
		owner.Handle(e)
	}
}

// activate mimics the toolkit focus machinery: a press on a raisable node
// brings it to the front and focuses it.
func (r *Redirector) activate(root *scene.Group, n *scene.Node) {
	if n.RaiseOnPress() {
		root.ToFront(n)
	}
	root.RequestFocus(n)
}
