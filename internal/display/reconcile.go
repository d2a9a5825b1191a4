package display

import (
	"context"
	"slices"

	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// onChildrenChanged runs synchronously on the executor for every change to
// the root's children. The first change of a burst queues one pass; changes
// seen while the pass is pending or running are dropped.
func (m *Manager) onChildrenChanged(scene.Change) {
	if m.reconciling {
		m.suppressed.Add(1)
		return
	}
	m.reconciling = true
	if err := m.exec.Post(m.reconcile); err != nil {
		m.reconciling = false
		m.logger.Warn("failed to queue reconciliation", "error", err)
	}
}

// reconcile restores the canonical order bottom to top: passthrough nodes,
// huds, windows, modal windows, drag markers. Each bucket keeps its current
// relative order. Everything below a modal window is disabled and the
// top-most modal window gets focus.
func (m *Manager) reconcile(ctx context.Context) {
	defer func() { m.reconciling = false }()
	m.passes.Add(1)

	bySurface := make(map[*scene.Node]surface.Surface)
	for _, s := range *m.attached.Load() {
		bySurface[s.Node()] = s
	}

	children := m.root.Children()
	var passthrough, huds, windows, modals, drags []*scene.Node
	for _, n := range children {
		if m.isDragMarker(n) {
			drags = append(drags, n)
			continue
		}
		s, ok := bySurface[n]
		if !ok {
			passthrough = append(passthrough, n)
			continue
		}
		w, ok := s.(surface.WindowSurface)
		switch {
		case !ok:
			huds = append(huds, n)
		case w.Modal():
			modals = append(modals, n)
		default:
			windows = append(windows, n)
		}
	}

	front := frontOf(children, m.isDragMarker)

	order := slices.Concat(passthrough, huds, windows, modals, drags)
	if !slices.Equal(order, children) {
		m.root.SetAll(order)
	}

	blocked := len(modals) > 0
	for _, n := range huds {
		n.SetDisabled(blocked)
	}
	for _, n := range windows {
		n.SetDisabled(blocked)
	}
	for _, n := range modals {
		n.SetDisabled(false)
	}
	if !blocked {
		return
	}

	top := modals[len(modals)-1]
	m.root.RequestFocus(top)

	if front == nil || slices.Contains(modals, front) {
		return
	}
	m.focusDenied(ctx, FocusDenied{
		Modal:     bySurface[top].(surface.WindowSurface),
		Node:      front,
		Requester: bySurface[front],
	})
}

// frontOf returns the front-most node of children that is not a drag
// marker, or nil.
func frontOf(children []*scene.Node, isDrag func(*scene.Node) bool) *scene.Node {
	for _, n := range slices.Backward(children) {
		if !isDrag(n) {
			return n
		}
	}
	return nil
}

func (m *Manager) isDragMarker(n *scene.Node) bool {
	if n.IsDragMarker() {
		return true
	}
	style := m.cfg.Display.DragMarkerStyle
	return style != "" && n.Style() == style
}
