package scene

import (
	"errors"
	"slices"
)

// ErrDuplicateChild is returned when a node is added to a group it already belongs to.
var ErrDuplicateChild = errors.New("scene: node is already a child of this group")

// Change describes one mutation of a group's child list.
type Change struct {
	Added     []*Node
	Removed   []*Node
	Reordered bool
}

// ChangeListener is notified after every child-list mutation.
type ChangeListener func(c Change)

type listenerEntry struct {
	id int
	fn ChangeListener
}

// Group is the ordered root of an overlay tree. Children are ordered
// bottom to top: the last child renders in front.
type Group struct {
	children  []*Node
	focus     *Node
	listeners []listenerEntry
	nextID    int
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Children returns a copy of the child list, bottom to top.
func (g *Group) Children() []*Node {
	return slices.Clone(g.children)
}

// Len returns the number of children.
func (g *Group) Len() int { return len(g.children) }

// IndexOf returns the position of n, or -1.
func (g *Group) IndexOf(n *Node) int {
	return slices.Index(g.children, n)
}

// Contains reports whether n is a child of g.
func (g *Group) Contains(n *Node) bool {
	return n != nil && n.parent == g
}

// Front returns the front-most child, or nil.
func (g *Group) Front() *Node {
	if len(g.children) == 0 {
		return nil
	}
	return g.children[len(g.children)-1]
}

// Add appends n on top of the other children. A node owned by another
// group is moved.
func (g *Group) Add(n *Node) error {
	if n.parent == g {
		return ErrDuplicateChild
	}
	if n.parent != nil {
		n.parent.Remove(n)
	}
	n.parent = g
	g.children = append(g.children, n)
	g.fire(Change{Added: []*Node{n}})
	return nil
}

// Remove detaches n from the group. It reports whether n was a child.
func (g *Group) Remove(n *Node) bool {
	i := g.IndexOf(n)
	if i < 0 {
		return false
	}
	g.children = slices.Delete(g.children, i, i+1)
	n.parent = nil
	if g.focus == n {
		g.focus = nil
	}
	g.fire(Change{Removed: []*Node{n}})
	return true
}

// SetAll replaces the child list in one mutation. Nodes missing from nodes
// are detached; listeners receive a single change.
func (g *Group) SetAll(nodes []*Node) {
	var removed, added []*Node
	keep := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		keep[n] = true
	}
	for _, old := range g.children {
		if !keep[old] {
			old.parent = nil
			removed = append(removed, old)
			if g.focus == old {
				g.focus = nil
			}
		}
	}
	for _, n := range nodes {
		if n.parent != g {
			if n.parent != nil {
				n.parent.Remove(n)
			}
			n.parent = g
			added = append(added, n)
		}
	}
	g.children = slices.Clone(nodes)
	g.fire(Change{Added: added, Removed: removed, Reordered: true})
}

// ToFront moves n above every other child, the way toolkit focus handling
// raises a clicked window.
func (g *Group) ToFront(n *Node) bool {
	i := g.IndexOf(n)
	if i < 0 {
		return false
	}
	if i == len(g.children)-1 {
		return true
	}
	g.children = append(slices.Delete(g.children, i, i+1), n)
	g.fire(Change{Reordered: true})
	return true
}

// ToBack moves n below every other child.
func (g *Group) ToBack(n *Node) bool {
	i := g.IndexOf(n)
	if i < 0 {
		return false
	}
	if i == 0 {
		return true
	}
	g.children = slices.Insert(slices.Delete(g.children, i, i+1), 0, n)
	g.fire(Change{Reordered: true})
	return true
}

// RequestFocus makes n the focus owner if it is an enabled, visible child.
func (g *Group) RequestFocus(n *Node) bool {
	if n == nil || n.parent != g || n.disabled || n.hidden {
		return false
	}
	g.focus = n
	return true
}

// ClearFocus drops the focus owner.
func (g *Group) ClearFocus() { g.focus = nil }

// FocusOwner returns the node that receives key events, or nil.
func (g *Group) FocusOwner() *Node { return g.focus }

// HitTest returns the front-most visible, embedded child containing the
// point, or nil. Disabled nodes are returned so they can swallow input.
func (g *Group) HitTest(x, y int) *Node {
	for i := len(g.children) - 1; i >= 0; i-- {
		n := g.children[i]
		if n.hidden || n.presentation == External {
			continue
		}
		if n.Contains(x, y) {
			return n
		}
	}
	return nil
}

// AddListener registers fn for child-list changes and returns a function
// that unregisters it.
func (g *Group) AddListener(fn ChangeListener) (remove func()) {
	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		g.listeners = slices.DeleteFunc(g.listeners, func(e listenerEntry) bool {
			return e.id == id
		})
	}
}

func (g *Group) fire(c Change) {
	for _, l := range slices.Clone(g.listeners) {
		l.fn(c)
	}
}
