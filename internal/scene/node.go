package scene

import (
	"image"
	"image/color"

	"github.com/jmylchreest/hudbridge/internal/input"
)

// DragImageStyle is the legacy style string that marks a node as drag
// feedback. Nodes carrying it always render above every surface.
const DragImageStyle = "dragimage:true;"

// Presentation describes where a node is rendered.
type Presentation int

const (
	// Embedded nodes are rasterised into the shared render target.
	Embedded Presentation = iota
	// External nodes stay in the tree but are presented in their own host surface.
	External
)

func (p Presentation) String() string {
	if p == External {
		return "external"
	}
	return "embedded"
}

// Handler receives input routed to a node. It returns true when the node
// handled the event.
type Handler func(n *Node, e input.Event) bool

// Node is one renderable element of the overlay tree.
type Node struct {
	name         string
	style        string
	dragMarker   bool
	bounds       image.Rectangle
	background   color.Color
	content      image.Image
	disabled     bool
	hidden       bool
	presentation Presentation
	raiseOnPress bool
	handler      Handler

	parent *Group
}

// NewNode creates a detached node.
func NewNode(name string) *Node {
	return &Node{name: name}
}

// Name returns the node's debug name.
func (n *Node) Name() string { return n.name }

func (n *Node) String() string { return n.name }

// Style returns the node's style string.
func (n *Node) Style() string { return n.style }

// SetStyle replaces the node's style string.
func (n *Node) SetStyle(style string) { n.style = style }

// SetDragMarker flags the node as drag feedback.
func (n *Node) SetDragMarker(marker bool) { n.dragMarker = marker }

// IsDragMarker reports whether the node is drag feedback, either through the
// typed marker or the legacy style string.
func (n *Node) IsDragMarker() bool {
	return n.dragMarker || n.style == DragImageStyle
}

// Bounds returns the node's rectangle in render target pixels.
func (n *Node) Bounds() image.Rectangle { return n.bounds }

// SetBounds moves and resizes the node.
func (n *Node) SetBounds(r image.Rectangle) { n.bounds = r.Canon() }

// Background returns the fill color, nil for none.
func (n *Node) Background() color.Color { return n.background }

// SetBackground sets the fill color drawn under the content.
func (n *Node) SetBackground(c color.Color) { n.background = c }

// Content returns the node's image, scaled into its bounds when rendered.
func (n *Node) Content() image.Image { return n.content }

// SetContent sets the node's image.
func (n *Node) SetContent(img image.Image) { n.content = img }

// Disabled reports whether the node rejects input. Disabled nodes still render.
func (n *Node) Disabled() bool { return n.disabled }

// SetDisabled enables or disables input on the node. Disabling the focus
// owner clears focus.
func (n *Node) SetDisabled(disabled bool) {
	n.disabled = disabled
	if disabled && n.parent != nil && n.parent.focus == n {
		n.parent.focus = nil
	}
}

// Visible reports whether the node is drawn and hit-tested.
func (n *Node) Visible() bool { return !n.hidden }

// SetVisible shows or hides the node.
func (n *Node) SetVisible(visible bool) { n.hidden = !visible }

// Presentation returns where the node is rendered.
func (n *Node) Presentation() Presentation { return n.presentation }

// SetPresentation switches between embedded and external presentation.
func (n *Node) SetPresentation(p Presentation) { n.presentation = p }

// RaiseOnPress reports whether a pointer press brings the node to the front.
func (n *Node) RaiseOnPress() bool { return n.raiseOnPress }

// SetRaiseOnPress sets whether a pointer press brings the node to the front.
func (n *Node) SetRaiseOnPress(raise bool) { n.raiseOnPress = raise }

// SetHandler installs the node's input handler.
func (n *Node) SetHandler(h Handler) { n.handler = h }

// Handle routes e to the node's handler. Disabled nodes and nodes without
// a handler never handle input.
func (n *Node) Handle(e input.Event) bool {
	if n.disabled || n.handler == nil {
		return false
	}
	return n.handler(n, e)
}

// Parent returns the group the node belongs to, or nil.
func (n *Node) Parent() *Group { return n.parent }

// RequestFocus asks the parent group to make n the focus owner.
func (n *Node) RequestFocus() bool {
	if n.parent == nil {
		return false
	}
	return n.parent.RequestFocus(n)
}

// Focused reports whether n is its group's focus owner.
func (n *Node) Focused() bool {
	return n.parent != nil && n.parent.focus == n
}

// Contains reports whether the point lies inside the node's bounds.
func (n *Node) Contains(x, y int) bool {
	return image.Pt(x, y).In(n.bounds)
}
