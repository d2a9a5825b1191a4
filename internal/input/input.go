// Package input defines the raw host input events forwarded into the overlay
// and the listener interface the host's input dispatch calls.
package input

import "sync/atomic"

// Event is any raw input event coming from the host engine.
type Event interface {
	// Consume marks the event as handled by the overlay so the host can skip it.
	Consume()
	// Consumed reports whether the overlay claimed the event.
	Consumed() bool
}

// base carries the consumed flag shared by all event kinds.
// The host reads the flag after dispatch, the overlay may set it from its
// own goroutine, so it is atomic.
type base struct {
	consumed atomic.Bool
}

func (b *base) Consume()       { b.consumed.Store(true) }
func (b *base) Consumed() bool { return b.consumed.Load() }

// MouseButton identifies a pointer button.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
)

// MouseMotionEvent reports pointer movement in render target pixels.
type MouseMotionEvent struct {
	base
	X, Y   int
	DX, DY int
	Wheel  int
}

// MouseButtonEvent reports a pointer button press or release.
type MouseButtonEvent struct {
	base
	X, Y    int
	Button  MouseButton
	Pressed bool
}

// KeyEvent reports a keyboard key press or release.
type KeyEvent struct {
	base
	Code    int
	Char    rune
	Pressed bool
	Repeat  bool
}

// TouchEvent reports a touch point.
type TouchEvent struct {
	base
	Pointer int
	X, Y    int
	Down    bool
}

// Positional is implemented by events that carry a pointer position.
type Positional interface {
	Event
	Position() (x, y int)
}

func (e *MouseMotionEvent) Position() (int, int) { return e.X, e.Y }
func (e *MouseButtonEvent) Position() (int, int) { return e.X, e.Y }
func (e *TouchEvent) Position() (int, int)       { return e.X, e.Y }

// RawInputListener receives raw events from the host's input system.
// Events are delivered on the host goroutine.
type RawInputListener interface {
	OnMouseMotion(e *MouseMotionEvent)
	OnMouseButton(e *MouseButtonEvent)
	OnKey(e *KeyEvent)
	OnTouch(e *TouchEvent)
}

// ListenerFunc adapts a single function to RawInputListener.
type ListenerFunc func(e Event)

func (f ListenerFunc) OnMouseMotion(e *MouseMotionEvent) { f(e) }
func (f ListenerFunc) OnMouseButton(e *MouseButtonEvent) { f(e) }
func (f ListenerFunc) OnKey(e *KeyEvent)                 { f(e) }
func (f ListenerFunc) OnTouch(e *TouchEvent)             { f(e) }

// Dispatch delivers e to the matching method of l.
func Dispatch(l RawInputListener, e Event) {
	switch ev := e.(type) {
	case *MouseMotionEvent:
		l.OnMouseMotion(ev)
	case *MouseButtonEvent:
		l.OnMouseButton(ev)
	case *KeyEvent:
		l.OnKey(ev)
	case *TouchEvent:
		l.OnTouch(ev)
	}
}
