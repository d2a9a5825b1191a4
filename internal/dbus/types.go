package dbus

import (
	"context"

	"github.com/godbus/dbus/v5/introspect"
)

const (
	// Interface is the control interface name.
	Interface = "io.github.jmylchreest.HudBridge"
	// Path is the control object path.
	Path = "/io/github/jmylchreest/HudBridge"
)

// StackEntry is one surface as reported by the Stack method, front-most
// first. D-Bus signature (ssbbbb).
type StackEntry struct {
	Name     string
	Kind     string
	Attached bool
	Disabled bool
	Focused  bool
	External bool
}

// Controller carries out control requests. Implementations are safe for
// use from D-Bus dispatch goroutines.
type Controller interface {
	Attach(ctx context.Context, name string) error
	Detach(ctx context.Context, name string) error
	Raise(ctx context.Context, name string) error
	ToggleExternal(ctx context.Context, name string) error
	Frame(ctx context.Context) error
	Stack(ctx context.Context) ([]StackEntry, error)
}

// controlMethods returns the D-Bus method introspection data.
func controlMethods() []introspect.Method {
	byName := func(name string) introspect.Method {
		return introspect.Method{
			Name: name,
			Args: []introspect.Arg{{Name: "name", Type: "s", Direction: "in"}},
		}
	}
	return []introspect.Method{
		byName("Attach"),
		byName("Detach"),
		byName("Raise"),
		byName("ToggleExternal"),
		{Name: "Frame"},
		{
			Name: "Stack",
			Args: []introspect.Arg{
				{Name: "entries", Type: "a(ssbbbb)", Direction: "out"},
			},
		},
	}
}

// controlSignals returns the D-Bus signal introspection data.
func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "FocusDenied",
			Args: []introspect.Arg{
				{Name: "modal", Type: "s"},
				{Name: "requester", Type: "s"},
			},
		},
	}
}
