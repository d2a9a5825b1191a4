package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Client calls a running control server.
type Client struct {
	obj dbus.BusObject
}

// NewClient connects to the control server owning busName on the session bus.
func NewClient(busName string) (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{obj: conn.Object(busName, Path)}, nil
}

func (c *Client) call(method string, args ...any) error {
	if err := c.obj.Call(Interface+"."+method, 0, args...).Err; err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Attach attaches a surface by name.
func (c *Client) Attach(name string) error { return c.call("Attach", name) }

// Detach detaches a surface by name.
func (c *Client) Detach(name string) error { return c.call("Detach", name) }

// Raise brings a surface to the front.
func (c *Client) Raise(name string) error { return c.call("Raise", name) }

// ToggleExternal moves a window in or out of its own OS window.
func (c *Client) ToggleExternal(name string) error { return c.call("ToggleExternal", name) }

// Frame renders one frame.
func (c *Client) Frame() error { return c.call("Frame") }

// Stack returns the surface stack, front-most first.
func (c *Client) Stack() ([]StackEntry, error) {
	var entries []StackEntry
	if err := c.obj.Call(Interface+".Stack", 0).Store(&entries); err != nil {
		return nil, fmt.Errorf("Stack: %w", err)
	}
	return entries, nil
}
