package dbus

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	calls []string
	err   error
	stack []StackEntry
}

func (f *fakeController) record(op, name string) error {
	f.calls = append(f.calls, op+" "+name)
	return f.err
}

func (f *fakeController) Attach(_ context.Context, name string) error { return f.record("attach", name) }
func (f *fakeController) Detach(_ context.Context, name string) error { return f.record("detach", name) }
func (f *fakeController) Raise(_ context.Context, name string) error  { return f.record("raise", name) }
func (f *fakeController) ToggleExternal(_ context.Context, name string) error {
	return f.record("external", name)
}
func (f *fakeController) Frame(context.Context) error { return f.record("frame", "") }
func (f *fakeController) Stack(ctx context.Context) ([]StackEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.stack, f.err
}

func TestServer_MethodsDispatch(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(ctrl, "io.github.jmylchreest.HudBridge.Test", nil)

	assert.Nil(t, s.Attach("status"))
	assert.Nil(t, s.Detach("status"))
	assert.Nil(t, s.Raise("inventory"))
	assert.Nil(t, s.ToggleExternal("journal"))
	assert.Nil(t, s.Frame())

	assert.Equal(t, []string{
		"attach status",
		"detach status",
		"raise inventory",
		"external journal",
		"frame ",
	}, ctrl.calls)
}

func TestServer_ErrorsBecomeFailedErrors(t *testing.T) {
	ctrl := &fakeController{err: errors.New(`unknown surface "nope"`)}
	s := NewServer(ctrl, "io.github.jmylchreest.HudBridge.Test", nil)

	derr := s.Attach("nope")
	require.NotNil(t, derr)
	assert.Equal(t, "org.freedesktop.DBus.Error.Failed", derr.Name)
	require.Len(t, derr.Body, 1)
	assert.Equal(t, `unknown surface "nope"`, derr.Body[0])

	_, derr = s.Stack()
	require.NotNil(t, derr)
}

func TestServer_StackNeverNil(t *testing.T) {
	s := NewServer(&fakeController{}, "io.github.jmylchreest.HudBridge.Test", nil)

	entries, derr := s.Stack()
	require.Nil(t, derr)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestServer_StackEntries(t *testing.T) {
	want := []StackEntry{
		{Name: "confirm", Kind: "modal", Attached: true, Focused: true},
		{Name: "status", Kind: "hud", Attached: true, Disabled: true},
	}
	s := NewServer(&fakeController{stack: want}, "io.github.jmylchreest.HudBridge.Test", nil)

	entries, derr := s.Stack()
	require.Nil(t, derr)
	assert.Equal(t, want, entries)
}

func TestServer_EmitWithoutConnection(t *testing.T) {
	s := NewServer(&fakeController{}, "io.github.jmylchreest.HudBridge.Test", nil)
	assert.ErrorIs(t, s.EmitFocusDenied("confirm", "inventory"), ErrNotConnected)
	assert.NoError(t, s.Stop())
}

func TestIntrospection(t *testing.T) {
	names := make(map[string]bool)
	for _, m := range controlMethods() {
		names[m.Name] = true
	}
	for _, want := range []string{"Attach", "Detach", "Raise", "ToggleExternal", "Frame", "Stack"} {
		assert.True(t, names[want], "missing method %s", want)
	}

	signals := controlSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, "FocusDenied", signals[0].Name)
}

type fakeConn struct {
	reply      dbus.RequestNameReply
	requestErr error
	exported   map[string]any
	released   []string
	emitted    []string
}

func newFakeConn(reply dbus.RequestNameReply) *fakeConn {
	return &fakeConn{reply: reply, exported: make(map[string]any)}
}

func (c *fakeConn) Export(v any, path dbus.ObjectPath, iface string) error {
	key := string(path) + " " + iface
	if v == nil {
		delete(c.exported, key)
		return nil
	}
	c.exported[key] = v
	return nil
}

func (c *fakeConn) RequestName(string, dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	return c.reply, c.requestErr
}

func (c *fakeConn) ReleaseName(name string) (dbus.ReleaseNameReply, error) {
	c.released = append(c.released, name)
	return dbus.ReleaseNameReplyReleased, nil
}

func (c *fakeConn) Emit(_ dbus.ObjectPath, name string, _ ...any) error {
	c.emitted = append(c.emitted, name)
	return nil
}

func TestServer_StartStop(t *testing.T) {
	conn := newFakeConn(dbus.RequestNameReplyPrimaryOwner)
	s := NewServer(&fakeController{}, "io.github.jmylchreest.HudBridge.Test", nil)

	require.NoError(t, s.startOn(context.Background(), conn))
	assert.Len(t, conn.exported, 2)

	require.NoError(t, s.EmitFocusDenied("confirm", "inventory"))
	assert.Equal(t, []string{Interface + ".FocusDenied"}, conn.emitted)

	require.NoError(t, s.Stop())
	assert.Equal(t, []string{"io.github.jmylchreest.HudBridge.Test"}, conn.released)
	assert.Empty(t, conn.exported)
	assert.ErrorIs(t, s.EmitFocusDenied("confirm", "inventory"), ErrNotConnected)
}

func TestServer_StartUnexportsOnFailure(t *testing.T) {
	tests := []struct {
		name string
		conn *fakeConn
	}{
		{"name taken", newFakeConn(dbus.RequestNameReplyExists)},
		{"request fails", func() *fakeConn {
			c := newFakeConn(dbus.RequestNameReplyPrimaryOwner)
			c.requestErr = errors.New("bus gone")
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeController{}, "io.github.jmylchreest.HudBridge.Test", nil)

			require.Error(t, s.startOn(context.Background(), tt.conn))
			assert.Empty(t, tt.conn.exported, "nothing stays exported on the shared connection")
			assert.ErrorIs(t, s.EmitFocusDenied("confirm", "inventory"), ErrNotConnected)
		})
	}
}
