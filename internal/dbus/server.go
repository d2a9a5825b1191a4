package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// callTimeout bounds how long a single D-Bus call may wait on the manager.
const callTimeout = 5 * time.Second

// ErrNotConnected is returned when emitting without a bus connection.
var ErrNotConnected = errors.New("not connected to D-Bus")

// busConn is the part of *dbus.Conn the server uses.
type busConn interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
	Emit(path dbus.ObjectPath, name string, values ...any) error
}

// Server exports a Controller on the session bus.
type Server struct {
	ctrl    Controller
	busName string
	logger  *slog.Logger

	mu      sync.Mutex
	conn    busConn
	ctx     context.Context
	running bool
}

// NewServer creates a server for ctrl claiming busName.
func NewServer(ctrl Controller, busName string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:    ctrl,
		busName: busName,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Start connects to the session bus and exports the control object. Calls
// are cancelled when ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return s.startOn(ctx, conn)
}

func (s *Server) startOn(ctx context.Context, conn busConn) error {
	if err := s.export(conn); err != nil {
		unexport(conn)
		return err
	}

	reply, err := conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		unexport(conn)
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		unexport(conn)
		return fmt.Errorf("bus name %s already taken", s.busName)
	}

	s.mu.Lock()
	s.conn = conn
	s.ctx = ctx
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus control server started", "bus_name", s.busName, "path", Path)
	return nil
}

func (s *Server) export(conn busConn) error {
	if err := conn.Export(s, Path, Interface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: Path,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), Path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(s.busName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	unexport(s.conn)
	s.conn = nil
	s.logger.Info("D-Bus control server stopped")
	return nil
}

// unexport removes the control and introspection objects from conn. The
// session connection is shared, so nothing may stay behind on failure.
func unexport(conn busConn) {
	_ = conn.Export(nil, Path, Interface)
	_ = conn.Export(nil, Path, "org.freedesktop.DBus.Introspectable")
}

// EmitFocusDenied emits the FocusDenied signal.
func (s *Server) EmitFocusDenied(modal, requester string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Emit(Path, Interface+".FocusDenied", modal, requester); err != nil {
		return fmt.Errorf("failed to emit FocusDenied signal: %w", err)
	}
	return nil
}

func (s *Server) call(method, name string, fn func(ctx context.Context, name string) error) *dbus.Error {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, callTimeout)
	defer cancel()

	s.logger.Debug(method+" called", "name", name)
	if err := fn(ctx, name); err != nil {
		s.logger.Debug(method+" failed", "name", name, "error", err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Attach attaches a surface by name.
// D-Bus method: Attach(s) -> nothing
func (s *Server) Attach(name string) *dbus.Error {
	return s.call("Attach", name, s.ctrl.Attach)
}

// Detach detaches a surface by name.
// D-Bus method: Detach(s) -> nothing
func (s *Server) Detach(name string) *dbus.Error {
	return s.call("Detach", name, s.ctrl.Detach)
}

// Raise brings a surface to the front, subject to modality.
// D-Bus method: Raise(s) -> nothing
func (s *Server) Raise(name string) *dbus.Error {
	return s.call("Raise", name, s.ctrl.Raise)
}

// ToggleExternal moves a window in or out of its own OS window.
// D-Bus method: ToggleExternal(s) -> nothing
func (s *Server) ToggleExternal(name string) *dbus.Error {
	return s.call("ToggleExternal", name, s.ctrl.ToggleExternal)
}

// Frame renders one frame.
// D-Bus method: Frame() -> nothing
func (s *Server) Frame() *dbus.Error {
	return s.call("Frame", "", func(ctx context.Context, _ string) error {
		return s.ctrl.Frame(ctx)
	})
}

// Stack returns the surface stack, front-most first.
// D-Bus method: Stack() -> a(ssbbbb)
func (s *Server) Stack() ([]StackEntry, *dbus.Error) {
	var entries []StackEntry
	derr := s.call("Stack", "", func(ctx context.Context, _ string) error {
		var err error
		entries, err = s.ctrl.Stack(ctx)
		return err
	})
	if derr != nil {
		return nil, derr
	}
	if entries == nil {
		entries = []StackEntry{}
	}
	return entries, nil
}
