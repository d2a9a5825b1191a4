package display

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/external"
	"github.com/jmylchreest/hudbridge/internal/input"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

var whiteTint = color.White

// Bridge is the render bridge the manager presents its tree through.
// *bridge.Container implements it.
type Bridge interface {
	SetScene(root *scene.Group)
	SetMaterial(m *bridge.Material) error
	InputListener() input.RawInputListener
	SetEverListeningRawInputListener(l input.RawInputListener)
}

// FocusDenied describes a reconciliation pass that found something other
// than a modal window in front of the modal stack.
type FocusDenied struct {
	// Modal is the top-most modal window, which keeps focus.
	Modal surface.WindowSurface
	// Node is the node that had been front-most before the pass.
	Node *scene.Node
	// Requester is the surface owning Node: a hud or a non-modal window.
	// It is nil when Node is not a surface.
	Requester surface.Surface
}

// FocusDeniedFunc is called on the executor when a hud, window or other node
// came in front of a modal window, which keeps focus.
type FocusDeniedFunc func(ctx context.Context, d FocusDenied)

// Stats reports reconciliation activity.
type Stats struct {
	Attached   int
	Passes     uint64
	Suppressed uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaterial sets the compositing material. It must declare a texture
// parameter named "Texture".
func WithMaterial(mat *bridge.Material) Option {
	return func(m *Manager) { m.material = mat }
}

// WithCursorProvider sets the provider whose cursors are prepared at startup.
func WithCursorProvider(p bridge.CursorProvider) Option {
	return func(m *Manager) { m.cursors = p }
}

// WithExternalizer sets the presenter for externalized windows.
func WithExternalizer(x surface.Externalizer) Option {
	return func(m *Manager) { m.externalizer = x }
}

// WithFocusDeniedFunc replaces the focus-denied hook.
func WithFocusDeniedFunc(fn FocusDeniedFunc) Option {
	return func(m *Manager) { m.focusDenied = fn }
}

// Manager composites huds and windows into a single overlay tree.
type Manager struct {
	exec   *executor.Executor
	bridge Bridge
	cfg    *config.Config
	logger *slog.Logger

	material     *bridge.Material
	cursors      bridge.CursorProvider
	externalizer surface.Externalizer
	focusDenied  FocusDeniedFunc

	root           *scene.Group
	removeListener func()

	// Registry: readers load the snapshot, writers serialize on mu and
	// publish a fresh slice.
	mu       sync.Mutex
	attached atomic.Pointer[[]surface.Surface]

	// Executor-confined reentrancy guard for reconciliation.
	reconciling bool

	passes     atomic.Uint64
	suppressed atomic.Uint64
}

// NewManager creates a manager presenting through b. It blocks until the
// root group has been created on the executor and installed in the bridge,
// or until ctx is done.
//
// A material without a "Texture" parameter panics when cfg.Debug is set and
// is logged as an error otherwise.
func NewManager(ctx context.Context, exec *executor.Executor, b Bridge, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m := &Manager{
		exec:   exec,
		bridge: b,
		cfg:    cfg,
		logger: logger,
	}
	empty := []surface.Surface{}
	m.attached.Store(&empty)

	for _, opt := range opts {
		opt(m)
	}
	if m.material == nil {
		m.material = bridge.DefaultMaterial()
		if err := m.material.SetColor("Color", whiteTint); err != nil {
			m.logger.Warn("failed to set default material color", "error", err)
		}
	}
	if m.externalizer == nil {
		m.externalizer = external.NewHeadless(logger)
	}
	if m.focusDenied == nil {
		m.focusDenied = m.logFocusDenied
	}

	if err := b.SetMaterial(m.material); err != nil {
		m.violation("render material rejected", err, "material", m.material.Name())
	}

	if m.cursors != nil {
		for _, c := range bridge.CursorTypes() {
			m.cursors.Setup(c)
		}
	}

	err := exec.Invoke(ctx, func(context.Context) error {
		m.root = scene.NewGroup()
		m.removeListener = m.root.AddListener(m.onChildrenChanged)
		b.SetScene(m.root)
		return nil
	})
	if err != nil {
		return nil, &DisplayError{Message: "failed to install overlay root", Cause: err}
	}

	m.logger.Debug("display manager started", "material", m.material.Name())
	return m, nil
}

// Root returns the composited root group. Its children may only be read or
// changed on the executor.
func (m *Manager) Root() *scene.Group { return m.root }

// InputRedirector returns the listener the host registers for raw input.
func (m *Manager) InputRedirector() input.RawInputListener { return m.bridge.InputListener() }

// SetEverListeningRawInputListener installs a listener that receives every
// raw input event, consumed or not, on the host goroutine.
func (m *Manager) SetEverListeningRawInputListener(l input.RawInputListener) {
	m.bridge.SetEverListeningRawInputListener(l)
}

// Attached returns a snapshot of the attached surfaces in attach order.
// It is safe to call from any goroutine and never blocks.
func (m *Manager) Attached() []surface.Surface {
	return slices.Clone(*m.attached.Load())
}

// Stats returns reconciliation counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Attached:   len(*m.attached.Load()),
		Passes:     m.passes.Load(),
		Suppressed: m.suppressed.Load(),
	}
}

// Attach adds s to the overlay. Attaching an attached surface is a no-op.
// A window flagged externalized is promoted by a separate task once it is
// in the tree.
//
// Whether the caller is on the executor is decided by ctx, not by the
// goroutine: code running in an executor task must pass the task's ctx for
// Attach to run inline. Any other ctx queues the request, even on the
// executor goroutine. The same holds for every mutating method.
func (m *Manager) Attach(ctx context.Context, s surface.Surface) {
	if s == nil {
		m.logger.Warn("attach called with nil surface")
		return
	}
	m.run(ctx, func(ctx context.Context) { m.attach(ctx, s) })
}

// Detach removes s from the overlay. An externalized window is internalized
// first. Detaching nil or an unattached surface logs a warning. It runs
// inline only when ctx is an executor task's ctx, see Attach.
func (m *Manager) Detach(ctx context.Context, s surface.Surface) {
	if s == nil {
		m.logger.Warn("detach called with nil surface")
		return
	}
	m.run(ctx, func(ctx context.Context) { m.detach(ctx, s) })
}

// Externalize presents w in its own host surface. An unattached window is
// only flagged and gets promoted when attached.
func (m *Manager) Externalize(ctx context.Context, w surface.WindowSurface) {
	if w == nil {
		return
	}
	m.run(ctx, func(context.Context) {
		w.SetExternalized(true)
		if m.registered(w) {
			m.promote(w)
		}
	})
}

// Internalize returns w to the shared render target.
func (m *Manager) Internalize(ctx context.Context, w surface.WindowSurface) {
	if w == nil {
		return
	}
	m.run(ctx, func(context.Context) {
		w.SetExternalized(false)
		m.demote(w)
	})
}

// Raise brings s to the front and requests focus for it, as a click on the
// surface would. Reconciliation then restores the stacking order.
func (m *Manager) Raise(ctx context.Context, s surface.Surface) {
	if s == nil {
		return
	}
	m.run(ctx, func(context.Context) {
		if !m.registered(s) {
			m.logger.Debug("raise ignored, surface not attached", "surface", s)
			return
		}
		m.root.ToFront(s.Node())
		m.root.RequestFocus(s.Node())
	})
}

// Close detaches every surface and stops reacting to tree changes.
func (m *Manager) Close(ctx context.Context) error {
	return m.exec.Invoke(ctx, func(ctx context.Context) error {
		for _, s := range slices.Backward(*m.attached.Load()) {
			m.detach(ctx, s)
		}
		if m.removeListener != nil {
			m.removeListener()
			m.removeListener = nil
		}
		return nil
	})
}

func (m *Manager) run(ctx context.Context, task executor.Task) {
	if err := m.exec.Run(ctx, task); err != nil {
		m.logger.Warn("ui executor unavailable, request dropped", "error", err)
	}
}

func (m *Manager) attach(_ context.Context, s surface.Surface) {
	if m.registered(s) {
		if !s.Attached() {
			m.violation("registered surface is flagged detached", nil, "surface", s)
			s.SetAttached(true, m)
		}
		return
	}
	if s.Attached() {
		m.logger.Warn("surface is attached to another manager", "surface", s)
		return
	}

	if !s.Initialized() {
		m.logger.Warn("surface attached before it was prepared, preparing now",
			"surface", s, "type", fmt.Sprintf("%T", s))
		if err := s.Prepare(); err != nil {
			m.logger.Error("failed to prepare surface", "surface", s, "error", err)
			return
		}
	}

	m.register(s)
	if err := m.root.Add(s.Node()); err != nil {
		m.unregister(s)
		m.logger.Error("failed to add surface to overlay", "surface", s, "error", err)
		return
	}
	s.SetAttached(true, m)
	m.logger.Debug("surface attached", "surface", s)

	if w, ok := s.(surface.WindowSurface); ok && w.Externalized() {
		if err := m.exec.Post(func(context.Context) { m.promote(w) }); err != nil {
			m.logger.Warn("failed to queue window promotion", "surface", s, "error", err)
		}
	}
}

func (m *Manager) detach(_ context.Context, s surface.Surface) {
	if !m.registered(s) {
		m.logger.Warn("detach called for surface that is not attached", "surface", s)
		return
	}
	if w, ok := s.(surface.WindowSurface); ok {
		m.demote(w)
	}
	m.root.Remove(s.Node())
	m.unregister(s)
	s.SetAttached(false, nil)
	m.logger.Debug("surface detached", "surface", s)
}

func (m *Manager) promote(w surface.WindowSurface) {
	if !m.registered(w) || !w.Externalized() {
		return
	}
	if err := w.Promote(m.externalizer); err != nil {
		m.logger.Error("failed to externalize window", "surface", w, "error", err)
	}
}

func (m *Manager) demote(w surface.WindowSurface) {
	if !w.PresentedExternally() {
		return
	}
	if err := w.Demote(m.externalizer); err != nil {
		m.logger.Error("failed to internalize window", "surface", w, "error", err)
	}
}

func (m *Manager) registered(s surface.Surface) bool {
	return slices.Contains(*m.attached.Load(), s)
}

func (m *Manager) register(s surface.Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := *m.attached.Load()
	next := make([]surface.Surface, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, s)
	m.attached.Store(&next)
}

func (m *Manager) unregister(s surface.Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(*m.attached.Load()), func(x surface.Surface) bool {
		return x == s
	})
	m.attached.Store(&next)
}

// violation reports a broken usage contract: a panic in debug builds of the
// configuration, an error log otherwise.
func (m *Manager) violation(msg string, cause error, args ...any) {
	if m.cfg.Debug {
		panic(&DisplayError{Message: msg, Cause: cause})
	}
	if cause != nil {
		args = append(args, "error", cause)
	}
	m.logger.Error(msg, args...)
}

func (m *Manager) logFocusDenied(_ context.Context, d FocusDenied) {
	if !m.cfg.Display.FocusDeniedLog {
		return
	}
	// TODO: give the user feedback (flash the modal window) once the host
	// exposes a way to do it.
	m.logger.Warn("focus denied, a modal window is open",
		"modal", d.Modal, "requester", d.Node)
}
