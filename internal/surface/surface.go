// Package surface defines the attachable overlay surfaces: plain huds and
// orderable, closable windows that may be modal or externalized.
//
// Surfaces are passive. They hold state the display manager reads and
// writes; they never schedule work themselves.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/hudbridge/internal/scene"
)

// ErrNotAttached is returned by operations that need an owning manager.
var ErrNotAttached = errors.New("surface: not attached")

// Owner is the manager a surface is attached to. Surfaces only use it for
// lookups and to request their own removal; they never own it.
type Owner interface {
	Detach(ctx context.Context, s Surface)
}

// Surface is one attachable overlay.
type Surface interface {
	ID() string
	Name() string
	// Node is the renderable placed into the composited tree. Its identity
	// never changes over the surface's lifetime.
	Node() *scene.Node
	Attached() bool
	Owner() Owner
	// SetAttached is called by the owning manager only.
	SetAttached(attached bool, owner Owner)
	// Initialized reports whether Prepare has run.
	Initialized() bool
	// Prepare builds the node content. It runs at most once.
	Prepare() error
}

// BuildFunc populates a surface's node: bounds, background, content and
// input handler.
type BuildFunc func(n *scene.Node) error

// Hud is a plain always-present overlay: not closable, never modal.
type Hud struct {
	id    string
	name  string
	node  *scene.Node
	build BuildFunc

	prepareMu sync.Mutex
	prepared  atomic.Bool
	attached  atomic.Bool

	ownerMu sync.RWMutex
	owner   Owner
}

// NewHud creates a detached hud. build may be nil.
func NewHud(name string, build BuildFunc) *Hud {
	h := &Hud{}
	h.init(name, build)
	return h
}

func (h *Hud) init(name string, build BuildFunc) {
	h.id = ulid.Make().String()
	h.name = name
	h.node = scene.NewNode(name)
	h.build = build
}

// ID returns the surface's ULID.
func (h *Hud) ID() string { return h.id }

// Name returns the surface's display name.
func (h *Hud) Name() string { return h.name }

func (h *Hud) String() string { return fmt.Sprintf("%s(%s)", h.name, h.id) }

// Node returns the surface's renderable node.
func (h *Hud) Node() *scene.Node { return h.node }

// Attached reports whether a manager currently holds the surface.
func (h *Hud) Attached() bool { return h.attached.Load() }

// Owner returns the manager the surface is attached to, or nil.
func (h *Hud) Owner() Owner {
	h.ownerMu.RLock()
	defer h.ownerMu.RUnlock()
	return h.owner
}

// SetAttached records attachment. The owner is dropped on detach.
func (h *Hud) SetAttached(attached bool, owner Owner) {
	h.ownerMu.Lock()
	if attached {
		h.owner = owner
	} else {
		h.owner = nil
	}
	h.ownerMu.Unlock()
	h.attached.Store(attached)
}

// Initialized reports whether Prepare has completed.
func (h *Hud) Initialized() bool { return h.prepared.Load() }

// Prepare runs the build function once. Later calls are no-ops. Call it
// early to keep the first attach cheap.
func (h *Hud) Prepare() error {
	h.prepareMu.Lock()
	defer h.prepareMu.Unlock()
	if h.prepared.Load() {
		return nil
	}
	if h.build != nil {
		if err := h.build(h.node); err != nil {
			return fmt.Errorf("prepare %s: %w", h.name, err)
		}
	}
	h.prepared.Store(true)
	return nil
}
