package tui

import (
	"context"
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/display"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// Entry kinds.
const (
	KindHud    = "hud"
	KindWindow = "window"
	KindModal  = "modal"
	KindDrag   = "drag"
	KindNode   = "node"
)

// Entry is one row of the inspector.
type Entry struct {
	Name       string          `yaml:"name"`
	ID         string          `yaml:"id,omitempty"`
	Kind       string          `yaml:"kind"`
	Attached   bool            `yaml:"attached"`
	Disabled   bool            `yaml:"disabled,omitempty"`
	Focused    bool            `yaml:"focused,omitempty"`
	External   bool            `yaml:"external,omitempty"`
	Bounds     image.Rectangle `yaml:"-"`
	BoundsText string          `yaml:"bounds"`
	AttachedAt time.Time       `yaml:"-"`
}

// Snapshot is the inspector's view of the manager at one instant. Stack is
// ordered front-most first; detached surfaces follow.
type Snapshot struct {
	Stack        []Entry       `yaml:"stack"`
	Stats        display.Stats `yaml:"stats"`
	FrameVersion uint64        `yaml:"frame_version"`
	FrameBytes   int           `yaml:"frame_bytes"`
	TakenAt      time.Time     `yaml:"-"`
}

// Source feeds the inspector and carries out its commands.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Attach(ctx context.Context, name string) error
	Detach(ctx context.Context, name string) error
	Raise(ctx context.Context, name string) error
	ToggleExternal(ctx context.Context, name string) error
	Frame(ctx context.Context) error
}

// ManagerSource inspects a live display manager and a pool of surfaces it
// can attach.
type ManagerSource struct {
	m         *display.Manager
	exec      *executor.Executor
	container *bridge.Container
	surfaces  map[string]surface.Surface

	mu         sync.Mutex
	attachedAt map[string]time.Time
}

// NewManagerSource creates a source over m. surfaces are the ones the
// inspector can attach and detach by name.
func NewManagerSource(m *display.Manager, exec *executor.Executor, c *bridge.Container, surfaces map[string]surface.Surface) *ManagerSource {
	return &ManagerSource{
		m:          m,
		exec:       exec,
		container:  c,
		surfaces:   surfaces,
		attachedAt: make(map[string]time.Time),
	}
}

func (s *ManagerSource) lookup(name string) (surface.Surface, error) {
	sf, ok := s.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("unknown surface %q", name)
	}
	return sf, nil
}

// Attach attaches a pool surface and waits for the stack to settle.
func (s *ManagerSource) Attach(ctx context.Context, name string) error {
	sf, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.m.Attach(ctx, sf)
	s.mu.Lock()
	if _, ok := s.attachedAt[name]; !ok {
		s.attachedAt[name] = time.Now()
	}
	s.mu.Unlock()
	return s.exec.Drain(ctx)
}

// Detach detaches a pool surface and waits for the stack to settle.
func (s *ManagerSource) Detach(ctx context.Context, name string) error {
	sf, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.m.Detach(ctx, sf)
	s.mu.Lock()
	delete(s.attachedAt, name)
	s.mu.Unlock()
	return s.exec.Drain(ctx)
}

// Raise brings a surface to the front.
func (s *ManagerSource) Raise(ctx context.Context, name string) error {
	sf, err := s.lookup(name)
	if err != nil {
		return err
	}
	s.m.Raise(ctx, sf)
	return s.exec.Drain(ctx)
}

// ToggleExternal externalizes or internalizes a window.
func (s *ManagerSource) ToggleExternal(ctx context.Context, name string) error {
	sf, err := s.lookup(name)
	if err != nil {
		return err
	}
	w, ok := sf.(surface.WindowSurface)
	if !ok {
		return fmt.Errorf("%s is not a window", name)
	}
	if w.Externalized() {
		s.m.Internalize(ctx, w)
	} else {
		s.m.Externalize(ctx, w)
	}
	return s.exec.Drain(ctx)
}

// Frame renders one frame.
func (s *ManagerSource) Frame(ctx context.Context) error {
	s.container.Update()
	return s.exec.Drain(ctx)
}

// Snapshot reads the stack on the executor.
func (s *ManagerSource) Snapshot(ctx context.Context) (Snapshot, error) {
	attached := s.m.Attached()
	bySurface := make(map[*scene.Node]surface.Surface, len(attached))
	for _, sf := range attached {
		bySurface[sf.Node()] = sf
	}

	var snap Snapshot
	err := s.exec.Invoke(ctx, func(context.Context) error {
		root := s.m.Root()
		focus := root.FocusOwner()
		for _, n := range slices.Backward(root.Children()) {
			e := Entry{
				Name:     n.Name(),
				Kind:     KindNode,
				Attached: true,
				Disabled: n.Disabled(),
				Focused:  n == focus,
				External: n.Presentation() == scene.External,
				Bounds:   n.Bounds(),
			}
			if sf, ok := bySurface[n]; ok {
				e.Name = sf.Name()
				e.ID = sf.ID()
				e.Kind = kindOf(sf)
			} else if n.IsDragMarker() {
				e.Kind = KindDrag
			}
			snap.Stack = append(snap.Stack, e)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	var detached []Entry
	for name, sf := range s.surfaces {
		if sf.Attached() {
			continue
		}
		detached = append(detached, Entry{
			Name:   name,
			ID:     sf.ID(),
			Kind:   kindOf(sf),
			Bounds: sf.Node().Bounds(),
		})
	}
	slices.SortFunc(detached, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	snap.Stack = append(snap.Stack, detached...)

	s.mu.Lock()
	for i := range snap.Stack {
		e := &snap.Stack[i]
		e.BoundsText = e.Bounds.String()
		if e.Attached {
			e.AttachedAt = s.attachedAt[e.Name]
		}
	}
	s.mu.Unlock()

	tex := s.container.Texture()
	snap.Stats = s.m.Stats()
	snap.FrameVersion = tex.Version()
	snap.FrameBytes = len(tex.Image().Pix)
	snap.TakenAt = time.Now()
	return snap, nil
}

func kindOf(sf surface.Surface) string {
	w, ok := sf.(surface.WindowSurface)
	switch {
	case !ok:
		return KindHud
	case w.Modal():
		return KindModal
	default:
		return KindWindow
	}
}
