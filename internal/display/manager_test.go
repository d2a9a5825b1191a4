package display

import (
	"context"
	"image/color"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hudbridge/internal/bridge"
	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/external"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

func TestManager_ModalScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h1 := newHud(t, "H1")
	w1 := newWindow(t, "W1", false)
	w2 := newWindow(t, "W2", true)

	h.m.Attach(ctx, w1)
	h.m.Attach(ctx, h1)
	h.settle()
	assert.Equal(t, []string{"H1", "W1"}, h.names())
	assert.False(t, h.disabled(h1))
	assert.False(t, h.disabled(w1))

	h.m.Attach(ctx, w2)
	h.settle()
	assert.Equal(t, []string{"H1", "W1", "W2"}, h.names())
	assert.True(t, h.disabled(h1))
	assert.True(t, h.disabled(w1))
	assert.False(t, h.disabled(w2))
	assert.Same(t, w2.Node(), h.focusOwner())

	h.m.Detach(ctx, w2)
	h.settle()
	assert.Equal(t, []string{"H1", "W1"}, h.names())
	assert.False(t, h.disabled(h1))
	assert.False(t, h.disabled(w1))
	assert.False(t, w2.Attached())
	assert.Nil(t, w2.Owner())
}

func TestManager_AttachIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := newWindow(t, "W", false)

	h.m.Attach(ctx, w)
	h.m.Attach(ctx, w)
	h.settle()
	h.m.Attach(ctx, w)
	h.settle()

	assert.Equal(t, []string{"W"}, ids(h.m.Attached()))
	assert.Len(t, h.children(), 1)
	assert.True(t, w.Attached())
	assert.Same(t, h.m, w.Owner())
	assert.Zero(t, h.logs.warnings())
}

func TestManager_DetachNilOrUnattachedWarnsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	w := newWindow(t, "W", false)
	h.m.Attach(ctx, newHud(t, "H"))
	h.settle()
	before := h.m.Stats().Passes

	h.m.Detach(ctx, nil)
	h.settle()
	assert.Equal(t, 1, h.logs.warnings())

	h.m.Detach(ctx, w)
	h.settle()
	assert.Equal(t, 2, h.logs.warnings())

	assert.Equal(t, []string{"H"}, h.names())
	assert.Equal(t, before, h.m.Stats().Passes, "no tree mutation")
}

func TestManager_OnePassPerBurst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	release := make(chan struct{})
	require.NoError(t, h.exec.Post(func(context.Context) { <-release }))

	surfaces := []surface.Surface{
		newWindow(t, "W1", false),
		newHud(t, "H1"),
		newWindow(t, "M1", true),
		newHud(t, "H2"),
		newWindow(t, "W2", false),
	}
	for _, s := range surfaces {
		h.m.Attach(ctx, s)
	}
	close(release)
	h.settle()

	st := h.m.Stats()
	assert.Equal(t, uint64(1), st.Passes)
	assert.Equal(t, uint64(5), st.Suppressed, "four attaches plus the pass's own rebuild")
	assert.Equal(t, 5, st.Attached)
	assert.Equal(t, []string{"H1", "H2", "W1", "W2", "M1"}, h.names())
}

func TestManager_AttachOnExecutorRunsInline(t *testing.T) {
	h := newHarness(t)
	hud := newHud(t, "H")

	h.onLoop(func(ctx context.Context) {
		h.m.Attach(ctx, hud)
		assert.True(t, hud.Attached())
		assert.True(t, h.m.Root().Contains(hud.Node()))

		h.m.Detach(ctx, hud)
		assert.False(t, hud.Attached())
	})
}

func TestManager_AttachOnExecutorWithForeignContextIsQueued(t *testing.T) {
	h := newHarness(t)
	hud := newHud(t, "H")

	h.onLoop(func(context.Context) {
		h.m.Attach(context.Background(), hud)
		assert.False(t, hud.Attached(), "a ctx not handed out by the executor queues the request")
	})
	h.settle()
	assert.True(t, hud.Attached())
}

func TestManager_AttachOffExecutorDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	hud := newHud(t, "H")

	release := make(chan struct{})
	require.NoError(t, h.exec.Post(func(context.Context) { <-release }))

	h.m.Attach(context.Background(), hud)
	assert.False(t, hud.Attached(), "queued behind the blocked task")
	close(release)
	h.settle()
	assert.True(t, hud.Attached())
}

func TestManager_LateInitWarning(t *testing.T) {
	h := newHarness(t)
	built := 0
	hud := surface.NewHud("late", func(n *scene.Node) error {
		built++
		return sized(n)
	})

	h.m.Attach(context.Background(), hud)
	h.settle()

	assert.True(t, hud.Initialized())
	assert.True(t, hud.Attached())
	assert.Equal(t, 1, built)
	assert.Equal(t, 1, h.logs.count(slog.LevelWarn, "before it was prepared"))
}

func TestManager_WindowCloseDetaches(t *testing.T) {
	h := newHarness(t)
	w := newWindow(t, "W", false)

	assert.ErrorIs(t, w.Close(context.Background()), surface.ErrNotAttached)

	h.m.Attach(context.Background(), w)
	h.settle()
	require.NoError(t, w.Close(context.Background()))
	h.settle()

	assert.False(t, w.Attached())
	assert.Empty(t, h.m.Attached())
	assert.Empty(t, h.children())
}

type recordingExternalizer struct {
	m         *Manager
	mu        sync.Mutex
	events    []string
	inTreeOut []bool
}

func (x *recordingExternalizer) Externalize(w surface.WindowSurface) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, "externalize "+w.Name())
	return nil
}

func (x *recordingExternalizer) Internalize(w surface.WindowSurface) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, "internalize "+w.Name())
	x.inTreeOut = append(x.inTreeOut, x.m.Root().Contains(w.Node()))
	return nil
}

func TestManager_ExternalizedAttachAndDetach(t *testing.T) {
	rec := &recordingExternalizer{}
	h := newHarness(t, WithExternalizer(rec))
	rec.m = h.m
	ctx := context.Background()

	w := newWindow(t, "popout", false)
	w.SetExternalized(true)

	h.m.Attach(ctx, w)
	h.settle()

	assert.True(t, w.Attached())
	assert.True(t, w.PresentedExternally())
	assert.Equal(t, scene.External, w.Node().Presentation())
	assert.Equal(t, []string{"popout"}, h.names(), "externalized windows stay in the tree")

	h.m.Detach(ctx, w)
	h.settle()

	assert.Equal(t, []string{"externalize popout", "internalize popout"}, rec.events)
	assert.Equal(t, []bool{true}, rec.inTreeOut, "internalized before removal")
	assert.False(t, w.Attached())
	assert.False(t, w.PresentedExternally())
	assert.Empty(t, h.children())
}

func TestManager_PromotionIsQueuedAfterAttach(t *testing.T) {
	rec := &recordingExternalizer{}
	h := newHarness(t, WithExternalizer(rec))
	rec.m = h.m

	w := newWindow(t, "popout", false)
	w.SetExternalized(true)

	h.onLoop(func(ctx context.Context) {
		h.m.Attach(ctx, w)
		assert.True(t, w.Attached())
		assert.False(t, w.PresentedExternally(), "promotion runs in its own task")
	})
	h.settle()
	assert.True(t, w.PresentedExternally())
}

func TestManager_ExternalizeRoundTrip(t *testing.T) {
	presenter := external.NewHeadless(nil)
	h := newHarness(t, WithExternalizer(presenter))
	ctx := context.Background()

	w := newWindow(t, "map", false)
	h.m.Attach(ctx, w)
	h.settle()
	node := w.Node()

	h.m.Externalize(ctx, w)
	h.settle()
	assert.True(t, w.PresentedExternally())
	require.Len(t, presenter.Presented(), 1)
	assert.Equal(t, w.ID(), presenter.Presented()[0].ID)

	h.m.Internalize(ctx, w)
	h.settle()
	assert.False(t, w.PresentedExternally())
	assert.False(t, w.Externalized())
	assert.Empty(t, presenter.Presented())

	assert.Same(t, node, w.Node())
	assert.True(t, w.Attached())
	assert.Equal(t, []string{"map"}, h.names())
}

func TestManager_ExternalizeUnattachedOnlyFlags(t *testing.T) {
	presenter := external.NewHeadless(nil)
	h := newHarness(t, WithExternalizer(presenter))
	ctx := context.Background()

	w := newWindow(t, "later", false)
	h.m.Externalize(ctx, w)
	h.settle()
	assert.True(t, w.Externalized())
	assert.False(t, w.PresentedExternally())
	assert.Empty(t, presenter.Presented())

	h.m.Attach(ctx, w)
	h.settle()
	assert.True(t, w.PresentedExternally())
}

func TestManager_DragMarkersStayOnTop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	typed := scene.NewNode("drag")
	typed.SetDragMarker(true)
	legacy := scene.NewNode("legacy-drag")
	legacy.SetStyle(config.DefaultDragMarkerStyle)
	plain := scene.NewNode("backdrop")

	h.onLoop(func(context.Context) {
		require.NoError(t, h.m.Root().Add(typed))
		require.NoError(t, h.m.Root().Add(legacy))
		require.NoError(t, h.m.Root().Add(plain))
	})
	h.m.Attach(ctx, newWindow(t, "M", true))
	h.m.Attach(ctx, newHud(t, "H"))
	h.settle()

	assert.Equal(t, []string{"backdrop", "H", "M", "drag", "legacy-drag"}, h.names())
}

func TestManager_ConfiguredDragMarkerStyle(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Display.DragMarkerStyle = "drag-feedback"
	h := newHarnessWithConfig(t, cfg)

	marker := scene.NewNode("ghost")
	marker.SetStyle("drag-feedback")
	h.onLoop(func(context.Context) { require.NoError(t, h.m.Root().Add(marker)) })
	h.m.Attach(context.Background(), newWindow(t, "W", false))
	h.settle()

	assert.Equal(t, []string{"W", "ghost"}, h.names())
}

func TestManager_RaiseWithoutModal(t *testing.T) {
	var denied []FocusDenied
	h := newHarness(t, WithFocusDeniedFunc(func(_ context.Context, d FocusDenied) {
		denied = append(denied, d)
	}))
	ctx := context.Background()

	w1 := newWindow(t, "W1", false)
	w2 := newWindow(t, "W2", false)
	h.m.Attach(ctx, w1)
	h.m.Attach(ctx, w2)
	h.m.Attach(ctx, newHud(t, "H"))
	h.settle()
	assert.Equal(t, []string{"H", "W1", "W2"}, h.names())

	h.m.Raise(ctx, w1)
	h.settle()
	assert.Equal(t, []string{"H", "W2", "W1"}, h.names())
	assert.Same(t, w1.Node(), h.focusOwner())
	assert.Empty(t, denied)
}

func TestManager_RaiseAboveModalIsDenied(t *testing.T) {
	var denied []FocusDenied
	h := newHarness(t, WithFocusDeniedFunc(func(_ context.Context, d FocusDenied) {
		denied = append(denied, d)
	}))
	ctx := context.Background()

	w := newWindow(t, "W", false)
	m := newWindow(t, "M", true)
	h.m.Attach(ctx, w)
	h.m.Attach(ctx, m)
	h.settle()
	denied = nil

	h.m.Raise(ctx, w)
	h.settle()

	assert.Equal(t, []string{"W", "M"}, h.names())
	assert.Same(t, m.Node(), h.focusOwner())
	assert.True(t, h.disabled(w))
	require.Len(t, denied, 1)
	assert.Same(t, m, denied[0].Modal)
	assert.Same(t, w, denied[0].Requester)
	assert.Same(t, w.Node(), denied[0].Node)
}

func TestManager_HudInFrontOfModalIsDenied(t *testing.T) {
	var denied []FocusDenied
	h := newHarness(t, WithFocusDeniedFunc(func(_ context.Context, d FocusDenied) {
		denied = append(denied, d)
	}))
	ctx := context.Background()

	m := newWindow(t, "M", true)
	h.m.Attach(ctx, m)
	h.settle()
	require.Empty(t, denied)

	hud := newHud(t, "H")
	h.m.Attach(ctx, hud)
	h.settle()

	assert.Equal(t, []string{"H", "M"}, h.names())
	assert.True(t, h.disabled(hud))
	require.Len(t, denied, 1)
	assert.Same(t, m, denied[0].Modal)
	assert.Same(t, hud, denied[0].Requester)
	assert.Same(t, hud.Node(), denied[0].Node)
}

func TestManager_PassthroughInFrontOfModalIsDenied(t *testing.T) {
	var denied []FocusDenied
	h := newHarness(t, WithFocusDeniedFunc(func(_ context.Context, d FocusDenied) {
		denied = append(denied, d)
	}))

	m := newWindow(t, "M", true)
	h.m.Attach(context.Background(), m)
	h.settle()

	plain := scene.NewNode("backdrop")
	h.onLoop(func(context.Context) { require.NoError(t, h.m.Root().Add(plain)) })
	h.settle()

	assert.Equal(t, []string{"backdrop", "M"}, h.names())
	require.Len(t, denied, 1)
	assert.Nil(t, denied[0].Requester)
	assert.Same(t, plain, denied[0].Node)
}

func TestManager_DragMarkerOverModalIsNotDenied(t *testing.T) {
	var denied []FocusDenied
	h := newHarness(t, WithFocusDeniedFunc(func(_ context.Context, d FocusDenied) {
		denied = append(denied, d)
	}))

	h.m.Attach(context.Background(), newWindow(t, "M", true))
	h.settle()

	marker := scene.NewNode("drag")
	marker.SetDragMarker(true)
	h.onLoop(func(context.Context) { require.NoError(t, h.m.Root().Add(marker)) })
	h.settle()

	assert.Equal(t, []string{"M", "drag"}, h.names())
	assert.Empty(t, denied)
}

func TestManager_DefaultFocusDeniedLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w := newWindow(t, "W", false)
	h.m.Attach(ctx, newWindow(t, "M", true))
	h.settle()
	h.m.Attach(ctx, w)
	h.settle()

	assert.Equal(t, 1, h.logs.count(slog.LevelWarn, "focus denied"))
	assert.Equal(t, []string{"W", "M"}, h.names())
}

func TestManager_FocusDeniedLogCanBeDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Display.FocusDeniedLog = false
	h := newHarnessWithConfig(t, cfg)
	ctx := context.Background()

	h.m.Attach(ctx, newWindow(t, "M", true))
	h.m.Attach(ctx, newWindow(t, "W", false))
	h.settle()
	h.m.Raise(ctx, h.m.Attached()[1])
	h.settle()

	assert.Zero(t, h.logs.count(slog.LevelWarn, "focus denied"))
}

type fakeCursors struct {
	setup []bridge.CursorType
}

func (f *fakeCursors) Setup(c bridge.CursorType) { f.setup = append(f.setup, c) }
func (f *fakeCursors) Show(bridge.CursorType)    {}

func TestManager_CursorSetup(t *testing.T) {
	cursors := &fakeCursors{}
	newHarness(t, WithCursorProvider(cursors))
	assert.Equal(t, bridge.CursorTypes(), cursors.setup)
}

func TestManager_DefaultMaterial(t *testing.T) {
	h := newHarness(t)

	mat := h.container.Material()
	require.NotNil(t, mat)
	assert.Equal(t, "Gui", mat.Name())
	assert.Same(t, h.container.Texture(), mat.Texture(bridge.TextureParam))
	tint, ok := mat.Param("Color")
	require.True(t, ok)
	assert.Equal(t, color.White, tint)
}

func TestManager_CustomMaterialUsedAsGiven(t *testing.T) {
	custom := bridge.NewMaterial("Unshaded", map[string]bridge.ParamType{
		bridge.TextureParam: bridge.ParamTexture,
		"Color":             bridge.ParamColor,
	})
	h := newHarness(t, WithMaterial(custom))

	assert.Same(t, custom, h.container.Material())
	_, ok := custom.Param("Color")
	assert.False(t, ok)
}

func TestManager_MaterialContract(t *testing.T) {
	bad := bridge.NewMaterial("NoTexture", map[string]bridge.ParamType{"Color": bridge.ParamColor})

	t.Run("release logs", func(t *testing.T) {
		h := newHarness(t, WithMaterial(bad))
		assert.Equal(t, 1, h.logs.count(slog.LevelError, "material"))
		assert.Nil(t, h.container.Material())
	})

	t.Run("debug panics", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Debug = true
		assert.Panics(t, func() { newHarnessWithConfig(t, cfg, WithMaterial(bad)) })
	})
}

func TestManager_StartupBarrierHonoursContext(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	defer close(release)
	require.NoError(t, h.exec.Post(func(context.Context) { <-release }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewManager(ctx, h.exec, bridge.NewContainer(h.exec, bridge.Options{}, nil), nil, nil)

	var de *DisplayError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_Close(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, b := newHud(t, "A"), newWindow(t, "B", false)
	h.m.Attach(ctx, a)
	h.m.Attach(ctx, b)
	h.settle()

	require.NoError(t, h.m.Close(ctx))
	h.settle()

	assert.Empty(t, h.m.Attached())
	assert.False(t, a.Attached())
	assert.False(t, b.Attached())
	assert.Empty(t, h.children())
}

func TestManager_AttachedSnapshotIsSafeConcurrently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				for _, s := range h.m.Attached() {
					_ = s.ID()
				}
			}
		}
	}()

	for i := range 50 {
		s := newHud(t, "H")
		h.m.Attach(ctx, s)
		if i%2 == 0 {
			h.m.Detach(ctx, s)
		}
	}
	h.settle()
	close(stop)
	wg.Wait()

	assert.Len(t, h.m.Attached(), 25)
}

func TestManager_InputRedirection(t *testing.T) {
	h := newHarness(t)
	assert.Same(t, h.container.InputListener(), h.m.InputRedirector())
}
