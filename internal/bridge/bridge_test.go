package bridge

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/input"
	"github.com/jmylchreest/hudbridge/internal/scene"
)

var red = color.NRGBA{R: 255, A: 255}

func newTestContainer(t *testing.T) (*Container, *executor.Executor, *scene.Group) {
	t.Helper()
	exec := executor.New(nil)
	require.NoError(t, exec.Start(context.Background()))
	t.Cleanup(exec.Stop)

	c := NewContainer(exec, Options{Width: 100, Height: 100, DisabledDim: 0.5}, nil)
	root := scene.NewGroup()
	require.NoError(t, exec.Invoke(context.Background(), func(context.Context) error {
		c.SetScene(root)
		return nil
	}))
	return c, exec, root
}

func onLoop(t *testing.T, exec *executor.Executor, fn func()) {
	t.Helper()
	require.NoError(t, exec.Invoke(context.Background(), func(context.Context) error {
		fn()
		return nil
	}))
}

func renderFrame(t *testing.T, c *Container, exec *executor.Executor) {
	t.Helper()
	c.Update()
	require.NoError(t, exec.Flush(context.Background()))
}

func box(name string, r image.Rectangle, c color.Color) *scene.Node {
	n := scene.NewNode(name)
	n.SetBounds(r)
	n.SetBackground(c)
	return n
}

func TestMaterial_Contract(t *testing.T) {
	assert.NoError(t, ValidateMaterial(DefaultMaterial()))
	assert.ErrorIs(t, ValidateMaterial(nil), ErrMissingTextureParam)

	wrongType := NewMaterial("Unshaded", map[string]ParamType{TextureParam: ParamColor})
	assert.ErrorIs(t, ValidateMaterial(wrongType), ErrMissingTextureParam)

	m := DefaultMaterial()
	assert.Error(t, m.SetColor("Missing", color.White))
	assert.Error(t, m.SetFloat("Color", 1))
	require.NoError(t, m.SetColor("Color", color.White))
	v, ok := m.Param("Color")
	require.True(t, ok)
	assert.Equal(t, color.White, v)
}

func TestContainer_SetMaterialBindsTexture(t *testing.T) {
	c, _, _ := newTestContainer(t)

	m := DefaultMaterial()
	require.NoError(t, c.SetMaterial(m))
	assert.Same(t, c.Texture(), m.Texture(TextureParam))
	assert.Equal(t, BlendAlpha, m.BlendMode())
	assert.Same(t, m, c.Material())

	err := c.SetMaterial(NewMaterial("Bare", nil))
	assert.ErrorIs(t, err, ErrMissingTextureParam)
	assert.Same(t, m, c.Material())
}

func TestContainer_RendersEmbeddedNodes(t *testing.T) {
	c, exec, root := newTestContainer(t)

	visible := box("visible", image.Rect(10, 10, 40, 40), red)
	external := box("external", image.Rect(60, 60, 90, 90), red)
	external.SetPresentation(scene.External)
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(visible))
		require.NoError(t, root.Add(external))
	})

	before := c.Texture().Version()
	renderFrame(t, c, exec)

	assert.Greater(t, c.Texture().Version(), before)
	assert.Equal(t, uint8(255), c.AlphaAt(25, 25))
	assert.Equal(t, uint8(0), c.AlphaAt(75, 75), "external nodes are not rasterised")
	assert.Equal(t, uint8(0), c.AlphaAt(5, 5))
	assert.Equal(t, uint8(0), c.AlphaAt(500, 500))
}

func TestContainer_DimsDisabledNodes(t *testing.T) {
	c, exec, root := newTestContainer(t)

	enabled := box("enabled", image.Rect(0, 0, 40, 40), red)
	disabled := box("disabled", image.Rect(50, 50, 90, 90), red)
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(enabled))
		require.NoError(t, root.Add(disabled))
		disabled.SetDisabled(true)
	})
	renderFrame(t, c, exec)

	img := c.Texture().Image()
	assert.Greater(t, img.RGBAAt(20, 20).R, img.RGBAAt(70, 70).R)
}

func TestContainer_ScalesContent(t *testing.T) {
	c, exec, root := newTestContainer(t)

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	n := scene.NewNode("icon")
	n.SetBounds(image.Rect(20, 20, 60, 60))
	n.SetContent(src)
	onLoop(t, exec, func() { require.NoError(t, root.Add(n)) })
	renderFrame(t, c, exec)

	assert.Equal(t, uint8(255), c.AlphaAt(40, 40))
	assert.Equal(t, uint8(0), c.AlphaAt(80, 80))
}

func TestContainer_UpdateCoalesces(t *testing.T) {
	c, exec, _ := newTestContainer(t)

	block := make(chan struct{})
	require.NoError(t, exec.Post(func(context.Context) { <-block }))
	for range 10 {
		c.Update()
	}
	close(block)
	require.NoError(t, exec.Flush(context.Background()))
	assert.Equal(t, uint64(1), c.Renders())
}

func TestContainer_Resize(t *testing.T) {
	c, exec, _ := newTestContainer(t)

	require.NoError(t, c.Resize(context.Background(), 32, 16))
	renderFrame(t, c, exec)
	w, h := c.Texture().Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)

	assert.Error(t, c.Resize(context.Background(), 0, 16))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Render.Background = "#ff000080"
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Render.Width, opts.Width)
	assert.Equal(t, color.NRGBA{R: 255, A: 0x80}, opts.Background)

	cfg.Render.Background = "red"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}

type recorder struct {
	mu     sync.Mutex
	events []input.Event
	// consumed holds each event's consumed flag at delivery time.
	consumed []bool
}

func (r *recorder) add(e input.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	r.consumed = append(r.consumed, e.Consumed())
}

func (r *recorder) OnMouseMotion(e *input.MouseMotionEvent) { r.add(e) }
func (r *recorder) OnMouseButton(e *input.MouseButtonEvent) { r.add(e) }
func (r *recorder) OnKey(e *input.KeyEvent)                 { r.add(e) }
func (r *recorder) OnTouch(e *input.TouchEvent)             { r.add(e) }

func TestRedirector_ConsumesOverOpaquePixels(t *testing.T) {
	c, exec, root := newTestContainer(t)
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(box("panel", image.Rect(0, 0, 50, 50), red)))
	})
	renderFrame(t, c, exec)

	over := &input.MouseMotionEvent{X: 10, Y: 10}
	outside := &input.MouseMotionEvent{X: 80, Y: 80}
	c.InputListener().OnMouseMotion(over)
	c.InputListener().OnMouseMotion(outside)

	assert.True(t, over.Consumed())
	assert.False(t, outside.Consumed())
}

func TestRedirector_EverListeningSeesEverything(t *testing.T) {
	c, exec, root := newTestContainer(t)
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(box("panel", image.Rect(0, 0, 50, 50), red)))
	})
	renderFrame(t, c, exec)

	tap := &recorder{}
	c.SetEverListeningRawInputListener(tap)

	c.InputListener().OnMouseMotion(&input.MouseMotionEvent{X: 10, Y: 10})
	c.InputListener().OnMouseMotion(&input.MouseMotionEvent{X: 90, Y: 90})
	c.InputListener().OnKey(&input.KeyEvent{Code: 30, Pressed: true})

	require.Len(t, tap.events, 3)
	assert.Equal(t, []bool{false, false, false}, tap.consumed, "the tap runs before the consume decision")
	assert.True(t, tap.events[0].Consumed(), "the event over the panel is consumed afterwards")
	assert.False(t, tap.events[1].Consumed())

	c.SetEverListeningRawInputListener(nil)
	c.InputListener().OnKey(&input.KeyEvent{Code: 31})
	assert.Len(t, tap.events, 3)
}

func TestRedirector_RoutesToHitNode(t *testing.T) {
	c, exec, root := newTestContainer(t)

	var handled []string
	back := box("back", image.Rect(0, 0, 60, 60), red)
	front := box("front", image.Rect(30, 30, 90, 90), red)
	front.SetRaiseOnPress(true)
	back.SetRaiseOnPress(true)
	for _, n := range []*scene.Node{back, front} {
		n.SetHandler(func(n *scene.Node, _ input.Event) bool {
			handled = append(handled, n.Name())
			return true
		})
	}
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(back))
		require.NoError(t, root.Add(front))
	})

	c.InputListener().OnMouseButton(&input.MouseButtonEvent{X: 40, Y: 40, Button: input.ButtonLeft, Pressed: true})
	c.InputListener().OnMouseButton(&input.MouseButtonEvent{X: 10, Y: 10, Button: input.ButtonLeft, Pressed: true})
	c.InputListener().OnKey(&input.KeyEvent{Code: 30, Pressed: true})
	require.NoError(t, exec.Flush(context.Background()))

	assert.Equal(t, []string{"front", "back", "back"}, handled)
	onLoop(t, exec, func() {
		assert.Same(t, back, root.Front(), "a press raises the node")
		assert.Same(t, back, root.FocusOwner())
	})
}

func TestRedirector_DisabledNodesSwallowInput(t *testing.T) {
	c, exec, root := newTestContainer(t)

	var handled int
	n := box("blocked", image.Rect(0, 0, 50, 50), red)
	n.SetHandler(func(*scene.Node, input.Event) bool {
		handled++
		return true
	})
	onLoop(t, exec, func() {
		require.NoError(t, root.Add(n))
		n.SetDisabled(true)
	})
	renderFrame(t, c, exec)

	e := &input.MouseButtonEvent{X: 10, Y: 10, Pressed: true}
	c.InputListener().OnMouseButton(e)
	require.NoError(t, exec.Flush(context.Background()))

	assert.True(t, e.Consumed())
	assert.Zero(t, handled)
	onLoop(t, exec, func() { assert.Nil(t, root.FocusOwner()) })
}

func TestCursorTypes(t *testing.T) {
	all := CursorTypes()
	require.NotEmpty(t, all)
	assert.Equal(t, CursorDefault, all[0])
	assert.Equal(t, "none", CursorNone.String())
	assert.Equal(t, "unknown", CursorType(-1).String())
}

func TestSnapshot(t *testing.T) {
	n := box("dialog", image.Rect(200, 200, 240, 230), red)
	n.SetPresentation(scene.External)

	img, err := Snapshot(n)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	assert.Equal(t, uint8(255), img.RGBAAt(20, 15).A)

	_, err = Snapshot(scene.NewNode("empty"))
	assert.ErrorIs(t, err, ErrEmptyNode)
}
