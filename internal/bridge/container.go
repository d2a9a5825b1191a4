package bridge

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/input"
	"github.com/jmylchreest/hudbridge/internal/scene"
)

// Options configures a Container.
type Options struct {
	Width        int
	Height       int
	Background   color.Color
	DisabledDim  float64
	ConsumeAlpha uint8
}

// OptionsFromConfig derives container options from the render and input
// configuration sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	bg, err := config.ParseColor(cfg.Render.Background)
	if err != nil {
		return Options{}, fmt.Errorf("render background: %w", err)
	}
	return Options{
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Background:   bg,
		DisabledDim:  cfg.Render.DisabledDim,
		ConsumeAlpha: uint8(cfg.Input.ConsumeAlpha),
	}, nil
}

type listenerBox struct {
	l input.RawInputListener
}

// Container is the render bridge: it owns the off-screen render target the
// overlay tree is drawn into and the input redirection into the executor.
//
// The drawing context and the tree are confined to the executor. Texture,
// AlphaAt and the input entry points are safe from any goroutine.
type Container struct {
	exec   *executor.Executor
	logger *slog.Logger

	dc          *gg.Context
	background  color.Color
	disabledDim float64

	root     atomic.Pointer[scene.Group]
	material atomic.Pointer[Material]
	texture  *Texture

	renderPending atomic.Bool
	focusActive   atomic.Bool
	renders       atomic.Uint64

	everListening atomic.Pointer[listenerBox]
	redirector    *Redirector
}

// NewContainer creates a container rendering on exec.
func NewContainer(exec *executor.Executor, opts Options, logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Width <= 0 {
		opts.Width = 1
	}
	if opts.Height <= 0 {
		opts.Height = 1
	}
	if opts.Background == nil {
		opts.Background = color.Transparent
	}
	c := &Container{
		exec:        exec,
		logger:      logger,
		dc:          gg.NewContext(opts.Width, opts.Height),
		background:  opts.Background,
		disabledDim: opts.DisabledDim,
		texture:     newTexture(opts.Width, opts.Height),
	}
	c.redirector = newRedirector(c, opts.ConsumeAlpha)
	return c
}

// SetScene installs the root group. It must be called on the executor.
func (c *Container) SetScene(root *scene.Group) {
	c.root.Store(root)
}

// Root returns the installed root group, nil before SetScene.
func (c *Container) Root() *scene.Group { return c.root.Load() }

// Texture returns the render target as seen by the host.
func (c *Container) Texture() *Texture { return c.texture }

// Material returns the compositing material, nil if none is set.
func (c *Container) Material() *Material { return c.material.Load() }

// SetMaterial binds the render target to m and makes it the compositing
// material. m must declare the "Texture" parameter.
func (c *Container) SetMaterial(m *Material) error {
	if err := ValidateMaterial(m); err != nil {
		return err
	}
	if err := m.SetTexture(TextureParam, c.texture); err != nil {
		return err
	}
	m.SetBlendMode(BlendAlpha)
	c.material.Store(m)
	return nil
}

// InputListener returns the listener the host registers for raw input.
func (c *Container) InputListener() input.RawInputListener { return c.redirector }

// SetEverListeningRawInputListener installs a listener that sees every raw
// event, consumed or not, before routing. nil removes it.
func (c *Container) SetEverListeningRawInputListener(l input.RawInputListener) {
	if l == nil {
		c.everListening.Store(nil)
		return
	}
	c.everListening.Store(&listenerBox{l: l})
}

func (c *Container) everListener() input.RawInputListener {
	if box := c.everListening.Load(); box != nil {
		return box.l
	}
	return nil
}

// Update is called by the host once per frame. At most one render task is
// queued at a time.
func (c *Container) Update() {
	if !c.renderPending.CompareAndSwap(false, true) {
		return
	}
	if err := c.exec.Post(c.render); err != nil {
		c.renderPending.Store(false)
	}
}

// Renders returns the number of frames published.
func (c *Container) Renders() uint64 { return c.renders.Load() }

// Resize changes the render target size. The next frame uses the new size.
func (c *Container) Resize(ctx context.Context, width, height int) error {
	return c.exec.Invoke(ctx, func(context.Context) error {
		if err := c.dc.Resize(width, height); err != nil {
			return fmt.Errorf("resize render target: %w", err)
		}
		c.logger.Debug("render target resized", "width", width, "height", height)
		return nil
	})
}

// Run drives Update every interval until ctx is done, for hosts without a
// frame loop of their own.
func (c *Container) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Update()
		}
	}
}

// AlphaAt returns the last frame's alpha under (x, y).
func (c *Container) AlphaAt(x, y int) uint8 { return c.texture.AlphaAt(x, y) }

func (c *Container) render(ctx context.Context) {
	c.renderPending.Store(false)

	dc := c.dc
	dc.ClearWithColor(gg.FromColor(c.background))

	root := c.root.Load()
	if root != nil {
		for _, n := range root.Children() {
			c.drawNode(dc, n)
		}
		c.focusActive.Store(root.FocusOwner() != nil)
	}

	if err := dc.FlushGPU(); err != nil {
		c.logger.Warn("flush render target", "error", err)
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		c.logger.Error("render target is not RGBA")
		return
	}
	c.texture.publish(img)
	c.renders.Add(1)
}

func (c *Container) drawNode(dc *gg.Context, n *scene.Node) {
	if !n.Visible() || n.Presentation() == scene.External {
		return
	}
	if err := paintNode(dc, n, n.Bounds().Min, c.disabledDim); err != nil {
		c.logger.Warn("paint node", "node", n.Name(), "error", err)
	}
}

// paintNode draws n with its top-left corner at at: background, then
// content, then the dim overlay for disabled nodes.
func paintNode(dc *gg.Context, n *scene.Node, at image.Point, dim float64) error {
	size := n.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil
	}
	x, y := float64(at.X), float64(at.Y)
	w, h := float64(size.X), float64(size.Y)

	if bg := n.Background(); bg != nil {
		dc.SetColor(bg)
		dc.DrawRectangle(x, y, w, h)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("fill background: %w", err)
		}
	}
	if img := n.Content(); img != nil {
		dc.DrawImage(gg.ImageBufFromImage(fitContent(img, size)), x, y)
	}
	if n.Disabled() && dim > 0 {
		dc.SetRGBA(0, 0, 0, dim)
		dc.DrawRectangle(x, y, w, h)
		if err := dc.Fill(); err != nil {
			return fmt.Errorf("dim disabled: %w", err)
		}
	}
	return nil
}

// fitContent scales img to size unless it already matches.
func fitContent(img image.Image, size image.Point) image.Image {
	if img.Bounds().Size() == size {
		return img
	}
	dst := image.NewRGBA(image.Rectangle{Max: size})
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
