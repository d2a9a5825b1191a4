package bridge

import (
	"image"
	"sync/atomic"
)

type frame struct {
	img     *image.RGBA
	version uint64
}

// Texture is the render target as seen by the host: the last fully rendered
// frame. It is safe to read from any goroutine; each frame is immutable once
// published.
type Texture struct {
	current atomic.Pointer[frame]
}

func newTexture(width, height int) *Texture {
	t := &Texture{}
	t.current.Store(&frame{img: image.NewRGBA(image.Rect(0, 0, width, height))})
	return t
}

// Image returns the last published frame. Callers must not modify it.
func (t *Texture) Image() *image.RGBA {
	return t.current.Load().img
}

// Version increments with every published frame.
func (t *Texture) Version() uint64 {
	return t.current.Load().version
}

// Size returns the frame dimensions.
func (t *Texture) Size() (width, height int) {
	b := t.Image().Bounds()
	return b.Dx(), b.Dy()
}

// AlphaAt returns the alpha of the last frame at (x, y), 0 outside it.
func (t *Texture) AlphaAt(x, y int) uint8 {
	img := t.Image()
	if !image.Pt(x, y).In(img.Bounds()) {
		return 0
	}
	return img.RGBAAt(x, y).A
}

func (t *Texture) publish(img *image.RGBA) {
	prev := t.current.Load()
	t.current.Store(&frame{img: img, version: prev.version + 1})
}
