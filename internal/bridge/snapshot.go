package bridge

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/gogpu/gg"

	"github.com/jmylchreest/hudbridge/internal/scene"
)

// ErrEmptyNode is returned when snapshotting a node without area.
var ErrEmptyNode = errors.New("bridge: node has empty bounds")

// Snapshot renders n on its own, sized to its bounds, regardless of its
// presentation. External presenters use it to fill their host surface.
// It must be called on the executor.
func Snapshot(n *scene.Node) (*image.RGBA, error) {
	size := n.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, ErrEmptyNode
	}
	dc := gg.NewContext(size.X, size.Y)
	defer dc.Close()

	if err := paintNode(dc, n, image.Point{}, 0); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", n.Name(), err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", n.Name(), err)
	}
	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("snapshot %s: unexpected image type %T", n.Name(), dc.Image())
	}
	return img, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	dc := gg.NewContextForImage(img)
	defer dc.Close()
	return dc.EncodePNG(w)
}
