// Package bridge presents the overlay tree to the host engine. A Container
// owns the off-screen render target, rasterises the tree into a Texture that
// any compositing Material can bind through its "Texture" parameter, and
// forwards raw host input onto the UI executor.
package bridge
