// Package display is the overlay compositing manager. It keeps the ordered
// registry of attached surfaces, mirrors it into the root group the render
// bridge draws, and after every change to the root's children reorders the
// tree into its canonical stacking order and enforces window modality.
//
// All tree work runs on the UI executor. Attach, Detach and the other entry
// points may be called from any goroutine; off the executor they are queued
// and return immediately.
package display
