// Package scene implements the retained overlay tree that surfaces are
// composited into: renderable nodes and the root group that orders them,
// tracks keyboard focus and reports child-list changes to listeners.
//
// A scene is confined to the UI executor. None of its methods are safe for
// concurrent use; callers hop onto the executor before touching it.
package scene
