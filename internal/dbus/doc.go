// Package dbus exports the display manager on the session bus so that other
// processes can attach, detach and raise surfaces, and provides the matching
// client used by hudctl.
package dbus
