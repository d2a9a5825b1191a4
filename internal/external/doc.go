// Package external presents externalized windows in host-level surfaces of
// their own. Headless keeps the presented frames in memory and can write them
// to disk; the GTK presenter (build tag gtk) opens one toplevel per window.
package external
