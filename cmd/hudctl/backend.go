package main

import (
	"github.com/jmylchreest/hudbridge/internal/external"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// backend is the presenter chosen for externalized windows.
type backend struct {
	externalizer surface.Externalizer
	// headless is set when externalized windows are kept in memory and can
	// be written out as frames.
	headless *external.Headless
}
