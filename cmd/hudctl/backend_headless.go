//go:build !gtk

package main

import (
	"context"
	"fmt"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/external"
)

// withBackend runs fn with the headless presenter. The gtk backend needs a
// build with the gtk tag.
func withBackend(ctx context.Context, fn func(ctx context.Context, b backend) error) error {
	if cfg.External.Backend == config.BackendGTK {
		return fmt.Errorf("external backend %q requires a build with -tags gtk", config.BackendGTK)
	}
	h := external.NewHeadless(logger.With("component", "external"))
	return fn(ctx, backend{externalizer: h, headless: h})
}
