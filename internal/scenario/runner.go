package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/display"
	"github.com/jmylchreest/hudbridge/internal/executor"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// Env is what a scenario runs against.
type Env struct {
	Manager *display.Manager
	Exec    *executor.Executor
	// Frame renders one frame, typically the container's Update. Optional.
	Frame func()
	// DragStyle is the style string used for legacy drag markers.
	DragStyle string
	Logger    *slog.Logger
}

// StepFunc observes each step after it has settled.
type StepFunc func(i int, st Step)

// Player plays a scenario against an environment.
type Player struct {
	sc       *Scenario
	env      Env
	surfaces map[string]surface.Surface
	drags    map[string]*scene.Node
}

// NewPlayer builds the scenario's surfaces for env.
func NewPlayer(sc *Scenario, env Env) (*Player, error) {
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.DragStyle == "" {
		env.DragStyle = config.DefaultDragMarkerStyle
	}
	surfaces, err := sc.Build()
	if err != nil {
		return nil, err
	}
	return &Player{
		sc:       sc,
		env:      env,
		surfaces: surfaces,
		drags:    make(map[string]*scene.Node),
	}, nil
}

// Surface returns a declared surface by name.
func (p *Player) Surface(name string) surface.Surface { return p.surfaces[name] }

// Surfaces returns every declared surface keyed by name.
func (p *Player) Surfaces() map[string]surface.Surface { return maps.Clone(p.surfaces) }

// Play runs every step in order. After each step the executor is drained so
// the step's reconciliation has finished before the next one starts.
func (p *Player) Play(ctx context.Context, observe StepFunc) error {
	for i, st := range p.sc.Steps {
		if err := p.apply(ctx, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st, err)
		}
		if err := p.env.Exec.Drain(ctx); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st, err)
		}
		p.env.Logger.Debug("scenario step done", "scenario", p.sc.Name, "step", i, "op", st.String())
		if observe != nil {
			observe(i, st)
		}
	}
	return nil
}

func (p *Player) apply(ctx context.Context, st Step) error {
	m := p.env.Manager
	switch {
	case st.Attach != "":
		m.Attach(ctx, p.surfaces[st.Attach])
	case st.Detach != "":
		m.Detach(ctx, p.surfaces[st.Detach])
	case st.Raise != "":
		m.Raise(ctx, p.surfaces[st.Raise])
	case st.Close != "":
		if err := p.window(st.Close).Close(ctx); err != nil {
			p.env.Logger.Warn("close ignored", "surface", st.Close, "error", err)
		}
	case st.Externalize != "":
		m.Externalize(ctx, p.window(st.Externalize))
	case st.Internalize != "":
		m.Internalize(ctx, p.window(st.Internalize))
	case st.Drag != nil:
		n, err := st.Drag.node(p.env.DragStyle)
		if err != nil {
			return err
		}
		p.drags[st.Drag.Name] = n
		return p.env.Exec.Invoke(ctx, func(context.Context) error {
			return m.Root().Add(n)
		})
	case st.Drop != "":
		n := p.drags[st.Drop]
		delete(p.drags, st.Drop)
		return p.env.Exec.Invoke(ctx, func(context.Context) error {
			m.Root().Remove(n)
			return nil
		})
	case st.Wait > 0:
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(st.Wait):
		}
	case st.Frame:
		if p.env.Frame != nil {
			p.env.Frame()
		}
	}
	return nil
}

func (p *Player) window(name string) surface.WindowSurface {
	w, _ := p.surfaces[name].(surface.WindowSurface)
	return w
}
