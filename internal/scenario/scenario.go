// Package scenario loads YAML scripts that declare overlay surfaces and a
// sequence of operations on a display manager, and plays them back.
package scenario

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/hudbridge/internal/config"
	"github.com/jmylchreest/hudbridge/internal/scene"
	"github.com/jmylchreest/hudbridge/internal/surface"
)

// Surface kinds.
const (
	KindHud    = "hud"
	KindWindow = "window"
)

// Scenario is a parsed script.
type Scenario struct {
	Name     string        `yaml:"name"`
	Surfaces []SurfaceSpec `yaml:"surfaces"`
	Steps    []Step        `yaml:"steps"`
}

// SurfaceSpec declares one surface.
type SurfaceSpec struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	Title        string `yaml:"title,omitempty"`
	Bounds       []int  `yaml:"bounds"` // x0, y0, x1, y1
	Color        string `yaml:"color,omitempty"`
	Modal        bool   `yaml:"modal,omitempty"`
	Externalized bool   `yaml:"externalized,omitempty"`
	// Lazy surfaces are not prepared before their first attach.
	Lazy bool `yaml:"lazy,omitempty"`
}

// Step is one operation. Exactly one field is set.
type Step struct {
	Attach      string        `yaml:"attach,omitempty"`
	Detach      string        `yaml:"detach,omitempty"`
	Raise       string        `yaml:"raise,omitempty"`
	Close       string        `yaml:"close,omitempty"`
	Externalize string        `yaml:"externalize,omitempty"`
	Internalize string        `yaml:"internalize,omitempty"`
	Drag        *DragSpec     `yaml:"drag,omitempty"`
	Drop        string        `yaml:"drop,omitempty"`
	Wait        time.Duration `yaml:"wait,omitempty"`
	Frame       bool          `yaml:"frame,omitempty"`
}

// DragSpec declares a drag feedback node.
type DragSpec struct {
	Name   string `yaml:"name"`
	Bounds []int  `yaml:"bounds"`
	Color  string `yaml:"color,omitempty"`
	// Legacy marks the node with the style string instead of the typed marker.
	Legacy bool `yaml:"legacy,omitempty"`
}

// String describes the step for traces.
func (s Step) String() string {
	switch {
	case s.Attach != "":
		return "attach " + s.Attach
	case s.Detach != "":
		return "detach " + s.Detach
	case s.Raise != "":
		return "raise " + s.Raise
	case s.Close != "":
		return "close " + s.Close
	case s.Externalize != "":
		return "externalize " + s.Externalize
	case s.Internalize != "":
		return "internalize " + s.Internalize
	case s.Drag != nil:
		return "drag " + s.Drag.Name
	case s.Drop != "":
		return "drop " + s.Drop
	case s.Wait > 0:
		return "wait " + s.Wait.String()
	case s.Frame:
		return "frame"
	default:
		return "empty"
	}
}

func (s Step) ops() int {
	n := 0
	for _, set := range []bool{
		s.Attach != "", s.Detach != "", s.Raise != "", s.Close != "",
		s.Externalize != "", s.Internalize != "", s.Drag != nil, s.Drop != "",
		s.Wait > 0, s.Frame,
	} {
		if set {
			n++
		}
	}
	return n
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks surface declarations and step references.
func (s *Scenario) Validate() error {
	var errs []error
	kinds := make(map[string]string, len(s.Surfaces))
	for i, decl := range s.Surfaces {
		switch {
		case decl.Name == "":
			errs = append(errs, fmt.Errorf("surface %d: name is required", i))
			continue
		case kinds[decl.Name] != "":
			errs = append(errs, fmt.Errorf("surface %q declared twice", decl.Name))
			continue
		}
		if decl.Kind != KindHud && decl.Kind != KindWindow {
			errs = append(errs, fmt.Errorf("surface %q: kind must be %q or %q", decl.Name, KindHud, KindWindow))
		}
		if decl.Kind == KindHud && (decl.Modal || decl.Externalized) {
			errs = append(errs, fmt.Errorf("surface %q: only windows can be modal or externalized", decl.Name))
		}
		if _, err := parseRect(decl.Bounds); err != nil {
			errs = append(errs, fmt.Errorf("surface %q: %w", decl.Name, err))
		}
		if decl.Color != "" {
			if _, err := config.ParseColor(decl.Color); err != nil {
				errs = append(errs, fmt.Errorf("surface %q: %w", decl.Name, err))
			}
		}
		kinds[decl.Name] = decl.Kind
	}

	drags := make(map[string]bool)
	for i, st := range s.Steps {
		if st.ops() != 1 {
			errs = append(errs, fmt.Errorf("step %d: exactly one operation is required", i))
			continue
		}
		for _, ref := range []string{st.Attach, st.Detach, st.Raise} {
			if ref != "" && kinds[ref] == "" {
				errs = append(errs, fmt.Errorf("step %d: unknown surface %q", i, ref))
			}
		}
		for _, ref := range []string{st.Close, st.Externalize, st.Internalize} {
			if ref != "" && kinds[ref] != KindWindow {
				errs = append(errs, fmt.Errorf("step %d: %q is not a window", i, ref))
			}
		}
		if st.Drag != nil {
			if st.Drag.Name == "" {
				errs = append(errs, fmt.Errorf("step %d: drag needs a name", i))
			}
			if _, err := parseRect(st.Drag.Bounds); err != nil {
				errs = append(errs, fmt.Errorf("step %d: drag: %w", i, err))
			}
			drags[st.Drag.Name] = true
		}
		if st.Drop != "" && !drags[st.Drop] {
			errs = append(errs, fmt.Errorf("step %d: drop of unknown drag %q", i, st.Drop))
		}
	}
	return errors.Join(errs...)
}

// Build creates the declared surfaces, keyed by name. Surfaces not marked
// lazy are prepared.
func (s *Scenario) Build() (map[string]surface.Surface, error) {
	out := make(map[string]surface.Surface, len(s.Surfaces))
	for _, decl := range s.Surfaces {
		build, err := decl.buildFunc()
		if err != nil {
			return nil, fmt.Errorf("surface %q: %w", decl.Name, err)
		}
		var sf surface.Surface
		if decl.Kind == KindWindow {
			w := surface.NewWindow(decl.Name, build)
			if decl.Title != "" {
				w.SetTitle(decl.Title)
			}
			w.SetModal(decl.Modal)
			w.SetExternalized(decl.Externalized)
			sf = w
		} else {
			sf = surface.NewHud(decl.Name, build)
		}
		if !decl.Lazy {
			if err := sf.Prepare(); err != nil {
				return nil, err
			}
		}
		out[decl.Name] = sf
	}
	return out, nil
}

func (decl SurfaceSpec) buildFunc() (surface.BuildFunc, error) {
	r, err := parseRect(decl.Bounds)
	if err != nil {
		return nil, err
	}
	bg, err := colorOrDefault(decl.Color)
	if err != nil {
		return nil, err
	}
	return func(n *scene.Node) error {
		n.SetBounds(r)
		n.SetBackground(bg)
		return nil
	}, nil
}

func (d DragSpec) node(style string) (*scene.Node, error) {
	r, err := parseRect(d.Bounds)
	if err != nil {
		return nil, err
	}
	bg, err := colorOrDefault(d.Color)
	if err != nil {
		return nil, err
	}
	n := scene.NewNode(d.Name)
	n.SetBounds(r)
	n.SetBackground(bg)
	if d.Legacy {
		n.SetStyle(style)
	} else {
		n.SetDragMarker(true)
	}
	return n, nil
}

func parseRect(b []int) (image.Rectangle, error) {
	if len(b) != 4 {
		return image.Rectangle{}, fmt.Errorf("bounds must be [x0, y0, x1, y1], got %v", b)
	}
	r := image.Rect(b[0], b[1], b[2], b[3])
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("bounds %v are empty", b)
	}
	return r, nil
}

var defaultSurfaceColor = color.NRGBA{R: 0x30, G: 0x30, B: 0x40, A: 0xe0}

func colorOrDefault(s string) (color.Color, error) {
	if s == "" {
		return defaultSurfaceColor, nil
	}
	c, err := config.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return c, nil
}
