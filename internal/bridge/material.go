package bridge

import (
	"errors"
	"fmt"
	"image/color"
	"maps"
	"sync"
)

// TextureParam is the parameter every compositing material must declare.
// The container binds its render target to it.
const TextureParam = "Texture"

// ErrMissingTextureParam reports a material that cannot receive the render target.
var ErrMissingTextureParam = errors.New(`bridge: material has no texture parameter "Texture"`)

// ParamType is the declared type of a material parameter.
type ParamType int

const (
	ParamTexture ParamType = iota
	ParamColor
	ParamFloat
)

func (t ParamType) String() string {
	switch t {
	case ParamTexture:
		return "texture"
	case ParamColor:
		return "color"
	case ParamFloat:
		return "float"
	default:
		return fmt.Sprintf("ParamType(%d)", int(t))
	}
}

// BlendMode controls how the host composites the overlay quad.
type BlendMode int

const (
	BlendOff BlendMode = iota
	BlendAlpha
	BlendAdditive
)

// Material describes how the host draws the overlay texture. It mirrors the
// host engine's material definition: a name, typed parameter declarations
// and their values.
type Material struct {
	mu     sync.RWMutex
	name   string
	defs   map[string]ParamType
	values map[string]any
	blend  BlendMode
}

// NewMaterial creates a material declaring the given parameters.
func NewMaterial(name string, defs map[string]ParamType) *Material {
	return &Material{
		name:   name,
		defs:   maps.Clone(defs),
		values: make(map[string]any),
	}
}

// DefaultMaterial returns the plain GUI material: a texture and a tint color.
func DefaultMaterial() *Material {
	return NewMaterial("Gui", map[string]ParamType{
		TextureParam: ParamTexture,
		"Color":      ParamColor,
	})
}

// Name returns the material name.
func (m *Material) Name() string { return m.name }

// Declares reports whether the material declares name with type t.
func (m *Material) Declares(name string, t ParamType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	got, ok := m.defs[name]
	return ok && got == t
}

// SetTexture binds tex to a texture parameter.
func (m *Material) SetTexture(name string, tex *Texture) error {
	return m.set(name, ParamTexture, tex)
}

// SetColor sets a color parameter.
func (m *Material) SetColor(name string, c color.Color) error {
	return m.set(name, ParamColor, c)
}

// SetFloat sets a float parameter.
func (m *Material) SetFloat(name string, v float64) error {
	return m.set(name, ParamFloat, v)
}

func (m *Material) set(name string, t ParamType, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, ok := m.defs[name]
	if !ok {
		return fmt.Errorf("material %s: unknown parameter %q", m.name, name)
	}
	if got != t {
		return fmt.Errorf("material %s: parameter %q is %s, not %s", m.name, name, got, t)
	}
	m.values[name] = v
	return nil
}

// Param returns the value of a parameter.
func (m *Material) Param(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[name]
	return v, ok
}

// Texture returns the texture bound to name, or nil.
func (m *Material) Texture(name string) *Texture {
	v, _ := m.Param(name)
	tex, _ := v.(*Texture)
	return tex
}

// BlendMode returns the blend mode.
func (m *Material) BlendMode() BlendMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blend
}

// SetBlendMode sets the blend mode.
func (m *Material) SetBlendMode(b BlendMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blend = b
}

// ValidateMaterial checks the material can receive the render target.
func ValidateMaterial(m *Material) error {
	if m == nil || !m.Declares(TextureParam, ParamTexture) {
		return ErrMissingTextureParam
	}
	return nil
}
