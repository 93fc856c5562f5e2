package manifest

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modkit/module"
)

// Factory constructs a module instance from its evaluated settings.
// Settings may be cty.NilVal when the manifest declared none.
type Factory func(settings cty.Value) (module.Module, error)

// Catalog maps manifest module names to factories. Registration happens
// once at composition time; a name registered twice is a programmer
// error and panics.
type Catalog struct {
	factories map[string]Factory
	names     []string
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register installs a factory under a manifest name.
func (c *Catalog) Register(name string, f Factory) {
	if _, exists := c.factories[name]; exists {
		panic(fmt.Sprintf("module factory %q already registered", name))
	}
	c.factories[name] = f
	c.names = append(c.names, name)
}

// Names lists registered names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// New constructs a fresh instance for a manifest name.
func (c *Catalog) New(name string, settings cty.Value) (module.Module, error) {
	f, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown module %q (known: %v)", name, c.names)
	}
	m, err := f(settings)
	if err != nil {
		return nil, fmt.Errorf("constructing module %q: %w", name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("factory for %q returned nil", name)
	}
	return m, nil
}

// Build materializes every enabled spec of a plan, in declaration order.
func (p *Plan) Build(cat *Catalog) ([]module.Module, error) {
	var out []module.Module
	for _, s := range p.Specs {
		if !s.Enabled {
			continue
		}
		m, err := cat.New(s.Name, s.Settings)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
