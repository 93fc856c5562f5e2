// Package clock is a leaf time-source module. Other modules take it as a
// dependency (often through its default factory) instead of reading the
// wall clock themselves, which keeps time swappable in tests.
package clock

import (
	"context"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/module"
)

// settings are the manifest-tunable knobs.
type settings struct {
	Format string `cty:"format"`
	UTC    bool   `cty:"utc"`
}

// Module tells the time in a fixed format.
type Module struct {
	format  string
	utc     bool
	started time.Time
}

// New builds a clock from manifest settings.
func New(s cty.Value) (module.Module, error) {
	cfg := settings{Format: time.RFC3339}
	if err := manifest.DecodeSettings(s, &cfg); err != nil {
		return nil, err
	}
	return &Module{format: cfg.Format, utc: cfg.UTC}, nil
}

// Default is the fallback factory used by dependency declarations.
func Default() module.Module {
	return &Module{format: time.RFC3339}
}

func (m *Module) Dependencies() []module.Dependency { return nil }

func (m *Module) Configure(ctx context.Context) error {
	m.started = m.now()
	ctxlog.FromContext(ctx).Debug("Clock configured.", "format", m.format, "utc", m.utc)
	return nil
}

// ProvidedValues publishes the start moment into the shared banner slot.
func (m *Module) ProvidedValues() []module.Value {
	return []module.Value{
		{Name: "banner", Value: "clock: started " + m.Now()},
	}
}

func (m *Module) now() time.Time {
	if m.utc {
		return time.Now().UTC()
	}
	return time.Now()
}

// Now returns the current time rendered with the configured format.
func (m *Module) Now() string {
	return m.now().Format(m.format)
}

// Started returns the moment Configure ran.
func (m *Module) Started() time.Time {
	return m.started
}
