// Package reporter aggregates the "banner" values its sibling modules
// publish and logs them. It demonstrates the collector side of the value
// contract plus a defaulted dependency: when no clock was composed in,
// the resolver creates one for it.
package reporter

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/module"
	"github.com/vk/modkit/modules/clock"
)

type settings struct {
	// Heading is printed ahead of the collected banner lines.
	Heading string `cty:"heading"`
}

// Module logs every collected banner line under a heading.
type Module struct {
	heading string
	clk     *clock.Module
	banners []any
}

// New builds a reporter from manifest settings.
func New(s cty.Value) (module.Module, error) {
	cfg := settings{Heading: "module report"}
	if err := manifest.DecodeSettings(s, &cfg); err != nil {
		return nil, err
	}
	return &Module{heading: cfg.Heading}, nil
}

func (m *Module) Dependencies() []module.Dependency {
	return []module.Dependency{
		module.Needs(&m.clk, module.WithDefault(clock.Default)),
	}
}

func (m *Module) CollectedNames() []string { return []string{"banner"} }

func (m *Module) UpdateCollected(name string, values []any) {
	m.banners = values
}

func (m *Module) Configure(ctx context.Context) error {
	if m.clk == nil {
		return fmt.Errorf("reporter configured without a clock")
	}
	ctxlog.FromContext(ctx).Debug("Reporter configured.", "heading", m.heading)
	return nil
}

// Report logs the heading, the clock reading and every banner line in
// sorted order.
func (m *Module) Report(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Info(m.heading, "time", m.clk.Now())

	lines := make([]string, 0, len(m.banners))
	for _, b := range m.banners {
		lines = append(lines, fmt.Sprint(b))
	}
	sort.Strings(lines)
	for _, line := range lines {
		logger.Info("  " + line)
	}
}

// Banners returns the current collected view.
func (m *Module) Banners() []any { return m.banners }
