// Package sysinfo is a leaf knowledge module: it snapshots the process
// environment and host identity at configure time and serves it to the
// rest of the system.
package sysinfo

import (
	"context"
	"os"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/module"
)

type settings struct {
	// EnvPrefix restricts the captured environment to variables with the
	// given prefix. Empty captures everything.
	EnvPrefix string `cty:"env_prefix"`
}

// Module holds the snapshot.
type Module struct {
	envPrefix string
	hostname  string
	env       map[string]string
}

// New builds a sysinfo module from manifest settings.
func New(s cty.Value) (module.Module, error) {
	var cfg settings
	if err := manifest.DecodeSettings(s, &cfg); err != nil {
		return nil, err
	}
	return &Module{envPrefix: cfg.EnvPrefix}, nil
}

func (m *Module) Dependencies() []module.Dependency { return nil }

// Configure captures the snapshot once.
func (m *Module) Configure(ctx context.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	m.hostname = hostname

	m.env = make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) != 2 {
			continue
		}
		if m.envPrefix != "" && !strings.HasPrefix(pair[0], m.envPrefix) {
			continue
		}
		m.env[pair[0]] = pair[1]
	}

	ctxlog.FromContext(ctx).Debug("Sysinfo snapshot captured.", "host", m.hostname, "env_vars", len(m.env))
	return nil
}

// ProvidedValues publishes the host identity into the shared banner slot.
func (m *Module) ProvidedValues() []module.Value {
	return []module.Value{
		{Name: "banner", Value: "sysinfo: running on this host"},
	}
}

// Hostname returns the captured host name.
func (m *Module) Hostname() string { return m.hostname }

// Env returns the captured environment snapshot.
func (m *Module) Env() map[string]string { return m.env }
