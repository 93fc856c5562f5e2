package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modkit/internal/ctxlog"
)

// moduleBlock is the raw HCL shape of one `module` block.
type moduleBlock struct {
	Name     string         `hcl:"name,label"`
	Enabled  *bool          `hcl:"enabled,optional"`
	Settings *settingsBlock `hcl:"settings,block"`
}

// settingsBlock carries arbitrary attributes through to evaluation.
type settingsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// manifestFile is the top-level HCL schema.
type manifestFile struct {
	Modules []*moduleBlock `hcl:"module,block"`
	Body    hcl.Body       `hcl:",remain"`
}

// Spec is one module declaration from the manifest.
type Spec struct {
	Name    string
	Enabled bool
	// Settings is a cty object of the evaluated settings attributes, or
	// cty.NilVal when the block is absent.
	Settings cty.Value
}

// Plan is the parsed manifest: module specs in declaration order.
type Plan struct {
	Specs []Spec
}

// EnabledNames returns the names of enabled modules in declaration order.
func (p *Plan) EnabledNames() []string {
	var out []string
	for _, s := range p.Specs {
		if s.Enabled {
			out = append(out, s.Name)
		}
	}
	return out
}

// Spec returns the declaration for a module name, if present.
func (p *Plan) Spec(name string) (Spec, bool) {
	for _, s := range p.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// Load parses and evaluates the manifest at path.
func Load(ctx context.Context, path string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, diags)
	}
	return decodePlan(ctx, path, file)
}

// LoadSource parses a manifest from in-memory source, for tests and
// embedded composition.
func LoadSource(ctx context.Context, filename string, src []byte) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}
	return decodePlan(ctx, filename, file)
}

func decodePlan(ctx context.Context, name string, file *hcl.File) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	var raw manifestFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", name, diags)
	}

	plan := &Plan{}
	seen := make(map[string]bool, len(raw.Modules))
	for _, blk := range raw.Modules {
		if seen[blk.Name] {
			return nil, fmt.Errorf("manifest %s declares module %q twice", name, blk.Name)
		}
		seen[blk.Name] = true

		spec := Spec{
			Name:     blk.Name,
			Enabled:  blk.Enabled == nil || *blk.Enabled,
			Settings: cty.NilVal,
		}
		if blk.Settings != nil {
			obj, err := evalSettings(blk.Settings.Body)
			if err != nil {
				return nil, fmt.Errorf("module %q in %s: %w", blk.Name, name, err)
			}
			spec.Settings = obj
		}
		plan.Specs = append(plan.Specs, spec)
	}

	logger.Debug("Manifest loaded.", "file", name, "modules", len(plan.Specs))
	return plan, nil
}

// evalSettings evaluates every attribute of a settings block into a cty
// object. Attributes are literal expressions; there is no variable scope.
func evalSettings(body hcl.Body) (cty.Value, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid settings block: %w", diags)
	}

	vals := make(map[string]cty.Value, len(attrs))
	for attrName, attr := range attrs {
		v, diags := attr.Expr.Value(&hcl.EvalContext{})
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("evaluating setting %q: %w", attrName, diags)
		}
		vals[attrName] = v
	}
	if len(vals) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(vals), nil
}
