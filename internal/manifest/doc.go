// Package manifest loads the declarative composition file: which modules
// to enable and the settings each one starts with.
//
// The file format is HCL. Each `module "<name>" { ... }` block names an
// entry in a Catalog of registered factories; settings are evaluated into
// a cty object and handed to the factory, which decodes what it needs.
// The manifest layer knows nothing about dependencies; that remains the
// resolver's job once the built instances are submitted to the core.
package manifest
