// Package app composes the runtime: it builds the logger, loads the
// declarative manifest, materializes the enabled modules through the
// catalog and drives them into a core. It is decoupled from any specific
// entrypoint; the CLI is one consumer, tests are another.
package app
