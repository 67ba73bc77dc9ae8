//go:build !prod

// Package buildmode reports whether the binary was built as a debug or a release build.
// Release builds are produced with -tags prod, mirroring the logging split.
package buildmode

// Debug is true for builds without the prod tag.
const Debug = true

// Name returns a short label for logs.
func Name() string {
	return "debug"
}
