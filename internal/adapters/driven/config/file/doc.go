// Package file loads esload configuration from TOML or YAML files.
//
// ConfigStore exposes the raw keys with dot-notation access. Load builds
// the typed Config the commands run with, applying ESLOAD_* environment
// overrides on top of the file.
package file
