// Package config loads the bridge configuration: defaults, then an optional
// YAML file, then environment variable overrides for every named setting.
// The bridge usually runs under a process supervisor with nothing but an
// environment, so the file is optional and the variables are authoritative.
//
// Configuration is read once at startup and is immutable afterwards; Watch
// only reports file changes so operators can see that a restart is needed.
package config
