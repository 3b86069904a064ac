// Package config loads, normalizes, and validates watchq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// daemon and CLI need: data directories, the daemon socket and bridge bind
// address, the site matching patterns, and the DOM selector lists the content
// engine treats as data rather than code.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
