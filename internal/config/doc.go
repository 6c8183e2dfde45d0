// Package config loads, normalizes, and validates the TOML configuration.
//
// It exposes defaults for every stage, expands user paths, applies
// environment fallbacks, and rejects threshold settings that could never be
// satisfied before any submission is read. Every command goes through Load so
// stage runs see the same view of thresholds, raters, and bonus policy.
package config
