// Package config loads and validates the gatherer's YAML configuration,
// expanding ${VAR} environment references before parsing.
package config
