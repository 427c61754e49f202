// Package config loads, normalizes, and validates hrmq configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HRMQ_IMAGE_FOLDER. The Config type centralizes every knob the queue engine,
// the upload ingestor, and the CLI need, so image folders, the archive command
// table, and queue policies are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lower-cased extension tables, and clear validation errors.
package config
