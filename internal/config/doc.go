// Package config loads, normalizes, and validates jellymigrate configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_TOKEN and JELLYFIN_API_KEY. The Config type centralizes server
// credentials, the path translation table, and migration knobs so every
// command resolves them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
