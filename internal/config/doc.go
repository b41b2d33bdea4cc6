// Package config loads, normalizes, and validates reelforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), resolves project-relative asset directories, reads TOML files,
// and honours environment fallbacks such as COMFY_URL. The Config type
// centralizes every knob the renderer and CLI need, allowing asset
// directories, the image backend address, voice profiles, and video output
// settings to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
