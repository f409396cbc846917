// Package config loads the wirnn-service configuration: an optional YAML
// file overlaid with WIRNN_SERVICE_* environment variables, bound once at
// the process boundary.
//
// Recognized environment overrides:
//   - WIRNN_SERVICE_NAME        — application name
//   - WIRNN_SERVICE_PATH_PREFIX — URL prefix for all service routes
//   - WIRNN_SERVICE_PROFILE     — "development" (text logs) or "production" (JSON logs)
//   - WIRNN_SERVICE_LOG_LEVEL   — debug | info | warning | error
//
// Load(path) applies defaults, unmarshals the file if path is non-empty,
// overlays the environment, then validates. Secrets (the API key) are
// resolved from the environment via Auth.KeyEnv indirection and never read
// from the file itself.
package config
