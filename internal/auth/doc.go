// Package auth provides optional API-key authentication middleware for the
// wirnn-service HTTP surface. The expected key is resolved from the
// environment at startup (config.AuthConfig.Key); with mode "none" or no
// key configured the middleware passes every request through.
package auth
