// Package driving declares what the outer surfaces (cobra commands, the
// echo API and the MCP server) may ask of the core. internal/core/services
// provides the implementations.
package driving
