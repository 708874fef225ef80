// Package barrage holds the server version shared by the CLI and the
// MCP implementation metadata.
package barrage

// Version is the barrage server version.
const Version = "0.3.0"
