// Package rpc carries tool calls between the td CLI and the serve
// daemon over a Unix socket. Requests and responses are single
// newline-framed JSON objects.
package rpc

import (
	"encoding/json"

	"golang.org/x/mod/semver"
)

// Built-in server operations handled outside the tool table.
const (
	OpPing      = "ping"
	OpHealth    = "health"
	OpListTools = "list_tools"
	OpShutdown  = "shutdown"
)

// Request is one tool call from client to daemon. Method names the
// tool; Params carries its arguments as parsed JSON.
type Request struct {
	Method        string         `json:"method"`
	Params        map[string]any `json:"params,omitempty"`
	Actor         string         `json:"actor,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
	ClientVersion string         `json:"client_version,omitempty"`
}

// Response is the daemon's reply. Data holds the tool result on
// success; Error carries a "<kind>: <detail>" message on failure.
type Response struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// PingResponse answers the ping operation.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// HealthResponse answers the health operation.
type HealthResponse struct {
	Status         string  `json:"status"` // "healthy" or "unhealthy"
	Version        string  `json:"version"`
	ClientVersion  string  `json:"client_version,omitempty"`
	Compatible     bool    `json:"compatible"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	DBResponseMS   float64 `json:"db_response_ms"`
	ActiveConns    int32   `json:"active_connections"`
	MaxConns       int     `json:"max_connections"`
	RequestsTotal  int64   `json:"requests_total"`
	RequestsFailed int64   `json:"requests_failed"`
	DatabasePath   string  `json:"database_path"`
	SocketPath     string  `json:"socket_path"`
	PID            int     `json:"pid"`
	Error          string  `json:"error,omitempty"`
}

// CompatibleVersions reports whether a client and server can talk:
// same major version, with the bare "dev" build always accepted.
func CompatibleVersions(client, server string) bool {
	if client == "" || server == "" {
		return true
	}
	if client == "dev" || server == "dev" {
		return true
	}
	cv, sv := canonical(client), canonical(server)
	if !semver.IsValid(cv) || !semver.IsValid(sv) {
		return false
	}
	return semver.Major(cv) == semver.Major(sv)
}

func canonical(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		version = "v" + version
	}
	return version
}
