// Package ops implements the operations shared by the web API, the MCP
// server, and the CLI. Each operation takes an input struct and returns an
// output struct so every surface serializes the same shapes.
package ops

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}
