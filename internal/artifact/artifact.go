// Package artifact defines the index record kept for every persisted capture.
package artifact

import "fmt"

// Artifact is one persisted capture as recorded in the index.
// The payload itself lives on disk under the dump root at RelPath.
type Artifact struct {
	// ID is a ULID that uniquely identifies this record
	ID string `json:"id"`

	// Host (lowercased) and Port are the capture origin before sanitizing
	Host string `json:"host"`
	Port int    `json:"port"`

	// RawPath is the URL path as observed, including query and fragment
	RawPath string `json:"raw_path"`

	// KeyPath is the derived path key joined with "/"
	KeyPath string `json:"key_path"`

	// RelPath is the file holding the payload, relative to the dump root
	RelPath string `json:"rel_path"`

	// IsRequest marks a request body (as opposed to a response body)
	IsRequest bool `json:"is_request"`

	// Size is the payload length in bytes
	Size int64 `json:"size"`

	// Digest is the hex BLAKE3-256 of the payload
	Digest string `json:"digest"`

	// Outcome is "written" or "duplicate"
	Outcome string `json:"outcome"`

	// CreatedAt is the Unix timestamp when the capture was persisted
	CreatedAt int64 `json:"created_at"`
}

// Origin returns host:port as observed.
func (a Artifact) Origin() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Kind returns "request" or "response".
func (a Artifact) Kind() string {
	if a.IsRequest {
		return "request"
	}
	return "response"
}

// HostStats aggregates index records for one host.
type HostStats struct {
	Host       string `json:"host"`
	Artifacts  int    `json:"artifacts"`
	Written    int    `json:"written"`
	Duplicates int    `json:"duplicates"`
	Requests   int    `json:"requests"`
	Bytes      int64  `json:"bytes"` // sum of sizes of written payloads
	LastSeenAt int64  `json:"last_seen_at"`
}
