package ops

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/errors"
)

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

// Target addresses a capture either by absolute URL or by host, port and path.
type Target struct {
	URL  string
	Host string
	Port int // default 80 when addressing by host
	Path string
}

// Event validates the target and builds a capture event for it.
// Exactly one addressing mode must be used.
func (t Target) Event(isRequest bool, content []byte) (capture.Event, error) {
	rawURL := strings.TrimSpace(t.URL)
	host := strings.TrimSpace(t.Host)

	if rawURL != "" && host != "" {
		return capture.Event{}, errors.NewInvalidRequest("specify either url or host, not both")
	}
	if rawURL != "" {
		return capture.EventFromURL(rawURL, isRequest, content)
	}
	if host == "" {
		return capture.Event{}, errors.NewInvalidRequest("url or host is required")
	}

	port := t.Port
	if port == 0 {
		port = 80
	}
	if port < 0 || port > 65535 {
		return capture.Event{}, errors.NewInvalidRequest("port must be between 1 and 65535")
	}

	return capture.Event{
		Host:      host,
		Port:      port,
		Path:      t.Path,
		IsRequest: isRequest,
		Content:   content,
	}, nil
}

// normalizeLimit applies limit defaults and bounds.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// digest returns the hex BLAKE3-256 of content.
func digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
