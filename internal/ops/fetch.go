package ops

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	IncludeContent *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
// Text payloads are returned in Content, binary ones in ContentBase64.
type FetchOutput struct {
	artifact.Artifact        // embedded (copy, not pointer)
	Content           string `json:"content,omitempty"`
	ContentBase64     string `json:"content_base64,omitempty"`
	Truncated         bool   `json:"truncated,omitempty"`
}

// Fetch retrieves an indexed artifact and, by default, its payload from disk.
func Fetch(ctx context.Context, database *sql.DB, root string, input FetchInput) (*FetchOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("fetch")
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	a, err := db.GetByID(database, id)
	if err != nil {
		return nil, err
	}
	output := &FetchOutput{Artifact: *a}

	includeContent := true
	if input.IncludeContent != nil {
		includeContent = *input.IncludeContent
	}
	if !includeContent {
		return output, nil
	}

	data, err := dump.ReadFile(root, a.RelPath)
	if err != nil {
		return nil, err
	}
	output.Truncated = a.Size > int64(len(data))
	if utf8.Valid(data) {
		output.Content = string(data)
	} else {
		output.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	}

	return output, nil
}
