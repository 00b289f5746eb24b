package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Host      string // optional, normalized
	KeyPrefix string // optional, e.g. "example.com/api"
	Outcome   string // optional: written, duplicate
	Request   *bool  // optional: only request or only response bodies
	Limit     int    // default: 20, max: 100
	Offset    int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []artifact.Artifact `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Sort       string              `json:"sort"`
}

// List retrieves indexed artifacts, newest first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("list")
	}

	switch input.Outcome {
	case "", string(dump.OutcomeWritten), string(dump.OutcomeDuplicate):
	default:
		return nil, errors.NewInvalidRequest("outcome must be one of: written, duplicate")
	}

	limit := normalizeLimit(input.Limit)
	offset := max(input.Offset, 0)

	filter := db.ListFilter{
		Host:      artifact.NormalizeHost(input.Host),
		KeyPrefix: artifact.NormalizeKeyPrefix(input.KeyPrefix),
		Outcome:   input.Outcome,
		Request:   input.Request,
	}

	items, total, err := db.List(database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if items == nil {
		items = []artifact.Artifact{}
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
