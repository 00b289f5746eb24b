package ops

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/errors"
)

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	Host          *string // optional filter by host
	OlderThanDays int     // purge records created more than N days ago (0 = all)
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes index records. Payload files on disk are kept.
func Purge(ctx context.Context, database *sql.DB, input PurgeInput) (*PurgeOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("purge")
	}
	if input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}

	var host *string
	if input.Host != nil {
		h := artifact.NormalizeHost(*input.Host)
		if h == "" {
			return nil, errors.NewInvalidRequest("host must not be empty")
		}
		host = &h
	}

	// +1 so records created in the current second are included for 0 days.
	cutoff := time.Now().Add(-time.Duration(input.OlderThanDays)*24*time.Hour).Unix() + 1
	count, err := db.PurgeOlderThan(database, cutoff, host)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, host, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, host *string, olderThanDays int) string {
	if count == 0 {
		return "No index records to purge"
	}

	word := "record"
	if count > 1 {
		word = "records"
	}

	msg := fmt.Sprintf("Permanently deleted %d index %s", count, word)

	if host != nil {
		msg += fmt.Sprintf(" for host %q", *host)
	}

	if olderThanDays > 0 {
		msg += fmt.Sprintf(" (created more than %d days ago)", olderThanDays)
	}

	return msg
}
