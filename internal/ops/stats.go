package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/errors"
)

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	Hosts      []artifact.HostStats `json:"hosts"`
	Artifacts  int                  `json:"artifacts"`
	Written    int                  `json:"written"`
	Duplicates int                  `json:"duplicates"`
	Bytes      int64                `json:"bytes"`
}

// Stats summarizes the index per host and overall.
func Stats(ctx context.Context, database *sql.DB) (*StatsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("stats")
	}

	hosts, err := db.Stats(database)
	if err != nil {
		return nil, err
	}
	if hosts == nil {
		hosts = []artifact.HostStats{}
	}

	out := &StatsOutput{Hosts: hosts}
	for _, h := range hosts {
		out.Artifacts += h.Artifacts
		out.Written += h.Written
		out.Duplicates += h.Duplicates
		out.Bytes += h.Bytes
	}
	return out, nil
}
