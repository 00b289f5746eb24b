package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/db"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
)

// OutcomeFiltered reports a request body dropped because request dumping is off.
const OutcomeFiltered dump.Outcome = "filtered"

// PersistInput contains parameters for the Persist operation.
type PersistInput struct {
	Target
	IsRequest bool
	Content   []byte
}

// PersistOutput contains the result of the Persist operation.
// ID and Digest are empty when nothing was stored (empty or filtered).
type PersistOutput struct {
	ID      string       `json:"id,omitempty"`
	Key     string       `json:"key"`
	RelPath string       `json:"rel_path,omitempty"`
	Outcome dump.Outcome `json:"outcome"`
	Size    int          `json:"size"`
	Digest  string       `json:"digest,omitempty"`
}

// Persist stores one captured body under the dump root and indexes it.
func Persist(ctx context.Context, database *sql.DB, dumper *dump.Dumper, filter capture.Filter, input PersistInput) (*PersistOutput, error) {
	ev, err := input.Target.Event(input.IsRequest, input.Content)
	if err != nil {
		return nil, err
	}
	return PersistEvent(ctx, database, dumper, filter, ev)
}

// PersistEvent runs an already-built event through filter, dumper and index.
// Empty and filtered events are reported but never indexed.
func PersistEvent(ctx context.Context, database *sql.DB, dumper *dump.Dumper, filter capture.Filter, ev capture.Event) (*PersistOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("persist")
	}

	if !filter.Allow(ev) {
		return &PersistOutput{Outcome: OutcomeFiltered, Size: len(ev.Content)}, nil
	}

	res, err := dumper.Dump(ev)
	if err != nil {
		return nil, err
	}

	out := &PersistOutput{
		Key:     res.Key,
		RelPath: res.RelPath,
		Outcome: res.Outcome,
		Size:    res.Size,
	}
	if res.Outcome == dump.OutcomeEmpty {
		return out, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	out.ID = id
	out.Digest = digest(ev.Content)

	a := &artifact.Artifact{
		ID:        id,
		Host:      artifact.NormalizeHost(ev.Host),
		Port:      ev.Port,
		RawPath:   ev.Path,
		KeyPath:   res.Key,
		RelPath:   res.RelPath,
		IsRequest: ev.IsRequest,
		Size:      int64(res.Size),
		Digest:    out.Digest,
		Outcome:   string(res.Outcome),
		CreatedAt: time.Now().Unix(),
	}
	if err := db.Insert(database, a); err != nil {
		return nil, err
	}

	return out, nil
}
