package ops

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
)

// MaxIngestLineBytes bounds a single JSONL record (base64 bodies included).
const MaxIngestLineBytes = 64 * 1024 * 1024

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	Lines      int           `json:"lines"`
	Written    int           `json:"written"`
	Duplicates int           `json:"duplicates"`
	Skipped    int           `json:"skipped"` // empty or filtered bodies
	Errors     []IngestError `json:"errors"`
}

// IngestError describes a record that could not be persisted.
type IngestError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Ingest replays JSONL capture records (see capture.DecodeLine) through Persist.
// A bad or failing record is reported and the rest of the stream continues.
func Ingest(ctx context.Context, database *sql.DB, dumper *dump.Dumper, filter capture.Filter, r io.Reader) (*IngestOutput, error) {
	out := &IngestOutput{Errors: []IngestError{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxIngestLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("ingest")
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out.Lines++

		ev, err := capture.DecodeLine(line)
		if err != nil {
			out.Errors = append(out.Errors, newIngestError(lineNum, err))
			continue
		}

		res, err := PersistEvent(ctx, database, dumper, filter, ev)
		if err != nil {
			if errors.Is(err, errors.ErrCancelled) {
				return nil, err
			}
			out.Errors = append(out.Errors, newIngestError(lineNum, err))
			continue
		}

		switch res.Outcome {
		case dump.OutcomeWritten:
			out.Written++
		case dump.OutcomeDuplicate:
			out.Duplicates++
		default:
			out.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		if stderrors.Is(err, bufio.ErrTooLong) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("record on line %d exceeds the maximum line size", lineNum+1))
		}
		return nil, errors.NewInternal(err)
	}

	return out, nil
}

func newIngestError(line int, err error) IngestError {
	var dErr *errors.DumpError
	if stderrors.As(err, &dErr) {
		return IngestError{Line: line, Code: string(dErr.Code), Message: dErr.Message}
	}
	return IngestError{Line: line, Code: string(errors.ErrInternal), Message: err.Error()}
}
