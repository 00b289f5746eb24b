package db

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/dirdump/internal/artifact"
	"github.com/hpungsan/dirdump/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.DumpError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Host      string // exact match on the observed host
	KeyPrefix string // key_path equal to or below this prefix
	Outcome   string // "written" or "duplicate"
	Request   *bool  // only request (true) or response (false) bodies
}

const artifactColumns = `id, host, port, raw_path, key_path, rel_path,
	is_request, size, digest, outcome, created_at`

// Insert stores a new artifact record in the database.
func Insert(db *sql.DB, a *artifact.Artifact) error {
	query := `
		INSERT INTO artifacts (` + artifactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		a.ID, a.Host, a.Port, a.RawPath, a.KeyPath, a.RelPath,
		boolToInt(a.IsRequest), a.Size, a.Digest, a.Outcome, a.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetByID retrieves an artifact record by its ULID.
func GetByID(db *sql.DB, id string) (*artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = ?`

	a, err := scanArtifact(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return a, nil
}

// List returns a page of artifact records, newest first, plus the total
// number of records matching the filter.
func List(db *sql.DB, filter ListFilter, limit, offset int) ([]artifact.Artifact, int, error) {
	where, args := filter.where()

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM artifacts`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + artifactColumns + ` FROM artifacts` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []artifact.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// Stats aggregates records per host, busiest host first.
func Stats(db *sql.DB) ([]artifact.HostStats, error) {
	query := `
		SELECT host,
			COUNT(*),
			COALESCE(SUM(outcome = 'written'), 0),
			COALESCE(SUM(outcome = 'duplicate'), 0),
			COALESCE(SUM(is_request), 0),
			COALESCE(SUM(CASE WHEN outcome = 'written' THEN size ELSE 0 END), 0),
			MAX(created_at)
		FROM artifacts
		GROUP BY host
		ORDER BY COUNT(*) DESC, host ASC
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var stats []artifact.HostStats
	for rows.Next() {
		var s artifact.HostStats
		if err := rows.Scan(&s.Host, &s.Artifacts, &s.Written, &s.Duplicates,
			&s.Requests, &s.Bytes, &s.LastSeenAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return stats, nil
}

// PurgeOlderThan permanently deletes records created before cutoff (Unix
// seconds), optionally limited to one host. Payload files are not touched.
func PurgeOlderThan(db *sql.DB, cutoff int64, host *string) (int, error) {
	query := `DELETE FROM artifacts WHERE created_at < ?`
	args := []any{cutoff}
	if host != nil {
		query += ` AND host = ?`
		args = append(args, *host)
	}

	result, err := db.Exec(query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// where renders the filter as a WHERE clause with its arguments.
func (f ListFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Host != "" {
		clauses = append(clauses, "host = ?")
		args = append(args, f.Host)
	}
	if f.KeyPrefix != "" {
		// substr keeps LIKE wildcards in keys from matching.
		below := f.KeyPrefix + "/"
		clauses = append(clauses, "(key_path = ? OR substr(key_path, 1, length(?)) = ?)")
		args = append(args, f.KeyPrefix, below, below)
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Request != nil {
		clauses = append(clauses, "is_request = ?")
		args = append(args, boolToInt(*f.Request))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanArtifact scans a single row into an Artifact struct.
func scanArtifact(row scanner) (*artifact.Artifact, error) {
	var (
		a         artifact.Artifact
		isRequest int
	)

	err := row.Scan(
		&a.ID, &a.Host, &a.Port, &a.RawPath, &a.KeyPath, &a.RelPath,
		&isRequest, &a.Size, &a.Digest, &a.Outcome, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.IsRequest = isRequest != 0

	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
