// Package dump persists captured payloads into a directory tree that mirrors
// the capture's host and URL path.
//
// URL trees let a node be both a resource and a parent; filesystems do not.
// The newest need wins the unmarked name and the entry in the way is renamed
// aside with a [dir] marker. Identical payloads are stored once; different
// payloads landing on the same name get numeric suffixes.
package dump

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/dirdump/internal/capture"
	"github.com/hpungsan/dirdump/internal/pathkey"
)

// DefaultRoot is the dump directory used when none is configured.
const DefaultRoot = "./dump"

// Options configures a Dumper.
type Options struct {
	// Root is the output directory. Empty means DefaultRoot.
	Root string

	// Serialize funnels directory materialization and suffix selection
	// through one lock. Without it, concurrent writers racing on the same
	// derived name may store an identical payload twice.
	Serialize bool
}

// Result describes where a capture was persisted.
type Result struct {
	Key     string  `json:"key"`
	Path    string  `json:"path,omitempty"`
	RelPath string  `json:"rel_path,omitempty"`
	Outcome Outcome `json:"outcome"`
	Size    int     `json:"size"`
}

// Dumper writes capture events below a root directory.
// It keeps no state about the tree; every call re-reads the filesystem.
type Dumper struct {
	root      string
	serialize bool
	mu        sync.Mutex
	logger    zerolog.Logger
}

// New creates a Dumper.
func New(opts Options) *Dumper {
	root := opts.Root
	if root == "" {
		root = DefaultRoot
	}
	return &Dumper{
		root:      filepath.Clean(root),
		serialize: opts.Serialize,
		logger:    zerolog.Nop(),
	}
}

// SetLogger sets the logger for the dumper.
func (d *Dumper) SetLogger(logger zerolog.Logger) {
	d.logger = logger
}

// Root returns the output directory.
func (d *Dumper) Root() string {
	return d.root
}

// Dump persists ev.Content at the path derived from ev's host, port and path.
// Empty content is a successful no-op. Filesystem failures are returned
// as-is and leave other captures unaffected.
func (d *Dumper) Dump(ev capture.Event) (*Result, error) {
	key := pathkey.Build(ev.Host, ev.Port, ev.Path)
	res := &Result{Key: key.String(), Size: len(ev.Content)}

	if len(ev.Content) == 0 {
		res.Outcome = OutcomeEmpty
		return res, nil
	}

	if d.serialize {
		d.mu.Lock()
		defer d.mu.Unlock()
	}

	dir, err := materialize(d.root, key.Dirs(), d.logMove)
	if err != nil {
		return nil, err
	}

	base, ext := pathkey.SplitExt(key.Leaf())
	wr, err := write(dir, base, ext, ev.IsRequest, ev.Content, d.logMove)
	if err != nil {
		return nil, err
	}

	res.Path = wr.Path
	res.Outcome = wr.Outcome
	if rel, err := filepath.Rel(d.root, wr.Path); err == nil {
		res.RelPath = filepath.ToSlash(rel)
	}

	d.logger.Debug().
		Str("key", res.Key).
		Str("path", res.RelPath).
		Str("outcome", string(res.Outcome)).
		Int("size", res.Size).
		Bool("request", ev.IsRequest).
		Msg("capture persisted")

	return res, nil
}

func (d *Dumper) logMove(from, to string) {
	d.logger.Info().Str("from", from).Str("to", to).Msg("renamed conflicting entry aside")
}
