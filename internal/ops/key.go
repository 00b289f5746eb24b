package ops

import (
	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/pathkey"
)

// KeyInput contains parameters for the Key operation.
type KeyInput struct {
	Target
	IsRequest bool
}

// KeyOutput describes where a capture would be stored, before any collision
// handling. The file actually written may carry a numeric suffix.
type KeyOutput struct {
	Key        string   `json:"key"`
	Components []string `json:"components"`
	File       string   `json:"file"`
}

// Key derives the path key for a target without touching the filesystem.
func Key(input KeyInput) (*KeyOutput, error) {
	ev, err := input.Target.Event(input.IsRequest, nil)
	if err != nil {
		return nil, err
	}

	key := pathkey.Build(ev.Host, ev.Port, ev.Path)
	base, ext := pathkey.SplitExt(key.Leaf())
	if ev.IsRequest {
		base += dump.RequestSuffix
	}

	return &KeyOutput{
		Key:        key.String(),
		Components: key.Components(),
		File:       base + ext,
	}, nil
}
