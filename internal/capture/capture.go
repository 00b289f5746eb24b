// Package capture defines the captured-exchange event handed to the dump core,
// plus the decoders and sources that produce it.
package capture

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/hpungsan/dirdump/internal/errors"
)

// Event is one captured message body. It is never mutated after creation.
type Event struct {
	Host      string
	Port      int
	Path      string // raw request path, possibly percent-encoded, with query/fragment
	IsRequest bool
	Content   []byte
}

// Handler consumes captured events.
type Handler func(ctx context.Context, ev Event) error

// Filter decides which events reach the dump core.
type Filter struct {
	// DumpRequestContent enables persisting request bodies. Responses always pass.
	DumpRequestContent bool
}

// Allow reports whether ev should be persisted.
func (f Filter) Allow(ev Event) bool {
	return !ev.IsRequest || f.DumpRequestContent
}

// defaultPorts maps URL schemes to the port used when none is given.
var defaultPorts = map[string]int{
	"http":  80,
	"ws":    80,
	"https": 443,
	"wss":   443,
}

// EventFromURL builds an Event from an absolute URL.
func EventFromURL(rawURL string, isRequest bool, content []byte) (Event, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Event{}, errors.NewInvalidRequest("invalid url: " + err.Error())
	}
	if u.Host == "" {
		return Event{}, errors.NewInvalidRequest("url must be absolute: " + rawURL)
	}

	port, ok := defaultPorts[strings.ToLower(u.Scheme)]
	if !ok {
		port = 80
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Event{}, errors.NewInvalidRequest("invalid port: " + p)
		}
		port = n
	}

	path := u.RequestURI()
	if u.Fragment != "" {
		path += "#" + u.EscapedFragment()
	}

	return Event{
		Host:      u.Hostname(),
		Port:      port,
		Path:      path,
		IsRequest: isRequest,
		Content:   content,
	}, nil
}
