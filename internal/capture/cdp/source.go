// Package cdp captures exchanges from a Chrome tab through the DevTools
// Fetch domain and hands their bodies to a capture.Handler.
package cdp

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/rpcc"
	"github.com/rs/zerolog"

	"github.com/hpungsan/dirdump/internal/capture"
)

// stepTimeout bounds the protocol calls made for a single paused exchange.
const stepTimeout = 10 * time.Second

// fetchDomain is the part of the Fetch domain a session drives.
type fetchDomain interface {
	GetResponseBody(ctx context.Context, args *fetch.GetResponseBodyArgs) (*fetch.GetResponseBodyReply, error)
	ContinueRequest(ctx context.Context, args *fetch.ContinueRequestArgs) error
	ContinueResponse(ctx context.Context, args *fetch.ContinueResponseArgs) error
}

// Source attaches to one DevTools page target.
type Source struct {
	devToolsURL string
	target      string
	logger      zerolog.Logger
}

// New creates a Source for the DevTools endpoint at devToolsURL.
// An empty target selects the first page target.
func New(devToolsURL, target string) *Source {
	return &Source{
		devToolsURL: devToolsURL,
		target:      target,
		logger:      zerolog.Nop(),
	}
}

// SetLogger sets the logger for the source.
func (s *Source) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Run intercepts every exchange of the target at request and response stage
// until ctx is done or the connection drops. Handler errors are logged and the
// exchange is always continued.
func (s *Source) Run(ctx context.Context, handler capture.Handler) error {
	sel, err := s.selectTarget(ctx)
	if err != nil {
		return err
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", sel.WebSocketDebuggerURL, err)
	}
	defer conn.Close()

	client := cdp.NewClient(conn)

	paused, err := client.Fetch.RequestPaused(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to paused requests: %w", err)
	}
	defer paused.Close()

	all := "*"
	patterns := []fetch.RequestPattern{
		{URLPattern: &all, RequestStage: fetch.RequestStageRequest},
		{URLPattern: &all, RequestStage: fetch.RequestStageResponse},
	}
	if err := client.Fetch.Enable(ctx, &fetch.EnableArgs{Patterns: patterns}); err != nil {
		return fmt.Errorf("enable fetch domain: %w", err)
	}

	s.logger.Info().
		Str("target", string(sel.ID)).
		Str("url", sel.URL).
		Msg("capturing")

	for {
		ev, err := paused.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive paused request: %w", err)
		}
		s.handle(ctx, client.Fetch, ev, handler)
	}
}

// selectTarget finds the configured target, or the first page.
func (s *Source) selectTarget(ctx context.Context) (*devtool.Target, error) {
	targets, err := devtool.New(s.devToolsURL).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets at %s: %w", s.devToolsURL, err)
	}
	for _, t := range targets {
		if s.target != "" && string(t.ID) == s.target {
			return t, nil
		}
		if s.target == "" && t.Type == devtool.Page {
			return t, nil
		}
	}
	if s.target != "" {
		return nil, fmt.Errorf("target %s not found", s.target)
	}
	return nil, fmt.Errorf("no page target at %s", s.devToolsURL)
}

// handle converts one paused exchange, passes it to handler and continues it.
func (s *Source) handle(ctx context.Context, fd fetchDomain, ev *fetch.RequestPausedReply, handler capture.Handler) {
	stepCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()

	isResponse := ev.ResponseStatusCode != nil
	log := s.logger.With().
		Str("url", ev.Request.URL).
		Bool("response", isResponse).
		Logger()

	defer func() {
		var err error
		if isResponse {
			err = fd.ContinueResponse(stepCtx, &fetch.ContinueResponseArgs{RequestID: ev.RequestID})
		} else {
			err = fd.ContinueRequest(stepCtx, &fetch.ContinueRequestArgs{RequestID: ev.RequestID})
		}
		if err != nil {
			log.Warn().Err(err).Msg("continue failed")
		}
	}()

	var body []byte
	if isResponse {
		b, err := responseBody(stepCtx, fd, ev.RequestID)
		if err != nil {
			// Redirects and some opaque responses have no body to fetch.
			log.Debug().Err(err).Msg("response body unavailable")
			return
		}
		body = b
	} else if ev.Request.PostData != nil {
		body = []byte(*ev.Request.PostData)
	}

	cev, err := capture.EventFromURL(ev.Request.URL, !isResponse, body)
	if err != nil {
		log.Debug().Err(err).Msg("skipping exchange")
		return
	}
	if err := handler(ctx, cev); err != nil {
		log.Error().Err(err).Msg("persist failed")
	}
}

// responseBody fetches and decodes the body of a response-stage exchange.
func responseBody(ctx context.Context, fd fetchDomain, id fetch.RequestID) ([]byte, error) {
	reply, err := fd.GetResponseBody(ctx, &fetch.GetResponseBodyArgs{RequestID: id})
	if err != nil {
		return nil, err
	}
	if !reply.Base64Encoded {
		return []byte(reply.Body), nil
	}
	return base64.StdEncoding.DecodeString(reply.Body)
}
