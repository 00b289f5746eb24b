package cdp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/rs/zerolog"

	"github.com/hpungsan/dirdump/internal/capture"
)

type fakeFetch struct {
	body          *fetch.GetResponseBodyReply
	bodyErr       error
	continuedReq  []fetch.RequestID
	continuedResp []fetch.RequestID
}

func (f *fakeFetch) GetResponseBody(ctx context.Context, args *fetch.GetResponseBodyArgs) (*fetch.GetResponseBodyReply, error) {
	if f.bodyErr != nil {
		return nil, f.bodyErr
	}
	return f.body, nil
}

func (f *fakeFetch) ContinueRequest(ctx context.Context, args *fetch.ContinueRequestArgs) error {
	f.continuedReq = append(f.continuedReq, args.RequestID)
	return nil
}

func (f *fakeFetch) ContinueResponse(ctx context.Context, args *fetch.ContinueResponseArgs) error {
	f.continuedResp = append(f.continuedResp, args.RequestID)
	return nil
}

// paused decodes a Fetch.requestPaused event payload.
func paused(t *testing.T, raw string) *fetch.RequestPausedReply {
	t.Helper()
	var ev fetch.RequestPausedReply
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return &ev
}

// record returns a handler that appends every event it sees.
func record(events *[]capture.Event) capture.Handler {
	return func(ctx context.Context, ev capture.Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestHandle_ResponseBody(t *testing.T) {
	f := &fakeFetch{body: &fetch.GetResponseBodyReply{Body: `{"a":1}`}}
	var got []capture.Event

	ev := paused(t, `{"requestId":"r1","request":{"url":"https://example.com/api?x=1","method":"GET"},"responseStatusCode":200}`)
	New("", "").handle(context.Background(), f, ev, record(&got))

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	want := capture.Event{Host: "example.com", Port: 443, Path: "/api?x=1", Content: []byte(`{"a":1}`)}
	if got[0].Host != want.Host || got[0].Port != want.Port || got[0].Path != want.Path ||
		got[0].IsRequest || !bytes.Equal(got[0].Content, want.Content) {
		t.Errorf("event = %+v, want %+v", got[0], want)
	}
	if len(f.continuedResp) != 1 || f.continuedResp[0] != "r1" {
		t.Errorf("continued responses = %v, want [r1]", f.continuedResp)
	}
}

func TestHandle_Base64ResponseBody(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	f := &fakeFetch{body: &fetch.GetResponseBodyReply{Body: base64.StdEncoding.EncodeToString(raw), Base64Encoded: true}}
	var got []capture.Event

	ev := paused(t, `{"requestId":"r2","request":{"url":"http://example.com/logo.png","method":"GET"},"responseStatusCode":200}`)
	New("", "").handle(context.Background(), f, ev, record(&got))

	if len(got) != 1 || !bytes.Equal(got[0].Content, raw) {
		t.Fatalf("events = %+v, want decoded PNG bytes", got)
	}
}

func TestHandle_RequestPostData(t *testing.T) {
	f := &fakeFetch{}
	var got []capture.Event

	ev := paused(t, `{"requestId":"r3","request":{"url":"http://example.com:8080/login","method":"POST","postData":"user=a"}}`)
	New("", "").handle(context.Background(), f, ev, record(&got))

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if !got[0].IsRequest || got[0].Port != 8080 || string(got[0].Content) != "user=a" {
		t.Errorf("event = %+v", got[0])
	}
	if len(f.continuedReq) != 1 || f.continuedReq[0] != "r3" {
		t.Errorf("continued requests = %v, want [r3]", f.continuedReq)
	}
}

func TestHandle_BodyUnavailableStillContinues(t *testing.T) {
	f := &fakeFetch{bodyErr: errors.New("No data found for resource with given identifier")}
	var got []capture.Event

	ev := paused(t, `{"requestId":"r4","request":{"url":"http://example.com/redirect","method":"GET"},"responseStatusCode":302}`)
	New("", "").handle(context.Background(), f, ev, record(&got))

	if len(got) != 0 {
		t.Errorf("handler called for a body-less response: %+v", got)
	}
	if len(f.continuedResp) != 1 {
		t.Errorf("response not continued: %v", f.continuedResp)
	}
}

func TestHandle_HandlerErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	s := New("", "")
	s.SetLogger(zerolog.New(&logs))

	f := &fakeFetch{body: &fetch.GetResponseBodyReply{Body: "x"}}
	ev := paused(t, `{"requestId":"r5","request":{"url":"http://example.com/a","method":"GET"},"responseStatusCode":200}`)
	s.handle(context.Background(), f, ev, func(ctx context.Context, ev capture.Event) error {
		return errors.New("disk full")
	})

	if !strings.Contains(logs.String(), "disk full") {
		t.Errorf("handler error not logged: %q", logs.String())
	}
	if len(f.continuedResp) != 1 {
		t.Errorf("response not continued after handler error")
	}
}

func TestHandle_NonHTTPURLSkipped(t *testing.T) {
	f := &fakeFetch{}
	var got []capture.Event

	ev := paused(t, `{"requestId":"r6","request":{"url":"about:blank","method":"GET"}}`)
	New("", "").handle(context.Background(), f, ev, record(&got))

	if len(got) != 0 {
		t.Errorf("handler called for about:blank")
	}
	if len(f.continuedReq) != 1 {
		t.Errorf("request not continued")
	}
}

func TestRun_UnreachableEndpoint(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New("http://127.0.0.1:1", "").Run(ctx, record(new([]capture.Event)))
	if err == nil {
		t.Fatal("Run() error = nil, want error for unreachable endpoint")
	}
}
