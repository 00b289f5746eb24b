package capture

import (
	"testing"

	"github.com/hpungsan/dirdump/internal/errors"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		host    string
		port    int
		path    string
		request bool
		content string
	}{
		{
			name:    "url with text content",
			line:    `{"url":"http://example.com/a/b","content":"hello"}`,
			host:    "example.com",
			port:    80,
			path:    "/a/b",
			content: "hello",
		},
		{
			name:    "host port path with base64",
			line:    `{"host":"example.com","port":8080,"path":"/x?y=1","content_base64":"aGk=","is_request":true}`,
			host:    "example.com",
			port:    8080,
			path:    "/x?y=1",
			request: true,
			content: "hi",
		},
		{
			name: "host without port defaults to 80",
			line: `{"host":"example.com","path":"/a"}`,
			host: "example.com",
			port: 80,
			path: "/a",
		},
		{
			name:    "base64 wins over text",
			line:    `{"url":"https://example.com/","content":"text","content_base64":"Ymlu"}`,
			host:    "example.com",
			port:    443,
			path:    "/",
			content: "bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("DecodeLine() error = %v", err)
			}
			if ev.Host != tt.host || ev.Port != tt.port || ev.Path != tt.path {
				t.Errorf("got %q:%d %q, want %q:%d %q", ev.Host, ev.Port, ev.Path, tt.host, tt.port, tt.path)
			}
			if ev.IsRequest != tt.request {
				t.Errorf("IsRequest = %v, want %v", ev.IsRequest, tt.request)
			}
			if string(ev.Content) != tt.content {
				t.Errorf("Content = %q, want %q", ev.Content, tt.content)
			}
		})
	}
}

func TestDecodeLine_Invalid(t *testing.T) {
	lines := []string{
		`not json`,
		`[1,2,3]`,
		`{"path":"/a"}`,
		`{"host":"example.com","port":"80"}`,
		`{"host":"example.com","content_base64":"!!"}`,
		`{"url":"/relative"}`,
	}
	for _, line := range lines {
		if _, err := DecodeLine([]byte(line)); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("DecodeLine(%s) error = %v, want ErrInvalidRequest", line, err)
		}
	}
}
