package capture

import (
	"encoding/base64"

	"github.com/tidwall/gjson"

	"github.com/hpungsan/dirdump/internal/errors"
)

// DecodeLine parses one JSONL capture record.
//
// A record addresses the exchange either by "url" or by "host", "port" and "path",
// and carries the body as "content" (text) or "content_base64".
// "is_request" marks request bodies; it defaults to false.
func DecodeLine(line []byte) (Event, error) {
	if !gjson.ValidBytes(line) {
		return Event{}, errors.NewInvalidRequest("invalid JSON record")
	}
	rec := gjson.ParseBytes(line)
	if !rec.IsObject() {
		return Event{}, errors.NewInvalidRequest("record must be a JSON object")
	}

	content, err := decodeContent(rec)
	if err != nil {
		return Event{}, err
	}
	isRequest := rec.Get("is_request").Bool()

	if u := rec.Get("url"); u.Exists() {
		return EventFromURL(u.String(), isRequest, content)
	}

	host := rec.Get("host")
	if !host.Exists() {
		return Event{}, errors.NewInvalidRequest("record needs url or host")
	}
	port := 80
	if p := rec.Get("port"); p.Exists() {
		if p.Type != gjson.Number {
			return Event{}, errors.NewInvalidRequest("port must be a number")
		}
		port = int(p.Int())
	}

	return Event{
		Host:      host.String(),
		Port:      port,
		Path:      rec.Get("path").String(),
		IsRequest: isRequest,
		Content:   content,
	}, nil
}

func decodeContent(rec gjson.Result) ([]byte, error) {
	if b64 := rec.Get("content_base64"); b64.Exists() {
		data, err := base64.StdEncoding.DecodeString(b64.String())
		if err != nil {
			return nil, errors.NewInvalidRequest("content_base64 is not valid base64")
		}
		return data, nil
	}
	if text := rec.Get("content"); text.Exists() {
		return []byte(text.String()), nil
	}
	return nil, nil
}
