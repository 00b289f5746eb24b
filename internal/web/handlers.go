package web

import (
	"database/sql"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"unicode/utf8"

	"github.com/hpungsan/dirdump/internal/dump"
	"github.com/hpungsan/dirdump/internal/errors"
	"github.com/hpungsan/dirdump/internal/ops"
)

// Handlers contains HTTP route handlers for the dump browser.
type Handlers struct {
	db       *sql.DB
	root     string
	renderer *Renderer
}

// HandleList handles GET /artifacts, newest first with optional filters.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ListInput{
		Host:      q.Get("host"),
		KeyPrefix: q.Get("key_prefix"),
		Outcome:   q.Get("outcome"),
		Request:   parseOptionalBool(q.Get("is_request")),
		Limit:     parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:    parseIntParam(r, "offset", 0),
	}

	result, err := ops.List(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Artifacts", "artifacts"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Host:       input.Host,
		KeyPrefix:  input.KeyPrefix,
		Outcome:    input.Outcome,
	})
}

// HandleStats handles GET /artifacts/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Stats(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, "stats", StatsPageData{
		PageData: h.renderer.page("Hosts", "stats"),
		Stats:    result,
	})
}

// HandleDetail handles GET /artifacts/{id}: the index record plus a payload preview.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("artifact ID is required"))
		return
	}

	a, err := ops.Fetch(r.Context(), h.db, h.root, ops.FetchInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, a)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: h.renderer.page(a.KeyPath, "artifacts"),
		Artifact: a,
		Preview:  renderPreview(a),
	})
}

// HandleRaw handles GET /artifacts/{id}/raw: the payload bytes as stored.
// Payloads are never served as HTML; text is text/plain, everything else octet-stream.
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	includeContent := false
	a, err := ops.Fetch(r.Context(), h.db, h.root, ops.FetchInput{ID: id, IncludeContent: &includeContent})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data, err := dump.ReadFile(h.root, a.RelPath)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	contentType := "application/octet-stream"
	if utf8.Valid(data) {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Security-Policy", "sandbox")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": path.Base(a.RelPath),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandlePurge handles POST /artifacts/purge: permanently delete index records.
// Payload files stay on disk.
func (h *Handlers) HandlePurge(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	input := ops.PurgeInput{
		Host: ptrString(r.FormValue("host")),
	}

	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = d
	}

	result, err := ops.Purge(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/artifacts/stats", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseOptionalBool returns nil for an empty or unrecognized value.
func parseOptionalBool(s string) *bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// PageLink builds the list URL for another page with the same filters.
func (d ListPageData) PageLink(offset int) string {
	v := url.Values{}
	for k, val := range map[string]string{"host": d.Host, "key_prefix": d.KeyPrefix, "outcome": d.Outcome} {
		if val != "" {
			v.Set(k, val)
		}
	}
	if d.Pagination.Limit > 0 {
		v.Set("limit", strconv.Itoa(d.Pagination.Limit))
	}
	v.Set("offset", strconv.Itoa(offset))
	return "/artifacts?" + v.Encode()
}
