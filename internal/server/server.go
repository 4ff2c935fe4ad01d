// Package server exposes the projection engine over HTTP. It parses
// projection requests, fetches the root result set from the document store,
// runs reference joins, and writes the joined documents as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/eventbus"
	"github.com/skaldby/projoin/internal/events"
	"github.com/skaldby/projoin/internal/projection"
	"github.com/skaldby/projoin/internal/reqid"
	"github.com/skaldby/projoin/internal/schema"
	"github.com/skaldby/projoin/internal/selection"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler is an http.Handler serving projection requests against a document
// store.
type Handler struct {
	registry *schema.Registry
	exec     projection.QueryExecutor
	opt      Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }

// New creates a projection HTTP handler over the given registry and store.
func New(registry *schema.Registry, exec projection.QueryExecutor, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{registry: registry, exec: exec, opt: op}
}

// ProjectRequest is the request body of POST /v1/project.
//
// Projection may be given as a flat path list or, alternatively, as a
// GraphQL selection set in Query. Ids limits the root result set; absent
// ids mean every document of the type.
type ProjectRequest struct {
	Type               string   `json:"type"`
	Projection         []string `json:"projection,omitempty"`
	Query              string   `json:"query,omitempty"`
	IDs                []any    `json:"ids,omitempty"`
	ExpandReferenceIDs bool     `json:"expand_reference_ids,omitempty"`
}

// ProjectResponse carries the joined documents or an error message.
type ProjectResponse struct {
	Data  []document.Document `json:"data,omitempty"`
	Error string              `json:"error,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Method: r.Method, Path: r.URL.Path})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Method: r.Method, Path: r.URL.Path, Status: status, Duration: time.Since(start)})
	}()

	if r.Method != http.MethodPost || r.URL.Path != "/v1/project" {
		status = http.StatusNotFound
		if r.URL.Path == "/v1/project" {
			status = http.StatusMethodNotAllowed
		}
		h.writeJSON(w, status, ProjectResponse{Error: http.StatusText(status)})
		return
	}

	req, err := parseRequest(r, h.opt.MaxBodyBytes)
	if err != nil {
		status = http.StatusBadRequest
		h.writeJSON(w, status, ProjectResponse{Error: err.Error()})
		return
	}

	res, herr := h.project(ctx, req)
	if herr != nil {
		status = herr.status
		h.writeJSON(w, status, ProjectResponse{Error: herr.Error()})
		return
	}
	if res == nil {
		res = []document.Document{}
	}
	h.writeJSON(w, status, ProjectResponse{Data: res})
}

type handlerError struct {
	status int
	err    error
}

func (e *handlerError) Error() string { return e.err.Error() }

func badRequest(err error) *handlerError {
	return &handlerError{status: http.StatusBadRequest, err: err}
}

func (h *Handler) project(ctx context.Context, req ProjectRequest) ([]document.Document, *handlerError) {
	docType, ok := h.registry.Lookup(req.Type)
	if !ok {
		return nil, badRequest(fmt.Errorf("unknown document type %q", req.Type))
	}

	paths := req.Projection
	if req.Query != "" {
		if len(paths) > 0 {
			return nil, badRequest(fmt.Errorf("projection and query are mutually exclusive"))
		}
		var err error
		paths, err = selection.Paths(req.Query)
		if err != nil {
			return nil, badRequest(err)
		}
	}

	var opts []projection.Option
	if req.ExpandReferenceIDs {
		opts = append(opts, projection.WithExpandReferenceIDs())
	}
	helper, err := projection.NewHelper(docType, paths, opts...)
	if err != nil {
		var invalid *projection.InvalidFieldsError
		if errors.As(err, &invalid) {
			return nil, badRequest(err)
		}
		return nil, &handlerError{status: http.StatusInternalServerError, err: err}
	}

	results, err := h.exec.Query(ctx, docType, helper.DocProjection(), req.IDs)
	if err != nil {
		return nil, &handlerError{status: http.StatusBadGateway, err: err}
	}
	joined, err := helper.Project(ctx, results, h.exec)
	if err != nil {
		return nil, &handlerError{status: http.StatusBadGateway, err: err}
	}
	return joined, nil
}

func parseRequest(r *http.Request, maxBody int64) (ProjectRequest, error) {
	body := io.Reader(r.Body)
	if maxBody > 0 {
		body = io.LimitReader(r.Body, maxBody+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return ProjectRequest{}, fmt.Errorf("read body: %w", err)
	}
	if maxBody > 0 && int64(len(data)) > maxBody {
		return ProjectRequest{}, fmt.Errorf("request body exceeds %d bytes", maxBody)
	}
	var req ProjectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ProjectRequest{}, fmt.Errorf("invalid request JSON: %w", err)
	}
	if req.Type == "" {
		return ProjectRequest{}, fmt.Errorf("missing 'type'")
	}
	return req, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
