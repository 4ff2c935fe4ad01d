package projection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/eventbus"
	"github.com/skaldby/projoin/internal/events"
	"github.com/skaldby/projoin/internal/schema"
	"github.com/skaldby/projoin/internal/workpool"
)

// QueryExecutor runs the sub-queries reference joins need. Implementations
// wrap the storage engine; the projection engine never queries storage
// directly.
//
// Query must return the documents of target matching ids, carrying at least
// the id field plus the projected fields. A nil projection means all fields.
// Implementations may be called concurrently for distinct reference joins
// of the same batch and must not mutate ids.
type QueryExecutor interface {
	Query(ctx context.Context, target schema.Type, projection []string, ids []any) ([]document.Document, error)
}

// QueryFunc adapts a function to the QueryExecutor interface.
type QueryFunc func(ctx context.Context, target schema.Type, projection []string, ids []any) ([]document.Document, error)

func (f QueryFunc) Query(ctx context.Context, target schema.Type, projection []string, ids []any) ([]document.Document, error) {
	return f(ctx, target, projection, ids)
}

// Helper binds one document type and one projection request. Planning runs
// once at construction; Project can then be called per result batch, from
// multiple goroutines if desired.
type Helper struct {
	docType schema.Type
	plan    *plan
	expand  bool
	pool    *workpool.Pool
}

// Option configures a Helper.
type Option func(*Helper)

// WithExpandReferenceIDs makes Project expand reference fields not covered
// by a join into bare {id: ...} placeholder documents.
func WithExpandReferenceIDs() Option {
	return func(h *Helper) { h.expand = true }
}

// WithPool overrides the worker pool used for concurrent sub-queries.
// The default is the process-wide shared pool.
func WithPool(p *workpool.Pool) Option {
	return func(h *Helper) { h.pool = p }
}

// NewHelper plans projection for docType and returns a reusable helper.
// It fails with InvalidFieldsError when a requested path cannot resolve
// against the type's declared fields.
func NewHelper(docType schema.Type, projection []string, opts ...Option) (*Helper, error) {
	h := &Helper{docType: docType}
	for _, opt := range opts {
		opt(h)
	}
	if h.pool == nil {
		h.pool = workpool.Shared()
	}
	p, err := buildPlan(docType, projection)
	if err != nil {
		return nil, err
	}
	h.plan = p
	return h, nil
}

// DocProjection returns the normalized local projection to use in the main
// query. Nil means no restriction was requested.
func (h *Helper) DocProjection() []string {
	return append([]string(nil), h.plan.local...)
}

// JoinFields returns the reference fields a Project call will join, sorted.
func (h *Helper) JoinFields() []string {
	return append([]string(nil), h.plan.joinFields...)
}

// Project resolves reference joins for one batch of query results, mutating
// and returning results. Raw foreign ids under joined reference fields are
// replaced by shared proxies and filled in from sub-queries run through
// exec. The first sub-query error aborts the batch and is returned after
// in-flight sub-queries have drained.
func (h *Helper) Project(ctx context.Context, results []document.Document, exec QueryExecutor) ([]document.Document, error) {
	start := time.Now()
	eventbus.Publish(ctx, events.ProjectStart{
		DocType:    h.docType.Name(),
		Results:    len(results),
		JoinFields: h.plan.joinFields,
	})
	err := h.project(ctx, results, exec)
	eventbus.Publish(ctx, events.ProjectFinish{
		DocType:  h.docType.Name(),
		Results:  len(results),
		Err:      err,
		Duration: time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type pendingJoin struct {
	field string
	spec  JoinSpec
	ids   []any
}

func (h *Helper) project(ctx context.Context, results []document.Document, exec QueryExecutor) error {
	m := newMatcher()
	reg := newRegistry()

	// Id collection is single-threaded; it both gathers the distinct ids
	// per join and splices the shared proxies into every result slot.
	var pending []pendingJoin
	for _, field := range h.plan.joinFields {
		spec := h.plan.joins[field]
		ids := collectIDs(m, reg, h.docType, results, field)
		if len(ids) == 0 {
			continue
		}
		pending = append(pending, pendingJoin{field: field, spec: spec, ids: ids})
	}

	switch len(pending) {
	case 0:
	case 1:
		if err := h.runJoin(ctx, exec, reg, pending[0]); err != nil {
			return err
		}
	default:
		errs := make([]error, len(pending))
		var wg sync.WaitGroup
		for i := range pending {
			i := i
			wg.Add(1)
			h.pool.Go(func() {
				defer wg.Done()
				errs[i] = h.runJoin(ctx, exec, reg, pending[i])
			})
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}

	if h.expand {
		skip := make(map[string]struct{}, len(h.plan.joinFields))
		for _, field := range h.plan.joinFields {
			skip[field] = struct{}{}
		}
		for _, res := range results {
			expandReferenceFields(m, h.docType, res, skip)
		}
	}
	return nil
}

// collectIDs searches every result for the reference field, replacing each
// raw id (or each element of an id list) with the registry's shared proxy,
// and returns the distinct usable ids observed.
func collectIDs(m *matcher, reg *registry, t schema.Type, results []document.Document, field string) []any {
	seen := make(map[any]struct{})
	var ids []any
	proxyOrKeep := func(v any) any {
		if document.Falsy(v) {
			return newProxy(v)
		}
		if !document.ComparableID(v) {
			return v
		}
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			ids = append(ids, v)
		}
		return reg.getOrCreate(v)
	}
	replace := func(v any) any {
		if seq, ok := v.([]any); ok {
			out := make([]any, len(seq))
			for i, elem := range seq {
				out[i] = proxyOrKeep(elem)
			}
			return out
		}
		return proxyOrKeep(v)
	}
	for _, res := range results {
		m.search(t, res, field, replace)
	}
	return ids
}

func (h *Helper) runJoin(ctx context.Context, exec QueryExecutor, reg *registry, pj pendingJoin) error {
	var proj []string
	if len(pj.spec.Fields) > 0 {
		proj = pj.spec.Fields
	}
	start := time.Now()
	eventbus.Publish(ctx, events.SubQueryStart{
		DocType:    h.docType.Name(),
		RefField:   pj.field,
		TargetType: pj.spec.Target.Name(),
		IDs:        len(pj.ids),
	})
	docs, err := exec.Query(ctx, pj.spec.Target, proj, pj.ids)
	eventbus.Publish(ctx, events.SubQueryFinish{
		DocType:    h.docType.Name(),
		RefField:   pj.field,
		TargetType: pj.spec.Target.Name(),
		IDs:        len(pj.ids),
		Fetched:    len(docs),
		Err:        err,
		Duration:   time.Since(start),
	})
	if err != nil {
		return err
	}
	for _, doc := range docs {
		reg.applyUpdate(doc)
	}
	return nil
}

// expandReferenceFields replaces raw ids under the type's reference fields
// (minus skip) with bare {id: ...} placeholders. No registry is involved:
// nothing will fill these in later.
func expandReferenceFields(m *matcher, t schema.Type, doc document.Document, skip map[string]struct{}) {
	fields := make([]string, 0, len(t.ReferenceFields()))
	for field := range t.ReferenceFields() {
		if _, ok := skip[field]; ok {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		m.search(t, doc, field, expandValue)
	}
}

func expandValue(v any) any {
	if seq, ok := v.([]any); ok {
		out := make([]any, len(seq))
		for i, elem := range seq {
			out[i] = wrapID(elem)
		}
		return out
	}
	return wrapID(v)
}

func wrapID(v any) any {
	if !document.ComparableID(v) && v != nil {
		return v
	}
	return newProxy(v)
}

// ExpandReferenceIDs replaces every reference field's raw id(s) in doc with
// bare {id: ...} placeholders. No projection planning is involved.
func ExpandReferenceIDs(t schema.Type, doc document.Document) {
	expandReferenceFields(newMatcher(), t, doc, nil)
}
