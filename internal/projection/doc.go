// Package projection implements field projection and reference joining over
// schema-flexible documents.
//
// # Overview
//
// A caller requests a flat list of dotted field paths for one document type.
// The package:
//   - Plans the request once into a local projection (fields of the type
//     itself, wildcards expanded, prefixes collapsed) and a set of
//     reference-join specs (one per distinct reference field, each with the
//     target type and its own sub-projection).
//   - Projects each query result batch: collects the foreign ids behind every
//     joined reference field, replaces them in place with shared proxy
//     documents, fetches the referenced documents through an injected
//     QueryExecutor (concurrently when more than one join is pending), and
//     merges the fetched fields into the proxies, which updates every slot
//     that references the same id at once.
//   - Optionally expands reference fields that are not part of any join into
//     bare {id: ...} placeholder documents.
//
// # Planning
//
// Requested paths classify as follows. A path that extends a declared
// reference field (shares it as a proper dotted prefix) becomes part of that
// field's JoinSpec; its remainder joins that join's sub-projection. A path
// that exactly equals a reference field stays a plain local field and
// triggers no join; when another path does trigger a join on that field, the
// bare occurrence is dropped and only the raw id is retrieved. Everything
// else is local: a trailing ".*" is stripped, "*" expands to the declared
// fields, "id" is always included, and a field that is a strict dotted
// descendant of another retained field is dropped so the store returns the
// most inclusive data. Any local field whose first segment is not declared
// fails planning with InvalidFieldsError.
//
// # Projection batches
//
// Each Project call is independent: it owns a fresh proxy registry and a
// fresh search-path cache, so a Helper is safe for concurrent batches. The
// caller blocks until every required sub-query has completed; the first
// sub-query error aborts the call after in-flight siblings are awaited, so
// the registry cannot be written after Project returns. Proxies left
// unresolved by an aborted batch still read as {id: ...}.
package projection
