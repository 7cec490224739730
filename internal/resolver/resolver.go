// Package resolver dereferences the cross-document references left
// unresolved by the parser. Loading is delegated to a caller-supplied Loader
// so the package itself performs no I/O; each document URI is fetched at
// most once per Resolve call.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/parser"
	"github.com/apiweave/wadl2go/internal/xmltree"
)

// Loader fetches one WADL document by URI.
type Loader interface {
	Load(ctx context.Context, uri string) (*xmltree.Element, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, uri string) (*xmltree.Element, error)

func (f LoaderFunc) Load(ctx context.Context, uri string) (*xmltree.Element, error) {
	return f(ctx, uri)
}

// ErrorCode categorizes resolution failures.
type ErrorCode string

const (
	// UnresolvedReference means a ref's target id does not exist in the
	// target document.
	UnresolvedReference ErrorCode = "UnresolvedReference"
	// LoaderFailure means a referenced document could not be loaded or
	// parsed.
	LoaderFailure ErrorCode = "LoaderFailure"
)

// ResolveError is a failed dereference. Ref is the reference that could not
// be satisfied, Path the ancestor chain of the referencing element; Cause is
// set for loader and parse failures.
type ResolveError struct {
	Code  ErrorCode
	Ref   ast.Ref
	Kind  string
	Path  []string
	Cause error
}

func (e *ResolveError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "resolve: %s: %s %s", e.Code, e.Kind, e.Ref)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " (at %s)", strings.Join(e.Path, " > "))
	}
	return b.String()
}

func (e *ResolveError) Unwrap() error { return e.Cause }

// Document is one loaded WADL document with its id index.
type Document struct {
	URI   string
	App   *ast.Application
	Index *ast.Index
}

// Resolution is the outcome of a Resolve call: the root document plus every
// document reachable from it, with all references verified to have targets.
type Resolution struct {
	Root *Document
	// Docs maps document URI to loaded document. The root is stored under
	// its own URI (or "" when it has none).
	Docs map[string]*Document
}

// Options configures a Resolve call.
type Options struct {
	Parse  parser.Options
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Resolve verifies every reference reachable from app, loading referenced
// documents through ld as needed. On failure no partial resolution is
// returned.
func Resolve(ctx context.Context, app *ast.Application, ld Loader, opts Options) (*Resolution, error) {
	idx, err := ast.NewIndex(app)
	if err != nil {
		return nil, err
	}
	root := &Document{URI: app.Base, App: app, Index: idx}
	r := &resolution{
		res:    &Resolution{Root: root, Docs: map[string]*Document{app.Base: root}},
		loader: ld,
		opts:   opts,
	}
	if err := r.resolveDocument(ctx, root); err != nil {
		return nil, err
	}
	return r.res, nil
}

type resolution struct {
	res    *Resolution
	loader Loader
	opts   Options
	path   []string
}

func (r *resolution) push(label string) { r.path = append(r.path, label) }
func (r *resolution) pop()              { r.path = r.path[:len(r.path)-1] }

func (r *resolution) at() []string {
	return append([]string(nil), r.path...)
}

func label(name, key string) string {
	if key == "" {
		return name
	}
	return name + "[" + key + "]"
}

// document returns the loaded document at uri, fetching and parsing it on
// first use. Newly loaded documents are resolved recursively so their own
// outbound refs are verified too.
func (r *resolution) document(ctx context.Context, ref ast.Ref, kind string) (*Document, error) {
	if doc, ok := r.res.Docs[ref.Doc]; ok {
		return doc, nil
	}
	if r.loader == nil {
		return nil, &ResolveError{Code: LoaderFailure, Ref: ref, Kind: kind, Path: r.at(), Cause: fmt.Errorf("no loader configured")}
	}
	r.opts.logger().Debug("loading referenced document", "uri", ref.Doc)
	tree, err := r.loader.Load(ctx, ref.Doc)
	if err != nil {
		return nil, &ResolveError{Code: LoaderFailure, Ref: ref, Kind: kind, Path: r.at(), Cause: err}
	}
	app, err := parser.Parse(tree, ref.Doc, r.opts.Parse)
	if err != nil {
		return nil, &ResolveError{Code: LoaderFailure, Ref: ref, Kind: kind, Path: r.at(), Cause: err}
	}
	idx, err := ast.NewIndex(app)
	if err != nil {
		return nil, &ResolveError{Code: LoaderFailure, Ref: ref, Kind: kind, Path: r.at(), Cause: err}
	}
	doc := &Document{URI: ref.Doc, App: app, Index: idx}
	// Register before descending so reference cycles between documents
	// terminate.
	r.res.Docs[ref.Doc] = doc
	if err := r.resolveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *resolution) resolveDocument(ctx context.Context, doc *Document) error {
	r.push("application")
	defer r.pop()
	for _, rs := range doc.App.Resources {
		r.push("resources")
		for _, res := range rs.Resources {
			if err := r.resolveResource(ctx, doc, res); err != nil {
				return err
			}
		}
		r.pop()
	}
	for _, rt := range doc.App.ResourceTypes {
		r.push(label("resource_type", rt.ID))
		if err := r.resolveMethods(ctx, doc, rt.Methods); err != nil {
			return err
		}
		for _, c := range rt.Children {
			if err := r.resolveResource(ctx, doc, c); err != nil {
				return err
			}
		}
		if err := r.resolveParams(ctx, doc, rt.Params); err != nil {
			return err
		}
		r.pop()
	}
	for _, rep := range doc.App.Representations {
		r.push(label("representation", rep.ID))
		if err := r.resolveParams(ctx, doc, rep.Params); err != nil {
			return err
		}
		r.pop()
	}
	return nil
}

func (r *resolution) resolveResource(ctx context.Context, doc *Document, res *ast.Resource) error {
	key := res.ID
	if key == "" {
		key = res.Path
	}
	r.push(label("resource", key))
	defer r.pop()
	for _, ref := range res.Types {
		if _, err := r.lookupResourceType(ctx, doc, ref); err != nil {
			return err
		}
	}
	if err := r.resolveParams(ctx, doc, res.Params); err != nil {
		return err
	}
	if err := r.resolveMethods(ctx, doc, res.Methods); err != nil {
		return err
	}
	for _, c := range res.Children {
		if err := r.resolveResource(ctx, doc, c); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolution) resolveMethods(ctx context.Context, doc *Document, methods []*ast.Method) error {
	for _, m := range methods {
		key := m.ID
		if key == "" {
			key = m.Name
		}
		r.push(label("method", key))
		if m.Request != nil {
			r.push("request")
			if err := r.resolveParams(ctx, doc, m.Request.Params); err != nil {
				return err
			}
			if err := r.resolveRepresentations(ctx, doc, m.Request.Representations); err != nil {
				return err
			}
			r.pop()
		}
		for _, resp := range m.Responses {
			r.push("response")
			if err := r.resolveParams(ctx, doc, resp.Params); err != nil {
				return err
			}
			if err := r.resolveRepresentations(ctx, doc, resp.Representations); err != nil {
				return err
			}
			r.pop()
		}
		r.pop()
	}
	return nil
}

func (r *resolution) resolveRepresentations(ctx context.Context, doc *Document, reps []*ast.Representation) error {
	for _, rep := range reps {
		r.push(label("representation", rep.ID))
		if !rep.IsRef() {
			if err := r.resolveParams(ctx, doc, rep.Params); err != nil {
				return err
			}
			r.pop()
			continue
		}
		if _, err := r.lookupRepresentation(ctx, doc, rep.Ref); err != nil {
			return err
		}
		r.pop()
	}
	return nil
}

func (r *resolution) resolveParams(ctx context.Context, doc *Document, params []ast.Param) error {
	for i := range params {
		r.push(label("param", params[i].Name))
		for _, link := range params[i].Links {
			if link.ResourceType.IsZero() {
				continue
			}
			if _, err := r.lookupResourceType(ctx, doc, link.ResourceType); err != nil {
				return err
			}
		}
		r.pop()
	}
	return nil
}

func (r *resolution) lookupResourceType(ctx context.Context, owner *Document, ref ast.Ref) (*ast.ResourceType, error) {
	doc, err := r.target(ctx, owner, ref, "resource_type")
	if err != nil {
		return nil, err
	}
	rt, ok := doc.Index.ResourceType(ref.ID)
	if !ok {
		return nil, &ResolveError{Code: UnresolvedReference, Ref: ref, Kind: "resource_type", Path: r.at()}
	}
	return rt, nil
}

func (r *resolution) lookupRepresentation(ctx context.Context, owner *Document, ref ast.Ref) (*ast.Representation, error) {
	doc, err := r.target(ctx, owner, ref, "representation")
	if err != nil {
		return nil, err
	}
	rep, ok := doc.Index.Representation(ref.ID)
	if !ok {
		return nil, &ResolveError{Code: UnresolvedReference, Ref: ref, Kind: "representation", Path: r.at()}
	}
	return rep, nil
}

func (r *resolution) target(ctx context.Context, owner *Document, ref ast.Ref, kind string) (*Document, error) {
	if ref.Local() {
		return owner, nil
	}
	return r.document(ctx, ref, kind)
}

// ResourceType dereferences a resource_type ref against the resolution.
// ref.Doc empty means the root document.
func (res *Resolution) ResourceType(owner *Document, ref ast.Ref) (*ast.ResourceType, bool) {
	doc := owner
	if !ref.Local() {
		var ok bool
		doc, ok = res.Docs[ref.Doc]
		if !ok {
			return nil, false
		}
	}
	return doc.Index.ResourceType(ref.ID)
}

// Representation dereferences a representation ref against the resolution.
func (res *Resolution) Representation(owner *Document, ref ast.Ref) (*ast.Representation, bool) {
	doc := owner
	if !ref.Local() {
		var ok bool
		doc, ok = res.Docs[ref.Doc]
		if !ok {
			return nil, false
		}
	}
	return doc.Index.Representation(ref.ID)
}
