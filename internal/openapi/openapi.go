// Package openapi exports a resolved WADL document as an OpenAPI 3.0
// description. The mapping is lossy where the models disagree: matrix
// parameters become query parameters, and resource_type links are dropped.
package openapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/resolver"
	"github.com/apiweave/wadl2go/internal/unify"
)

// Export converts the resolution's root document into an OpenAPI 3
// description. Schemas come from the unified shape table so structurally
// identical representations share one component.
func Export(res *resolver.Resolution, table *unify.Table) (*openapi3.T, error) {
	app := res.Root.App
	doc := &openapi3.T{
		OpenAPI:    "3.0.3",
		Info:       info(app),
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}

	for _, s := range table.Shapes {
		doc.Components.Schemas[s.Name] = openapi3.NewSchemaRef("", shapeSchema(s))
	}

	e := &exporter{res: res, table: table, doc: doc}
	for _, rs := range app.Resources {
		if rs.Base != "" {
			doc.Servers = append(doc.Servers, &openapi3.Server{URL: rs.Base})
		}
		for _, r := range rs.Resources {
			if err := e.resource(r, "", nil); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func info(app *ast.Application) *openapi3.Info {
	in := &openapi3.Info{Title: "API", Version: "0.0.0"}
	if len(app.Docs) > 0 {
		if app.Docs[0].Title != "" {
			in.Title = app.Docs[0].Title
		}
		in.Description = app.Docs[0].Content
	}
	return in
}

type exporter struct {
	res   *resolver.Resolution
	table *unify.Table
	doc   *openapi3.T
}

func (e *exporter) resource(r *ast.Resource, prefix string, inherited []ast.Param) error {
	full := joinPath(prefix, r.Path)
	params := append(append([]ast.Param(nil), inherited...), r.Params...)

	for _, ref := range r.Types {
		rt, ok := e.res.ResourceType(e.res.Root, ref)
		if !ok {
			return fmt.Errorf("openapi: resource_type %s not resolvable", ref)
		}
		params = append(params, rt.Params...)
		for _, m := range rt.Methods {
			if err := e.method(full, m, params); err != nil {
				return err
			}
		}
	}
	for _, m := range r.Methods {
		if err := e.method(full, m, params); err != nil {
			return err
		}
	}
	for _, c := range r.Children {
		if err := e.resource(c, full, params); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) method(path string, m *ast.Method, inherited []ast.Param) error {
	item := e.doc.Paths[path]
	if item == nil {
		item = &openapi3.PathItem{}
		e.doc.Paths[path] = item
	}

	op := &openapi3.Operation{OperationID: m.ID, Responses: openapi3.Responses{}}
	if len(m.Docs) > 0 {
		op.Summary = m.Docs[0].Title
		op.Description = m.Docs[0].Content
	}

	params := append([]ast.Param(nil), inherited...)
	if m.Request != nil {
		params = append(params, m.Request.Params...)
	}
	seen := make(map[string]struct{})
	for i := range params {
		p := &params[i]
		loc, ok := paramLocation(p.Style)
		if !ok {
			continue
		}
		key := loc + "/" + p.Name
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: e.parameter(p, loc)})
	}

	if m.Request != nil {
		if rb := e.requestBody(m.Request.Representations); rb != nil {
			op.RequestBody = rb
		}
	}

	for i := range m.Responses {
		e.response(op, &m.Responses[i])
	}
	if len(op.Responses) == 0 {
		desc := "declared outcome"
		op.Responses["default"] = &openapi3.ResponseRef{
			Value: &openapi3.Response{Description: &desc},
		}
	}

	switch m.Name {
	case "GET":
		item.Get = op
	case "PUT":
		item.Put = op
	case "POST":
		item.Post = op
	case "DELETE":
		item.Delete = op
	case "PATCH":
		item.Patch = op
	case "HEAD":
		item.Head = op
	case "OPTIONS":
		item.Options = op
	default:
		return fmt.Errorf("openapi: no operation slot for method %q at %s", m.Name, path)
	}
	return nil
}

// paramLocation maps a WADL style to an OpenAPI parameter location. Matrix
// has no OpenAPI equivalent and is exported as query; plain params are body
// fields and handled through schemas instead.
func paramLocation(style ast.ParamStyle) (string, bool) {
	switch style {
	case ast.StyleTemplate:
		return "path", true
	case ast.StyleQuery, ast.StyleMatrix:
		return "query", true
	case ast.StyleHeader:
		return "header", true
	default:
		return "", false
	}
}

func (e *exporter) parameter(p *ast.Param, loc string) *openapi3.Parameter {
	out := &openapi3.Parameter{
		Name:     p.Name,
		In:       loc,
		Required: p.Required || loc == "path",
		Schema:   openapi3.NewSchemaRef("", valueSchema(p.Type, optionValues(p.Options))),
	}
	if p.Style == ast.StyleMatrix {
		out.Description = "matrix parameter in the source description"
	}
	if p.Doc != nil {
		out.Description = strings.TrimSpace(p.Doc.Content)
	}
	return out
}

func (e *exporter) requestBody(reps []*ast.Representation) *openapi3.RequestBodyRef {
	content := e.content(reps)
	if len(content) == 0 {
		return nil
	}
	return &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{Content: content}}
}

func (e *exporter) response(op *openapi3.Operation, resp *ast.Response) {
	content := e.content(resp.Representations)
	desc := "declared outcome"
	value := &openapi3.Response{Description: &desc}
	if len(content) > 0 {
		value.Content = content
	}
	ref := &openapi3.ResponseRef{Value: value}
	if len(resp.Status) == 0 {
		op.Responses["default"] = ref
		return
	}
	for _, s := range resp.Status {
		op.Responses[strconv.Itoa(s)] = ref
	}
}

// content maps representations to media-type entries referencing component
// schemas.
func (e *exporter) content(reps []*ast.Representation) openapi3.Content {
	out := openapi3.Content{}
	for _, rep := range reps {
		target := rep
		if rep.IsRef() {
			t, ok := e.res.Representation(e.res.Root, rep.Ref)
			if !ok {
				continue
			}
			target = t
		}
		mt := target.MediaType
		if mt == "" {
			mt = "application/octet-stream"
		}
		var schema *openapi3.SchemaRef
		if s, ok := e.table.Lookup(e.res, e.res.Root, target); ok {
			schema = openapi3.NewSchemaRef("#/components/schemas/"+s.Name, nil)
		}
		out[mt] = openapi3.NewMediaType().WithSchemaRef(schema)
	}
	return out
}

func shapeSchema(s *unify.Shape) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range s.Fields {
		fs := valueSchema(f.Type, f.Options)
		if f.Repeating {
			fs = openapi3.NewArraySchema().WithItems(fs)
		}
		if f.Doc != nil {
			fs.Description = strings.TrimSpace(f.Doc.Content)
		}
		schema.WithProperty(f.Name, fs)
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func optionValues(opts []ast.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

// valueSchema maps a WADL value type to an OpenAPI schema.
func valueSchema(wadlType string, enum []string) *openapi3.Schema {
	t := wadlType
	if i := strings.IndexByte(t, ':'); i >= 0 {
		t = t[i+1:]
	}
	var s *openapi3.Schema
	switch t {
	case "int", "integer", "short", "byte", "nonNegativeInteger", "positiveInteger":
		s = openapi3.NewIntegerSchema()
	case "long", "unsignedInt":
		s = openapi3.NewInt64Schema()
	case "boolean":
		s = openapi3.NewBoolSchema()
	case "decimal", "double", "float":
		s = openapi3.NewFloat64Schema()
	case "date":
		s = openapi3.NewDateTimeSchema()
		s.Format = "date"
	case "dateTime", "time":
		s = openapi3.NewDateTimeSchema()
	case "base64Binary", "hexBinary", "binary":
		s = openapi3.NewBytesSchema()
	default:
		s = openapi3.NewStringSchema()
	}
	for _, v := range enum {
		s.Enum = append(s.Enum, v)
	}
	return s
}

func joinPath(prefix, seg string) string {
	seg = strings.Trim(seg, "/")
	if seg == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return strings.TrimRight(prefix, "/") + "/" + seg
}
