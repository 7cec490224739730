// Package codegen emits a Go client package from a resolved WADL document
// and its unified shape table. Generated code depends only on the runtime
// client package; all network behavior stays behind the Transport interface.
package codegen

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/tools/imports"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/resolver"
	"github.com/apiweave/wadl2go/internal/unify"
)

// ErrorCode categorizes generation failures.
type ErrorCode string

const (
	NamingCollision        ErrorCode = "NamingCollision"
	UnsupportedTypeMapping ErrorCode = "UnsupportedTypeMapping"
	CyclicDefinitionMisuse ErrorCode = "CyclicDefinitionMisuse"
)

// GenerateError is a generation failure tied to one declaration.
type GenerateError struct {
	Code    ErrorCode
	Subject string
	Message string
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("codegen: %s: %s: %s", e.Code, e.Subject, e.Message)
}

// Options controls the shape of the generated package.
type Options struct {
	// PackageName is the package clause of the generated file.
	PackageName string `validate:"required"`
	// HTTPMode selects blocking methods ("sync") or channel-returning
	// methods ("async").
	HTTPMode string `validate:"oneof=sync async"`
	// NamingStyle controls wire names in struct tags: "camel" keeps the
	// declared param name, "snake" normalizes it to snake_case.
	NamingStyle string `validate:"oneof=snake camel"`
	// MediaTypePreference orders representation selection when a request
	// or response declares more than one.
	MediaTypePreference []string `validate:"min=1,dive,required"`
	// RuntimeImport is the import path of the runtime client package.
	RuntimeImport      string `validate:"required"`
	IncludeDocComments bool
	StripCodeExamples  bool
	// InlineSingleUse emits representations that carry no declared id and
	// are used by exactly one method as anonymous struct types at the call
	// site instead of named top-level types.
	InlineSingleUse bool
}

// DefaultOptions returns the options used when the caller sets nothing.
func DefaultOptions() Options {
	return Options{
		PackageName:         "apiclient",
		HTTPMode:            "sync",
		NamingStyle:         "camel",
		MediaTypePreference: []string{"application/json"},
		RuntimeImport:       "github.com/apiweave/wadl2go/client",
		IncludeDocComments:  true,
	}
}

var validate = validator.New()

// Generate produces one formatted Go source file.
func Generate(res *resolver.Resolution, table *unify.Table, opts Options) ([]byte, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("codegen options: %w", err)
	}
	g := &generator{
		res:   res,
		table: table,
		opts:  opts,
		names: map[string]string{
			"Client":    "runtime",
			"NewClient": "runtime",
			"joinPath":  "runtime",
			"pathValue": "runtime",
		},
		enumType:   make(map[string]string),
		structName: make(map[string]string),
		inline:     make(map[string]string),
		typeHandle: make(map[string]string),
	}
	if err := g.run(); err != nil {
		return nil, err
	}
	src, err := imports.Process("client.gen.go", g.buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w\n%s", err, g.buf.Bytes())
	}
	return src, nil
}

type generator struct {
	res   *resolver.Resolution
	table *unify.Table
	opts  Options
	buf   bytes.Buffer

	names      map[string]string // emitted top-level identifier -> subject
	enumType   map[string]string // ordered value list key -> enum type name
	structName map[string]string // shape key -> struct name
	inline     map[string]string // shape key -> anonymous struct literal
	typeHandle map[string]string // resource_type (doc#id) -> emitted handle
}

func (g *generator) printf(format string, args ...any) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *generator) claim(name, subject string) error {
	if prev, taken := g.names[name]; taken {
		return &GenerateError{
			Code:    NamingCollision,
			Subject: subject,
			Message: fmt.Sprintf("generated name %q already used by %s", name, prev),
		}
	}
	g.names[name] = subject
	return nil
}

func (g *generator) run() error {
	g.header()
	if err := g.emitEnums(); err != nil {
		return err
	}
	if err := g.emitStructs(); err != nil {
		return err
	}
	if err := g.emitClient(); err != nil {
		return err
	}
	g.emitHelpers()
	return nil
}

func (g *generator) header() {
	g.printf("// Code generated by wadl2go. DO NOT EDIT.\n\n")
	g.printf("package %s\n\n", g.opts.PackageName)
	g.printf("import (\n")
	for _, imp := range []string{"context", "encoding/json", "fmt", "net/http", "net/url", "strings", "time"} {
		g.printf("\t%q\n", imp)
	}
	g.printf("\n\t%q\n)\n\n", g.opts.RuntimeImport)
}

func (g *generator) emitEnums() error {
	for _, e := range g.table.Enums {
		typeName := exportedName(e.Name)
		if typeName == "" {
			return &GenerateError{Code: NamingCollision, Subject: e.Name, Message: "enum name is empty after normalization"}
		}
		if err := g.claim(typeName, "enum "+e.Name); err != nil {
			return err
		}
		g.enumType[strings.Join(e.Values, "\x00")] = typeName
		g.printf("// %s enumerates the values of the %q parameter.\n", typeName, e.Name)
		g.printf("type %s string\n\nconst (\n", typeName)
		seen := make(map[string]struct{})
		for _, v := range e.Values {
			constName := typeName + exportedName(v)
			if _, dup := seen[constName]; dup {
				return &GenerateError{
					Code:    NamingCollision,
					Subject: e.Name,
					Message: fmt.Sprintf("option values map to the same constant %q", constName),
				}
			}
			seen[constName] = struct{}{}
			g.printf("\t%s %s = %q\n", constName, typeName, v)
		}
		g.printf(")\n\n")
	}
	return nil
}

func (g *generator) emitStructs() error {
	var uses map[string]int
	if g.opts.InlineSingleUse {
		uses = g.countShapeUses()
	}
	for _, s := range g.table.Shapes {
		if g.opts.InlineSingleUse && len(s.IDs) == 0 && uses[s.Key] == 1 {
			lit, err := g.structLiteral(s)
			if err != nil {
				return err
			}
			g.inline[s.Key] = lit
			continue
		}
		name := exportedName(s.Name)
		if name == "" {
			return &GenerateError{Code: NamingCollision, Subject: s.Name, Message: "shape name is empty after normalization"}
		}
		if err := g.claim(name, "representation "+s.Name); err != nil {
			return err
		}
		g.structName[s.Key] = name

		if g.opts.IncludeDocComments {
			if text := g.shapeDoc(s); text != "" {
				g.comment(text)
			} else {
				g.printf("// %s is the %s representation.\n", name, s.Name)
			}
		}
		fields, err := g.structFields(s, true)
		if err != nil {
			return err
		}
		g.printf("type %s struct {\n%s}\n\n", name, fields)
	}
	return nil
}

// structFields renders the field block shared by named types and inlined
// anonymous types. Doc comments are only written for named types.
func (g *generator) structFields(s *unify.Shape, withDocs bool) (string, error) {
	var b strings.Builder
	fieldNames := make(map[string]string)
	for _, f := range s.Fields {
		fieldName := exportedName(f.Name)
		if fieldName == "" {
			return "", &GenerateError{Code: NamingCollision, Subject: s.Name + "." + f.Name, Message: "field name is empty after normalization"}
		}
		if prev, dup := fieldNames[fieldName]; dup {
			return "", &GenerateError{
				Code:    NamingCollision,
				Subject: s.Name,
				Message: fmt.Sprintf("fields %q and %q map to the same Go name %q", prev, f.Name, fieldName),
			}
		}
		fieldNames[fieldName] = f.Name

		typ, err := g.fieldType(s.Name, f)
		if err != nil {
			return "", err
		}
		if withDocs && g.opts.IncludeDocComments && f.Doc != nil {
			if text := docText(*f.Doc, g.opts.StripCodeExamples); text != "" {
				fmt.Fprintf(&b, "\t// %s\n", strings.ReplaceAll(text, "\n", "\n\t// "))
			}
		}
		tag := g.wireName(f.Name)
		if !f.Required {
			tag += ",omitempty"
		}
		fmt.Fprintf(&b, "\t%s %s `json:%q`\n", fieldName, typ, tag)
	}
	return b.String(), nil
}

// structLiteral renders a shape as an anonymous struct type usable inside a
// method signature.
func (g *generator) structLiteral(s *unify.Shape) (string, error) {
	fields, err := g.structFields(s, false)
	if err != nil {
		return "", err
	}
	return "struct {\n" + fields + "}", nil
}

// countShapeUses counts how many request or response sites reference each
// shape, resource_type contributions included once per using resource.
func (g *generator) countShapeUses() map[string]int {
	counts := make(map[string]int)
	countReps := func(owner *resolver.Document, reps []*ast.Representation) {
		if rep := g.prefer(owner, reps); rep != nil && isJSON(rep.MediaType) {
			if s, ok := g.table.Lookup(g.res, owner, rep); ok {
				counts[s.Key]++
			}
		}
	}
	var walk func(r *ast.Resource, owner *resolver.Document, seen map[string]bool)
	walk = func(r *ast.Resource, owner *resolver.Document, seen map[string]bool) {
		eff, err := g.flatten(r, owner, seen)
		if err != nil {
			return
		}
		for _, m := range eff.methods {
			o := eff.owners[m]
			if m.Request != nil {
				countReps(o, m.Request.Representations)
			}
			for i := range m.Responses {
				countReps(o, m.Responses[i].Representations)
			}
		}
		for _, c := range eff.children {
			childSeen := make(map[string]bool, len(seen))
			for k, v := range seen {
				childSeen[k] = v
			}
			walk(c, eff.childOwners[c], childSeen)
		}
	}
	for _, rs := range g.res.Root.App.Resources {
		for _, r := range rs.Resources {
			walk(r, g.res.Root, make(map[string]bool))
		}
	}
	return counts
}

func (g *generator) shapeDoc(s *unify.Shape) string {
	if len(s.Docs) == 0 {
		return ""
	}
	return docText(s.Docs[0], g.opts.StripCodeExamples)
}

func (g *generator) comment(text string) {
	for _, line := range strings.Split(text, "\n") {
		g.printf("// %s\n", line)
	}
}

// wireName is the name written into the json tag.
func (g *generator) wireName(declared string) string {
	if g.opts.NamingStyle == "snake" {
		return snakeName(declared)
	}
	return declared
}

func (g *generator) fieldType(owner string, f unify.Field) (string, error) {
	var base string
	if len(f.Options) > 0 {
		if t, ok := g.enumType[strings.Join(f.Options, "\x00")]; ok {
			base = t
		}
	}
	if base == "" {
		t, ok := goType(f.Type)
		if !ok {
			return "", &GenerateError{
				Code:    UnsupportedTypeMapping,
				Subject: owner + "." + f.Name,
				Message: fmt.Sprintf("no Go mapping for type %q", f.Type),
			}
		}
		base = t
	}
	switch {
	case f.Repeating:
		return "[]" + base, nil
	case !f.Required && base != "[]byte":
		return "*" + base, nil
	default:
		return base, nil
	}
}

// goType maps a WADL/XML-Schema value type to its Go representation.
func goType(wadlType string) (string, bool) {
	t := wadlType
	if i := strings.IndexByte(t, ':'); i >= 0 {
		t = t[i+1:]
	}
	switch t {
	case "", "string", "anyURI", "token", "NMTOKEN", "ID", "IDREF":
		return "string", true
	case "int", "integer", "short", "byte", "nonNegativeInteger", "positiveInteger":
		return "int", true
	case "long", "unsignedInt":
		return "int64", true
	case "boolean":
		return "bool", true
	case "date", "dateTime", "time":
		return "time.Time", true
	case "decimal", "double", "float":
		return "float64", true
	case "base64Binary", "hexBinary", "binary":
		return "[]byte", true
	default:
		return "", false
	}
}

// effective is a resource with its referenced resource_types folded in.
// Methods and children contributed by a cross-document resource_type keep
// their defining document so representation refs dereference correctly.
type effective struct {
	label       string // identifier source: id if set, else path slug
	path        string
	params      []ast.Param
	methods     []*ast.Method
	owners      map[*ast.Method]*resolver.Document
	children    []*ast.Resource
	childOwners map[*ast.Resource]*resolver.Document
	types       []string // resource_type keys expanded at this node
}

// typeTarget dereferences a resource_type ref together with its defining
// document.
func (g *generator) typeTarget(owner *resolver.Document, ref ast.Ref) (*ast.ResourceType, *resolver.Document, bool) {
	doc := owner
	if !ref.Local() {
		d, ok := g.res.Docs[ref.Doc]
		if !ok {
			return nil, nil, false
		}
		doc = d
	}
	rt, ok := doc.Index.ResourceType(ref.ID)
	return rt, doc, ok
}

func typeKey(doc *resolver.Document, rt *ast.ResourceType) string {
	return doc.URI + "#" + rt.ID
}

// flatten merges the methods, params, and child resources contributed by a
// resource's type references. A type already on the expansion path (seen) is
// skipped: recursive resource_types close over the handle emitted for them
// instead of being inlined.
func (g *generator) flatten(r *ast.Resource, owner *resolver.Document, seen map[string]bool) (*effective, error) {
	label := r.ID
	if label == "" {
		label = pathSlug(r.Path)
	}
	eff := &effective{
		label:       label,
		path:        r.Path,
		params:      append([]ast.Param(nil), r.Params...),
		owners:      make(map[*ast.Method]*resolver.Document),
		childOwners: make(map[*ast.Resource]*resolver.Document),
	}
	add := func(doc *resolver.Document, methods []*ast.Method, children []*ast.Resource) {
		for _, m := range methods {
			eff.methods = append(eff.methods, m)
			eff.owners[m] = doc
		}
		for _, c := range children {
			eff.children = append(eff.children, c)
			eff.childOwners[c] = doc
		}
	}
	add(owner, r.Methods, r.Children)
	for _, ref := range r.Types {
		rt, doc, ok := g.typeTarget(owner, ref)
		if !ok {
			return nil, &GenerateError{
				Code:    CyclicDefinitionMisuse,
				Subject: r.Path,
				Message: fmt.Sprintf("resource_type %s not resolvable", ref),
			}
		}
		key := typeKey(doc, rt)
		if seen[key] {
			continue
		}
		seen[key] = true
		eff.types = append(eff.types, key)
		eff.params = append(eff.params, rt.Params...)
		add(doc, rt.Methods, rt.Children)
	}
	return eff, nil
}

func (g *generator) emitClient() error {
	app := g.res.Root.App
	base := ""
	if len(app.Resources) > 0 {
		base = app.Resources[0].Base
	}
	if g.opts.IncludeDocComments && len(app.Docs) > 0 {
		title := app.Docs[0].Title
		if title == "" {
			title = "the service"
		}
		g.printf("// Client is the entry point for %s.\n", title)
	}
	g.printf("type Client struct {\n\tTransport client.Transport\n\tBaseURL   string\n}\n\n")
	g.printf("// NewClient returns a client bound to the declared base URL.\n")
	g.printf("func NewClient(t client.Transport) *Client {\n\treturn &Client{Transport: t, BaseURL: %q}\n}\n\n", base)

	for _, rs := range app.Resources {
		for _, r := range rs.Resources {
			if err := g.emitResource(r, g.res.Root, "c.BaseURL", "c *Client", "c", nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitResource generates the handle struct for one resource plus the
// accessor on its parent, then recurses into children.
func (g *generator) emitResource(r *ast.Resource, owner *resolver.Document, parentURL, parentRecv, clientExpr string, seen map[string]bool) error {
	if seen == nil {
		seen = make(map[string]bool)
	}
	eff, err := g.flatten(r, owner, seen)
	if err != nil {
		return err
	}

	handle := exportedName(eff.label) + "Resource"
	if err := g.claim(handle, "resource "+r.Path); err != nil {
		return err
	}
	for _, key := range eff.types {
		if g.typeHandle[key] == "" {
			g.typeHandle[key] = handle
		}
	}

	tmpl, err := g.templateArgs(eff)
	if err != nil {
		return err
	}
	urlExpr, err := pathExpr(parentURL, eff.path, tmpl)
	if err != nil {
		return err
	}

	accessor := exportedName(eff.label)
	g.printf("// %s addresses %s.\n", handle, displayPath(eff.path))
	g.printf("type %s struct {\n\tc   *Client\n\turl string\n}\n\n", handle)
	g.printf("func (%s) %s(%s) *%s {\n", parentRecv, accessor, argList(tmpl), handle)
	g.printf("\treturn &%s{c: %s, url: %s}\n}\n\n", handle, clientExpr, urlExpr)

	recv := "r *" + handle
	methodNames := make(map[string]struct{})
	for _, m := range eff.methods {
		name := methodGoName(m)
		if _, dup := methodNames[name]; dup {
			return &GenerateError{
				Code:    NamingCollision,
				Subject: r.Path,
				Message: fmt.Sprintf("two methods map to the Go name %q", name),
			}
		}
		methodNames[name] = struct{}{}
		if err := g.emitMethod(recv, name, eff, m); err != nil {
			return err
		}
	}

	for _, c := range eff.children {
		childOwner := eff.childOwners[c]
		if target, ok := g.cycleTarget(c, childOwner, seen); ok {
			if err := g.emitCycleAccessor(c, childOwner, target, recv); err != nil {
				return err
			}
			continue
		}
		childSeen := make(map[string]bool)
		for k, v := range seen {
			childSeen[k] = v
		}
		if err := g.emitResource(c, childOwner, "r.url", recv, "r.c", childSeen); err != nil {
			return err
		}
	}
	return nil
}

// cycleTarget reports the handle already emitted for a child that closes a
// resource_type cycle: a bare child whose only type reference points back at
// a resource_type on the current expansion path.
func (g *generator) cycleTarget(c *ast.Resource, owner *resolver.Document, seen map[string]bool) (string, bool) {
	if len(c.Types) != 1 || len(c.Methods) > 0 || len(c.Children) > 0 {
		return "", false
	}
	rt, doc, ok := g.typeTarget(owner, c.Types[0])
	if !ok || !seen[typeKey(doc, rt)] {
		return "", false
	}
	handle := g.typeHandle[typeKey(doc, rt)]
	return handle, handle != ""
}

// emitCycleAccessor writes the accessor for a recursive child: instead of a
// fresh handle type it returns the one already emitted for the shared
// resource_type, at the child's URL.
func (g *generator) emitCycleAccessor(c *ast.Resource, owner *resolver.Document, handle, recv string) error {
	rt, _, _ := g.typeTarget(owner, c.Types[0])
	label := c.ID
	if label == "" {
		label = pathSlug(c.Path)
	}
	eff := &effective{
		label:  label,
		path:   c.Path,
		params: append(append([]ast.Param(nil), c.Params...), rt.Params...),
	}
	tmpl, err := g.templateArgs(eff)
	if err != nil {
		return err
	}
	urlExpr, err := pathExpr("r.url", eff.path, tmpl)
	if err != nil {
		return err
	}
	g.printf("func (%s) %s(%s) *%s {\n", recv, exportedName(eff.label), argList(tmpl), handle)
	g.printf("\treturn &%s{c: r.c, url: %s}\n}\n\n", handle, urlExpr)
	return nil
}

func methodGoName(m *ast.Method) string {
	if m.ID != "" {
		return exportedName(m.ID)
	}
	return exportedName(strings.ToLower(m.Name))
}

// arg is one generated method or accessor parameter.
type arg struct {
	goName string
	goType string
	param  ast.Param
}

func argList(args []arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.goName + " " + a.goType
	}
	return strings.Join(parts, ", ")
}

// templateArgs derives accessor arguments from the path placeholders, typed
// by the matching template params.
func (g *generator) templateArgs(eff *effective) ([]arg, error) {
	matches := placeholderNames(eff.path)
	if len(matches) == 0 {
		return nil, nil
	}
	types := make(map[string]string)
	record := func(p ast.Param) error {
		if p.Style != ast.StyleTemplate {
			return nil
		}
		t, ok := goType(p.Type)
		if !ok {
			return &GenerateError{
				Code:    UnsupportedTypeMapping,
				Subject: eff.path + "." + p.Name,
				Message: fmt.Sprintf("no Go mapping for type %q", p.Type),
			}
		}
		types[p.Name] = t
		return nil
	}
	for _, p := range eff.params {
		if err := record(p); err != nil {
			return nil, err
		}
	}
	for _, m := range eff.methods {
		if m.Request == nil {
			continue
		}
		for _, p := range m.Request.Params {
			if err := record(p); err != nil {
				return nil, err
			}
		}
	}
	var out []arg
	for _, name := range matches {
		goName := localName(name)
		if goName == "" {
			return nil, &GenerateError{
				Code:    NamingCollision,
				Subject: eff.path,
				Message: fmt.Sprintf("placeholder %q is a reserved word in Go", name),
			}
		}
		t, ok := types[name]
		if !ok {
			t = "string"
		}
		out = append(out, arg{goName: goName, goType: t, param: ast.Param{Name: name, Style: ast.StyleTemplate}})
	}
	return out, nil
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

func placeholderNames(path string) []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		out = append(out, m[1])
	}
	return out
}

// pathExpr builds the Go expression for a handle URL: the parent URL joined
// with the path, placeholders substituted with escaped argument values.
func pathExpr(parentURL, path string, tmpl []arg) (string, error) {
	if path == "" {
		return parentURL, nil
	}
	byName := make(map[string]string)
	for _, a := range tmpl {
		byName[a.param.Name] = a.goName
	}
	expr := placeholderRe.ReplaceAllStringFunc(path, func(m string) string {
		name := m[1 : len(m)-1]
		return `" + pathValue(` + byName[name] + `) + "`
	})
	seg := `"` + expr + `"`
	seg = strings.ReplaceAll(seg, `"" + `, "")
	seg = strings.ReplaceAll(seg, ` + ""`, "")
	return fmt.Sprintf("joinPath(%s, %s)", parentURL, seg), nil
}

func displayPath(path string) string {
	if path == "" {
		return "the service root"
	}
	return "the " + path + " resource"
}
