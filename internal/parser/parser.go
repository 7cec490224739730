// Package parser converts a generic XML tree into the WADL document model.
// It is purely structural: no network or filesystem access happens here, and
// href attributes are kept as unresolved references for the resolver.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/xmltree"
)

// Mode selects how unrecognized elements are treated.
type Mode int

const (
	// Lenient skips unknown elements and tolerates out-of-place styles.
	Lenient Mode = iota
	// Strict rejects unknown elements and params whose style is not
	// allowed in their container.
	Strict
)

// Options configures a parse pass.
type Options struct {
	Mode Mode
}

// ErrorCode categorizes parse failures.
type ErrorCode string

const (
	MalformedDocument    ErrorCode = "MalformedDocument"
	MissingAttribute     ErrorCode = "MissingAttribute"
	DuplicateID          ErrorCode = "DuplicateID"
	UnknownElement       ErrorCode = "UnknownElement"
	InvalidAttribute     ErrorCode = "InvalidAttribute"
	MissingTemplateParam ErrorCode = "MissingTemplateParam"
)

// ParseError is a structural parse failure with the ancestor element path
// for diagnostics.
type ParseError struct {
	Code    ErrorCode
	Path    []string
	Message string
}

func (e *ParseError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("parse: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("parse: %s: %s (at %s)", e.Code, e.Message, strings.Join(e.Path, " > "))
}

type parser struct {
	base string
	opts Options
	path []string
}

func (p *parser) push(el *xmltree.Element) {
	label := el.Name
	if id, ok := el.Attr("id"); ok && id != "" {
		label = fmt.Sprintf("%s[%s]", el.Name, id)
	} else if pth, ok := el.Attr("path"); ok && pth != "" {
		label = fmt.Sprintf("%s[%s]", el.Name, pth)
	}
	p.path = append(p.path, label)
}

func (p *parser) pop() { p.path = p.path[:len(p.path)-1] }

func (p *parser) errf(code ErrorCode, format string, args ...any) error {
	return &ParseError{Code: code, Path: append([]string(nil), p.path...), Message: fmt.Sprintf(format, args...)}
}

// Parse converts one XML tree into an Application. base is the URI the
// document was loaded from; hrefs are resolved relative to it but never
// dereferenced.
func Parse(root *xmltree.Element, base string, opts Options) (*ast.Application, error) {
	p := &parser{base: base, opts: opts}
	if root.Name != "application" {
		return nil, p.errf(MalformedDocument, "root element is %q, want \"application\"", root.Name)
	}
	p.push(root)
	defer p.pop()

	app := &ast.Application{Base: base}
	app.Docs = p.parseDocs(root)

	for _, el := range root.Elements() {
		switch el.Name {
		case "doc":
			// handled above
		case "resources":
			rs, err := p.parseResourcesGroup(el)
			if err != nil {
				return nil, err
			}
			app.Resources = append(app.Resources, rs)
		case "resource_type":
			rt, err := p.parseResourceType(el)
			if err != nil {
				return nil, err
			}
			app.ResourceTypes = append(app.ResourceTypes, rt)
		case "representation":
			rep, err := p.parseRepresentation(el)
			if err != nil {
				return nil, err
			}
			if rep.IsRef() {
				return nil, p.errf(MalformedDocument, "top-level representation must be a definition, not a reference")
			}
			app.Representations = append(app.Representations, rep)
		case "grammars":
			gs, err := p.parseGrammars(el)
			if err != nil {
				return nil, err
			}
			app.Grammars = append(app.Grammars, gs...)
		default:
			if err := p.unknown(el); err != nil {
				return nil, err
			}
		}
	}

	// Index construction doubles as the document-wide duplicate id check.
	if _, err := ast.NewIndex(app); err != nil {
		return nil, &ParseError{Code: DuplicateID, Path: []string{"application"}, Message: err.Error()}
	}
	return app, nil
}

func (p *parser) unknown(el *xmltree.Element) error {
	if p.opts.Mode == Strict {
		return p.errf(UnknownElement, "unrecognized element %q", el.Name)
	}
	return nil
}

func (p *parser) parseGrammars(el *xmltree.Element) ([]ast.Grammar, error) {
	p.push(el)
	defer p.pop()
	var out []ast.Grammar
	for _, child := range el.Elements() {
		switch child.Name {
		case "include":
			href, ok := child.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return nil, p.errf(MissingAttribute, "include element requires an href attribute")
			}
			out = append(out, ast.Grammar{Href: href})
		case "doc":
		default:
			if err := p.unknown(child); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (p *parser) parseResourcesGroup(el *xmltree.Element) (ast.Resources, error) {
	p.push(el)
	defer p.pop()
	rs := ast.Resources{Base: el.AttrOr("base", "")}
	for _, child := range el.Elements() {
		switch child.Name {
		case "resource":
			r, err := p.parseResource(child)
			if err != nil {
				return ast.Resources{}, err
			}
			rs.Resources = append(rs.Resources, r)
		case "doc":
		default:
			if err := p.unknown(child); err != nil {
				return ast.Resources{}, err
			}
		}
	}
	return rs, nil
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

func (p *parser) parseResource(el *xmltree.Element) (*ast.Resource, error) {
	p.push(el)
	defer p.pop()

	r := &ast.Resource{
		ID:        el.AttrOr("id", ""),
		Path:      el.AttrOr("path", ""),
		QueryType: el.AttrOr("queryType", "application/x-www-form-urlencoded"),
	}
	if raw, ok := el.Attr("type"); ok {
		for _, part := range strings.Fields(raw) {
			ref, err := ast.ParseRef(part, p.base)
			if err != nil {
				return nil, p.errf(InvalidAttribute, "type: %v", err)
			}
			r.Types = append(r.Types, ref)
		}
	}
	r.Docs = p.parseDocs(el)

	var err error
	r.Params, err = p.parseParams(el, resourceStyles)
	if err != nil {
		return nil, err
	}

	methodIDs := make(map[string]struct{})
	for _, child := range el.Elements() {
		switch child.Name {
		case "method":
			m, err := p.parseMethod(child)
			if err != nil {
				return nil, err
			}
			if m.ID != "" {
				if _, dup := methodIDs[m.ID]; dup {
					return nil, p.errf(DuplicateID, "duplicate method id %q in resource", m.ID)
				}
				methodIDs[m.ID] = struct{}{}
			}
			r.Methods = append(r.Methods, m)
		case "resource":
			c, err := p.parseResource(child)
			if err != nil {
				return nil, err
			}
			r.Children = append(r.Children, c)
		case "doc", "param":
		default:
			if err := p.unknown(child); err != nil {
				return nil, err
			}
		}
	}

	if err := p.checkPlaceholders(r); err != nil {
		return nil, err
	}
	return r, nil
}

// checkPlaceholders verifies every {name} in the path has a template-style
// param on the resource or one of its methods' requests.
func (p *parser) checkPlaceholders(r *ast.Resource) error {
	matches := placeholderRe.FindAllStringSubmatch(r.Path, -1)
	if len(matches) == 0 {
		return nil
	}
	declared := make(map[string]struct{})
	for _, prm := range r.Params {
		if prm.Style == ast.StyleTemplate {
			declared[prm.Name] = struct{}{}
		}
	}
	for _, m := range r.Methods {
		if m.Request == nil {
			continue
		}
		for _, prm := range m.Request.Params {
			if prm.Style == ast.StyleTemplate {
				declared[prm.Name] = struct{}{}
			}
		}
	}
	for _, match := range matches {
		name := match[1]
		if _, ok := declared[name]; !ok {
			return p.errf(MissingTemplateParam, "path placeholder {%s} has no template param", name)
		}
	}
	return nil
}

func (p *parser) parseResourceType(el *xmltree.Element) (*ast.ResourceType, error) {
	p.push(el)
	defer p.pop()

	id, ok := el.Attr("id")
	if !ok || strings.TrimSpace(id) == "" {
		return nil, p.errf(MissingAttribute, "resource_type requires an id attribute")
	}
	rt := &ast.ResourceType{
		ID:        id,
		QueryType: el.AttrOr("queryType", "application/x-www-form-urlencoded"),
	}
	rt.Docs = p.parseDocs(el)

	var err error
	rt.Params, err = p.parseParams(el, resourceTypeStyles)
	if err != nil {
		return nil, err
	}

	methodIDs := make(map[string]struct{})
	for _, child := range el.Elements() {
		switch child.Name {
		case "method":
			m, err := p.parseMethod(child)
			if err != nil {
				return nil, err
			}
			if m.ID != "" {
				if _, dup := methodIDs[m.ID]; dup {
					return nil, p.errf(DuplicateID, "duplicate method id %q in resource_type", m.ID)
				}
				methodIDs[m.ID] = struct{}{}
			}
			rt.Methods = append(rt.Methods, m)
		case "resource":
			c, err := p.parseResource(child)
			if err != nil {
				return nil, err
			}
			rt.Children = append(rt.Children, c)
		case "doc", "param":
		default:
			if err := p.unknown(child); err != nil {
				return nil, err
			}
		}
	}
	return rt, nil
}

func (p *parser) parseMethod(el *xmltree.Element) (*ast.Method, error) {
	p.push(el)
	defer p.pop()

	name, ok := el.Attr("name")
	if !ok || strings.TrimSpace(name) == "" {
		return nil, p.errf(MissingAttribute, "method requires a name attribute")
	}
	m := &ast.Method{
		ID:   el.AttrOr("id", ""),
		Name: strings.ToUpper(strings.TrimSpace(name)),
	}
	m.Docs = p.parseDocs(el)

	for _, child := range el.Elements() {
		switch child.Name {
		case "request":
			if m.Request != nil {
				if p.opts.Mode == Strict {
					return nil, p.errf(MalformedDocument, "method has more than one request element")
				}
				continue
			}
			req, err := p.parseRequest(child)
			if err != nil {
				return nil, err
			}
			m.Request = req
		case "response":
			resp, err := p.parseResponse(child)
			if err != nil {
				return nil, err
			}
			m.Responses = append(m.Responses, resp)
		case "doc":
		default:
			if err := p.unknown(child); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (p *parser) parseRequest(el *xmltree.Element) (*ast.Request, error) {
	p.push(el)
	defer p.pop()

	req := &ast.Request{Docs: p.parseDocs(el)}
	var err error
	req.Params, err = p.parseParams(el, requestStyles)
	if err != nil {
		return nil, err
	}
	req.Representations, err = p.parseRepresentations(el)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (p *parser) parseResponse(el *xmltree.Element) (ast.Response, error) {
	p.push(el)
	defer p.pop()

	resp := ast.Response{Docs: p.parseDocs(el)}
	if raw, ok := el.Attr("status"); ok {
		for _, part := range strings.Fields(raw) {
			code, err := strconv.Atoi(part)
			if err != nil {
				return ast.Response{}, p.errf(InvalidAttribute, "status %q is not a number", part)
			}
			resp.Status = append(resp.Status, code)
		}
	}
	var err error
	resp.Params, err = p.parseParams(el, responseStyles)
	if err != nil {
		return ast.Response{}, err
	}
	resp.Representations, err = p.parseRepresentations(el)
	if err != nil {
		return ast.Response{}, err
	}
	return resp, nil
}

func (p *parser) parseRepresentations(el *xmltree.Element) ([]*ast.Representation, error) {
	var out []*ast.Representation
	for _, child := range el.Find("representation") {
		rep, err := p.parseRepresentation(child)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func (p *parser) parseRepresentation(el *xmltree.Element) (*ast.Representation, error) {
	p.push(el)
	defer p.pop()

	if href, ok := el.Attr("href"); ok {
		ref, err := ast.ParseRef(href, p.base)
		if err != nil {
			return nil, p.errf(InvalidAttribute, "href: %v", err)
		}
		return &ast.Representation{Ref: ref}, nil
	}
	rep := &ast.Representation{
		ID:        el.AttrOr("id", ""),
		MediaType: el.AttrOr("mediaType", ""),
		Element:   el.AttrOr("element", ""),
		Profile:   el.AttrOr("profile", ""),
	}
	rep.Docs = p.parseDocs(el)
	var err error
	rep.Params, err = p.parseParams(el, representationStyles)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

var (
	resourceStyles       = []ast.ParamStyle{ast.StyleTemplate, ast.StyleMatrix, ast.StyleQuery, ast.StyleHeader}
	resourceTypeStyles   = []ast.ParamStyle{ast.StyleQuery, ast.StyleHeader}
	requestStyles        = []ast.ParamStyle{ast.StyleTemplate, ast.StyleMatrix, ast.StyleQuery, ast.StyleHeader, ast.StylePlain}
	responseStyles       = []ast.ParamStyle{ast.StyleHeader, ast.StylePlain}
	representationStyles = []ast.ParamStyle{ast.StylePlain, ast.StyleQuery}
)

func (p *parser) parseParams(el *xmltree.Element, allowed []ast.ParamStyle) ([]ast.Param, error) {
	var out []ast.Param
	seen := make(map[string]struct{})
	for _, child := range el.Find("param") {
		prm, err := p.parseParam(child, allowed)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[prm.Name]; dup {
			p.push(child)
			err := p.errf(DuplicateID, "duplicate param name %q in %s", prm.Name, el.Name)
			p.pop()
			return nil, err
		}
		seen[prm.Name] = struct{}{}
		out = append(out, prm)
	}
	return out, nil
}

func (p *parser) parseParam(el *xmltree.Element, allowed []ast.ParamStyle) (ast.Param, error) {
	p.push(el)
	defer p.pop()

	name, ok := el.Attr("name")
	if !ok || strings.TrimSpace(name) == "" {
		return ast.Param{}, p.errf(MissingAttribute, "param requires a name attribute")
	}
	styleRaw, ok := el.Attr("style")
	if !ok {
		return ast.Param{}, p.errf(MissingAttribute, "param %q requires a style attribute", name)
	}
	style := ast.ParamStyle(styleRaw)
	if !ast.KnownStyle(style) {
		return ast.Param{}, p.errf(InvalidAttribute, "param %q has unknown style %q", name, styleRaw)
	}
	if p.opts.Mode == Strict && !styleAllowed(style, allowed) {
		return ast.Param{}, p.errf(InvalidAttribute, "param %q style %q not allowed here", name, styleRaw)
	}

	prm := ast.Param{
		ID:        el.AttrOr("id", ""),
		Name:      name,
		Style:     style,
		Type:      el.AttrOr("type", ""),
		Path:      el.AttrOr("path", ""),
		Required:  el.AttrOr("required", "false") == "true",
		Repeating: el.AttrOr("repeating", "false") == "true",
		Default:   el.AttrOr("default", ""),
		Fixed:     el.AttrOr("fixed", ""),
	}
	docs := p.parseDocs(el)
	if len(docs) > 0 {
		prm.Doc = &docs[0]
	}

	for _, child := range el.Elements() {
		switch child.Name {
		case "option":
			value, ok := child.Attr("value")
			if !ok {
				return ast.Param{}, p.errf(MissingAttribute, "option under param %q requires a value attribute", name)
			}
			prm.Options = append(prm.Options, ast.Option{
				Value:     value,
				MediaType: child.AttrOr("mediaType", ""),
			})
		case "link":
			link := ast.Link{
				Rel: child.AttrOr("rel", ""),
				Rev: child.AttrOr("rev", ""),
			}
			if raw, ok := child.Attr("resource_type"); ok && strings.TrimSpace(raw) != "" {
				ref, err := ast.ParseRef(raw, p.base)
				if err != nil {
					return ast.Param{}, p.errf(InvalidAttribute, "link resource_type: %v", err)
				}
				link.ResourceType = ref
			}
			ldocs := p.parseDocs(child)
			if len(ldocs) > 0 {
				link.Doc = &ldocs[0]
			}
			prm.Links = append(prm.Links, link)
		case "doc":
		default:
			if err := p.unknown(child); err != nil {
				return ast.Param{}, err
			}
		}
	}
	return prm, nil
}

func (p *parser) parseDocs(el *xmltree.Element) []ast.Doc {
	var out []ast.Doc
	for _, child := range el.Find("doc") {
		out = append(out, ast.Doc{
			Title:   child.AttrOr("title", ""),
			Lang:    child.AttrOr("lang", ""),
			XMLNS:   child.AttrOr("xmlns", ""),
			Content: strings.TrimSpace(child.InnerXML()),
		})
	}
	return out
}

func styleAllowed(s ast.ParamStyle, allowed []ast.ParamStyle) bool {
	for _, a := range allowed {
		if a == s {
			return true
		}
	}
	return false
}

// ParseBytes decodes and parses an in-memory WADL document.
func ParseBytes(data []byte, base string, opts Options) (*ast.Application, error) {
	root, err := xmltree.ParseBytes(data)
	if err != nil {
		return nil, &ParseError{Code: MalformedDocument, Message: err.Error()}
	}
	return Parse(root, base, opts)
}
