// Package render serializes the document model back to WADL XML. Rendering
// a parsed document and parsing the result yields an equivalent model, which
// the tests rely on.
package render

import (
	"strconv"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/xmltree"
)

const wadlNS = "http://wadl.dev.java.net/2009/02"

// Application renders one document model as an XML tree.
func Application(app *ast.Application) *xmltree.Element {
	root := &xmltree.Element{Name: "application"}
	root.SetAttr("xmlns", wadlNS)
	appendDocs(root, app.Docs)
	if len(app.Grammars) > 0 {
		g := &xmltree.Element{Name: "grammars"}
		for _, gr := range app.Grammars {
			inc := &xmltree.Element{Name: "include"}
			inc.SetAttr("href", gr.Href)
			g.Children = append(g.Children, inc)
		}
		root.Children = append(root.Children, g)
	}
	for _, rs := range app.Resources {
		el := &xmltree.Element{Name: "resources"}
		if rs.Base != "" {
			el.SetAttr("base", rs.Base)
		}
		for _, r := range rs.Resources {
			el.Children = append(el.Children, renderResource(r))
		}
		root.Children = append(root.Children, el)
	}
	for _, rt := range app.ResourceTypes {
		root.Children = append(root.Children, renderResourceType(rt))
	}
	for _, rep := range app.Representations {
		root.Children = append(root.Children, renderRepresentation(rep))
	}
	return root
}

// Marshal renders the model as indented XML bytes.
func Marshal(app *ast.Application) []byte {
	return xmltree.Marshal(Application(app))
}

func renderResource(r *ast.Resource) *xmltree.Element {
	el := &xmltree.Element{Name: "resource"}
	if r.ID != "" {
		el.SetAttr("id", r.ID)
	}
	if r.Path != "" {
		el.SetAttr("path", r.Path)
	}
	if len(r.Types) > 0 {
		refs := make([]string, len(r.Types))
		for i, ref := range r.Types {
			refs[i] = ref.String()
		}
		el.SetAttr("type", strings.Join(refs, " "))
	}
	if r.QueryType != "" && r.QueryType != "application/x-www-form-urlencoded" {
		el.SetAttr("queryType", r.QueryType)
	}
	appendDocs(el, r.Docs)
	appendParams(el, r.Params)
	for _, m := range r.Methods {
		el.Children = append(el.Children, renderMethod(m))
	}
	for _, c := range r.Children {
		el.Children = append(el.Children, renderResource(c))
	}
	return el
}

func renderResourceType(rt *ast.ResourceType) *xmltree.Element {
	el := &xmltree.Element{Name: "resource_type"}
	el.SetAttr("id", rt.ID)
	if rt.QueryType != "" && rt.QueryType != "application/x-www-form-urlencoded" {
		el.SetAttr("queryType", rt.QueryType)
	}
	appendDocs(el, rt.Docs)
	appendParams(el, rt.Params)
	for _, m := range rt.Methods {
		el.Children = append(el.Children, renderMethod(m))
	}
	for _, c := range rt.Children {
		el.Children = append(el.Children, renderResource(c))
	}
	return el
}

func renderMethod(m *ast.Method) *xmltree.Element {
	el := &xmltree.Element{Name: "method"}
	if m.ID != "" {
		el.SetAttr("id", m.ID)
	}
	el.SetAttr("name", m.Name)
	appendDocs(el, m.Docs)
	if m.Request != nil {
		req := &xmltree.Element{Name: "request"}
		appendDocs(req, m.Request.Docs)
		appendParams(req, m.Request.Params)
		for _, rep := range m.Request.Representations {
			req.Children = append(req.Children, renderRepresentation(rep))
		}
		el.Children = append(el.Children, req)
	}
	for i := range m.Responses {
		el.Children = append(el.Children, renderResponse(&m.Responses[i]))
	}
	return el
}

func renderResponse(resp *ast.Response) *xmltree.Element {
	el := &xmltree.Element{Name: "response"}
	if len(resp.Status) > 0 {
		codes := make([]string, len(resp.Status))
		for i, c := range resp.Status {
			codes[i] = strconv.Itoa(c)
		}
		el.SetAttr("status", strings.Join(codes, " "))
	}
	appendDocs(el, resp.Docs)
	appendParams(el, resp.Params)
	for _, rep := range resp.Representations {
		el.Children = append(el.Children, renderRepresentation(rep))
	}
	return el
}

func renderRepresentation(rep *ast.Representation) *xmltree.Element {
	el := &xmltree.Element{Name: "representation"}
	if rep.IsRef() {
		el.SetAttr("href", rep.Ref.String())
		return el
	}
	if rep.ID != "" {
		el.SetAttr("id", rep.ID)
	}
	if rep.MediaType != "" {
		el.SetAttr("mediaType", rep.MediaType)
	}
	if rep.Element != "" {
		el.SetAttr("element", rep.Element)
	}
	if rep.Profile != "" {
		el.SetAttr("profile", rep.Profile)
	}
	appendDocs(el, rep.Docs)
	appendParams(el, rep.Params)
	return el
}

func appendParams(parent *xmltree.Element, params []ast.Param) {
	for i := range params {
		parent.Children = append(parent.Children, renderParam(&params[i]))
	}
}

func renderParam(p *ast.Param) *xmltree.Element {
	el := &xmltree.Element{Name: "param"}
	if p.ID != "" {
		el.SetAttr("id", p.ID)
	}
	el.SetAttr("name", p.Name)
	el.SetAttr("style", string(p.Style))
	if p.Type != "" {
		el.SetAttr("type", p.Type)
	}
	if p.Path != "" {
		el.SetAttr("path", p.Path)
	}
	if p.Required {
		el.SetAttr("required", "true")
	}
	if p.Repeating {
		el.SetAttr("repeating", "true")
	}
	if p.Default != "" {
		el.SetAttr("default", p.Default)
	}
	if p.Fixed != "" {
		el.SetAttr("fixed", p.Fixed)
	}
	if p.Doc != nil {
		appendDocs(el, []ast.Doc{*p.Doc})
	}
	for _, opt := range p.Options {
		o := &xmltree.Element{Name: "option"}
		o.SetAttr("value", opt.Value)
		if opt.MediaType != "" {
			o.SetAttr("mediaType", opt.MediaType)
		}
		el.Children = append(el.Children, o)
	}
	for _, link := range p.Links {
		l := &xmltree.Element{Name: "link"}
		if !link.ResourceType.IsZero() {
			l.SetAttr("resource_type", link.ResourceType.String())
		}
		if link.Rel != "" {
			l.SetAttr("rel", link.Rel)
		}
		if link.Rev != "" {
			l.SetAttr("rev", link.Rev)
		}
		if link.Doc != nil {
			appendDocs(l, []ast.Doc{*link.Doc})
		}
		el.Children = append(el.Children, l)
	}
	return el
}

func appendDocs(parent *xmltree.Element, docs []ast.Doc) {
	for _, d := range docs {
		el := &xmltree.Element{Name: "doc"}
		if d.XMLNS != "" {
			el.SetAttr("xmlns", d.XMLNS)
		}
		if d.Title != "" {
			el.SetAttr("title", d.Title)
		}
		if d.Lang != "" {
			el.SetAttr("lang", d.Lang)
		}
		if d.Content != "" {
			el.Children = append(el.Children, docNodes(d.Content)...)
		}
		parent.Children = append(parent.Children, el)
	}
}

// docNodes reparses a doc's stored inner XML so markup survives rendering
// instead of being escaped into text.
func docNodes(content string) []xmltree.Node {
	el, err := xmltree.ParseBytes([]byte("<doc>" + content + "</doc>"))
	if err != nil {
		return []xmltree.Node{xmltree.Text(content)}
	}
	return el.Children
}
