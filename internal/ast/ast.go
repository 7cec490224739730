// Package ast holds the WADL document model produced by the parser. The
// model is built once and treated as immutable afterwards; resolution and
// unification produce derived tables instead of mutating it.
package ast

// ParamStyle says how a parameter is carried in a request or representation.
type ParamStyle string

const (
	StyleTemplate ParamStyle = "template"
	StyleQuery    ParamStyle = "query"
	StyleMatrix   ParamStyle = "matrix"
	StyleHeader   ParamStyle = "header"
	StylePlain    ParamStyle = "plain"
)

// KnownStyle reports whether s is one of the five WADL parameter styles.
func KnownStyle(s ParamStyle) bool {
	switch s {
	case StyleTemplate, StyleQuery, StyleMatrix, StyleHeader, StylePlain:
		return true
	}
	return false
}

// Application is the root of one parsed WADL document.
type Application struct {
	Base            string // document base URI (where it was loaded from)
	Docs            []Doc
	Resources       []Resources
	ResourceTypes   []*ResourceType
	Representations []*Representation // top-level definitions
	Grammars        []Grammar
}

// Resources groups top-level resources under a common base URI.
type Resources struct {
	Base      string
	Resources []*Resource
}

// Grammar records a grammars/include href. The target is a schema document
// and is never dereferenced by this module.
type Grammar struct {
	Href string
}

// Resource is one addressable path segment with methods and children.
type Resource struct {
	ID        string
	Path      string // URI template, may contain {name} placeholders
	Types     []Ref  // resource_type references; cycles are legal
	QueryType string
	Docs      []Doc
	Params    []Param
	Methods   []*Method
	Children  []*Resource
}

// ResourceType is a reusable method/param template attachable to resources.
type ResourceType struct {
	ID        string
	QueryType string
	Docs      []Doc
	Params    []Param
	Methods   []*Method
	Children  []*Resource
}

// Method is one HTTP operation.
type Method struct {
	ID        string
	Name      string // HTTP verb
	Docs      []Doc
	Request   *Request
	Responses []Response
}

// Request holds a method's input parameters and body representations.
type Request struct {
	Docs            []Doc
	Params          []Param
	Representations []*Representation
}

// Response describes one declared outcome of a method.
type Response struct {
	Status          []int // applicable status codes; empty means any 2xx
	Docs            []Doc
	Params          []Param
	Representations []*Representation
}

// Param is a named value: a URI template segment, query/matrix/header
// parameter, or a plain representation field.
type Param struct {
	ID        string
	Name      string
	Style     ParamStyle
	Type      string // declared value type, e.g. "xs:string"
	Path      string
	Required  bool
	Repeating bool
	Default   string
	Fixed     string
	Doc       *Doc
	Links     []Link
	Options   []Option
}

// Option is one fixed value of an enumerated parameter.
type Option struct {
	Value     string
	MediaType string
}

// Link attaches resource-type semantics to a response param: the param's
// value addresses a resource of the referenced type.
type Link struct {
	ResourceType Ref
	Rel          string
	Rev          string
	Doc          *Doc
}

// Representation is either a body shape definition or, when Ref is non-zero,
// a reference to one defined elsewhere.
type Representation struct {
	Ref       Ref
	ID        string
	MediaType string
	Element   string
	Profile   string
	Docs      []Doc
	Params    []Param
}

// IsRef reports whether r is an href reference rather than a definition.
func (r *Representation) IsRef() bool { return !r.Ref.IsZero() }

// Doc is rich-text documentation attached to a node.
type Doc struct {
	Title   string
	Lang    string
	XMLNS   string
	Content string
}

// PlainParams returns the plain-style params of a representation definition,
// i.e. its fields.
func (r *Representation) PlainParams() []Param {
	out := make([]Param, 0, len(r.Params))
	for _, p := range r.Params {
		if p.Style == StylePlain {
			out = append(out, p)
		}
	}
	return out
}

// visitParams calls fn for every param declared anywhere under the
// application, in document order.
func (a *Application) visitParams(fn func(*Param)) {
	var walkResource func(r *Resource)
	walkMethod := func(m *Method) {
		if m.Request != nil {
			for i := range m.Request.Params {
				fn(&m.Request.Params[i])
			}
			for _, rep := range m.Request.Representations {
				for i := range rep.Params {
					fn(&rep.Params[i])
				}
			}
		}
		for ri := range m.Responses {
			resp := &m.Responses[ri]
			for i := range resp.Params {
				fn(&resp.Params[i])
			}
			for _, rep := range resp.Representations {
				for i := range rep.Params {
					fn(&rep.Params[i])
				}
			}
		}
	}
	walkResource = func(r *Resource) {
		for i := range r.Params {
			fn(&r.Params[i])
		}
		for _, m := range r.Methods {
			walkMethod(m)
		}
		for _, c := range r.Children {
			walkResource(c)
		}
	}
	for _, rs := range a.Resources {
		for _, r := range rs.Resources {
			walkResource(r)
		}
	}
	for _, rt := range a.ResourceTypes {
		for i := range rt.Params {
			fn(&rt.Params[i])
		}
		for _, m := range rt.Methods {
			walkMethod(m)
		}
		for _, c := range rt.Children {
			walkResource(c)
		}
	}
	for _, rep := range a.Representations {
		for i := range rep.Params {
			fn(&rep.Params[i])
		}
	}
}

// AllParams returns every param declared anywhere under the application, in
// document order. Used by the unifier to collect option enumerations.
func (a *Application) AllParams() []*Param {
	var out []*Param
	a.visitParams(func(p *Param) { out = append(out, p) })
	return out
}
