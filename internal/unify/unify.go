// Package unify folds structurally identical representations into canonical
// shapes. Shapes are content-addressed: two representations whose ordered
// field tuples match share one shape regardless of where they were declared.
package unify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/resolver"
)

// Field is one plain param of a canonical shape.
type Field struct {
	Name      string
	Type      string
	Required  bool
	Repeating bool
	Options   []string
	Links     []ast.Link
	Doc       *ast.Doc
}

// Shape is one canonical representation: the unit the code generator emits a
// struct for.
type Shape struct {
	Key       string // content hash, hex
	Name      string // canonical name chosen by the naming rules
	MediaType string
	Element   string
	Fields    []Field
	IDs       []string // declared ids folded into this shape, sorted
	Docs      []ast.Doc
}

// Enum is one deduplicated option set.
type Enum struct {
	Name   string
	Values []string
}

// Table holds the unification outcome in deterministic order.
type Table struct {
	Shapes []*Shape // sorted by Name
	Enums  []*Enum  // sorted by Name

	byKey map[string]*Shape
}

// Lookup returns the canonical shape for a representation occurrence,
// dereferencing it first when it is a reference.
func (t *Table) Lookup(res *resolver.Resolution, owner *resolver.Document, rep *ast.Representation) (*Shape, bool) {
	if rep.IsRef() {
		target, ok := res.Representation(owner, rep.Ref)
		if !ok {
			return nil, false
		}
		rep = target
	}
	s, ok := t.byKey[Key(rep)]
	return s, ok
}

// Key computes the content address of a representation definition: a SHA-256
// over its media type and the ordered (name, type, required, repeating,
// options) tuples of its plain params.
func Key(rep *ast.Representation) string {
	h := sha256.New()
	fmt.Fprintf(h, "media=%s\x00element=%s\x00", rep.MediaType, rep.Element)
	for _, p := range rep.PlainParams() {
		fmt.Fprintf(h, "%s\x00%s\x00%t\x00%t", p.Name, p.Type, p.Required, p.Repeating)
		for _, o := range p.Options {
			fmt.Fprintf(h, "\x00opt=%s", o.Value)
		}
		h.Write([]byte{0x01})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type builder struct {
	byKey map[string]*Shape
	// first synthesized name candidate per key, in document order
	synth map[string]string
	order []string // keys in first-encounter order

	enumByValues map[string]*Enum
	enumNames    map[string]struct{}
	enums        []*Enum
}

// Build walks every representation in every document of the resolution and
// produces the canonical shape and enum tables. The root document is walked
// first so its contexts win the synthesized names; the remaining documents
// follow in URI order to keep the tables deterministic.
func Build(res *resolver.Resolution) (*Table, error) {
	b := &builder{
		byKey:        make(map[string]*Shape),
		synth:        make(map[string]string),
		enumByValues: make(map[string]*Enum),
		enumNames:    make(map[string]struct{}),
	}

	docs := []*resolver.Document{res.Root}
	for _, d := range res.Docs {
		if d != res.Root {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs[1:], func(i, j int) bool { return docs[i+1].URI < docs[j+1].URI })

	for _, doc := range docs {
		for _, rep := range doc.App.Representations {
			b.fold(rep, rep.ID)
		}
		for _, rs := range doc.App.Resources {
			for _, r := range rs.Resources {
				b.walkResource(res, doc, r, "")
			}
		}
		for _, rt := range doc.App.ResourceTypes {
			for _, m := range rt.Methods {
				b.walkMethod(res, doc, m, rt.ID)
			}
			for _, c := range rt.Children {
				b.walkResource(res, doc, c, rt.ID)
			}
		}
	}

	t := &Table{byKey: b.byKey}
	for _, key := range b.order {
		s := b.byKey[key]
		s.Name = b.nameFor(s, key)
		t.Shapes = append(t.Shapes, s)
	}
	sort.Slice(t.Shapes, func(i, j int) bool { return t.Shapes[i].Name < t.Shapes[j].Name })
	t.Enums = b.enums
	sort.Slice(t.Enums, func(i, j int) bool { return t.Enums[i].Name < t.Enums[j].Name })
	return t, nil
}

// nameFor applies the naming rules: a single declared id wins; several
// declared ids pick the lexicographically smallest; an anonymous shape gets
// the first synthesized context name.
func (b *builder) nameFor(s *Shape, key string) string {
	switch len(s.IDs) {
	case 0:
		return b.synth[key]
	case 1:
		return s.IDs[0]
	default:
		return s.IDs[0] // IDs are kept sorted
	}
}

func (b *builder) walkResource(res *resolver.Resolution, doc *resolver.Document, r *ast.Resource, prefix string) {
	ctx := joinContext(prefix, pathSlug(r.Path))
	b.collectEnums(r.Params)
	for _, m := range r.Methods {
		b.walkMethod(res, doc, m, ctx)
	}
	for _, c := range r.Children {
		b.walkResource(res, doc, c, ctx)
	}
}

func (b *builder) walkMethod(res *resolver.Resolution, doc *resolver.Document, m *ast.Method, ctx string) {
	mctx := m.ID
	if mctx == "" {
		mctx = joinContext(ctx, strings.ToLower(m.Name))
	}
	if m.Request != nil {
		b.collectEnums(m.Request.Params)
		for _, rep := range m.Request.Representations {
			b.foldOccurrence(res, doc, rep, mctx+"-request")
		}
	}
	for i := range m.Responses {
		resp := &m.Responses[i]
		b.collectEnums(resp.Params)
		for _, rep := range resp.Representations {
			b.foldOccurrence(res, doc, rep, mctx+"-response")
		}
	}
}

func (b *builder) foldOccurrence(res *resolver.Resolution, doc *resolver.Document, rep *ast.Representation, synth string) {
	if rep.IsRef() {
		target, ok := res.Representation(doc, rep.Ref)
		if !ok {
			return
		}
		b.fold(target, target.ID)
		return
	}
	name := rep.ID
	if name == "" {
		name = synth
	}
	b.fold(rep, name)
	if rep.ID == "" {
		// remember the first synthesized candidate only
		key := Key(rep)
		if _, ok := b.synth[key]; !ok {
			b.synth[key] = synth
		}
	}
}

func (b *builder) fold(rep *ast.Representation, declaredID string) {
	key := Key(rep)
	s, ok := b.byKey[key]
	if !ok {
		s = &Shape{Key: key, MediaType: rep.MediaType, Element: rep.Element}
		for _, p := range rep.PlainParams() {
			f := Field{
				Name:      p.Name,
				Type:      p.Type,
				Required:  p.Required,
				Repeating: p.Repeating,
				Links:     p.Links,
				Doc:       p.Doc,
			}
			for _, o := range p.Options {
				f.Options = append(f.Options, o.Value)
			}
			s.Fields = append(s.Fields, f)
		}
		b.byKey[key] = s
		b.order = append(b.order, key)
	}
	if len(rep.Docs) > 0 && len(s.Docs) == 0 {
		s.Docs = rep.Docs
	}
	if rep.ID != "" && declaredID != "" {
		for _, id := range s.IDs {
			if id == declaredID {
				return
			}
		}
		s.IDs = append(s.IDs, declaredID)
		sort.Strings(s.IDs)
	}
	b.collectEnums(rep.Params)
}

// collectEnums records option sets, deduplicated by their ordered value
// list. A name clash between distinct value lists gets a trailing underscore.
func (b *builder) collectEnums(params []ast.Param) {
	for i := range params {
		p := &params[i]
		if len(p.Options) == 0 {
			continue
		}
		values := make([]string, len(p.Options))
		for j, o := range p.Options {
			values[j] = o.Value
		}
		key := strings.Join(values, "\x00")
		if _, ok := b.enumByValues[key]; ok {
			continue
		}
		name := p.Name
		for {
			if _, taken := b.enumNames[name]; !taken {
				break
			}
			name += "_"
		}
		e := &Enum{Name: name, Values: values}
		b.enumByValues[key] = e
		b.enumNames[name] = struct{}{}
		b.enums = append(b.enums, e)
	}
}

func pathSlug(path string) string {
	s := strings.NewReplacer("{", "", "}", "", "/", "-").Replace(path)
	return strings.Trim(s, "-")
}

func joinContext(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "-" + b
	}
}
