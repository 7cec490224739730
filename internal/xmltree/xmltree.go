// Package xmltree decodes XML into a generic element tree: element name,
// attributes, ordered children, and text. It knows nothing about WADL.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Node is either an *Element or Text.
type Node interface{ node() }

// Text is a character-data child of an element.
type Text string

func (Text) node() {}

// Attr is one attribute. Namespace declarations are kept with the prefix
// intact ("xmlns", "xmlns:xsd") so documents can be rendered back.
type Attr struct {
	Name  string
	Value string
}

// Element is one XML element with ordered children.
type Element struct {
	Name     string // local name
	Attrs    []Attr
	Children []Node
}

func (*Element) node() {}

// Attr returns the value of the named attribute and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr appends or replaces an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// Elements returns the element children, in document order.
func (e *Element) Elements() []*Element {
	out := make([]*Element, 0, len(e.Children))
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// Find returns the named element children, in document order.
func (e *Element) Find(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			out = append(out, el)
		}
	}
	return out
}

// First returns the first named element child, or nil.
func (e *Element) First(name string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			return el
		}
	}
	return nil
}

// Text returns the concatenated character data directly under this element.
func (e *Element) Text() string {
	var b strings.Builder
	for _, c := range e.Children {
		if t, ok := c.(Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// InnerXML renders the children of e (elements and text) without the
// enclosing tag. Used for rich-text doc bodies.
func (e *Element) InnerXML() string {
	var b bytes.Buffer
	for _, c := range e.Children {
		writeNode(&b, c)
	}
	return b.String()
}

// Parse decodes an XML document into an element tree. Namespace prefixes on
// element names are dropped; the local name is kept.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	var stack []*Element
	var root *Element
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local}
			for _, a := range t.Attr {
				name := a.Name.Local
				if a.Name.Space == "xmlns" {
					name = "xmlns:" + a.Name.Local
				} else if a.Name.Space != "" && a.Name.Local != "xmlns" {
					// Keep foreign-namespace attributes addressable by
					// local name; WADL itself only uses unprefixed ones.
					name = a.Name.Local
				}
				el.Attrs = append(el.Attrs, Attr{Name: name, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("xmltree: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmltree: unbalanced end element %q", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				s := string(t)
				if strings.TrimSpace(s) != "" {
					parent := stack[len(stack)-1]
					parent.Children = append(parent.Children, Text(s))
				}
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("xmltree: empty document")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("xmltree: unexpected EOF inside %q", stack[len(stack)-1].Name)
	}
	return root, nil
}

// ParseBytes decodes an in-memory XML document.
func ParseBytes(data []byte) (*Element, error) {
	return Parse(bytes.NewReader(data))
}

// Write renders the tree as indented XML with a declaration header.
func Write(w io.Writer, root *Element) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	writeIndented(w, root, 0)
	return nil
}

// Marshal renders the tree to a byte slice.
func Marshal(root *Element) []byte {
	var b bytes.Buffer
	_ = Write(&b, root)
	return b.Bytes()
}

func writeIndented(w io.Writer, e *Element, depth int) {
	ind := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s<%s", ind, e.Name)
	for _, a := range e.Attrs {
		fmt.Fprintf(w, ` %s="%s"`, a.Name, escapeAttr(a.Value))
	}
	if len(e.Children) == 0 {
		io.WriteString(w, "/>\n")
		return
	}
	// Elements with any text child are written compactly. Indenting mixed
	// content would inject whitespace that survives a reparse.
	for _, c := range e.Children {
		if _, ok := c.(Text); ok {
			io.WriteString(w, ">")
			for _, cc := range e.Children {
				writeNode(w, cc)
			}
			fmt.Fprintf(w, "</%s>\n", e.Name)
			return
		}
	}
	io.WriteString(w, ">\n")
	for _, c := range e.Children {
		writeIndented(w, c.(*Element), depth+1)
	}
	fmt.Fprintf(w, "%s</%s>\n", ind, e.Name)
}

func writeNode(w io.Writer, n Node) {
	switch v := n.(type) {
	case Text:
		xml.EscapeText(w, []byte(v))
	case *Element:
		fmt.Fprintf(w, "<%s", v.Name)
		for _, a := range v.Attrs {
			fmt.Fprintf(w, ` %s="%s"`, a.Name, escapeAttr(a.Value))
		}
		if len(v.Children) == 0 {
			io.WriteString(w, "/>")
			return
		}
		io.WriteString(w, ">")
		for _, c := range v.Children {
			writeNode(w, c)
		}
		fmt.Fprintf(w, "</%s>", v.Name)
	}
}

func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&#34;")
	return r.Replace(s)
}
