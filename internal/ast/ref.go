package ast

import (
	"fmt"
	"net/url"
	"strings"
)

// Ref is an unresolved cross-reference: a target document URI (empty for the
// owning document) plus a fragment id. Parsing keeps refs unresolved so
// forward references and cycles stay representable; the resolver
// dereferences them later.
type Ref struct {
	Doc string
	ID  string
}

// IsZero reports whether the ref is empty.
func (r Ref) IsZero() bool { return r.Doc == "" && r.ID == "" }

// Local reports whether the ref targets the owning document.
func (r Ref) Local() bool { return r.Doc == "" }

func (r Ref) String() string {
	if r.Doc == "" {
		return "#" + r.ID
	}
	return r.Doc + "#" + r.ID
}

// ParseRef interprets an href attribute relative to the owning document's
// base URI. "#id" stays document-local; anything else is resolved against
// base and split into document URI and fragment.
func ParseRef(raw, base string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, fmt.Errorf("empty href")
	}
	if strings.HasPrefix(raw, "#") {
		id := raw[1:]
		if id == "" {
			return Ref{}, fmt.Errorf("href %q has empty fragment", raw)
		}
		return Ref{ID: id}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, fmt.Errorf("href %q: %w", raw, err)
	}
	if base != "" {
		b, err := url.Parse(base)
		if err == nil {
			u = b.ResolveReference(u)
		}
	}
	frag := u.Fragment
	u.Fragment = ""
	doc := u.String()
	if frag == "" {
		return Ref{}, fmt.Errorf("href %q has no fragment id", raw)
	}
	// A fully resolved href that still points at the owning document is a
	// local reference.
	if doc == "" || doc == base {
		return Ref{ID: frag}, nil
	}
	return Ref{Doc: doc, ID: frag}, nil
}
