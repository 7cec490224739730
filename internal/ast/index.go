package ast

import "fmt"

// Index is the per-document id lookup used by the resolver. Ids live in
// separate namespaces per element kind; building the index fails on a
// duplicate id within a namespace.
type Index struct {
	resourceTypes   map[string]*ResourceType
	representations map[string]*Representation
	resources       map[string]*Resource
}

// DuplicateIDError reports two definitions sharing one id.
type DuplicateIDError struct {
	Kind string
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q", e.Kind, e.ID)
}

// NewIndex builds the id lookup for one parsed application.
func NewIndex(app *Application) (*Index, error) {
	idx := &Index{
		resourceTypes:   make(map[string]*ResourceType),
		representations: make(map[string]*Representation),
		resources:       make(map[string]*Resource),
	}
	for _, rt := range app.ResourceTypes {
		if _, dup := idx.resourceTypes[rt.ID]; dup {
			return nil, &DuplicateIDError{Kind: "resource_type", ID: rt.ID}
		}
		idx.resourceTypes[rt.ID] = rt
	}
	if err := idx.addRepresentations(app); err != nil {
		return nil, err
	}
	if err := idx.addResources(app); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) addRepresentations(app *Application) error {
	add := func(rep *Representation) error {
		if rep.IsRef() || rep.ID == "" {
			return nil
		}
		if _, dup := idx.representations[rep.ID]; dup {
			return &DuplicateIDError{Kind: "representation", ID: rep.ID}
		}
		idx.representations[rep.ID] = rep
		return nil
	}
	for _, rep := range app.Representations {
		if err := add(rep); err != nil {
			return err
		}
	}
	var walkMethod func(m *Method) error
	walkMethod = func(m *Method) error {
		if m.Request != nil {
			for _, rep := range m.Request.Representations {
				if err := add(rep); err != nil {
					return err
				}
			}
		}
		for _, resp := range m.Responses {
			for _, rep := range resp.Representations {
				if err := add(rep); err != nil {
					return err
				}
			}
		}
		return nil
	}
	var walkResource func(r *Resource) error
	walkResource = func(r *Resource) error {
		for _, m := range r.Methods {
			if err := walkMethod(m); err != nil {
				return err
			}
		}
		for _, c := range r.Children {
			if err := walkResource(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, rs := range app.Resources {
		for _, r := range rs.Resources {
			if err := walkResource(r); err != nil {
				return err
			}
		}
	}
	for _, rt := range app.ResourceTypes {
		for _, m := range rt.Methods {
			if err := walkMethod(m); err != nil {
				return err
			}
		}
		for _, c := range rt.Children {
			if err := walkResource(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (idx *Index) addResources(app *Application) error {
	var walk func(r *Resource) error
	walk = func(r *Resource) error {
		if r.ID != "" {
			if _, dup := idx.resources[r.ID]; dup {
				return &DuplicateIDError{Kind: "resource", ID: r.ID}
			}
			idx.resources[r.ID] = r
		}
		for _, c := range r.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, rs := range app.Resources {
		for _, r := range rs.Resources {
			if err := walk(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResourceType returns the resource_type with the given id.
func (idx *Index) ResourceType(id string) (*ResourceType, bool) {
	rt, ok := idx.resourceTypes[id]
	return rt, ok
}

// Representation returns the representation definition with the given id.
func (idx *Index) Representation(id string) (*Representation, bool) {
	rep, ok := idx.representations[id]
	return rep, ok
}

// Resource returns the identified resource with the given id.
func (idx *Index) Resource(id string) (*Resource, bool) {
	r, ok := idx.resources[id]
	return r, ok
}
