package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/parser"
	"github.com/apiweave/wadl2go/internal/xmltree"
)

type fakeLoader struct {
	docs  map[string]string
	loads []string
}

func (f *fakeLoader) Load(_ context.Context, uri string) (*xmltree.Element, error) {
	f.loads = append(f.loads, uri)
	body, ok := f.docs[uri]
	if !ok {
		return nil, fmt.Errorf("not found: %s", uri)
	}
	return xmltree.ParseBytes([]byte(body))
}

func mustParse(t *testing.T, doc, base string) *ast.Application {
	t.Helper()
	app, err := parser.ParseBytes([]byte(doc), base, parser.Options{})
	if err != nil {
		t.Fatalf("parse %s: %v", base, err)
	}
	return app
}

func TestResolve_LocalRefs(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <representation id="widget" mediaType="application/json"/>
	  <resources><resource path="widgets"><method name="GET">
	    <response status="200"><representation href="#widget"/></response>
	  </method></resource></resources>
	</application>`
	app := mustParse(t, doc, "https://api.example.com/app.wadl")
	res, err := Resolve(context.Background(), app, nil, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	rep := app.Resources[0].Resources[0].Methods[0].Responses[0].Representations[0]
	got, ok := res.Representation(res.Root, rep.Ref)
	if !ok || got.MediaType != "application/json" {
		t.Errorf("dereference: %+v, ok=%v", got, ok)
	}
}

func TestResolve_CrossDocument(t *testing.T) {
	t.Parallel()
	ld := &fakeLoader{docs: map[string]string{
		"https://api.example.com/shapes.wadl": `<application>
		  <representation id="box" mediaType="application/json"/>
		  <resource_type id="sortable"/>
		</application>`,
	}}
	doc := `<application>
	  <resources><resource path="a" type="shapes.wadl#sortable"><method name="GET">
	    <response status="200"><representation href="shapes.wadl#box"/></response>
	  </method></resource></resources>
	</application>`
	app := mustParse(t, doc, "https://api.example.com/app.wadl")
	res, err := Resolve(context.Background(), app, ld, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(ld.loads) != 1 {
		t.Errorf("loads: %v, want one fetch for two refs into the same document", ld.loads)
	}
	if len(res.Docs) != 2 {
		t.Errorf("docs: %d, want 2", len(res.Docs))
	}
	shapes, ok := res.Docs["https://api.example.com/shapes.wadl"]
	if !ok {
		t.Fatalf("shapes document not recorded")
	}
	if _, ok := shapes.Index.Representation("box"); !ok {
		t.Errorf("box not indexed in shapes document")
	}
}

func TestResolve_CyclicDocuments(t *testing.T) {
	t.Parallel()
	// a.wadl and b.wadl reference each other's resource types.
	ld := &fakeLoader{docs: map[string]string{
		"https://x.test/b.wadl": `<application>
		  <resource_type id="b-type">
		    <param name="p" style="query">
		      <link resource_type="a.wadl#a-type"/>
		    </param>
		  </resource_type>
		</application>`,
		"https://x.test/a.wadl": `<application>
		  <resource_type id="a-type"/>
		  <resources><resource path="r" type="b.wadl#b-type"><method name="GET"/></resource></resources>
		</application>`,
	}}
	root := mustParse(t, ld.docs["https://x.test/a.wadl"], "https://x.test/a.wadl")
	res, err := Resolve(context.Background(), root, ld, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// a.wadl is the root so only b.wadl should have been fetched.
	if len(ld.loads) != 1 || ld.loads[0] != "https://x.test/b.wadl" {
		t.Errorf("loads: %v", ld.loads)
	}
	if len(res.Docs) != 2 {
		t.Errorf("docs: %d, want 2", len(res.Docs))
	}
}

func TestResolve_UnresolvedReference(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <resources><resource path="a"><method name="GET">
	    <response><representation href="#nope"/></response>
	  </method></resource></resources>
	</application>`
	app := mustParse(t, doc, "https://x.test/app.wadl")
	_, err := Resolve(context.Background(), app, nil, Options{})
	var re *ResolveError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolveError, got %v", err)
	}
	if re.Code != UnresolvedReference || re.Ref.ID != "nope" || re.Kind != "representation" {
		t.Errorf("error fields: %+v", re)
	}
	wantPath := []string{"application", "resources", "resource[a]", "method[GET]", "response", "representation"}
	if len(re.Path) != len(wantPath) {
		t.Fatalf("path: %v, want %v", re.Path, wantPath)
	}
	for i := range wantPath {
		if re.Path[i] != wantPath[i] {
			t.Errorf("path[%d]: %q, want %q", i, re.Path[i], wantPath[i])
		}
	}
	if !strings.Contains(re.Error(), "at application > resources") {
		t.Errorf("message should carry the path: %s", re.Error())
	}
}

func TestResolve_LoaderFailure(t *testing.T) {
	t.Parallel()
	ld := &fakeLoader{docs: map[string]string{}}
	doc := `<application>
	  <resources><resource path="a"><method name="GET">
	    <response><representation href="missing.wadl#box"/></response>
	  </method></resource></resources>
	</application>`
	app := mustParse(t, doc, "https://x.test/app.wadl")
	res, err := Resolve(context.Background(), app, ld, Options{})
	if res != nil {
		t.Fatalf("expected no partial resolution, got %+v", res)
	}
	var re *ResolveError
	if !errors.As(err, &re) || re.Code != LoaderFailure {
		t.Fatalf("expected LoaderFailure, got %v", err)
	}
	if re.Ref.Doc != "https://x.test/missing.wadl" {
		t.Errorf("ref doc: %q", re.Ref.Doc)
	}
}

func TestResolve_NoLoaderForRemoteRef(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <resources><resource path="a" type="other.wadl#t"><method name="GET"/></resource></resources>
	</application>`
	app := mustParse(t, doc, "https://x.test/app.wadl")
	_, err := Resolve(context.Background(), app, nil, Options{})
	var re *ResolveError
	if !errors.As(err, &re) || re.Code != LoaderFailure {
		t.Fatalf("expected LoaderFailure without a loader, got %v", err)
	}
}
