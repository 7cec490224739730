package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/apiweave/wadl2go/internal/ast"
)

const sampleDoc = `<?xml version="1.0"?>
<application xmlns="http://wadl.dev.java.net/2009/02">
  <doc title="Widget API">Manages widgets.</doc>
  <grammars>
    <include href="schema.xsd"/>
  </grammars>
  <resources base="https://api.example.com/v1/">
    <resource path="widgets">
      <method id="list-widgets" name="GET">
        <request>
          <param name="limit" style="query" type="xs:int"/>
        </request>
        <response status="200">
          <representation id="widget-list" mediaType="application/json">
            <param name="total" style="plain" type="xs:int" required="true"/>
          </representation>
        </response>
      </method>
      <resource path="{id}">
        <param name="id" style="template" type="xs:int" required="true"/>
        <method id="get-widget" name="GET">
          <response status="200">
            <representation href="#widget"/>
          </response>
          <response status="404"/>
        </method>
      </resource>
    </resource>
  </resources>
  <representation id="widget" mediaType="application/json">
    <param name="name" style="plain" type="xs:string" required="true"/>
    <param name="size" style="plain" type="xs:int"/>
    <param name="state" style="plain" type="xs:string">
      <option value="new"/>
      <option value="used"/>
    </param>
  </representation>
  <resource_type id="pageable">
    <param name="page" style="query" type="xs:int"/>
    <method id="next" name="GET"/>
  </resource_type>
</application>`

func parseSample(t *testing.T, mode Mode) *ast.Application {
	t.Helper()
	app, err := ParseBytes([]byte(sampleDoc), "https://api.example.com/app.wadl", Options{Mode: mode})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return app
}

func TestParse_Sample(t *testing.T) {
	t.Parallel()
	app := parseSample(t, Lenient)

	if len(app.Docs) != 1 || app.Docs[0].Title != "Widget API" {
		t.Errorf("application docs: %+v", app.Docs)
	}
	if len(app.Grammars) != 1 || app.Grammars[0].Href != "schema.xsd" {
		t.Errorf("grammars: %+v", app.Grammars)
	}
	if len(app.Resources) != 1 || app.Resources[0].Base != "https://api.example.com/v1/" {
		t.Fatalf("resources group: %+v", app.Resources)
	}

	widgets := app.Resources[0].Resources[0]
	if widgets.Path != "widgets" || len(widgets.Methods) != 1 || len(widgets.Children) != 1 {
		t.Fatalf("widgets resource: %+v", widgets)
	}
	list := widgets.Methods[0]
	if list.Name != "GET" || list.ID != "list-widgets" {
		t.Errorf("list method: %+v", list)
	}
	if list.Request == nil || len(list.Request.Params) != 1 || list.Request.Params[0].Name != "limit" {
		t.Errorf("list request: %+v", list.Request)
	}
	if len(list.Responses) != 1 || len(list.Responses[0].Status) != 1 || list.Responses[0].Status[0] != 200 {
		t.Fatalf("list responses: %+v", list.Responses)
	}

	item := widgets.Children[0]
	if item.Path != "{id}" || len(item.Params) != 1 || item.Params[0].Style != ast.StyleTemplate {
		t.Fatalf("item resource: %+v", item)
	}
	get := item.Methods[0]
	if len(get.Responses) != 2 {
		t.Fatalf("get responses: %+v", get.Responses)
	}
	rep := get.Responses[0].Representations[0]
	if !rep.IsRef() || rep.Ref != (ast.Ref{ID: "widget"}) {
		t.Errorf("representation ref: %+v", rep)
	}

	if len(app.Representations) != 1 {
		t.Fatalf("top-level representations: %+v", app.Representations)
	}
	widget := app.Representations[0]
	if widget.ID != "widget" || len(widget.Params) != 3 {
		t.Fatalf("widget representation: %+v", widget)
	}
	state := widget.Params[2]
	if len(state.Options) != 2 || state.Options[0].Value != "new" {
		t.Errorf("state options: %+v", state.Options)
	}

	if len(app.ResourceTypes) != 1 || app.ResourceTypes[0].ID != "pageable" {
		t.Errorf("resource types: %+v", app.ResourceTypes)
	}
}

func TestParse_SampleStrict(t *testing.T) {
	t.Parallel()
	parseSample(t, Strict)
}

func wantParseError(t *testing.T, doc string, mode Mode, code ErrorCode) *ParseError {
	t.Helper()
	_, err := ParseBytes([]byte(doc), "https://api.example.com/app.wadl", Options{Mode: mode})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Code != code {
		t.Fatalf("code: got %s, want %s (%v)", pe.Code, code, pe)
	}
	return pe
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		doc  string
		mode Mode
		code ErrorCode
	}{
		{
			"wrong root", `<grammars/>`, Lenient, MalformedDocument,
		},
		{
			"param without name",
			`<application><resources><resource path="a"><param style="query"/></resource></resources></application>`,
			Lenient, MissingAttribute,
		},
		{
			"param without style",
			`<application><resources><resource path="a"><param name="x"/></resource></resources></application>`,
			Lenient, MissingAttribute,
		},
		{
			"unknown style",
			`<application><resources><resource path="a"><param name="x" style="cookie"/></resource></resources></application>`,
			Lenient, InvalidAttribute,
		},
		{
			"resource_type without id",
			`<application><resource_type/></application>`,
			Lenient, MissingAttribute,
		},
		{
			"method without name",
			`<application><resources><resource path="a"><method id="m"/></resource></resources></application>`,
			Lenient, MissingAttribute,
		},
		{
			"option without value",
			`<application><resources><resource path="a"><param name="x" style="query"><option/></param></resource></resources></application>`,
			Lenient, MissingAttribute,
		},
		{
			"duplicate method id in resource",
			`<application><resources><resource path="a"><method id="m" name="GET"/><method id="m" name="PUT"/></resource></resources></application>`,
			Lenient, DuplicateID,
		},
		{
			"duplicate param name in scope",
			`<application><resources><resource path="a"><param name="x" style="query"/><param name="x" style="header"/></resource></resources></application>`,
			Lenient, DuplicateID,
		},
		{
			"duplicate representation id across document",
			`<application><representation id="r"/><representation id="r"/></application>`,
			Lenient, DuplicateID,
		},
		{
			"placeholder without template param",
			`<application><resources><resource path="widgets/{id}"><method name="GET"/></resource></resources></application>`,
			Lenient, MissingTemplateParam,
		},
		{
			"non-numeric status",
			`<application><resources><resource path="a"><method name="GET"><response status="ok"/></method></resource></resources></application>`,
			Lenient, InvalidAttribute,
		},
		{
			"unknown element strict",
			`<application><mystery/></application>`,
			Strict, UnknownElement,
		},
		{
			"template param in resource_type strict",
			`<application><resource_type id="t"><param name="x" style="template"/></resource_type></application>`,
			Strict, InvalidAttribute,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			wantParseError(t, tc.doc, tc.mode, tc.code)
		})
	}
}

func TestParse_LenientSkipsUnknownElements(t *testing.T) {
	t.Parallel()
	doc := `<application><mystery/><resources><resource path="a"><method name="GET"/></resource></resources></application>`
	app, err := ParseBytes([]byte(doc), "", Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(app.Resources) != 1 {
		t.Errorf("resources dropped: %+v", app.Resources)
	}
}

func TestParse_ErrorPath(t *testing.T) {
	t.Parallel()
	doc := `<application><resources><resource path="widgets"><method name="GET"><request><param style="query"/></request></method></resource></resources></application>`
	pe := wantParseError(t, doc, Lenient, MissingAttribute)
	got := strings.Join(pe.Path, " > ")
	want := "application > resources > resource[widgets] > method > request > param"
	if got != want {
		t.Errorf("path: got %q, want %q", got, want)
	}
}

func TestParse_RefsResolveAgainstBase(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <resources><resource path="a">
	    <method name="GET"><response><representation href="shapes.wadl#box"/></response></method>
	  </resource></resources>
	</application>`
	app, err := ParseBytes([]byte(doc), "https://api.example.com/root/app.wadl", Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rep := app.Resources[0].Resources[0].Methods[0].Responses[0].Representations[0]
	want := ast.Ref{Doc: "https://api.example.com/root/shapes.wadl", ID: "box"}
	if rep.Ref != want {
		t.Errorf("ref: got %+v, want %+v", rep.Ref, want)
	}
}

func TestParse_ResourceTypeListAttr(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <resource_type id="pageable"/>
	  <resources><resource path="a" type="#pageable other.wadl#sortable"><method name="GET"/></resource></resources>
	</application>`
	app, err := ParseBytes([]byte(doc), "https://api.example.com/app.wadl", Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	types := app.Resources[0].Resources[0].Types
	if len(types) != 2 {
		t.Fatalf("types: %+v", types)
	}
	if types[0] != (ast.Ref{ID: "pageable"}) {
		t.Errorf("local type ref: %+v", types[0])
	}
	if types[1] != (ast.Ref{Doc: "https://api.example.com/other.wadl", ID: "sortable"}) {
		t.Errorf("remote type ref: %+v", types[1])
	}
}

func TestParse_LinkOnResponseParam(t *testing.T) {
	t.Parallel()
	doc := `<application>
	  <resource_type id="widget"/>
	  <resources><resource path="a"><method name="GET"><response>
	    <param name="self" style="header" type="xs:anyURI">
	      <link resource_type="#widget" rel="self"/>
	    </param>
	  </response></method></resource></resources>
	</application>`
	app, err := ParseBytes([]byte(doc), "", Options{Mode: Strict})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prm := app.Resources[0].Resources[0].Methods[0].Responses[0].Params[0]
	if len(prm.Links) != 1 || prm.Links[0].Rel != "self" || prm.Links[0].ResourceType != (ast.Ref{ID: "widget"}) {
		t.Errorf("link: %+v", prm.Links)
	}
}

func TestParse_MalformedXML(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte(`<application><resources>`), "", Options{})
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Code != MalformedDocument {
		t.Fatalf("expected MalformedDocument, got %v", err)
	}
}
