package render

import (
	"reflect"
	"testing"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/parser"
)

const roundTripDoc = `<?xml version="1.0"?>
<application xmlns="http://wadl.dev.java.net/2009/02">
  <doc title="Widget API"><p>Manages <b>widgets</b>.</p></doc>
  <grammars><include href="schema.xsd"/></grammars>
  <resources base="https://api.example.com/v1/">
    <resource id="widgets" path="widgets" type="#pageable">
      <method id="list-widgets" name="GET">
        <request>
          <param name="limit" style="query" type="xs:int" default="20"/>
        </request>
        <response status="200">
          <representation href="#widget-list"/>
        </response>
        <response status="400 404"/>
      </method>
      <resource path="{id}">
        <param name="id" style="template" type="xs:int" required="true"/>
        <method id="get-widget" name="GET">
          <response status="200">
            <representation href="#widget"/>
          </response>
        </method>
      </resource>
    </resource>
  </resources>
  <representation id="widget" mediaType="application/json">
    <param name="name" style="plain" type="xs:string" required="true"/>
    <param name="state" style="plain" type="xs:string">
      <option value="new"/>
      <option value="used"/>
    </param>
    <param name="self_link" style="plain" type="xs:anyURI">
      <link resource_type="#pageable" rel="self"/>
    </param>
  </representation>
  <representation id="widget-list" mediaType="application/json">
    <param name="entries" style="plain" type="xs:string" repeating="true"/>
  </representation>
  <resource_type id="pageable">
    <param name="page" style="query" type="xs:int"/>
    <method id="next" name="GET"/>
  </resource_type>
</application>`

const base = "https://api.example.com/app.wadl"

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	first, err := parser.ParseBytes([]byte(roundTripDoc), base, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rendered := Marshal(first)
	second, err := parser.ParseBytes(rendered, base, parser.Options{})
	if err != nil {
		t.Fatalf("reparse rendered output: %v\n%s", err, rendered)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed the model\nrendered:\n%s", rendered)
	}
}

func TestRoundTrip_RichTextDoc(t *testing.T) {
	t.Parallel()
	doc := `<application xmlns="http://wadl.dev.java.net/2009/02">
	  <doc title="About" xmlns="http://www.w3.org/1999/xhtml"><p>See the <a href="https://x.test/guide">guide</a> for <b>details</b>.</p></doc>
	</application>`
	first, err := parser.ParseBytes([]byte(doc), base, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rendered := Marshal(first)
	second, err := parser.ParseBytes(rendered, base, parser.Options{})
	if err != nil {
		t.Fatalf("reparse rendered output: %v\n%s", err, rendered)
	}
	if got, want := second.Docs[0].Content, first.Docs[0].Content; got != want {
		t.Errorf("doc content changed across a round trip\ngot:  %q\nwant: %q", got, want)
	}
	if second.Docs[0].XMLNS != first.Docs[0].XMLNS {
		t.Errorf("doc xmlns lost: %q", second.Docs[0].XMLNS)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round trip changed the model\nrendered:\n%s", rendered)
	}
}

func TestRender_RefAttr(t *testing.T) {
	t.Parallel()
	rep := &ast.Representation{Ref: ast.Ref{Doc: "https://x.test/a.wadl", ID: "box"}}
	el := renderRepresentation(rep)
	if got := el.AttrOr("href", ""); got != "https://x.test/a.wadl#box" {
		t.Errorf("href: %q", got)
	}
	if len(el.Children) != 0 {
		t.Errorf("reference representation must have no children")
	}
}

func TestRender_OmitsDefaults(t *testing.T) {
	t.Parallel()
	r := &ast.Resource{Path: "a", QueryType: "application/x-www-form-urlencoded"}
	el := renderResource(r)
	if _, ok := el.Attr("queryType"); ok {
		t.Errorf("default queryType should be omitted")
	}
	p := &ast.Param{Name: "x", Style: ast.StyleQuery}
	pel := renderParam(p)
	for _, name := range []string{"required", "repeating", "default", "fixed"} {
		if _, ok := pel.Attr(name); ok {
			t.Errorf("attribute %q should be omitted when zero", name)
		}
	}
}
