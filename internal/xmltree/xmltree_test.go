package xmltree

import (
	"strings"
	"testing"
)

func TestParse_Basic(t *testing.T) {
	t.Parallel()
	root, err := ParseBytes([]byte(`
		<application xmlns="http://wadl.dev.java.net/2009/02">
			<resources base="https://api.example.com/">
				<resource path="widgets/{id}">
					<method name="GET" id="getWidget"/>
				</resource>
			</resources>
		</application>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if root.Name != "application" {
		t.Errorf("root name: got %q", root.Name)
	}
	rs := root.First("resources")
	if rs == nil {
		t.Fatalf("missing resources element")
	}
	if got := rs.AttrOr("base", ""); got != "https://api.example.com/" {
		t.Errorf("base attr: got %q", got)
	}
	r := rs.First("resource")
	if r == nil || r.AttrOr("path", "") != "widgets/{id}" {
		t.Fatalf("resource child missing or wrong path: %+v", r)
	}
	if m := r.First("method"); m == nil || m.AttrOr("id", "") != "getWidget" {
		t.Errorf("method child: %+v", m)
	}
}

func TestParse_TextAndInnerXML(t *testing.T) {
	t.Parallel()
	root, err := ParseBytes([]byte(`<doc title="About">Widgets are <em>great</em>.</doc>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	inner := root.InnerXML()
	if !strings.Contains(inner, "<em>great</em>") {
		t.Errorf("inner xml: got %q", inner)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"unbalanced", "<a><b></a>"},
		{"truncated", "<a><b>"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseBytes([]byte(tc.input)); err == nil {
				t.Fatalf("expected error for %q", tc.input)
			}
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()
	in := `<application><resources base="http://x/"><resource path="a"><doc>hi</doc></resource></resources></application>`
	root, err := ParseBytes([]byte(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := Marshal(root)
	again, err := ParseBytes(out)
	if err != nil {
		t.Fatalf("reparse: %v\noutput:\n%s", err, out)
	}
	if again.First("resources") == nil {
		t.Fatalf("round-trip lost resources element:\n%s", out)
	}
	if got := again.First("resources").AttrOr("base", ""); got != "http://x/" {
		t.Errorf("round-trip base: got %q", got)
	}
}

func TestWrite_MixedContentStaysCompact(t *testing.T) {
	t.Parallel()
	root, err := ParseBytes([]byte(`<doc title="x"><p>Manages <b>widgets</b>.</p></doc>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := string(Marshal(root))
	if !strings.Contains(out, "<p>Manages <b>widgets</b>.</p>") {
		t.Fatalf("mixed content was reformatted:\n%s", out)
	}
	again, err := ParseBytes([]byte(out))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got, want := again.InnerXML(), root.InnerXML(); got != want {
		t.Errorf("inner xml changed across a write\ngot:  %q\nwant: %q", got, want)
	}
}

func TestEscapeAttr(t *testing.T) {
	t.Parallel()
	root := &Element{Name: "e"}
	root.SetAttr("v", `a<b&"c"`)
	out := string(Marshal(root))
	if !strings.Contains(out, `v="a&lt;b&amp;&#34;c&#34;"`) {
		t.Errorf("escaped output: %s", out)
	}
}
