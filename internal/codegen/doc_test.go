package codegen

import (
	"strings"
	"testing"

	"github.com/apiweave/wadl2go/internal/ast"
)

func xhtmlDoc(content string) ast.Doc {
	return ast.Doc{XMLNS: xhtmlNS, Content: content}
}

func TestDocText_PlainText(t *testing.T) {
	t.Parallel()
	got := docText(ast.Doc{Content: "  Returns   the widget\n  collection.  "}, false)
	if got != "Returns the widget collection." {
		t.Errorf("got %q", got)
	}
}

func TestDocText_StripsMarkup(t *testing.T) {
	t.Parallel()
	in := xhtmlDoc(`<p>Lists widgets.</p><p>Supports <em>paging</em>.</p>`)
	got := docText(in, false)
	want := "Lists widgets.\n\nSupports paging."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDocText_Links(t *testing.T) {
	t.Parallel()
	in := xhtmlDoc(`<p>See the <a href="https://x.test/guide">guide</a> for details.</p>`)
	got := docText(in, false)
	want := "See the [guide](https://x.test/guide) for details."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	// an anchor without a target keeps just its text
	in = xhtmlDoc(`<p>See the <a>guide</a>.</p>`)
	if got := docText(in, false); got != "See the guide." {
		t.Errorf("got %q", got)
	}
}

func TestDocText_InlineCode(t *testing.T) {
	t.Parallel()
	in := xhtmlDoc(`<p>Pass <code>limit=0</code> to disable paging.</p>`)
	got := docText(in, false)
	want := "Pass `limit=0` to disable paging."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDocText_CodeBlocks(t *testing.T) {
	t.Parallel()
	in := xhtmlDoc(`<p>Example:</p><pre>GET /widgets</pre>`)
	got := docText(in, false)
	want := "Example:\n\n```\nGET /widgets\n```"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	got = docText(in, true)
	if strings.Contains(got, "GET /widgets") || strings.Contains(got, "```") {
		t.Errorf("code block kept despite strip: %q", got)
	}
	if !strings.Contains(got, "Example:") {
		t.Errorf("prose dropped with the code block: %q", got)
	}
}

func TestDocText_ForeignNamespacePassesThrough(t *testing.T) {
	t.Parallel()
	in := ast.Doc{
		XMLNS:   "http://docbook.org/ns/docbook",
		Content: `<para>Lists <emphasis>widgets</emphasis>.</para>`,
	}
	if got := docText(in, false); got != in.Content {
		t.Errorf("foreign-namespace content must pass through, got %q", got)
	}
}

func TestDocText_UnqualifiedMarkupConverts(t *testing.T) {
	t.Parallel()
	in := ast.Doc{Content: `<p>Lists widgets.</p>`}
	if got := docText(in, false); got != "Lists widgets." {
		t.Errorf("got %q", got)
	}
}

func TestDocText_MalformedPassesThrough(t *testing.T) {
	t.Parallel()
	in := ast.Doc{Content: "uses <unclosed markup"}
	if got := docText(in, false); got != in.Content {
		t.Errorf("malformed content must pass through, got %q", got)
	}
}

func TestDocText_Empty(t *testing.T) {
	t.Parallel()
	if got := docText(ast.Doc{Content: "   "}, false); got != "" {
		t.Errorf("got %q", got)
	}
}
