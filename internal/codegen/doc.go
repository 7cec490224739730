package codegen

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
)

const xhtmlNS = "http://www.w3.org/1999/xhtml"

// docText flattens a doc body into comment-friendly plain text. XHTML markup
// (declared or unqualified) is converted: block elements become paragraph
// breaks, links keep their targets as [text](href), inline code gets
// backticks, and pre blocks become fenced code, dropped entirely when
// stripCode is set. Content declared in any other namespace, and content
// that does not scan as XML, is passed through untouched.
func docText(d ast.Doc, stripCode bool) string {
	content := strings.TrimSpace(d.Content)
	if content == "" {
		return ""
	}
	if !strings.Contains(content, "<") {
		return collapseSpace(content)
	}
	if d.XMLNS != "" && d.XMLNS != xhtmlNS {
		return content
	}

	dec := xml.NewDecoder(strings.NewReader("<d>" + content + "</d>"))
	var b strings.Builder
	var hrefs []string
	preDepth := 0
	codeDepth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return content
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pre":
				if preDepth == 0 && !stripCode {
					b.WriteString("\n```\n")
				}
				preDepth++
			case "code":
				if preDepth == 0 && codeDepth == 0 {
					b.WriteString("`")
				}
				codeDepth++
			case "a":
				href := ""
				for _, a := range t.Attr {
					if a.Name.Local == "href" {
						href = a.Value
					}
				}
				hrefs = append(hrefs, href)
				if href != "" {
					b.WriteString("[")
				}
			case "p", "div", "ul", "ol", "li", "br", "h1", "h2", "h3", "table", "tr":
				if preDepth == 0 {
					b.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "pre":
				preDepth--
				if preDepth == 0 && !stripCode {
					b.WriteString("\n```\n")
				}
			case "code":
				codeDepth--
				if preDepth == 0 && codeDepth == 0 {
					b.WriteString("`")
				}
			case "a":
				href := hrefs[len(hrefs)-1]
				hrefs = hrefs[:len(hrefs)-1]
				if href != "" {
					b.WriteString("](" + href + ")")
				}
			case "p", "div", "ul", "ol", "li", "h1", "h2", "h3", "table", "tr":
				if preDepth == 0 {
					b.WriteString("\n")
				}
			}
		case xml.CharData:
			if preDepth > 0 {
				if !stripCode {
					b.WriteString(string(t))
				}
				continue
			}
			s := string(t)
			c := collapseSpace(s)
			if c == "" {
				continue
			}
			// keep word boundaries that inline elements split apart
			if strings.TrimLeft(s, " \t\r\n") != s {
				b.WriteString(" ")
			}
			b.WriteString(c)
			if strings.TrimRight(s, " \t\r\n") != s {
				b.WriteString(" ")
			}
		}
	}
	return tidyLines(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidyLines trims each line and squeezes runs of blank lines down to one.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
