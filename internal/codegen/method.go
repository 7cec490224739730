package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apiweave/wadl2go/internal/ast"
	"github.com/apiweave/wadl2go/internal/resolver"
)

// reservedLocals are identifiers the generated method bodies use themselves.
var reservedLocals = map[string]struct{}{
	"ctx": {}, "r": {}, "c": {}, "u": {}, "q": {}, "req": {}, "resp": {},
	"body": {}, "err": {}, "out": {}, "ch": {}, "data": {}, "v": {},
}

// methodPlan is everything needed to emit one generated method.
type methodPlan struct {
	name    string
	verb    string
	args    []arg // matrix, query, header args in declared order
	fixed   []ast.Param
	bodyArg *bodyPlan
	ret     *retPlan
	success []string // Go conditions on resp.Status that count as success
	doc     string
}

type bodyPlan struct {
	goType    string // "*Widget" or "[]byte"
	mediaType string
	json      bool
}

type retPlan struct {
	goType     string // "*Widget" or "[]byte"
	structType string // "Widget" when json-decoded
	json       bool
}

func (g *generator) emitMethod(recv, name string, eff *effective, m *ast.Method) error {
	plan, err := g.planMethod(name, eff, m)
	if err != nil {
		return err
	}
	if g.opts.IncludeDocComments && plan.doc != "" {
		g.comment(plan.doc)
	}
	if g.opts.HTTPMode == "async" {
		g.emitAsyncWrapper(recv, plan)
		plan.name = "do" + plan.name
	}
	g.emitSyncMethod(recv, plan)
	return nil
}

func (g *generator) planMethod(name string, eff *effective, m *ast.Method) (*methodPlan, error) {
	plan := &methodPlan{name: name, verb: m.Name}
	owner := eff.owners[m]
	if len(m.Docs) > 0 {
		plan.doc = docText(m.Docs[0], g.opts.StripCodeExamples)
	}

	taken := make(map[string]string)
	addArg := func(p ast.Param, subject string) error {
		if p.Fixed != "" {
			plan.fixed = append(plan.fixed, p)
			return nil
		}
		goName := localName(p.Name)
		if goName == "" {
			return &GenerateError{
				Code:    NamingCollision,
				Subject: subject,
				Message: fmt.Sprintf("param %q is a reserved word in Go", p.Name),
			}
		}
		if _, bad := reservedLocals[goName]; bad {
			return &GenerateError{
				Code:    NamingCollision,
				Subject: subject,
				Message: fmt.Sprintf("param %q collides with a generated local", p.Name),
			}
		}
		if _, dup := taken[goName]; dup {
			// resource-level param shadowed by a request-level redeclaration
			return nil
		}
		taken[goName] = p.Name

		base, ok := goType(p.Type)
		if !ok {
			return &GenerateError{
				Code:    UnsupportedTypeMapping,
				Subject: subject + "." + p.Name,
				Message: fmt.Sprintf("no Go mapping for type %q", p.Type),
			}
		}
		t := base
		switch {
		case p.Repeating:
			t = "[]" + base
		case !p.Required && base != "[]byte":
			t = "*" + base
		}
		plan.args = append(plan.args, arg{goName: goName, goType: t, param: p})
		return nil
	}

	carried := func(params []ast.Param) error {
		for _, p := range params {
			switch p.Style {
			case ast.StyleMatrix, ast.StyleQuery, ast.StyleHeader:
				if err := addArg(p, eff.path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := carried(eff.params); err != nil {
		return nil, err
	}
	if m.Request != nil {
		if err := carried(m.Request.Params); err != nil {
			return nil, err
		}
		if rep := g.prefer(owner, m.Request.Representations); rep != nil {
			bp := &bodyPlan{mediaType: rep.MediaType, json: isJSON(rep.MediaType), goType: "[]byte"}
			if bp.json {
				if s, ok := g.table.Lookup(g.res, owner, rep); ok {
					bp.goType = "*" + g.shapeType(s.Key)
				}
			}
			plan.bodyArg = bp
		}
	}

	if err := g.planResponses(plan, owner, m); err != nil {
		return nil, err
	}
	return plan, nil
}

func (g *generator) planResponses(plan *methodPlan, owner *resolver.Document, m *ast.Method) error {
	any2xx := "resp.Status >= 200 && resp.Status < 300"
	if len(m.Responses) == 0 {
		plan.success = []string{any2xx}
		return nil
	}
	for i := range m.Responses {
		resp := &m.Responses[i]
		if len(resp.Status) == 0 {
			plan.success = append(plan.success, any2xx)
		} else {
			ok := false
			for _, s := range resp.Status {
				if s >= 200 && s < 300 {
					plan.success = append(plan.success, "resp.Status == "+strconv.Itoa(s))
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if plan.ret == nil {
			if rep := g.prefer(owner, resp.Representations); rep != nil {
				rp := &retPlan{json: isJSON(rep.MediaType), goType: "[]byte"}
				if rp.json {
					if s, ok := g.table.Lookup(g.res, owner, rep); ok {
						rp.structType = g.shapeType(s.Key)
						rp.goType = "*" + rp.structType
					} else {
						rp.json = false
					}
				}
				plan.ret = rp
			}
		}
	}
	if len(plan.success) == 0 {
		plan.success = []string{any2xx}
	}
	return nil
}

// prefer picks the representation matching the earliest configured media
// type, falling back to the first one declared. Refs are dereferenced
// against the document that declared them.
func (g *generator) prefer(owner *resolver.Document, reps []*ast.Representation) *ast.Representation {
	if len(reps) == 0 {
		return nil
	}
	deref := func(rep *ast.Representation) *ast.Representation {
		if !rep.IsRef() {
			return rep
		}
		if target, ok := g.res.Representation(owner, rep.Ref); ok {
			return target
		}
		return nil
	}
	for _, want := range g.opts.MediaTypePreference {
		for _, rep := range reps {
			if d := deref(rep); d != nil && d.MediaType == want {
				return d
			}
		}
	}
	return deref(reps[0])
}

func isJSON(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// shapeType returns the Go type text for a shape: its named type, or the
// anonymous struct literal when the shape was inlined.
func (g *generator) shapeType(key string) string {
	if lit, ok := g.inline[key]; ok {
		return lit
	}
	return g.structName[key]
}

func (p *methodPlan) signatureArgs() string {
	parts := []string{"ctx context.Context"}
	for _, a := range p.args {
		parts = append(parts, a.goName+" "+a.goType)
	}
	if p.bodyArg != nil {
		parts = append(parts, "body "+p.bodyArg.goType)
	}
	return strings.Join(parts, ", ")
}

func (p *methodPlan) callArgs() string {
	parts := []string{"ctx"}
	for _, a := range p.args {
		parts = append(parts, a.goName)
	}
	if p.bodyArg != nil {
		parts = append(parts, "body")
	}
	return strings.Join(parts, ", ")
}

func (g *generator) emitAsyncWrapper(recv string, p *methodPlan) {
	outType := "struct{}"
	if p.ret != nil {
		outType = p.ret.goType
	}
	g.printf("func (%s) %s(%s) <-chan client.Outcome[%s] {\n", recv, p.name, p.signatureArgs(), outType)
	g.printf("\tch := make(chan client.Outcome[%s], 1)\n", outType)
	g.printf("\tgo func() {\n\t\tdefer close(ch)\n")
	if p.ret != nil {
		g.printf("\t\tv, err := r.do%s(%s)\n", p.name, p.callArgs())
		g.printf("\t\tch <- client.Outcome[%s]{Value: v, Err: err}\n", outType)
	} else {
		g.printf("\t\terr := r.do%s(%s)\n", p.name, p.callArgs())
		g.printf("\t\tch <- client.Outcome[struct{}]{Err: err}\n")
	}
	g.printf("\t}()\n\treturn ch\n}\n\n")
}

func (g *generator) emitSyncMethod(recv string, p *methodPlan) {
	failure := "return err"
	fail := func(expr string) string { return "return " + expr }
	if p.ret != nil {
		g.printf("func (%s) %s(%s) (%s, error) {\n", recv, p.name, p.signatureArgs(), p.ret.goType)
		failure = "return nil, err"
		fail = func(expr string) string { return "return nil, " + expr }
	} else {
		g.printf("func (%s) %s(%s) error {\n", recv, p.name, p.signatureArgs())
	}

	g.printf("\tu, err := url.Parse(r.url)\n\tif err != nil {\n\t\t%s\n\t}\n", failure)
	for _, a := range p.args {
		if a.param.Style == ast.StyleMatrix {
			g.emitMatrixArg(a)
		}
	}
	g.printf("\tq := u.Query()\n")
	for _, a := range p.args {
		if a.param.Style == ast.StyleQuery {
			g.emitQueryArg(a)
		}
	}
	for _, f := range p.fixed {
		if f.Style == ast.StyleQuery {
			g.printf("\tq.Set(%q, %q)\n", f.Name, f.Fixed)
		}
	}
	g.printf("\tu.RawQuery = q.Encode()\n")

	g.printf("\treq := &client.Request{Method: %q, URL: u.String(), Header: http.Header{}}\n", p.verb)
	for _, a := range p.args {
		if a.param.Style == ast.StyleHeader {
			g.emitHeaderArg(a)
		}
	}
	for _, f := range p.fixed {
		if f.Style == ast.StyleHeader {
			g.printf("\treq.Header.Set(%q, %q)\n", f.Name, f.Fixed)
		}
	}
	if p.bodyArg != nil {
		if p.bodyArg.json {
			g.printf("\tif body != nil {\n")
			g.printf("\t\tdata, err := json.Marshal(body)\n\t\tif err != nil {\n\t\t\t%s\n\t\t}\n", failure)
			g.printf("\t\treq.Body = data\n\t}\n")
		} else {
			g.printf("\treq.Body = body\n")
		}
		g.printf("\treq.Header.Set(\"Content-Type\", %q)\n", p.bodyArg.mediaType)
	}
	if p.ret != nil && p.ret.json {
		g.printf("\treq.Header.Set(\"Accept\", \"application/json\")\n")
	}

	g.printf("\tresp, err := r.c.Transport.Do(ctx, req)\n\tif err != nil {\n\t\t%s\n\t}\n", failure)
	g.printf("\tswitch {\n\tcase %s:\n", strings.Join(dedupe(p.success), " || "))
	switch {
	case p.ret == nil:
		g.printf("\t\treturn nil\n")
	case p.ret.json:
		g.printf("\t\tvar out %s\n", p.ret.structType)
		g.printf("\t\tif err := json.Unmarshal(resp.Body, &out); err != nil {\n\t\t\t%s\n\t\t}\n", failure)
		g.printf("\t\treturn &out, nil\n")
	default:
		g.printf("\t\treturn resp.Body, nil\n")
	}
	g.printf("\tdefault:\n\t\t%s\n\t}\n}\n\n", fail("&client.UnexpectedStatusError{Status: resp.Status, Body: resp.Body}"))
}

func (g *generator) emitMatrixArg(a arg) {
	set := func(indent, val string) {
		g.printf("%su.Path += \";\" + %q + \"=\" + url.PathEscape(formatValue(%s))\n", indent, a.param.Name, val)
	}
	switch {
	case strings.HasPrefix(a.goType, "[]") && a.goType != "[]byte":
		g.printf("\tfor _, v := range %s {\n", a.goName)
		set("\t\t", "v")
		g.printf("\t}\n")
	case strings.HasPrefix(a.goType, "*"):
		g.printf("\tif %s != nil {\n", a.goName)
		set("\t\t", "*"+a.goName)
		g.printf("\t}\n")
	default:
		set("\t", a.goName)
	}
}

func (g *generator) emitQueryArg(a arg) {
	switch {
	case strings.HasPrefix(a.goType, "[]") && a.goType != "[]byte":
		g.printf("\tfor _, v := range %s {\n\t\tq.Add(%q, formatValue(v))\n\t}\n", a.goName, a.param.Name)
	case strings.HasPrefix(a.goType, "*"):
		g.printf("\tif %s != nil {\n\t\tq.Add(%q, formatValue(*%s))\n\t}\n", a.goName, a.param.Name, a.goName)
	default:
		g.printf("\tq.Add(%q, formatValue(%s))\n", a.param.Name, a.goName)
	}
}

func (g *generator) emitHeaderArg(a arg) {
	switch {
	case strings.HasPrefix(a.goType, "[]") && a.goType != "[]byte":
		g.printf("\tfor _, v := range %s {\n\t\treq.Header.Add(%q, formatValue(v))\n\t}\n", a.goName, a.param.Name)
	case strings.HasPrefix(a.goType, "*"):
		g.printf("\tif %s != nil {\n\t\treq.Header.Set(%q, formatValue(*%s))\n\t}\n", a.goName, a.param.Name, a.goName)
	default:
		g.printf("\treq.Header.Set(%q, formatValue(%s))\n", a.param.Name, a.goName)
	}
}

func dedupe(conds []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, c := range conds {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// emitHelpers writes the small URL helpers shared by generated methods.
func (g *generator) emitHelpers() {
	g.printf("func joinPath(base, seg string) string {\n")
	g.printf("\tif seg == \"\" {\n\t\treturn base\n\t}\n")
	g.printf("\treturn strings.TrimRight(base, \"/\") + \"/\" + strings.TrimLeft(seg, \"/\")\n}\n\n")
	g.printf("func pathValue(v any) string {\n\treturn url.PathEscape(formatValue(v))\n}\n\n")
	g.printf("func formatValue(v any) string {\n")
	g.printf("\tif t, ok := v.(time.Time); ok {\n\t\treturn t.Format(time.RFC3339)\n\t}\n")
	g.printf("\treturn fmt.Sprint(v)\n}\n")
}
