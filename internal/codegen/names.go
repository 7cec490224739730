package codegen

import (
	"strings"
	"unicode"
)

// goKeywords are identifiers the generator refuses to emit.
var goKeywords = map[string]struct{}{
	"break": {}, "case": {}, "chan": {}, "const": {}, "continue": {},
	"default": {}, "defer": {}, "else": {}, "fallthrough": {}, "for": {},
	"func": {}, "go": {}, "goto": {}, "if": {}, "import": {},
	"interface": {}, "map": {}, "package": {}, "range": {}, "return": {},
	"select": {}, "struct": {}, "switch": {}, "type": {}, "var": {},
}

// commonInitialisms get upper-cased wholesale in exported names.
var commonInitialisms = map[string]string{
	"id": "ID", "url": "URL", "uri": "URI", "http": "HTTP", "api": "API",
	"json": "JSON", "xml": "XML", "html": "HTML", "uuid": "UUID", "ip": "IP",
}

// splitWords breaks an identifier from any of the WADL naming habits
// (kebab-case, snake_case, dotted, camelCase) into lower-case words.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case r == '-' || r == '_' || r == '.' || r == ' ' || r == '/':
			flush()
		case unicode.IsUpper(r) && prev != 0 && !unicode.IsUpper(prev):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return words
}

// exportedName converts a WADL identifier to an exported Go name.
func exportedName(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		if init, ok := commonInitialisms[w]; ok {
			b.WriteString(init)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	name := b.String()
	if name == "" {
		return name
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = "X" + name
	}
	return name
}

// localName converts a WADL identifier to an unexported Go name. The empty
// string means the identifier cannot be expressed (reserved word).
func localName(s string) string {
	words := splitWords(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		if init, ok := commonInitialisms[w]; ok {
			b.WriteString(init)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	name := b.String()
	if _, reserved := goKeywords[name]; reserved {
		return ""
	}
	if !unicode.IsLetter(rune(name[0])) {
		name = "x" + name
	}
	return name
}

// snakeName renders an identifier as snake_case, used when NamingStyle is
// "snake" for wire names that had none declared.
func snakeName(s string) string {
	return strings.Join(splitWords(s), "_")
}

// pathSlug flattens a path template into an identifier source.
func pathSlug(path string) string {
	s := strings.NewReplacer("{", "", "}", "", "/", "-").Replace(path)
	return strings.Trim(s, "-")
}
