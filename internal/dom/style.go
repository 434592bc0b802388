package dom

import (
	"strings"
	"unicode"
)

// Classes returns the class list.
func (e *Element) Classes() []string {
	return strings.Fields(e.GetAttribute("class"))
}

// HasClass reports whether class is in the class list.
func (e *Element) HasClass(class string) bool {
	return containsString(e.Classes(), class)
}

// AddClass appends class if it is not present yet.
func (e *Element) AddClass(class string) {
	class = strings.TrimSpace(class)
	if class == "" || e.HasClass(class) {
		return
	}
	e.SetAttribute("class", strings.Join(append(e.Classes(), class), " "))
}

// RemoveClass drops class from the class list.
func (e *Element) RemoveClass(class string) {
	classes := e.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != class {
			kept = append(kept, c)
		}
	}
	e.SetAttribute("class", strings.Join(kept, " "))
}

// SetClassName replaces the whole class attribute.
func (e *Element) SetClassName(s string) {
	e.SetAttribute("class", s)
}

type styleDecl struct {
	prop  string
	value string
}

func parseStyle(s string) []styleDecl {
	var decls []styleDecl
	for _, part := range strings.Split(s, ";") {
		colon := strings.IndexByte(part, ':')
		if colon < 0 {
			continue
		}
		prop := strings.TrimSpace(part[:colon])
		value := strings.TrimSpace(part[colon+1:])
		if prop == "" {
			continue
		}
		decls = append(decls, styleDecl{prop: strings.ToLower(prop), value: value})
	}
	return decls
}

func formatStyle(decls []styleDecl) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + ";"
}

// CSSPropertyName converts camelCase property names (backgroundColor) into
// their CSS form (background-color). Names already in CSS form pass through.
func CSSPropertyName(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Style returns the inline value of a style property.
func (e *Element) Style(prop string) string {
	prop = CSSPropertyName(prop)
	for _, d := range parseStyle(e.GetAttribute("style")) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyle sets one inline style property; an empty value removes it.
func (e *Element) SetStyle(prop, value string) {
	prop = CSSPropertyName(prop)
	decls := parseStyle(e.GetAttribute("style"))
	found := false
	out := decls[:0]
	for _, d := range decls {
		if d.prop == prop {
			found = true
			if value == "" {
				continue
			}
			d.value = value
		}
		out = append(out, d)
	}
	if !found && value != "" {
		out = append(out, styleDecl{prop: prop, value: value})
	}
	e.setStyleAttr(formatStyle(out))
}

// SetStyleText replaces the whole inline style.
func (e *Element) SetStyleText(s string) {
	e.setStyleAttr(strings.TrimSpace(s))
}

func (e *Element) setStyleAttr(s string) {
	if s == "" {
		e.RemoveAttribute("style")
		return
	}
	e.SetAttribute("style", s)
}
