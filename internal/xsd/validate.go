package xsd

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Validate checks doc against the schema and returns every structural violation found.
func (s *Schema) Validate(doc *etree.Document) []string {
	root := doc.Root()
	if root == nil {
		return []string{"document has no root element"}
	}

	decl, ok := s.elements[root.Tag]
	if !ok {
		return []string{fmt.Sprintf("no global declaration for root element %s", root.Tag)}
	}

	v := &validation{schema: s}
	v.element(decl, root, "/"+root.Tag)

	return v.errs
}

type validation struct {
	schema *Schema
	errs   []string
}

func (v *validation) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

func (v *validation) resolve(decl *elementDecl) *elementDecl {
	if decl.ref == "" {
		return decl
	}

	if global, ok := v.schema.elements[decl.ref]; ok {
		return global
	}

	return decl
}

// contentOf returns nil, true for simple content and nil, false for open content.
func (v *validation) contentOf(decl *elementDecl) (*complexType, bool) {
	if decl.inline != nil {
		return decl.inline, true
	}

	if decl.typeName == "" {
		// untyped elements default to anyType
		return nil, false
	}

	if v.schema.builtin[decl.typePfx] {
		return nil, true
	}

	if ct, ok := v.schema.types[decl.typeName]; ok {
		return ct, true
	}

	// simple types and imported types are not modelled
	return nil, false
}

func (v *validation) element(decl *elementDecl, el *etree.Element, path string) {
	decl = v.resolve(decl)
	children := el.ChildElements()

	ct, known := v.contentOf(decl)
	if !known || (ct != nil && ct.open) {
		return
	}

	if ct == nil || ct.content == nil {
		if len(children) > 0 {
			v.fail("%s: element %s is not allowed here", path, children[0].Tag)
		}

		return
	}

	pos := v.group(ct.content, children, 0, path)
	if pos < len(children) {
		v.fail("%s: unexpected element %s", path, children[pos].Tag)
	}
}

// group consumes children matching g, honouring its occurrence bounds.
func (v *validation) group(g *group, children []*etree.Element, pos int, path string) int {
	count := 0

	for g.max == unbounded || count < g.max {
		next, matched := v.groupOnce(g, children, pos, path, count < g.min)
		if !matched || next == pos {
			break
		}

		pos = next
		count++
	}

	return pos
}

func (v *validation) groupOnce(g *group, children []*etree.Element, pos int, path string, required bool) (int, bool) {
	switch g.kind {
	case "choice":
		return v.choice(g, children, pos, path, required)
	case "all":
		return v.all(g, children, pos, path, required)
	default:
		return v.sequence(g, children, pos, path, required)
	}
}

func (v *validation) sequence(g *group, children []*etree.Element, pos int, path string, required bool) (int, bool) {
	start := pos
	errsBefore := len(v.errs)

	for _, p := range g.items {
		var n int
		pos, n = v.particle(p, children, pos, path)

		if n < p.min {
			if !required && pos == start {
				v.errs = v.errs[:errsBefore]
				return start, false
			}

			v.fail("%s: missing element %s", path, p.describe())
		}
	}

	return pos, pos > start || required
}

func (v *validation) choice(g *group, children []*etree.Element, pos int, path string, required bool) (int, bool) {
	for _, p := range g.items {
		if pos < len(children) && p.startsWith(v, children[pos]) {
			next, _ := v.particle(p, children, pos, path)

			return next, true
		}
	}

	if required {
		names := make([]string, 0, len(g.items))
		for _, p := range g.items {
			names = append(names, p.describe())
		}

		v.fail("%s: expected one of %s", path, strings.Join(names, ", "))
	}

	return pos, false
}

func (v *validation) all(g *group, children []*etree.Element, pos int, path string, required bool) (int, bool) {
	seen := make(map[*particle]int, len(g.items))
	start := pos

	for pos < len(children) {
		var matched *particle
		for _, p := range g.items {
			if p.startsWith(v, children[pos]) {
				matched = p
				break
			}
		}

		if matched == nil {
			break
		}

		next, _ := v.particle(matched, children, pos, path)
		seen[matched]++
		pos = next
	}

	if pos == start && !required {
		return pos, false
	}

	for _, p := range g.items {
		if seen[p] < p.min {
			v.fail("%s: missing element %s", path, p.describe())
		}
	}

	return pos, true
}

// particle consumes up to p.max consecutive matches and reports how many it took.
func (v *validation) particle(p *particle, children []*etree.Element, pos int, path string) (int, int) {
	n := 0

	for (p.max == unbounded || n < p.max) && pos < len(children) {
		switch {
		case p.wildcard:
			pos++
		case p.element != nil:
			decl := v.resolve(p.element)
			if children[pos].Tag != decl.name {
				return pos, n
			}

			v.element(decl, children[pos], path+"/"+decl.name)
			pos++
		case p.group != nil:
			next, matched := v.groupOnce(p.group, children, pos, path, false)
			if !matched || next == pos {
				return pos, n
			}

			pos = next
		}

		n++
	}

	return pos, n
}

func (p *particle) startsWith(v *validation, el *etree.Element) bool {
	switch {
	case p.wildcard:
		return true
	case p.element != nil:
		return v.resolve(p.element).name == el.Tag
	case p.group != nil:
		for _, item := range p.group.items {
			if item.startsWith(v, el) {
				return true
			}

			if p.group.kind == "sequence" && item.min > 0 {
				return false
			}
		}
	}

	return false
}

func (p *particle) describe() string {
	switch {
	case p.wildcard:
		return "any element"
	case p.element != nil:
		return p.element.name
	default:
		return "(" + p.group.kind + ")"
	}
}
