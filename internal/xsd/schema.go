package xsd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const xmlSchemaNamespace = "http://www.w3.org/2001/XMLSchema"

const unbounded = -1

// Schema is the structural subset of an XSD document: global elements, named complex
// types and their sequence/choice/all content models. Simple-type facets are not checked.
type Schema struct {
	elements map[string]*elementDecl
	types    map[string]*complexType
	builtin  map[string]bool // prefixes bound to the XML Schema namespace
}

type elementDecl struct {
	name     string
	ref      string
	typeName string
	typePfx  string
	inline   *complexType
	min, max int
}

type complexType struct {
	content *group
	// open types (extensions, mixed imports) accept any children
	open bool
}

type group struct {
	kind     string
	items    []*particle
	min, max int
}

type particle struct {
	element  *elementDecl
	group    *group
	wildcard bool
	min, max int
}

func LoadSchema(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	return ParseSchema(raw)
}

func ParseSchema(raw []byte) (*Schema, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "schema" {
		return nil, fmt.Errorf("parse schema: root element is not xs:schema")
	}

	s := &Schema{
		elements: make(map[string]*elementDecl),
		types:    make(map[string]*complexType),
		builtin:  make(map[string]bool),
	}

	for _, attr := range root.Attr {
		if attr.Value != xmlSchemaNamespace {
			continue
		}

		switch {
		case attr.Space == "xmlns":
			s.builtin[attr.Key] = true
		case attr.Space == "" && attr.Key == "xmlns":
			s.builtin[""] = true
		}
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "element":
			decl := parseElement(child)
			s.elements[decl.name] = decl
		case "complexType":
			if name := child.SelectAttrValue("name", ""); name != "" {
				s.types[name] = parseComplexType(child)
			}
		}
	}

	return s, nil
}

func parseElement(el *etree.Element) *elementDecl {
	decl := &elementDecl{
		name: el.SelectAttrValue("name", ""),
		ref:  localName(el.SelectAttrValue("ref", "")),
	}
	decl.min, decl.max = occurs(el)
	decl.typePfx, decl.typeName = splitQName(el.SelectAttrValue("type", ""))

	if decl.name == "" {
		decl.name = decl.ref
	}

	if ct := el.SelectElement("complexType"); ct != nil {
		decl.inline = parseComplexType(ct)
	}

	return decl
}

func parseComplexType(el *etree.Element) *complexType {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "sequence", "choice", "all":
			return &complexType{content: parseGroup(child)}
		case "complexContent":
			return &complexType{open: true}
		case "simpleContent":
			return &complexType{}
		}
	}

	if el.SelectAttrValue("mixed", "") == "true" {
		return &complexType{open: true}
	}

	return &complexType{}
}

func parseGroup(el *etree.Element) *group {
	g := &group{kind: el.Tag}
	g.min, g.max = occurs(el)

	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "element":
			decl := parseElement(child)
			g.items = append(g.items, &particle{element: decl, min: decl.min, max: decl.max})
		case "sequence", "choice", "all":
			nested := parseGroup(child)
			g.items = append(g.items, &particle{group: nested, min: nested.min, max: nested.max})
		case "any":
			p := &particle{wildcard: true}
			p.min, p.max = occurs(child)
			g.items = append(g.items, p)
		}
	}

	return g
}

func occurs(el *etree.Element) (int, int) {
	minOccurs, maxOccurs := 1, 1

	if v := el.SelectAttrValue("minOccurs", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			minOccurs = n
		}
	}

	if v := el.SelectAttrValue("maxOccurs", ""); v != "" {
		if v == "unbounded" {
			maxOccurs = unbounded
		} else if n, err := strconv.Atoi(v); err == nil {
			maxOccurs = n
		}
	}

	return minOccurs, maxOccurs
}

func splitQName(qname string) (string, string) {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[:i], qname[i+1:]
	}

	return "", qname
}

func localName(qname string) string {
	_, name := splitQName(qname)

	return name
}
