package codec

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// Header holds the MessageHeader values of an inbound document.
type Header struct {
	TransTimestamp string `json:"trans_timestamp"`
	Sender         string `json:"sender"`
	NumMessages    string `json:"num_messages"`
}

// Parsed is a decoded inbound message. Body holds the concrete message struct,
// for instance *PortRequestAck for type 1002.
type Parsed struct {
	Type   model.MessageType
	Header Header
	PortID string
	Body   any
}

type fieldMapper interface {
	fields() map[string]any
}

// Fields flattens the header and body into the map persisted with the message record.
func (p *Parsed) Fields() map[string]any {
	out := map[string]any{
		"header": map[string]any{
			"trans_timestamp": p.Header.TransTimestamp,
			"sender":          p.Header.Sender,
			"num_messages":    p.Header.NumMessages,
		},
		"port_id": p.PortID,
	}

	if body, ok := p.Body.(fieldMapper); ok {
		for k, v := range body.fields() {
			out[k] = v
		}
	}

	return out
}

// Parser decodes one inbound message type.
type Parser interface {
	MessageType() model.MessageType
	BodyElement() string
	Parse(xml string) (*Parsed, error)
}

type reader struct {
	root *etree.Element
	body *etree.Element
}

func newReader(xml, bodyElement string) (*reader, error) {
	root, err := parseRoot(xml)
	if err != nil {
		return nil, err
	}

	body := root.FindElement(MessageElement + "/" + bodyElement)
	if body == nil {
		return nil, model.NewValidationError("missing %s/%s element", MessageElement, bodyElement)
	}

	return &reader{root: root, body: body}, nil
}

func parseRoot(xml string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil, model.NewValidationError("malformed XML: %v", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != RootElement {
		return nil, model.NewValidationError("root element must be %s", RootElement)
	}

	if root.NamespaceURI() != Namespace {
		return nil, model.NewValidationError("root namespace %q, expected %q", root.NamespaceURI(), Namespace)
	}

	return root, nil
}

// BodyElement returns the local name of the first element inside NPCMessage.
func BodyElement(xml string) (string, error) {
	root, err := parseRoot(xml)
	if err != nil {
		return "", err
	}

	msg := root.SelectElement(MessageElement)
	if msg == nil {
		return "", model.NewValidationError("missing %s element", MessageElement)
	}

	children := msg.ChildElements()
	if len(children) == 0 {
		return "", model.NewValidationError("empty %s element", MessageElement)
	}

	return children[0].Tag, nil
}

func (r *reader) value(path string) string {
	el := r.body.FindElement(path)
	if el == nil {
		return ""
	}

	return strings.TrimSpace(el.Text())
}

func (r *reader) requiredValue(path string) (string, error) {
	v := r.value(path)
	if v == "" {
		return "", model.NewValidationError("missing required XML value for path %s/%s", r.body.Tag, path)
	}

	return v, nil
}

func (r *reader) values(path string) []string {
	elements := r.body.FindElements(path)
	out := make([]string, 0, len(elements))

	for _, el := range elements {
		out = append(out, strings.TrimSpace(el.Text()))
	}

	return out
}

func (r *reader) header() Header {
	text := func(path string) string {
		if el := r.root.FindElement(HeaderElement + "/" + path); el != nil {
			return strings.TrimSpace(el.Text())
		}

		return ""
	}

	return Header{
		TransTimestamp: text("TransTimestamp"),
		Sender:         text("Sender"),
		NumMessages:    text("NumOfMessages"),
	}
}

// numbers skips entries lacking either bound.
func (r *reader) numbers() []model.NumberRange {
	var ranges []model.NumberRange

	for _, number := range r.body.FindElements("Numbers/Number") {
		start, end := childText(number, "StartNum"), childText(number, "EndNum")
		if start == "" || end == "" {
			continue
		}

		ranges = append(ranges, model.NumberRange{Start: start, End: end})
	}

	return ranges
}

func (r *reader) parsed(mt model.MessageType, portID string, body any) *Parsed {
	return &Parsed{Type: mt, Header: r.header(), PortID: portID, Body: body}
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}

	return strings.TrimSpace(child.Text())
}

func rangesToFields(ranges []model.NumberRange) []map[string]string {
	out := make([]map[string]string, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, map[string]string{"start": r.Start, "end": r.End})
	}

	return out
}
