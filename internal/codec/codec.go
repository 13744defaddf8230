// Package codec builds and parses the NPCData XML documents exchanged with the clearinghouse.
package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
)

const (
	Namespace       = "urn:npc:mx:np"
	RootElement     = "NPCData"
	HeaderElement   = "MessageHeader"
	MessageElement  = "NPCMessage"
	timestampLayout = transform.ProtocolTimestampLayout
)

// Envelope carries the header values shared by every outbound document. Timestamp stamps
// both the header TransTimestamp and the body Timestamp so output is reproducible.
type Envelope struct {
	Sender    string
	Timestamp time.Time
}

// Builder renders one outbound message type.
type Builder interface {
	MessageType() model.MessageType
	Build() (string, error)
}

type document struct {
	doc        *etree.Document
	npcMessage *etree.Element
}

func newDocument(env Envelope) *document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(RootElement)
	root.CreateAttr("xmlns", Namespace)

	header := root.CreateElement(HeaderElement)
	appendChild(header, "TransTimestamp", env.Timestamp.Format(timestampLayout))
	appendChild(header, "Sender", env.Sender)
	appendChild(header, "NumOfMessages", "1")

	return &document{doc: doc, npcMessage: root.CreateElement(MessageElement)}
}

func (d *document) body(name string) *etree.Element {
	return d.npcMessage.CreateElement(name)
}

func (d *document) xml() (string, error) {
	d.doc.Indent(2)

	return d.doc.WriteToString()
}

func appendChild(parent *etree.Element, name, value string) *etree.Element {
	el := parent.CreateElement(name)
	el.SetText(value)

	return el
}

func appendChildIfPresent(parent *etree.Element, name, value string) {
	if value == "" {
		return
	}

	appendChild(parent, name, value)
}

// appendNumbers writes TotalPhoneNums followed by the Numbers section.
func appendNumbers(parent *etree.Element, ranges []model.NumberRange) error {
	total, err := transform.CountNumbers(ranges)
	if err != nil {
		return err
	}

	appendChild(parent, "TotalPhoneNums", strconv.Itoa(total))

	numbers := parent.CreateElement("Numbers")
	for _, r := range ranges {
		number := numbers.CreateElement("Number")
		appendChild(number, "StartNum", r.Start)
		appendChild(number, "EndNum", r.End)
	}

	return nil
}

func appendAttachments(parent *etree.Element, fileNames []string) {
	if len(fileNames) == 0 {
		return
	}

	appendChild(parent, "NumOfFiles", strconv.Itoa(len(fileNames)))

	files := parent.CreateElement("AttachedFiles")
	for _, name := range fileNames {
		appendChild(files, "FileName", name)
	}
}

type field struct {
	name  string
	value string
}

// requireFields fails on the first empty protocol-mandated value.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return model.NewMissingFieldError(f.name)
		}
	}

	return nil
}

func requireEnvelope(env Envelope) error {
	if err := requireFields(field{"sender", env.Sender}); err != nil {
		return err
	}

	if env.Timestamp.IsZero() {
		return model.NewMissingFieldError("timestamp")
	}

	return nil
}

func requireNumbers(ranges []model.NumberRange) error {
	if len(ranges) == 0 {
		return model.NewMissingFieldError("numbers")
	}

	return nil
}

func formatTime(t time.Time) string {
	return transform.FormatProtocolTime(t)
}
