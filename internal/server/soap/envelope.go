package soap

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/Ometra-Hela/Alize/internal/model"
	soapclient "github.com/Ometra-Hela/Alize/internal/transport/soap"
)

const (
	faultClient = "soapenv:Client"
	faultServer = "soapenv:Server"
)

type inboundAttachment struct {
	FileName string
	MimeType string
	Content  string
}

// inboundCall holds the processNPCMsg arguments. Elements are matched by local
// name because senders disagree on prefixes and on userId/userID casing.
type inboundCall struct {
	UserID      string
	Password    string
	XMLMsg      string
	Attachments []inboundAttachment
}

func parseCall(raw []byte) (*inboundCall, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, model.NewValidationError("malformed SOAP envelope: %v", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, model.NewValidationError("request is not a SOAP envelope")
	}

	body := root.SelectElement("Body")
	if body == nil {
		return nil, model.NewValidationError("SOAP envelope has no Body")
	}

	call := &inboundCall{}
	collect(body, call)

	if call.XMLMsg == "" {
		return nil, model.NewMissingFieldError("xmlMsg")
	}

	return call, nil
}

func collect(el *etree.Element, call *inboundCall) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "userId", "userID":
			call.UserID = strings.TrimSpace(child.Text())
		case "password", "passwordBase64":
			call.Password = strings.TrimSpace(child.Text())
		case "xmlMsg":
			call.XMLMsg = innerMessage(child)
		case "attachment":
			call.Attachments = append(call.Attachments, inboundAttachment{
				FileName: childText(child, "filename", "fileName"),
				MimeType: childText(child, "mimeType"),
				Content:  childText(child, "content"),
			})
		default:
			collect(child, call)
		}
	}
}

// innerMessage returns the clearinghouse document carried by xmlMsg, either as
// escaped text or CDATA, or embedded as a literal element.
func innerMessage(el *etree.Element) string {
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}

	children := el.ChildElements()
	if len(children) == 0 {
		return ""
	}

	doc := etree.NewDocument()
	doc.SetRoot(children[0].Copy())

	out, err := doc.WriteToString()
	if err != nil {
		return ""
	}

	return out
}

func childText(el *etree.Element, names ...string) string {
	for _, name := range names {
		if c := el.SelectElement(name); c != nil {
			return strings.TrimSpace(c.Text())
		}
	}

	return ""
}

// portIDOf finds a PortID anywhere in a clearinghouse document the registry could
// not decode, so the record can still be tied to its case.
func portIDOf(xmlMsg string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(xmlMsg); err != nil {
		return ""
	}

	if el := doc.FindElement("//PortID"); el != nil {
		return strings.TrimSpace(el.Text())
	}

	return ""
}

func buildFault(code, message string) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapclient.EnvelopeNamespace)

	fault := env.CreateElement("soapenv:Body").CreateElement("soapenv:Fault")
	fault.CreateElement("faultcode").SetText(code)
	fault.CreateElement("faultstring").SetText(message)

	out, err := doc.WriteToBytes()
	if err != nil {
		return []byte(message)
	}

	return out
}
