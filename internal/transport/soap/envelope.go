package soap

import (
	"strings"

	"github.com/beevik/etree"
)

const (
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	ServiceNamespace  = "urn:npc:mx:np"
	Operation         = "processNPCMsg"
)

// buildEnvelope wraps xmlMsg in the processNPCMsg RPC call. The inner document is sent
// as escaped text, exactly as the clearinghouse expects it.
func buildEnvelope(userID, password, xmlMsg string) (string, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", EnvelopeNamespace)
	env.CreateAttr("xmlns:np", ServiceNamespace)
	env.CreateElement("soapenv:Header")

	call := env.CreateElement("soapenv:Body").CreateElement("np:" + Operation)
	call.CreateElement("userID").SetText(userID)
	call.CreateElement("password").SetText(password)
	call.CreateElement("xmlMsg").SetText(xmlMsg)

	return doc.WriteToString()
}

// response is the decoded reply of a processNPCMsg call.
type response struct {
	Text  string
	Fault string
}

// parseResponse extracts either the fault string or the return text from a SOAP reply.
// A body that is not a SOAP envelope is returned verbatim as the response text.
func parseResponse(raw []byte) response {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return response{Text: strings.TrimSpace(string(raw))}
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return response{Text: strings.TrimSpace(string(raw))}
	}

	body := root.SelectElement("Body")
	if body == nil {
		return response{}
	}

	if fault := body.SelectElement("Fault"); fault != nil {
		text := "SOAP fault"
		if fs := fault.SelectElement("faultstring"); fs != nil && strings.TrimSpace(fs.Text()) != "" {
			text = strings.TrimSpace(fs.Text())
		}

		return response{Fault: text}
	}

	reply := firstChild(body)
	if reply == nil {
		return response{}
	}

	if ret := firstChild(reply); ret != nil {
		return response{Text: strings.TrimSpace(ret.Text())}
	}

	return response{Text: strings.TrimSpace(reply.Text())}
}

func firstChild(el *etree.Element) *etree.Element {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil
	}

	return children[0]
}
