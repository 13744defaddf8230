package codec_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/model"
)

var fixedTime = time.Date(2025, 3, 12, 13, 15, 0, 0, time.UTC)

func samplePortRequest() codec.PortRequest {
	return codec.PortRequest{
		Envelope:        codec.Envelope{Sender: "RCP", Timestamp: fixedTime},
		PortType:        model.PortTypeMobile,
		SubscriberType:  model.SubscriberTypeIndividual,
		RecoveryFlag:    model.RecoveryFlagNo,
		PortID:          "RCP202503121315000042",
		FolioID:         "RCP250312131500042",
		SubsReqTime:     fixedTime,
		ReqPortExecDate: time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC),
		DIDA:            "DON",
		DCR:             "D01",
		RIDA:            "RCP",
		RCR:             "R01",
		Numbers: []model.NumberRange{
			{Start: "5512345670", End: "5512345679"},
			{Start: "5598765432", End: "5598765432"},
		},
		Pin:         "1234",
		Comments:    "Cliente & <familia>",
		Attachments: []string{"ine.pdf", "contrato.pdf"},
	}
}

func TestPortRequestRoundTrip(t *testing.T) {
	msg := samplePortRequest()

	xml, err := msg.Build()
	require.NoError(t, err)

	assert.Contains(t, xml, `xmlns="urn:npc:mx:np"`)
	assert.Contains(t, xml, "<TotalPhoneNums>11</TotalPhoneNums>")
	assert.Contains(t, xml, "<TransTimestamp>20250312131500</TransTimestamp>")
	assert.Contains(t, xml, "<NumOfMessages>1</NumOfMessages>")
	assert.Contains(t, xml, "<NumOfFiles>2</NumOfFiles>")
	assert.Contains(t, xml, "&amp;")
	assert.Less(t, strings.Index(xml, "<MessageHeader>"), strings.Index(xml, "<NPCMessage>"))

	parsed, err := codec.PortRequestParser{}.Parse(xml)
	require.NoError(t, err)
	assert.Equal(t, msg.PortID, parsed.PortID)
	assert.Equal(t, "RCP", parsed.Header.Sender)
	assert.Equal(t, "20250312131500", parsed.Header.TransTimestamp)

	body, ok := parsed.Body.(*codec.PortRequestData)
	require.True(t, ok)
	assert.Equal(t, codec.PortRequestData{
		PortType:        "MOBILE",
		SubscriberType:  "INDIVIDUAL",
		RecoveryFlag:    "NO",
		PortID:          msg.PortID,
		FolioID:         msg.FolioID,
		Timestamp:       "20250312131500",
		SubsReqTime:     "20250312131500",
		ReqPortExecDate: "20250314110000",
		DIDA:            "DON",
		DCR:             "D01",
		RIDA:            "RCP",
		RCR:             "R01",
		TotalPhoneNums:  "11",
		Numbers:         msg.Numbers,
		Pin:             "1234",
		Comments:        "Cliente & <familia>",
		Attachments:     []string{"ine.pdf", "contrato.pdf"},
	}, *body)
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := samplePortRequest().Build()
	require.NoError(t, err)

	second, err := samplePortRequest().Build()
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildersRejectMissingMandatoryFields(t *testing.T) {
	tests := []struct {
		name    string
		builder codec.Builder
	}{
		{
			name: "port request without dcr",
			builder: func() codec.Builder {
				m := samplePortRequest()
				m.DCR = ""
				return m
			}(),
		},
		{
			name: "port request without numbers",
			builder: func() codec.Builder {
				m := samplePortRequest()
				m.Numbers = nil
				return m
			}(),
		},
		{
			name: "schedule without exec date",
			builder: codec.SchedulePort{
				Envelope: codec.Envelope{Sender: "RCP", Timestamp: fixedTime},
				PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
				RecoveryFlag: model.RecoveryFlagNo, PortID: "RCP202503121315000042",
				DIDA: "DON", DCR: "D01", RIDA: "RCP", RCR: "R01",
				Numbers:         []model.NumberRange{{Start: "5512345670", End: "5512345670"}},
				ReqPortExecDate: fixedTime,
			},
		},
		{
			name: "cancellation without timestamp",
			builder: codec.CancellationRequest{
				Envelope: codec.Envelope{Sender: "RCP"},
				PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
				RecoveryFlag: model.RecoveryFlagNo, PortID: "RCP202503121315000042",
				DIDA: "DON", DCR: "D01", RIDA: "RCP", RCR: "R01",
				Numbers: []model.NumberRange{{Start: "5512345670", End: "5512345670"}},
			},
		},
		{
			name:    "pin request without rida",
			builder: codec.PinGenerationRequest{Timestamp: fixedTime, PortType: model.PortTypeMobile, PortID: "X", DIDA: "DON"},
		},
		{
			name: "reversal rejection without reason",
			builder: codec.ReversalRejection{
				Envelope: codec.Envelope{Timestamp: fixedTime},
				PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
				PortID: "X", DIDA: "DON", RIDA: "RCP", RejectCode: "R1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))
		})
	}
}

func TestCancellationRequestDefaults(t *testing.T) {
	xml, err := codec.CancellationRequest{
		Envelope: codec.Envelope{Sender: "RCP", Timestamp: fixedTime},
		PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
		RecoveryFlag: model.RecoveryFlagNo, PortID: "RCP202503121315000042",
		DIDA: "DON", DCR: "D01", RIDA: "RCP", RCR: "R01",
		Numbers: []model.NumberRange{{Start: "5512345670", End: "5512345671"}},
	}.Build()
	require.NoError(t, err)

	assert.Contains(t, xml, "<PortCancelReqMsg>")
	assert.Contains(t, xml, "<Comments>Client requested cancellation</Comments>")
	assert.Contains(t, xml, "<TotalPhoneNums>2</TotalPhoneNums>")
}

func TestSenderDefaults(t *testing.T) {
	pin, err := codec.PinGenerationRequest{
		Timestamp: fixedTime, PortType: model.PortTypeMobile, PortID: "RCP202503121315000042",
		DIDA: "DON", RIDA: "RCP", Numbers: []model.NumberRange{{Start: "5512345670", End: "5512345670"}},
	}.Build()
	require.NoError(t, err)
	assert.Contains(t, pin, "<Sender>RCP</Sender>")
	assert.Contains(t, pin, "<PinType>GENERATE</PinType>")
	assert.NotContains(t, pin, "<DCR>")

	reversal, err := codec.ReversalRequest{
		Timestamp: fixedTime, PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
		PortID: "RCP202503121315000042", DIDA: "DON", RIDA: "RCP",
		Numbers: []model.NumberRange{{Start: "5512345670", End: "5512345670"}},
	}.Build()
	require.NoError(t, err)
	assert.Contains(t, reversal, "<Sender>DON</Sender>")
	assert.Contains(t, reversal, "<RecoveryFlagType>NO</RecoveryFlagType>")

	validation, err := codec.IndividualValidation{
		Envelope: codec.Envelope{Timestamp: fixedTime},
		PortID:   "RCP202503121315000042", DIDA: "DON", RIDA: "RCP",
		Numbers: []model.NumberRange{{Start: "5512345670", End: "5512345670"}},
	}.Build()
	require.NoError(t, err)
	assert.Contains(t, validation, "<Sender>ABD</Sender>")
}

const ackTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<NPCData xmlns="urn:npc:mx:np">
  <MessageHeader>
    <TransTimestamp>20250312131600</TransTimestamp>
    <Sender>ABD</Sender>
    <NumOfMessages>1</NumOfMessages>
  </MessageHeader>
  <NPCMessage>
    <PortRequestAckMsg>
      <PortID>RCP202503121315000042</PortID>
      <Timestamp>20250312131600</Timestamp>
      %s
    </PortRequestAckMsg>
  </NPCMessage>
</NPCData>`

func ack(inner string) string {
	return strings.Replace(ackTemplate, "%s", inner, 1)
}

func TestPortRequestAckStatus(t *testing.T) {
	tests := []struct {
		name  string
		inner string
		want  model.AckStatus
	}{
		{name: "no error code", inner: "", want: model.AckStatusSuccess},
		{name: "zero code", inner: "<ErrorCode>0</ErrorCode>", want: model.AckStatusSuccess},
		{name: "triple zero code", inner: "<ErrorCode>000</ErrorCode>", want: model.AckStatusSuccess},
		{name: "error code", inner: "<ErrorCode>E12</ErrorCode><ErrorMessage>Invalid DIDA</ErrorMessage>", want: model.AckStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := codec.NewDefaultRegistry().Decode(ack(tt.inner))
			require.NoError(t, err)
			assert.Equal(t, model.MessageTypePortRequestAck, parsed.Type)
			assert.Equal(t, "RCP202503121315000042", parsed.PortID)

			body := parsed.Body.(*codec.PortRequestAck)
			assert.Equal(t, tt.want, body.AckStatus)
			assert.Equal(t, "ABD", parsed.Header.Sender)
		})
	}
}

func portResponse(authorization, extra string) string {
	return `<NPCData xmlns="urn:npc:mx:np"><MessageHeader><TransTimestamp>20250312131600</TransTimestamp>` +
		`<Sender>DON</Sender><NumOfMessages>1</NumOfMessages></MessageHeader><NPCMessage><PortRespMsg>` +
		`<PortID>RCP202503121315000042</PortID><Timestamp>20250312131600</Timestamp>` +
		`<AuthorizationInd>` + authorization + `</AuthorizationInd>` + extra +
		`<Numbers><Number><StartNum>5512345670</StartNum><EndNum>5512345671</EndNum></Number>` +
		`<Number><StartNum>5512345672</StartNum><EndNum></EndNum></Number></Numbers>` +
		`</PortRespMsg></NPCMessage></NPCData>`
}

func TestPortResponseStatus(t *testing.T) {
	tests := []struct {
		authorization string
		want          codec.ResponseStatus
	}{
		{"YES", codec.ResponseAccept},
		{"Y", codec.ResponseAccept},
		{"NO", codec.ResponseReject},
		{"N", codec.ResponseReject},
		{"PARTIAL", codec.ResponsePartialReject},
	}

	for _, tt := range tests {
		t.Run(tt.authorization, func(t *testing.T) {
			parsed, err := codec.PortResponseParser{}.Parse(portResponse(tt.authorization, ""))
			require.NoError(t, err)

			body := parsed.Body.(*codec.PortResponse)
			assert.Equal(t, tt.want, body.Status)
			assert.Equal(t, []model.NumberRange{{Start: "5512345670", End: "5512345671"}}, body.Numbers)
		})
	}
}

func TestPortResponseRejectedNumbers(t *testing.T) {
	extra := `<ReasonCode>R05</ReasonCode><RejectedNumbers>` +
		`<RejectedNumber><Number>5512345671</Number><ReasonCode>R07</ReasonCode></RejectedNumber>` +
		`<RejectedNumber><ReasonCode>R08</ReasonCode></RejectedNumber></RejectedNumbers>`

	parsed, err := codec.PortResponseParser{}.Parse(portResponse("P", extra))
	require.NoError(t, err)

	body := parsed.Body.(*codec.PortResponse)
	assert.Equal(t, "R05", body.ReasonCode)
	assert.Equal(t, []model.RejectedNumber{{MSISDN: "5512345671", ReasonCode: "R07"}}, body.RejectedNumbers)

	fields := parsed.Fields()
	assert.Equal(t, "PARTIAL_REJECT", fields["status"])
	assert.Equal(t, "RCP202503121315000042", fields["port_id"])
}

func TestScheduleNotificationRequiresExecDate(t *testing.T) {
	xml := `<NPCData xmlns="urn:npc:mx:np"><MessageHeader><Sender>ABD</Sender></MessageHeader><NPCMessage>` +
		`<SchedulePortMsg><PortID>RCP202503121315000042</PortID><Timestamp>20250312131600</Timestamp>` +
		`<ReqPortExecDate>20250314110000</ReqPortExecDate></SchedulePortMsg></NPCMessage></NPCData>`

	_, err := codec.NewDefaultRegistry().Decode(xml)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Contains(t, err.Error(), "PortExecDate")
}

func TestScheduleNotificationExecutionDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	xml := `<NPCData xmlns="urn:npc:mx:np"><MessageHeader><Sender>ABD</Sender></MessageHeader><NPCMessage>` +
		`<SchedulePortMsg><PortID>RCP202503121315000042</PortID><Timestamp>20250312131600</Timestamp>` +
		`<PortExecDate>20250314120000</PortExecDate><ReqPortExecDate>20250314110000</ReqPortExecDate>` +
		`</SchedulePortMsg></NPCMessage></NPCData>`

	parsed, err := codec.NewDefaultRegistry().Decode(xml)
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeSchedulePortNotification, parsed.Type)

	exec, err := parsed.Body.(*codec.ScheduleNotification).ExecutionDate(loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 3, 14, 12, 0, 0, 0, loc).Equal(exec))
}

func TestDecodeRejectsForeignNamespace(t *testing.T) {
	xml := `<NPCData xmlns="urn:other"><NPCMessage><PortRequestAckMsg><PortID>X</PortID></PortRequestAckMsg></NPCMessage></NPCData>`

	_, err := codec.NewDefaultRegistry().Decode(xml)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestDecodeUnknownBody(t *testing.T) {
	xml := `<NPCData xmlns="urn:npc:mx:np"><NPCMessage><SyncRequestMsg><PortID>X</PortID></SyncRequestMsg></NPCMessage></NPCData>`

	_, err := codec.NewDefaultRegistry().Decode(xml)
	require.Error(t, err)
	assert.True(t, errors.Is(err, codec.ErrUnsupportedMessage))
}

func TestRegistryCoversKnownTypes(t *testing.T) {
	registry := codec.NewDefaultRegistry()

	types := registry.Types()
	assert.Len(t, types, len(codec.DefaultParsers()))

	for _, mt := range types {
		assert.True(t, mt.IsValid(), "type %d", mt)
	}
}

func TestReversalRejectionRoundTrip(t *testing.T) {
	xml, err := codec.ReversalRejection{
		Envelope: codec.Envelope{Timestamp: fixedTime},
		PortType: model.PortTypeMobile, SubscriberType: model.SubscriberTypeIndividual,
		PortID: "RCP202503121315000042", DIDA: "DON", RIDA: "RCP",
		RejectCode: "R10", RejectReason: "Documentos incompletos",
	}.Build()
	require.NoError(t, err)

	parsed, err := codec.NewDefaultRegistry().Decode(xml)
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeReversalRejection, parsed.Type)

	body := parsed.Body.(*codec.ReversalReject)
	assert.Equal(t, "R10", body.RejectCode)
	assert.Equal(t, "Documentos incompletos", body.RejectReason)
}
