package codec

import (
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// ClearinghouseSender identifies the clearinghouse itself in the header of messages it originates.
const ClearinghouseSender = "ABD"

const (
	PinTypeGenerate           = "GENERATE"
	defaultCancellationReason = "Client requested cancellation"
)

// PortRequest is message 1001, sent by the recipient operator to open a case.
type PortRequest struct {
	Envelope
	PortType        model.PortType
	SubscriberType  model.SubscriberType
	RecoveryFlag    string
	PortID          string
	FolioID         string
	SubsReqTime     time.Time
	ReqPortExecDate time.Time
	DIDA            string
	DCR             string
	RIDA            string
	RCR             string
	Numbers         []model.NumberRange
	Pin             string
	Comments        string
	Attachments     []string
}

func (m PortRequest) MessageType() model.MessageType { return model.MessageTypePortRequest }

func (m PortRequest) Build() (string, error) {
	if err := requireEnvelope(m.Envelope); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"recovery_flag", m.RecoveryFlag},
		field{"port_id", m.PortID},
		field{"folio_id", m.FolioID},
		field{"subs_req_time", formatTime(m.SubsReqTime)},
		field{"req_port_exec_date", formatTime(m.ReqPortExecDate)},
		field{"dida", m.DIDA},
		field{"dcr", m.DCR},
		field{"rida", m.RIDA},
		field{"rcr", m.RCR},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	d := newDocument(m.Envelope)
	msg := d.body("PortRequestMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", m.RecoveryFlag)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "FolioID", m.FolioID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "SubsReqTime", formatTime(m.SubsReqTime))
	appendChild(msg, "ReqPortExecDate", formatTime(m.ReqPortExecDate))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChild(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendChildIfPresent(msg, "Pin", m.Pin)
	appendChildIfPresent(msg, "Comments", m.Comments)
	appendAttachments(msg, m.Attachments)

	return d.xml()
}

// SchedulePort is message 1006, asking the clearinghouse to fix the execution date.
type SchedulePort struct {
	Envelope
	PortType        model.PortType
	SubscriberType  model.SubscriberType
	RecoveryFlag    string
	PortID          string
	DIDA            string
	DCR             string
	RIDA            string
	RCR             string
	Numbers         []model.NumberRange
	PortExecDate    time.Time
	ReqPortExecDate time.Time
	Comments        string
}

func (m SchedulePort) MessageType() model.MessageType { return model.MessageTypeSchedulePortRequest }

func (m SchedulePort) Build() (string, error) {
	if err := requireEnvelope(m.Envelope); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"recovery_flag", m.RecoveryFlag},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"dcr", m.DCR},
		field{"rida", m.RIDA},
		field{"rcr", m.RCR},
		field{"port_exec_date", formatTime(m.PortExecDate)},
		field{"req_port_exec_date", formatTime(m.ReqPortExecDate)},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	d := newDocument(m.Envelope)
	msg := d.body("SchedulePortMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", m.RecoveryFlag)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChild(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendChild(msg, "PortExecDate", formatTime(m.PortExecDate))
	appendChild(msg, "ReqPortExecDate", formatTime(m.ReqPortExecDate))
	appendChildIfPresent(msg, "Comments", m.Comments)

	return d.xml()
}

// CancellationRequest is message 3001.
type CancellationRequest struct {
	Envelope
	PortType       model.PortType
	SubscriberType model.SubscriberType
	RecoveryFlag   string
	PortID         string
	DIDA           string
	DCR            string
	RIDA           string
	RCR            string
	Numbers        []model.NumberRange
	Comments       string
}

func (m CancellationRequest) MessageType() model.MessageType {
	return model.MessageTypeCancellationRequest
}

func (m CancellationRequest) Build() (string, error) {
	if err := requireEnvelope(m.Envelope); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"recovery_flag", m.RecoveryFlag},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"dcr", m.DCR},
		field{"rida", m.RIDA},
		field{"rcr", m.RCR},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	comments := m.Comments
	if comments == "" {
		comments = defaultCancellationReason
	}

	d := newDocument(m.Envelope)
	msg := d.body("PortCancelReqMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", m.RecoveryFlag)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChild(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendChild(msg, "Comments", comments)

	return d.xml()
}

// PinGenerationRequest is message 2001. The header sender is the recipient operator.
type PinGenerationRequest struct {
	Timestamp     time.Time
	PortType      model.PortType
	ContactMsisdn string
	PinType       string
	PortID        string
	DIDA          string
	DCR           string
	RIDA          string
	RCR           string
	Numbers       []model.NumberRange
}

func (m PinGenerationRequest) MessageType() model.MessageType {
	return model.MessageTypePinGenerationRequest
}

func (m PinGenerationRequest) Build() (string, error) {
	env := Envelope{Sender: m.RIDA, Timestamp: m.Timestamp}
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	pinType := m.PinType
	if pinType == "" {
		pinType = PinTypeGenerate
	}

	d := newDocument(env)
	msg := d.body("PinGenerationRequestMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChildIfPresent(msg, "ContactMsisdn", m.ContactMsisdn)
	appendChild(msg, "PinType", pinType)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChildIfPresent(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChildIfPresent(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	return d.xml()
}

// ReversalRequest is message 4001. The header sender is the donor operator.
type ReversalRequest struct {
	Timestamp      time.Time
	PortType       model.PortType
	SubscriberType model.SubscriberType
	RecoveryFlag   string
	PortID         string
	DIDA           string
	DCR            string
	RIDA           string
	RCR            string
	Numbers        []model.NumberRange
	Comments       string
	Attachments    []string
}

func (m ReversalRequest) MessageType() model.MessageType { return model.MessageTypeReversalRequest }

func (m ReversalRequest) Build() (string, error) {
	env := Envelope{Sender: m.DIDA, Timestamp: m.Timestamp}
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	recovery := m.RecoveryFlag
	if recovery == "" {
		recovery = model.RecoveryFlagNo
	}

	d := newDocument(env)
	msg := d.body("PortRevReqMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", recovery)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChildIfPresent(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChildIfPresent(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendChildIfPresent(msg, "Comments", m.Comments)
	appendAttachments(msg, m.Attachments)

	return d.xml()
}

// IndividualValidationResponse is message 1202, the donor's answer to an individual validation.
type IndividualValidationResponse struct {
	Timestamp         time.Time
	PortID            string
	DIDA              string
	RIDA              string
	ResultCode        string
	ResultDescription string
}

func (m IndividualValidationResponse) MessageType() model.MessageType {
	return model.MessageTypeIndividualValidationResponse
}

func (m IndividualValidationResponse) Build() (string, error) {
	env := Envelope{Sender: m.DIDA, Timestamp: m.Timestamp}
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_id", m.PortID},
		field{"rida", m.RIDA},
		field{"result_code", m.ResultCode},
	)
	if err != nil {
		return "", err
	}

	d := newDocument(env)
	msg := d.body("IndPortValRespMsg")

	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "RIDA", m.RIDA)
	appendChild(msg, "ResultCode", m.ResultCode)
	appendChildIfPresent(msg, "ResultDescription", m.ResultDescription)

	return d.xml()
}

// IndividualValidation is message 1201, emitted by the clearinghouse toward the donor.
type IndividualValidation struct {
	Envelope
	PortID      string
	DIDA        string
	RIDA        string
	Numbers     []model.NumberRange
	Attachments []string
}

func (m IndividualValidation) MessageType() model.MessageType {
	return model.MessageTypeIndividualValidationRequest
}

func (m IndividualValidation) Build() (string, error) {
	env := withDefaultSender(m.Envelope)
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	d := newDocument(env)
	msg := d.body("IndividualPortValidationMsg")

	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "RIDA", m.RIDA)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendAttachments(msg, m.Attachments)

	return d.xml()
}

// CancellationAcceptance is message 3002.
type CancellationAcceptance struct {
	Envelope
	PortType       model.PortType
	SubscriberType model.SubscriberType
	RecoveryFlag   string
	PortID         string
	DIDA           string
	DCR            string
	RIDA           string
	RCR            string
	Numbers        []model.NumberRange
	Comments       string
}

func (m CancellationAcceptance) MessageType() model.MessageType {
	return model.MessageTypeCancellationAcceptance
}

func (m CancellationAcceptance) Build() (string, error) {
	env := withDefaultSender(m.Envelope)
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	recovery := m.RecoveryFlag
	if recovery == "" {
		recovery = model.RecoveryFlagNo
	}

	d := newDocument(env)
	msg := d.body("PortCancelRespMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", recovery)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChildIfPresent(msg, "DCR", m.DCR)
	appendChild(msg, "RIDA", m.RIDA)
	appendChildIfPresent(msg, "RCR", m.RCR)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	appendChildIfPresent(msg, "Comments", m.Comments)

	return d.xml()
}

// ReversalAcceptance is message 4004.
type ReversalAcceptance struct {
	Envelope
	PortType       model.PortType
	SubscriberType model.SubscriberType
	RecoveryFlag   string
	PortID         string
	RevExecDate    time.Time
	DIDA           string
	RIDA           string
	Numbers        []model.NumberRange
}

func (m ReversalAcceptance) MessageType() model.MessageType {
	return model.MessageTypeReversalAcceptance
}

func (m ReversalAcceptance) Build() (string, error) {
	env := withDefaultSender(m.Envelope)
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"port_id", m.PortID},
		field{"rev_exec_date", formatTime(m.RevExecDate)},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
	)
	if err != nil {
		return "", err
	}

	if err := requireNumbers(m.Numbers); err != nil {
		return "", err
	}

	recovery := m.RecoveryFlag
	if recovery == "" {
		recovery = model.RecoveryFlagNo
	}

	d := newDocument(env)
	msg := d.body("PortRevAcceptMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", recovery)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "RevExecDate", formatTime(m.RevExecDate))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "RIDA", m.RIDA)

	if err := appendNumbers(msg, m.Numbers); err != nil {
		return "", err
	}

	return d.xml()
}

// ReversalRejection is message 4005, rendered as a RejectMsg body.
type ReversalRejection struct {
	Envelope
	PortType       model.PortType
	SubscriberType model.SubscriberType
	RecoveryFlag   string
	PortID         string
	DIDA           string
	RIDA           string
	RejectCode     string
	RejectReason   string
}

func (m ReversalRejection) MessageType() model.MessageType {
	return model.MessageTypeReversalRejection
}

func (m ReversalRejection) Build() (string, error) {
	env := withDefaultSender(m.Envelope)
	if err := requireEnvelope(env); err != nil {
		return "", err
	}

	err := requireFields(
		field{"port_type", string(m.PortType)},
		field{"subscriber_type", string(m.SubscriberType)},
		field{"port_id", m.PortID},
		field{"dida", m.DIDA},
		field{"rida", m.RIDA},
		field{"reject_code", m.RejectCode},
		field{"reject_reason", m.RejectReason},
	)
	if err != nil {
		return "", err
	}

	recovery := m.RecoveryFlag
	if recovery == "" {
		recovery = model.RecoveryFlagNo
	}

	d := newDocument(env)
	msg := d.body("RejectMsg")

	appendChild(msg, "PortType", string(m.PortType))
	appendChild(msg, "SubscriberType", string(m.SubscriberType))
	appendChild(msg, "RecoveryFlagType", recovery)
	appendChild(msg, "PortID", m.PortID)
	appendChild(msg, "Timestamp", formatTime(m.Timestamp))
	appendChild(msg, "DIDA", m.DIDA)
	appendChild(msg, "RIDA", m.RIDA)
	appendChild(msg, "RejectCode", m.RejectCode)
	appendChild(msg, "RejectReason", m.RejectReason)

	return d.xml()
}

func withDefaultSender(env Envelope) Envelope {
	if env.Sender == "" {
		env.Sender = ClearinghouseSender
	}

	return env
}

var (
	_ Builder = PortRequest{}
	_ Builder = SchedulePort{}
	_ Builder = CancellationRequest{}
	_ Builder = PinGenerationRequest{}
	_ Builder = ReversalRequest{}
	_ Builder = IndividualValidationResponse{}
	_ Builder = IndividualValidation{}
	_ Builder = CancellationAcceptance{}
	_ Builder = ReversalAcceptance{}
	_ Builder = ReversalRejection{}
)
