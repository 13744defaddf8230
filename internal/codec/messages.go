package codec

import (
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/transform"
)

type ResponseStatus string

const (
	ResponseAccept        ResponseStatus = "ACCEPT"
	ResponseReject        ResponseStatus = "REJECT"
	ResponsePartialReject ResponseStatus = "PARTIAL_REJECT"
)

// PortRequestAck is message 1002.
type PortRequestAck struct {
	PortID       string
	Timestamp    string
	AckStatus    model.AckStatus
	ErrorCode    string
	ErrorMessage string
}

func (m *PortRequestAck) fields() map[string]any {
	return map[string]any{
		"timestamp":     m.Timestamp,
		"ack_status":    string(m.AckStatus),
		"error_code":    m.ErrorCode,
		"error_message": m.ErrorMessage,
	}
}

type PortRequestAckParser struct{}

func (PortRequestAckParser) MessageType() model.MessageType { return model.MessageTypePortRequestAck }
func (PortRequestAckParser) BodyElement() string { return "PortRequestAckMsg" }

func (p PortRequestAckParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &PortRequestAck{
		PortID:       portID,
		Timestamp:    r.value("Timestamp"),
		ErrorCode:    r.value("ErrorCode"),
		ErrorMessage: r.value("ErrorMessage"),
		AckStatus:    model.AckStatusError,
	}

	switch msg.ErrorCode {
	case "", "0", "000":
		msg.AckStatus = model.AckStatusSuccess
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// PortResponse is message 1004, the donor's decision.
type PortResponse struct {
	PortID          string
	Timestamp       string
	Authorization   string
	ReasonCode      string
	ReasonText      string
	Numbers         []model.NumberRange
	RejectedNumbers []model.RejectedNumber
	Status          ResponseStatus
}

func (m *PortResponse) fields() map[string]any {
	rejected := make([]map[string]string, 0, len(m.RejectedNumbers))
	for _, n := range m.RejectedNumbers {
		rejected = append(rejected, map[string]string{"number": n.MSISDN, "reason_code": n.ReasonCode})
	}

	return map[string]any{
		"timestamp":        m.Timestamp,
		"authorization":    m.Authorization,
		"reason_code":      m.ReasonCode,
		"reason_text":      m.ReasonText,
		"numbers":          rangesToFields(m.Numbers),
		"rejected_numbers": rejected,
		"status":           string(m.Status),
	}
}

type PortResponseParser struct{}

func (PortResponseParser) MessageType() model.MessageType { return model.MessageTypePortResponse }
func (PortResponseParser) BodyElement() string { return "PortRespMsg" }

func (p PortResponseParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &PortResponse{
		PortID:        portID,
		Timestamp:     r.value("Timestamp"),
		Authorization: r.value("AuthorizationInd"),
		ReasonCode:    r.value("ReasonCode"),
		ReasonText:    r.value("ReasonText"),
		Numbers:       r.numbers(),
	}

	for _, el := range r.body.FindElements("RejectedNumbers/RejectedNumber") {
		number := childText(el, "Number")
		if number == "" {
			continue
		}

		msg.RejectedNumbers = append(msg.RejectedNumbers, model.RejectedNumber{
			MSISDN:     number,
			ReasonCode: childText(el, "ReasonCode"),
		})
	}

	switch msg.Authorization {
	case "YES", "Y":
		msg.Status = ResponseAccept
	case "NO", "N":
		msg.Status = ResponseReject
	default:
		msg.Status = ResponsePartialReject
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// ReadyToSchedule is message 1005.
type ReadyToSchedule struct {
	PortID    string
	Timestamp string
	PortType  string
	Numbers   []model.NumberRange
}

func (m *ReadyToSchedule) fields() map[string]any {
	return map[string]any{
		"timestamp": m.Timestamp,
		"port_type": m.PortType,
		"numbers":   rangesToFields(m.Numbers),
	}
}

type ReadyToScheduleParser struct{}

func (ReadyToScheduleParser) MessageType() model.MessageType { return model.MessageTypeReadyToSchedule }
func (ReadyToScheduleParser) BodyElement() string { return "ReadyToScheduleMsg" }

func (p ReadyToScheduleParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &ReadyToSchedule{
		PortID:    portID,
		Timestamp: r.value("Timestamp"),
		PortType:  r.value("PortType"),
		Numbers:   r.numbers(),
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// ScheduleNotification is message 1007, the clearinghouse's confirmation of the execution date.
type ScheduleNotification struct {
	PortID          string
	Timestamp       string
	PortExecDate    string
	ReqPortExecDate string
	PortType        string
	Numbers         []model.NumberRange
}

func (m *ScheduleNotification) fields() map[string]any {
	return map[string]any{
		"timestamp":          m.Timestamp,
		"port_exec_date":     m.PortExecDate,
		"req_port_exec_date": m.ReqPortExecDate,
		"port_type":          m.PortType,
		"numbers":            rangesToFields(m.Numbers),
	}
}

// ExecutionDate interprets PortExecDate in loc.
func (m *ScheduleNotification) ExecutionDate(loc *time.Location) (time.Time, error) {
	ts, err := transform.ParseProtocolTime(m.PortExecDate, loc)
	if err != nil {
		return time.Time{}, model.NewValidationError("invalid PortExecDate %q", m.PortExecDate)
	}

	return ts, nil
}

type ScheduleNotificationParser struct{}

func (ScheduleNotificationParser) MessageType() model.MessageType {
	return model.MessageTypeSchedulePortNotification
}
func (ScheduleNotificationParser) BodyElement() string { return "SchedulePortMsg" }

func (p ScheduleNotificationParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	msg := &ScheduleNotification{
		PortType: r.value("PortType"),
		Numbers:  r.numbers(),
	}

	required := []struct {
		path string
		dst  *string
	}{
		{"PortID", &msg.PortID},
		{"Timestamp", &msg.Timestamp},
		{"PortExecDate", &msg.PortExecDate},
		{"ReqPortExecDate", &msg.ReqPortExecDate},
	}

	for _, f := range required {
		if *f.dst, err = r.requiredValue(f.path); err != nil {
			return nil, err
		}
	}

	return r.parsed(p.MessageType(), msg.PortID, msg), nil
}

// CancellationAck is an inbound 3002.
type CancellationAck struct {
	PortID         string
	Timestamp      string
	PortType       string
	SubscriberType string
	DIDA           string
	RIDA           string
	Numbers        []model.NumberRange
	Comments       string
}

func (m *CancellationAck) fields() map[string]any {
	return map[string]any{
		"timestamp":       m.Timestamp,
		"port_type":       m.PortType,
		"subscriber_type": m.SubscriberType,
		"dida":            m.DIDA,
		"rida":            m.RIDA,
		"numbers":         rangesToFields(m.Numbers),
		"comments":        m.Comments,
	}
}

type CancellationAckParser struct{}

func (CancellationAckParser) MessageType() model.MessageType {
	return model.MessageTypeCancellationAcceptance
}
func (CancellationAckParser) BodyElement() string { return "PortCancelRespMsg" }

func (p CancellationAckParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &CancellationAck{
		PortID:         portID,
		Timestamp:      r.value("Timestamp"),
		PortType:       r.value("PortType"),
		SubscriberType: r.value("SubscriberType"),
		DIDA:           r.value("DIDA"),
		RIDA:           r.value("RIDA"),
		Numbers:        r.numbers(),
		Comments:       r.value("Comments"),
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// ReversalAccept is an inbound 4004.
type ReversalAccept struct {
	PortID      string
	Timestamp   string
	RevExecDate string
	DIDA        string
	RIDA        string
	Numbers     []model.NumberRange
}

func (m *ReversalAccept) fields() map[string]any {
	return map[string]any{
		"timestamp":     m.Timestamp,
		"rev_exec_date": m.RevExecDate,
		"dida":          m.DIDA,
		"rida":          m.RIDA,
		"numbers":       rangesToFields(m.Numbers),
	}
}

type ReversalAcceptParser struct{}

func (ReversalAcceptParser) MessageType() model.MessageType { return model.MessageTypeReversalAcceptance }
func (ReversalAcceptParser) BodyElement() string { return "PortRevAcceptMsg" }

func (p ReversalAcceptParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &ReversalAccept{
		PortID:      portID,
		Timestamp:   r.value("Timestamp"),
		RevExecDate: r.value("RevExecDate"),
		DIDA:        r.value("DIDA"),
		RIDA:        r.value("RIDA"),
		Numbers:     r.numbers(),
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// ReversalReject is an inbound 4005 carried in a RejectMsg body.
type ReversalReject struct {
	PortID       string
	Timestamp    string
	RejectCode   string
	RejectReason string
}

func (m *ReversalReject) fields() map[string]any {
	return map[string]any{
		"timestamp":     m.Timestamp,
		"reject_code":   m.RejectCode,
		"reject_reason": m.RejectReason,
	}
}

type ReversalRejectParser struct{}

func (ReversalRejectParser) MessageType() model.MessageType { return model.MessageTypeReversalRejection }
func (ReversalRejectParser) BodyElement() string { return "RejectMsg" }

func (p ReversalRejectParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &ReversalReject{
		PortID:       portID,
		Timestamp:    r.value("Timestamp"),
		RejectCode:   r.value("RejectCode"),
		RejectReason: r.value("RejectReason"),
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

// PortRequestData is the decoded form of a PortRequestMsg body, as received by a donor (1003).
type PortRequestData struct {
	PortType        string
	SubscriberType  string
	RecoveryFlag    string
	PortID          string
	FolioID         string
	Timestamp       string
	SubsReqTime     string
	ReqPortExecDate string
	DIDA            string
	DCR             string
	RIDA            string
	RCR             string
	TotalPhoneNums  string
	Numbers         []model.NumberRange
	Pin             string
	Comments        string
	Attachments     []string
}

func (m *PortRequestData) fields() map[string]any {
	return map[string]any{
		"port_type":          m.PortType,
		"subscriber_type":    m.SubscriberType,
		"recovery_flag":      m.RecoveryFlag,
		"folio_id":           m.FolioID,
		"timestamp":          m.Timestamp,
		"subs_req_time":      m.SubsReqTime,
		"req_port_exec_date": m.ReqPortExecDate,
		"dida":               m.DIDA,
		"dcr":                m.DCR,
		"rida":               m.RIDA,
		"rcr":                m.RCR,
		"total_phone_nums":   m.TotalPhoneNums,
		"numbers":            rangesToFields(m.Numbers),
		"pin":                m.Pin,
		"comments":           m.Comments,
		"attached_files":     m.Attachments,
	}
}

type PortRequestParser struct{}

func (PortRequestParser) MessageType() model.MessageType { return model.MessageTypePortRequestToDida }
func (PortRequestParser) BodyElement() string { return "PortRequestMsg" }

func (p PortRequestParser) Parse(xml string) (*Parsed, error) {
	r, err := newReader(xml, p.BodyElement())
	if err != nil {
		return nil, err
	}

	portID, err := r.requiredValue("PortID")
	if err != nil {
		return nil, err
	}

	msg := &PortRequestData{
		PortType:        r.value("PortType"),
		SubscriberType:  r.value("SubscriberType"),
		RecoveryFlag:    r.value("RecoveryFlagType"),
		PortID:          portID,
		FolioID:         r.value("FolioID"),
		Timestamp:       r.value("Timestamp"),
		SubsReqTime:     r.value("SubsReqTime"),
		ReqPortExecDate: r.value("ReqPortExecDate"),
		DIDA:            r.value("DIDA"),
		DCR:             r.value("DCR"),
		RIDA:            r.value("RIDA"),
		RCR:             r.value("RCR"),
		TotalPhoneNums:  r.value("TotalPhoneNums"),
		Numbers:         r.numbers(),
		Pin:             r.value("Pin"),
		Comments:        r.value("Comments"),
		Attachments:     r.values("AttachedFiles/FileName"),
	}

	return r.parsed(p.MessageType(), portID, msg), nil
}

var (
	_ Parser = PortRequestAckParser{}
	_ Parser = PortResponseParser{}
	_ Parser = ReadyToScheduleParser{}
	_ Parser = ScheduleNotificationParser{}
	_ Parser = CancellationAckParser{}
	_ Parser = ReversalAcceptParser{}
	_ Parser = ReversalRejectParser{}
	_ Parser = PortRequestParser{}
)
