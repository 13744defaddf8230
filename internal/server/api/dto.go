package api

import (
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/service/portability"
)

type PortabilityResponse struct {
	PortID          string     `json:"port_id"`
	FolioID         string     `json:"folio_id"`
	State           string     `json:"state"`
	PortType        string     `json:"port_type"`
	SubscriberType  string     `json:"subscriber_type"`
	RecoveryFlag    string     `json:"recovery_flag,omitempty"`
	DIDA            string     `json:"dida"`
	DCR             string     `json:"dcr,omitempty"`
	RIDA            string     `json:"rida"`
	RCR             string     `json:"rcr,omitempty"`
	ReqPortExecDate *time.Time `json:"req_port_exec_date,omitempty"`
	PortExecDate    *time.Time `json:"port_exec_date,omitempty"`
	Deadlines       Deadlines  `json:"deadlines"`
	Comments        string     `json:"comments,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Deadlines struct {
	T1 *time.Time `json:"t1,omitempty"`
	T3 *time.Time `json:"t3,omitempty"`
	T4 *time.Time `json:"t4,omitempty"`
}

type NumberResponse struct {
	MSISDN       string `json:"msisdn"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason,omitempty"`
}

type MessageResponse struct {
	Direction   string     `json:"direction"`
	TypeCode    int        `json:"type_code"`
	TypeLabel   string     `json:"type_label,omitempty"`
	AckStatus   string     `json:"ack_status"`
	AckText     string     `json:"ack_text,omitempty"`
	RetryCount  int        `json:"retry_count"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	LastRetryAt *time.Time `json:"last_retry_at,omitempty"`
}

type DetailsResponse struct {
	PortabilityResponse
	Numbers  []NumberResponse  `json:"numbers"`
	Messages []MessageResponse `json:"messages"`
}

func mapPortability(p *model.Portability) PortabilityResponse {
	return PortabilityResponse{
		PortID:          p.PortID,
		FolioID:         p.FolioID,
		State:           string(p.State),
		PortType:        string(p.PortType),
		SubscriberType:  string(p.SubscriberType),
		RecoveryFlag:    p.RecoveryFlag,
		DIDA:            p.DIDA,
		DCR:             p.DCR,
		RIDA:            p.RIDA,
		RCR:             p.RCR,
		ReqPortExecDate: p.ReqPortExecDate,
		PortExecDate:    p.PortExecDate,
		Deadlines: Deadlines{
			T1: p.T1ExpiresAt,
			T3: p.T3ExpiresAt,
			T4: p.T4ExpiresAt,
		},
		Comments:  p.Comments,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func mapDetails(d *portability.Details) DetailsResponse {
	resp := DetailsResponse{
		PortabilityResponse: mapPortability(d.Portability),
		Numbers:             make([]NumberResponse, len(d.Numbers)),
		Messages:            make([]MessageResponse, len(d.Messages)),
	}

	for i, n := range d.Numbers {
		resp.Numbers[i] = NumberResponse{MSISDN: n.MSISDN, Status: string(n.Status), RejectReason: n.RejectReason}
	}

	for i, m := range d.Messages {
		resp.Messages[i] = mapMessage(m)
	}

	return resp
}

func mapMessage(m *model.ProtocolMessage) MessageResponse {
	resp := MessageResponse{
		Direction:   string(m.Direction),
		TypeCode:    m.TypeCode.Code(),
		AckStatus:   string(m.AckStatus),
		AckText:     m.AckText,
		RetryCount:  m.RetryCount,
		SentAt:      m.SentAt,
		ReceivedAt:  m.ReceivedAt,
		LastRetryAt: m.LastRetryAt,
	}

	if m.TypeCode.IsValid() {
		resp.TypeLabel = m.TypeCode.Label()
	}

	return resp
}
