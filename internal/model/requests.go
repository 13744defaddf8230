package model

import "time"

// InitiateRequest opens a port-in case with the clearinghouse (message 1001).
type InitiateRequest struct {
	DIDA           string         `json:"dida" validate:"required,ida"`
	DCR            string         `json:"dcr" validate:"required,max=8"`
	RCR            string         `json:"rcr" validate:"required,max=8"`
	PortType       PortType       `json:"port_type" validate:"required,oneof=MOBILE FIXED"`
	SubscriberType SubscriberType `json:"subscriber_type" validate:"required,oneof=INDIVIDUAL BUSINESS"`
	RecoveryFlag   string         `json:"recovery_flag" validate:"omitempty,oneof=YES NO"`
	SubsReqTime    string         `json:"subs_req_time" validate:"required,len=14,numeric"`
	Numbers        []NumberRange  `json:"numbers" validate:"required,min=1,dive"`
	Pin            string         `json:"pin" validate:"omitempty,numeric,max=8"`
	Comments       string         `json:"comments" validate:"max=255"`
	Attachments    []string       `json:"attachments" validate:"dive,filename"`
}

// ScheduleRequest asks for an execution date (message 1006). A nil PortExecDate lets the
// node pick the default slot.
type ScheduleRequest struct {
	PortExecDate *time.Time `json:"port_exec_date"`
	Comments     string     `json:"comments" validate:"max=255"`
}

type CancelRequest struct {
	Comments string `json:"comments" validate:"max=255"`
}

// PinRequest asks the donor to deliver a confirmation PIN to the subscriber (message 2001).
type PinRequest struct {
	DIDA           string         `json:"dida" validate:"required,ida"`
	DCR            string         `json:"dcr" validate:"required,max=8"`
	RCR            string         `json:"rcr" validate:"required,max=8"`
	PortType       PortType       `json:"port_type" validate:"required,oneof=MOBILE FIXED"`
	SubscriberType SubscriberType `json:"subscriber_type" validate:"omitempty,oneof=INDIVIDUAL BUSINESS"`
	ContactMSISDN  string         `json:"contact_msisdn" validate:"required,min=10,max=16"`
}

type ReversalRequest struct {
	Comments    string   `json:"comments" validate:"max=255"`
	Attachments []string `json:"attachments" validate:"dive,filename"`
}
