package mnpevent

import (
	"time"

	"github.com/google/uuid"
)

const (
	ServiceSource        = "alize"
	PortabilityProcess   = "portability"
	StateChangedEvent    = "state-changed"
	ReadyToScheduleEvent = "ready-to-schedule"
	ScheduledEvent       = "scheduled"
	InboundReceivedEvent = "inbound-received"
	ContentTypeHeader    = "Content-Type"
	MessageIDHeader      = "MessageId"
	EventContentType     = "application/json"
	eventDateLayout      = time.RFC3339
)

type Portability struct {
	ID          string          `json:"id" validate:"required"`
	EventType   string          `json:"eventType" validate:"required"`
	Date        string          `json:"date" validate:"required"`
	ProcessType string          `json:"processType" validate:"required"`
	Source      string          `json:"source" validate:"required"`
	Data        PortabilityData `json:"data" validate:"required"`
}

type PortabilityData struct {
	PortID       string      `json:"portId"`
	State        *StateDTO   `json:"state,omitempty"`
	PortExecDate *time.Time  `json:"portExecDate,omitempty"`
	Inbound      *MessageDTO `json:"inbound,omitempty"`
}

type StateDTO struct {
	Previous string `json:"previous"`
	Current  string `json:"current" validate:"required"`
	Reason   string `json:"reason,omitempty"`
}

type MessageDTO struct {
	Code   int    `json:"code"`
	Label  string `json:"label"`
	Sender string `json:"sender,omitempty"`
}

func NewEventID() string {
	return uuid.NewString()
}

// NewEvent stamps the common envelope fields of a portability notification.
func NewEvent(eventType string, at time.Time, data PortabilityData) *Portability {
	return &Portability{
		ID:          NewEventID(),
		EventType:   eventType,
		Date:        at.Format(eventDateLayout),
		ProcessType: PortabilityProcess,
		Source:      ServiceSource,
		Data:        data,
	}
}
