package model

import "time"

// NumberRange is an inclusive span of subscriber numbers. Start equals End for a single number.
type NumberRange struct {
	Start string `json:"start" validate:"required,numeric"`
	End   string `json:"end" validate:"required,numeric"`
}

// Portability is one porting case. Deadline fields are written by the state machine only.
type Portability struct {
	ID              int64
	PortID          string
	FolioID         string
	State           State
	PortType        PortType
	SubscriberType  SubscriberType
	RecoveryFlag    string
	DIDA            string
	DCR             string
	RIDA            string
	RCR             string
	SubsReqTime     *time.Time
	ReqPortExecDate *time.Time
	PortExecDate    *time.Time
	T1ExpiresAt     *time.Time
	T3ExpiresAt     *time.Time
	T4ExpiresAt     *time.Time
	T5ExpiresAt     *time.Time
	PIN             string
	Comments        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Deadline returns the expiry recorded for t, or nil when it was never set.
func (p *Portability) Deadline(t Timer) *time.Time {
	switch t {
	case TimerT1:
		return p.T1ExpiresAt
	case TimerT3:
		return p.T3ExpiresAt
	case TimerT4:
		return p.T4ExpiresAt
	case TimerT5:
		return p.T5ExpiresAt
	default:
		return nil
	}
}

// DeadlinePassed reports whether t is set and not after now.
func (p *Portability) DeadlinePassed(t Timer, now time.Time) bool {
	deadline := p.Deadline(t)

	return deadline != nil && !deadline.After(now)
}

func (p *Portability) Clone() *Portability {
	if p == nil {
		return nil
	}

	c := *p

	return &c
}

type PortabilityNumber struct {
	ID            int64
	PortabilityID int64
	MSISDN        string
	Status        NumberStatus
	RejectReason  string
}

// RejectedNumber is one number refused by the donor in a partial rejection.
type RejectedNumber struct {
	MSISDN     string `json:"msisdn"`
	ReasonCode string `json:"reason_code"`
}

// ProtocolMessage is the audit record of one message exchanged with the clearinghouse.
type ProtocolMessage struct {
	ID             int64
	PortID         string
	Direction      Direction
	TypeCode       MessageType
	Sender         string
	RawXML         string
	ParsedData     map[string]any
	SentAt         *time.Time
	ReceivedAt     *time.Time
	AckStatus      AckStatus
	AckText        string
	RetryCount     int
	LastRetryAt    *time.Time
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Attachment struct {
	ID         int64
	PortID     string
	FileName   string
	MimeType   string
	FileSize   int64
	StorageKey string
	CreatedAt  time.Time
}

// StateChange describes one committed transition.
type StateChange struct {
	PortID   string
	Previous State
	Current  State
	Reason   string
	At       time.Time
}
