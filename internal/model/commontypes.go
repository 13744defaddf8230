package model

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

type AckStatus string

const (
	AckStatusSuccess AckStatus = "SUCCESS"
	AckStatusError   AckStatus = "ERROR"
)

type PortType string

const (
	PortTypeMobile PortType = "MOBILE"
	PortTypeFixed  PortType = "FIXED"
)

type SubscriberType string

const (
	SubscriberTypeIndividual SubscriberType = "INDIVIDUAL"
	SubscriberTypeBusiness   SubscriberType = "BUSINESS"
)

const (
	RecoveryFlagYes = "YES"
	RecoveryFlagNo  = "NO"
)

type NumberStatus string

const (
	NumberStatusActive   NumberStatus = "ACTIVE"
	NumberStatusRejected NumberStatus = "REJECTED"
)

// Timer names one of the protocol deadlines carried by a case.
type Timer string

const (
	TimerT1 Timer = "T1"
	TimerT3 Timer = "T3"
	TimerT4 Timer = "T4"
	TimerT5 Timer = "T5"
)

// GoverningState is the state in which an expired timer still has an effect.
func (t Timer) GoverningState() State {
	switch t {
	case TimerT1:
		return StatePortRequested
	case TimerT3:
		return StateReadyToBeScheduled
	case TimerT4:
		return StatePortScheduled
	default:
		return ""
	}
}
