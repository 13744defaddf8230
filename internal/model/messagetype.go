package model

import (
	"fmt"
	"slices"
	"strconv"
)

// MessageType is the numeric code of a clearinghouse protocol message.
type MessageType int

const (
	MessageTypePortRequest                  MessageType = 1001
	MessageTypePortRequestAck               MessageType = 1002
	MessageTypePortRequestToDida            MessageType = 1003
	MessageTypePortResponse                 MessageType = 1004
	MessageTypeReadyToSchedule              MessageType = 1005
	MessageTypeSchedulePortRequest          MessageType = 1006
	MessageTypeSchedulePortNotification     MessageType = 1007
	MessageTypePortRejected                 MessageType = 1091
	MessageTypePortTerminated               MessageType = 1092
	MessageTypePartialRejection             MessageType = 1093
	MessageTypeIndividualValidationRequest  MessageType = 1201
	MessageTypeIndividualValidationResponse MessageType = 1202
	MessageTypeIndividualValidationToRida   MessageType = 1203
	MessageTypePinGenerationRequest         MessageType = 2001
	MessageTypePinDeliveryConfirmation      MessageType = 2002
	MessageTypePinConfirmation              MessageType = 2004
	MessageTypePinNotification              MessageType = 2005
	MessageTypeCancellationRequest          MessageType = 3001
	MessageTypeCancellationAcceptance       MessageType = 3002
	MessageTypeReversalRequest              MessageType = 4001
	MessageTypeReversalDocsRequest          MessageType = 4002
	MessageTypeReversalDocsResponse         MessageType = 4003
	MessageTypeReversalAcceptance           MessageType = 4004
	MessageTypeReversalRejection            MessageType = 4005
	MessageTypeDeletionRequest              MessageType = 5001
	MessageTypeDeletionResponse             MessageType = 5002
	MessageTypeNonGeoAltaRequest            MessageType = 6001
	MessageTypeNonGeoAltaResponse           MessageType = 6002
	MessageTypeSyncRequest                  MessageType = 7001
	MessageTypeSyncResponse                 MessageType = 7002
	MessageTypeIdaAssociationRequest        MessageType = 8101
	MessageTypeIdaAssociationResponse       MessageType = 8102
	MessageTypeCrAssociationRequest         MessageType = 8201
	MessageTypeCrAssociationResponse        MessageType = 8202
)

// MessageFamily groups message types by the protocol flow they belong to.
type MessageFamily string

const (
	FamilyPortation            MessageFamily = "portation"
	FamilyIndividualValidation MessageFamily = "individual-validation"
	FamilyPin                  MessageFamily = "pin"
	FamilyCancellation         MessageFamily = "cancellation"
	FamilyReversal             MessageFamily = "reversal"
	FamilyDeletion             MessageFamily = "deletion"
	FamilyNonGeographic        MessageFamily = "non-geographic"
	FamilySynchronization      MessageFamily = "synchronization"
	FamilyAssociation          MessageFamily = "association"
)

type messageTypeInfo struct {
	label       string
	family      MessageFamily
	attachments bool
}

var messageTypes = map[MessageType]messageTypeInfo{
	MessageTypePortRequest:                  {"Port Request", FamilyPortation, true},
	MessageTypePortRequestAck:               {"Port Request Acknowledgment", FamilyPortation, false},
	MessageTypePortRequestToDida:            {"Port Request to DIDA", FamilyPortation, true},
	MessageTypePortResponse:                 {"Port Response", FamilyPortation, false},
	MessageTypeReadyToSchedule:              {"Ready to Schedule", FamilyPortation, false},
	MessageTypeSchedulePortRequest:          {"Schedule Port Request", FamilyPortation, false},
	MessageTypeSchedulePortNotification:     {"Schedule Port Notification", FamilyPortation, false},
	MessageTypePortRejected:                 {"Port Rejected", FamilyPortation, false},
	MessageTypePortTerminated:               {"Port Terminated", FamilyPortation, false},
	MessageTypePartialRejection:             {"Partial Rejection", FamilyPortation, false},
	MessageTypeIndividualValidationRequest:  {"Individual Validation Request", FamilyIndividualValidation, false},
	MessageTypeIndividualValidationResponse: {"Individual Validation Response", FamilyIndividualValidation, false},
	MessageTypeIndividualValidationToRida:   {"Individual Validation to RIDA", FamilyIndividualValidation, false},
	MessageTypePinGenerationRequest:         {"PIN Generation Request", FamilyPin, false},
	MessageTypePinDeliveryConfirmation:      {"PIN Delivery Confirmation", FamilyPin, false},
	MessageTypePinConfirmation:              {"PIN Confirmation", FamilyPin, false},
	MessageTypePinNotification:              {"PIN Notification", FamilyPin, false},
	MessageTypeCancellationRequest:          {"Cancellation Request", FamilyCancellation, false},
	MessageTypeCancellationAcceptance:       {"Cancellation Acceptance", FamilyCancellation, false},
	MessageTypeReversalRequest:              {"Reversal Request", FamilyReversal, false},
	MessageTypeReversalDocsRequest:          {"Reversal Documents Request", FamilyReversal, true},
	MessageTypeReversalDocsResponse:         {"Reversal Documents Response", FamilyReversal, true},
	MessageTypeReversalAcceptance:           {"Reversal Acceptance", FamilyReversal, false},
	MessageTypeReversalRejection:            {"Reversal Rejection", FamilyReversal, false},
	MessageTypeDeletionRequest:              {"Deletion Request", FamilyDeletion, false},
	MessageTypeDeletionResponse:             {"Deletion Response", FamilyDeletion, false},
	MessageTypeNonGeoAltaRequest:            {"Non-Geographic Alta Request", FamilyNonGeographic, false},
	MessageTypeNonGeoAltaResponse:           {"Non-Geographic Alta Response", FamilyNonGeographic, false},
	MessageTypeSyncRequest:                  {"Synchronization Request", FamilySynchronization, false},
	MessageTypeSyncResponse:                 {"Synchronization Response", FamilySynchronization, false},
	MessageTypeIdaAssociationRequest:        {"IDA Association Request", FamilyAssociation, false},
	MessageTypeIdaAssociationResponse:       {"IDA Association Response", FamilyAssociation, false},
	MessageTypeCrAssociationRequest:         {"CR Association Request", FamilyAssociation, false},
	MessageTypeCrAssociationResponse:        {"CR Association Response", FamilyAssociation, false},
}

// AllMessageTypes returns every known message type ordered by code.
func AllMessageTypes() []MessageType {
	types := make([]MessageType, 0, len(messageTypes))
	for t := range messageTypes {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

func ParseMessageType(code int) (MessageType, error) {
	t := MessageType(code)
	if !t.IsValid() {
		return 0, fmt.Errorf("unknown message type code=%d", code)
	}

	return t, nil
}

func (t MessageType) IsValid() bool {
	_, ok := messageTypes[t]

	return ok
}

func (t MessageType) Code() int {
	return int(t)
}

func (t MessageType) Label() string {
	if info, ok := messageTypes[t]; ok {
		return info.label
	}

	return fmt.Sprintf("Unknown (%d)", int(t))
}

func (t MessageType) String() string {
	return strconv.Itoa(int(t))
}

func (t MessageType) Family() MessageFamily {
	return messageTypes[t].family
}

// IsPortation reports whether the type belongs to the 1001-1093 portation range.
func (t MessageType) IsPortation() bool {
	return t >= MessageTypePortRequest && t <= MessageTypePartialRejection
}

func (t MessageType) SupportsAttachments() bool {
	return messageTypes[t].attachments
}
