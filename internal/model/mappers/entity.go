package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/Ometra-Hela/Alize/internal/converters"
	"github.com/Ometra-Hela/Alize/internal/dal/entities"
	"github.com/Ometra-Hela/Alize/internal/model"
)

func PortabilityEntityToModel(e *entities.PortabilityEntity) (*model.Portability, error) {
	state, err := model.ParseState(e.State)
	if err != nil {
		return nil, fmt.Errorf("portability %s: %w", e.PortID, err)
	}

	return &model.Portability{
		ID:              e.ID,
		PortID:          e.PortID,
		FolioID:         e.FolioID,
		State:           state,
		PortType:        model.PortType(e.PortType),
		SubscriberType:  model.SubscriberType(e.SubscriberType),
		RecoveryFlag:    e.RecoveryFlag,
		DIDA:            e.DIDA,
		DCR:             e.DCR,
		RIDA:            e.RIDA,
		RCR:             e.RCR,
		SubsReqTime:     e.SubsReqTime,
		ReqPortExecDate: e.ReqPortExecDate,
		PortExecDate:    e.PortExecDate,
		T1ExpiresAt:     e.T1ExpiresAt,
		T3ExpiresAt:     e.T3ExpiresAt,
		T4ExpiresAt:     e.T4ExpiresAt,
		T5ExpiresAt:     e.T5ExpiresAt,
		PIN:             converters.PtrToStr(e.PIN),
		Comments:        converters.PtrToStr(e.Comments),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}, nil
}

func PortabilityModelToEntity(p *model.Portability) *entities.PortabilityEntity {
	return &entities.PortabilityEntity{
		ID:              p.ID,
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
		SubsReqTime:     p.SubsReqTime,
		ReqPortExecDate: p.ReqPortExecDate,
		PortExecDate:    p.PortExecDate,
		T1ExpiresAt:     p.T1ExpiresAt,
		T3ExpiresAt:     p.T3ExpiresAt,
		T4ExpiresAt:     p.T4ExpiresAt,
		T5ExpiresAt:     p.T5ExpiresAt,
		PIN:             converters.StrToPtr(p.PIN),
		Comments:        converters.StrToPtr(p.Comments),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func NumberEntityToModel(e *entities.PortabilityNumberEntity) model.PortabilityNumber {
	return model.PortabilityNumber{
		ID:            e.ID,
		PortabilityID: e.PortabilityID,
		MSISDN:        e.MSISDN,
		Status:        model.NumberStatus(e.Status),
		RejectReason:  converters.PtrToStr(e.RejectReason),
	}
}

func MessageEntityToModel(e *entities.NPCMessageEntity) (*model.ProtocolMessage, error) {
	msg := &model.ProtocolMessage{
		ID:             e.ID,
		PortID:         e.PortID,
		Direction:      model.Direction(e.Direction),
		TypeCode:       model.MessageType(e.TypeCode),
		Sender:         converters.PtrToStr(e.Sender),
		RawXML:         e.RawXML,
		SentAt:         e.SentAt,
		ReceivedAt:     e.ReceivedAt,
		AckStatus:      model.AckStatus(converters.PtrToStr(e.AckStatus)),
		AckText:        converters.PtrToStr(e.AckText),
		RetryCount:     e.RetryCount,
		IdempotencyKey: converters.PtrToStr(e.IdempotencyKey),
		LastRetryAt:    e.LastRetryAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}

	if len(e.ParsedData) > 0 {
		if err := json.Unmarshal(e.ParsedData, &msg.ParsedData); err != nil {
			return nil, fmt.Errorf("failed to deserialize parsed data of message %d: %w", e.ID, err)
		}
	}

	return msg, nil
}

func MessageModelToEntity(m *model.ProtocolMessage) (*entities.NPCMessageEntity, error) {
	e := &entities.NPCMessageEntity{
		ID:             m.ID,
		PortID:         m.PortID,
		Direction:      string(m.Direction),
		TypeCode:       m.TypeCode.Code(),
		Sender:         converters.StrToPtr(m.Sender),
		RawXML:         m.RawXML,
		SentAt:         m.SentAt,
		ReceivedAt:     m.ReceivedAt,
		AckStatus:      converters.StrToPtr(string(m.AckStatus)),
		AckText:        converters.StrToPtr(m.AckText),
		RetryCount:     m.RetryCount,
		IdempotencyKey: converters.StrToPtr(m.IdempotencyKey),
		LastRetryAt:    m.LastRetryAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}

	if m.ParsedData != nil {
		raw, err := json.Marshal(m.ParsedData)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize parsed data: %w", err)
		}

		e.ParsedData = raw
	}

	return e, nil
}

func AttachmentEntityToModel(e *entities.AttachmentEntity) *model.Attachment {
	return &model.Attachment{
		ID:         e.ID,
		PortID:     e.PortID,
		FileName:   e.FileName,
		MimeType:   e.MimeType,
		FileSize:   e.FileSize,
		StorageKey: e.StorageKey,
		CreatedAt:  e.CreatedAt,
	}
}
