package entities

import "time"

type NPCMessageEntity struct {
	ID             int64      `db:"id"`
	PortID         string     `db:"port_id"`
	Direction      string     `db:"direction"`
	TypeCode       int        `db:"type_code"`
	Sender         *string    `db:"sender"`
	RawXML         string     `db:"raw_xml"`
	ParsedData     []byte     `db:"parsed_data"` // JSON
	SentAt         *time.Time `db:"sent_at"`
	ReceivedAt     *time.Time `db:"received_at"`
	AckStatus      *string    `db:"ack_status"`
	AckText        *string    `db:"ack_text"`
	RetryCount     int        `db:"retry_count"`
	IdempotencyKey *string    `db:"idempotency_key"`
	LastRetryAt    *time.Time `db:"last_retry_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (e *NPCMessageEntity) ScanTargets() []any {
	return []any{
		&e.ID, &e.PortID, &e.Direction, &e.TypeCode, &e.Sender, &e.RawXML, &e.ParsedData,
		&e.SentAt, &e.ReceivedAt, &e.AckStatus, &e.AckText, &e.RetryCount, &e.IdempotencyKey,
		&e.LastRetryAt, &e.CreatedAt, &e.UpdatedAt,
	}
}

type AttachmentEntity struct {
	ID         int64     `db:"id"`
	PortID     string    `db:"port_id"`
	FileName   string    `db:"file_name"`
	MimeType   string    `db:"mime_type"`
	FileSize   int64     `db:"file_size"`
	StorageKey string    `db:"storage_key"`
	CreatedAt  time.Time `db:"created_at"`
}
