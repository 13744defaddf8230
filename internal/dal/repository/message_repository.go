package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Ometra-Hela/Alize/internal/dal/entities"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/model/mappers"
)

const messageColumns = `id, port_id, direction, type_code, sender, raw_xml, parsed_data,
	sent_at, received_at, ack_status, ack_text, retry_count, idempotency_key,
	last_retry_at, created_at, updated_at`

type MessageRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db, now: time.Now}
}

// RecordMessage inserts the exchange. A repeated idempotency key bumps retry_count on
// the existing row and refreshes its acknowledgment instead of inserting a duplicate.
func (r *MessageRepository) RecordMessage(ctx context.Context, msg *model.ProtocolMessage) error {
	const query = `
INSERT INTO alize_npc_messages (port_id, direction, type_code, sender, raw_xml, parsed_data,
	sent_at, received_at, ack_status, ack_text, idempotency_key)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (idempotency_key)
DO UPDATE SET
	retry_count = alize_npc_messages.retry_count + 1,
	last_retry_at = now(),
	ack_status = EXCLUDED.ack_status,
	ack_text = EXCLUDED.ack_text,
	updated_at = now()
RETURNING id, retry_count, created_at, updated_at`

	e, err := mappers.MessageModelToEntity(msg)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		e.PortID, e.Direction, e.TypeCode, e.Sender, e.RawXML, e.ParsedData,
		e.SentAt, e.ReceivedAt, e.AckStatus, e.AckText, e.IdempotencyKey,
	).Scan(&msg.ID, &msg.RetryCount, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("record message for %s: %w", msg.PortID, err)
	}

	return nil
}

// PendingRetry lists outbound exchanges that failed and still have retries left.
func (r *MessageRepository) PendingRetry(ctx context.Context, maxRetries, limit int) ([]*model.ProtocolMessage, error) {
	q := fmt.Sprintf(`SELECT %s FROM alize_npc_messages
	WHERE direction = $1 AND ack_status = $2 AND retry_count < $3
	ORDER BY id
	LIMIT $4`, messageColumns)

	return r.query(ctx, q, string(model.DirectionOut), string(model.AckStatusError), maxRetries, limit)
}

func (r *MessageRepository) ListByPortID(ctx context.Context, portID string) ([]*model.ProtocolMessage, error) {
	q := fmt.Sprintf(`SELECT %s FROM alize_npc_messages WHERE port_id = $1 ORDER BY id`, messageColumns)

	return r.query(ctx, q, portID)
}

func (r *MessageRepository) query(ctx context.Context, q string, args ...any) ([]*model.ProtocolMessage, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ProtocolMessage

	for rows.Next() {
		var e entities.NPCMessageEntity
		if err := rows.Scan(e.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msg, err := mappers.MessageEntityToModel(&e)
		if err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}

func (r *MessageRepository) MarkSent(ctx context.Context, id int64, ackText string, at time.Time) error {
	const query = `
UPDATE alize_npc_messages
  SET ack_status = $1, ack_text = $2, sent_at = $3, updated_at = $4
  WHERE id = $5`

	return r.exec(ctx, id, query, string(model.AckStatusSuccess), nullIfEmpty(ackText), at, r.now().UTC(), id)
}

func (r *MessageRepository) IncrementRetry(ctx context.Context, id int64, ackText string, at time.Time) error {
	const query = `
UPDATE alize_npc_messages
  SET retry_count = retry_count + 1, last_retry_at = $1, ack_text = $2, updated_at = $3
  WHERE id = $4`

	return r.exec(ctx, id, query, at, nullIfEmpty(ackText), r.now().UTC(), id)
}

func (r *MessageRepository) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update message %d: %w", id, err)
	}

	if nAffected, _ := res.RowsAffected(); nAffected != 1 {
		return model.NewNotFoundError("message", fmt.Sprint(id))
	}

	return nil
}
