package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ometra-Hela/Alize/internal/dal/entities"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/model/mappers"
)

type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) CreateAttachment(ctx context.Context, a *model.Attachment) (*model.Attachment, error) {
	const query = `
INSERT INTO alize_portability_attachments (port_id, file_name, mime_type, file_size, storage_key)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

	created := *a

	err := r.db.QueryRowContext(ctx, query, a.PortID, a.FileName, a.MimeType, a.FileSize, a.StorageKey).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attachment %s: %w", a.FileName, err)
	}

	return &created, nil
}

func (r *AttachmentRepository) ListAttachments(ctx context.Context, portID string) ([]*model.Attachment, error) {
	const query = `
SELECT id, port_id, file_name, mime_type, file_size, storage_key, created_at
	FROM alize_portability_attachments
	WHERE port_id = $1
	ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, portID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var result []*model.Attachment

	for rows.Next() {
		var e entities.AttachmentEntity
		if err := rows.Scan(&e.ID, &e.PortID, &e.FileName, &e.MimeType, &e.FileSize, &e.StorageKey, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}

		result = append(result, mappers.AttachmentEntityToModel(&e))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}
