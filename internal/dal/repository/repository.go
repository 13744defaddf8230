package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Ometra-Hela/Alize/internal/model"
)

const uniqueViolationCode = "23505"

type QueriableConnection interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// IPortabilityRepository persists cases and their numbers. UpdateWithLock is the only
// way state and deadline columns change: fn runs while the row is locked and its
// result is written in the same transaction.
type IPortabilityRepository interface {
	Create(ctx context.Context, p *model.Portability, msisdns []string) (*model.Portability, error)
	GetByPortID(ctx context.Context, portID string) (*model.Portability, error)
	GetByFolioID(ctx context.Context, folioID string) (*model.Portability, error)
	Update(ctx context.Context, p *model.Portability) error
	UpdateWithLock(ctx context.Context, portID string, fn func(*model.Portability) error) (*model.Portability, error)
	FindExpired(ctx context.Context, timer model.Timer, now time.Time, limit int) ([]*model.Portability, error)

	Numbers(ctx context.Context, portabilityID int64) ([]model.PortabilityNumber, error)
	AppendNumbers(ctx context.Context, portabilityID int64, msisdns []string) error
	MarkNumbersRejected(ctx context.Context, portabilityID int64, rejected []model.RejectedNumber) (int, error)
}

type IMessageRepository interface {
	RecordMessage(ctx context.Context, msg *model.ProtocolMessage) error
	PendingRetry(ctx context.Context, maxRetries, limit int) ([]*model.ProtocolMessage, error)
	MarkSent(ctx context.Context, id int64, ackText string, at time.Time) error
	IncrementRetry(ctx context.Context, id int64, ackText string, at time.Time) error
	ListByPortID(ctx context.Context, portID string) ([]*model.ProtocolMessage, error)
}

type IAttachmentRepository interface {
	CreateAttachment(ctx context.Context, a *model.Attachment) (*model.Attachment, error)
	ListAttachments(ctx context.Context, portID string) ([]*model.Attachment, error)
}

type IJobLocker interface {
	TryLockJob(ctx context.Context, name string) (bool, error)
	UnlockJob(ctx context.Context, name string)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func notFoundOr(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewNotFoundError(what, id)
	}

	return fmt.Errorf("get %s %s: %w", what, id, err)
}

func createAndOpenTransaction(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (tx *sql.Tx, rollback func(), err error) {
	tx, err = db.BeginTx(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transaction: %w", err)
	}

	rollback = func() { _ = tx.Rollback() }

	return tx, rollback, nil
}
