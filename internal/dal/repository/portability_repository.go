package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Ometra-Hela/Alize/internal/dal/entities"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/model/mappers"
)

const portabilityColumns = `id, port_id, folio_id, state, port_type, subscriber_type, recovery_flag,
	dida, dcr, rida, rcr, subs_req_time, req_port_exec_date, port_exec_date,
	t1_expires_at, t3_expires_at, t4_expires_at, t5_expires_at, pin, comments, created_at, updated_at`

var timerColumns = map[model.Timer]string{
	model.TimerT1: "t1_expires_at",
	model.TimerT3: "t3_expires_at",
	model.TimerT4: "t4_expires_at",
	model.TimerT5: "t5_expires_at",
}

type PortabilityRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPortabilityRepository(db *sql.DB) *PortabilityRepository {
	return &PortabilityRepository{db: db, now: time.Now}
}

// Create inserts the case and its numbers in one transaction.
func (r *PortabilityRepository) Create(ctx context.Context, p *model.Portability, msisdns []string) (*model.Portability, error) {
	tx, rollback, err := createAndOpenTransaction(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}

	defer rollback()

	const query = `
INSERT INTO alize_portabilities (port_id, folio_id, state, port_type, subscriber_type, recovery_flag,
	dida, dcr, rida, rcr, subs_req_time, req_port_exec_date, port_exec_date,
	t1_expires_at, t3_expires_at, t4_expires_at, t5_expires_at, pin, comments)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	RETURNING id, created_at, updated_at`

	e := mappers.PortabilityModelToEntity(p)

	err = tx.QueryRowContext(ctx, query,
		e.PortID, e.FolioID, e.State, e.PortType, e.SubscriberType, e.RecoveryFlag,
		e.DIDA, e.DCR, e.RIDA, e.RCR, e.SubsReqTime, e.ReqPortExecDate, e.PortExecDate,
		e.T1ExpiresAt, e.T3ExpiresAt, e.T4ExpiresAt, e.T5ExpiresAt, e.PIN, e.Comments,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.NewValidationError("portability %s already exists", p.PortID)
		}

		return nil, fmt.Errorf("insert portability: %w", err)
	}

	if err := insertNumbers(ctx, tx, e.ID, msisdns); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return mappers.PortabilityEntityToModel(e)
}

func insertNumbers(ctx context.Context, tx *sql.Tx, portabilityID int64, msisdns []string) error {
	if len(msisdns) == 0 {
		return nil
	}

	const queryBase = `
INSERT INTO alize_portability_numbers (portability_id, msisdn, status)
	VALUES %s`

	placeholders := make([]string, 0, len(msisdns))
	args := make([]any, 0, len(msisdns)*3)

	for i, msisdn := range msisdns {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, portabilityID, msisdn, string(model.NumberStatusActive))
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(queryBase, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return fmt.Errorf("failed to save portability numbers: %w", err)
	}

	if rowsAff, err := res.RowsAffected(); err == nil && int(rowsAff) != len(msisdns) {
		return fmt.Errorf("failed to save all %d portability numbers: saved only %d - rollback", len(msisdns), rowsAff)
	}

	return nil
}

func (r *PortabilityRepository) GetByPortID(ctx context.Context, portID string) (*model.Portability, error) {
	return r.getBy(ctx, r.db, "port_id", portID, false)
}

func (r *PortabilityRepository) GetByFolioID(ctx context.Context, folioID string) (*model.Portability, error) {
	return r.getBy(ctx, r.db, "folio_id", folioID, false)
}

func (r *PortabilityRepository) getBy(ctx context.Context, conn QueriableConnection, column, value string, forUpdate bool) (*model.Portability, error) {
	q := fmt.Sprintf(`SELECT %s FROM alize_portabilities WHERE %s = $1`, portabilityColumns, column)
	if forUpdate {
		q += " FOR UPDATE"
	}

	var e entities.PortabilityEntity
	if err := conn.QueryRowContext(ctx, q, value).Scan(e.ScanTargets()...); err != nil {
		return nil, notFoundOr(err, "portability", value)
	}

	return mappers.PortabilityEntityToModel(&e)
}

func (r *PortabilityRepository) Update(ctx context.Context, p *model.Portability) error {
	return r.update(ctx, r.db, p)
}

func (r *PortabilityRepository) update(ctx context.Context, conn QueriableConnection, p *model.Portability) error {
	const query = `
UPDATE alize_portabilities
  SET
	state = $1,
	recovery_flag = $2,
	req_port_exec_date = $3,
	port_exec_date = $4,
	t1_expires_at = $5,
	t3_expires_at = $6,
	t4_expires_at = $7,
	t5_expires_at = $8,
	pin = $9,
	comments = $10,
	updated_at = $11
  WHERE port_id = $12`

	e := mappers.PortabilityModelToEntity(p)
	e.UpdatedAt = r.now().UTC()

	res, err := conn.ExecContext(ctx, query,
		e.State, e.RecoveryFlag, e.ReqPortExecDate, e.PortExecDate,
		e.T1ExpiresAt, e.T3ExpiresAt, e.T4ExpiresAt, e.T5ExpiresAt,
		e.PIN, e.Comments, e.UpdatedAt, e.PortID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portability %s: %w", p.PortID, err)
	}

	if nAffected, _ := res.RowsAffected(); nAffected != 1 {
		return model.NewNotFoundError("portability", p.PortID)
	}

	p.UpdatedAt = e.UpdatedAt

	return nil
}

// UpdateWithLock reads the case FOR UPDATE, applies fn and writes the result before
// committing. When fn fails nothing is written.
func (r *PortabilityRepository) UpdateWithLock(ctx context.Context, portID string, fn func(*model.Portability) error) (*model.Portability, error) {
	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "PortabilityRepository.UpdateWithLock")
	defer span.End()

	span.SetAttributes(attribute.String("port_id", portID))

	tx, rollback, err := createAndOpenTransaction(ctx, r.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}

	defer rollback()

	p, err := r.getBy(ctx, tx, "port_id", portID, true)
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	if err := r.update(ctx, tx, p); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return p, nil
}

// FindExpired returns cases still in the timer's governing state whose deadline is at
// or before now, oldest deadline first.
func (r *PortabilityRepository) FindExpired(ctx context.Context, timer model.Timer, now time.Time, limit int) ([]*model.Portability, error) {
	column, ok := timerColumns[timer]
	if !ok {
		return nil, fmt.Errorf("unknown timer %s", timer)
	}

	q := fmt.Sprintf(`SELECT %s FROM alize_portabilities
	WHERE %s IS NOT NULL AND %s <= $1 AND state = $2
	ORDER BY %s
	LIMIT $3`, portabilityColumns, column, column, column)

	rows, err := r.db.QueryContext(ctx, q, now, string(timer.GoverningState()), limit)
	if err != nil {
		return nil, fmt.Errorf("query expired %s: %w", timer, err)
	}
	defer rows.Close()

	var result []*model.Portability

	for rows.Next() {
		var e entities.PortabilityEntity
		if err := rows.Scan(e.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan portability: %w", err)
		}

		p, err := mappers.PortabilityEntityToModel(&e)
		if err != nil {
			return nil, err
		}

		result = append(result, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return result, nil
}

func (r *PortabilityRepository) Numbers(ctx context.Context, portabilityID int64) ([]model.PortabilityNumber, error) {
	const query = `
SELECT id, portability_id, msisdn, status, reject_reason
	FROM alize_portability_numbers
	WHERE portability_id = $1
	ORDER BY msisdn`

	rows, err := r.db.QueryContext(ctx, query, portabilityID)
	if err != nil {
		return nil, fmt.Errorf("query portability numbers: %w", err)
	}
	defer rows.Close()

	var numbers []model.PortabilityNumber

	for rows.Next() {
		var e entities.PortabilityNumberEntity
		if err := rows.Scan(&e.ID, &e.PortabilityID, &e.MSISDN, &e.Status, &e.RejectReason); err != nil {
			return nil, fmt.Errorf("scan portability number: %w", err)
		}

		numbers = append(numbers, mappers.NumberEntityToModel(&e))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return numbers, nil
}

func (r *PortabilityRepository) AppendNumbers(ctx context.Context, portabilityID int64, msisdns []string) error {
	tx, rollback, err := createAndOpenTransaction(ctx, r.db, nil)
	if err != nil {
		return err
	}

	defer rollback()

	if err := insertNumbers(ctx, tx, portabilityID, msisdns); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// MarkNumbersRejected flags the listed numbers and returns how many rows changed.
func (r *PortabilityRepository) MarkNumbersRejected(ctx context.Context, portabilityID int64, rejected []model.RejectedNumber) (int, error) {
	const query = `
UPDATE alize_portability_numbers
  SET status = $1, reject_reason = $2
  WHERE portability_id = $3 AND msisdn = $4`

	tx, rollback, err := createAndOpenTransaction(ctx, r.db, nil)
	if err != nil {
		return 0, err
	}

	defer rollback()

	var total int

	for _, n := range rejected {
		res, err := tx.ExecContext(ctx, query, string(model.NumberStatusRejected), nullIfEmpty(n.ReasonCode), portabilityID, n.MSISDN)
		if err != nil {
			return 0, fmt.Errorf("reject number %s: %w", n.MSISDN, err)
		}

		if affected, err := res.RowsAffected(); err == nil {
			total += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}

	return v
}
