package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexanderramin/weekendly/internal/db"
	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

// SQLiteActionQueue implements ActionQueue on the offline_actions table.
type SQLiteActionQueue struct {
	db  db.DBTX
	uow db.UnitOfWork
}

// NewSQLiteActionQueue creates a queue whose multi-statement operations run
// inside transactions on conn.
func NewSQLiteActionQueue(conn *sql.DB) *SQLiteActionQueue {
	return &SQLiteActionQueue{db: conn, uow: db.NewSQLiteUnitOfWork(conn)}
}

// NewSQLiteActionQueueWithUoW lets tests inject a failing UnitOfWork.
func NewSQLiteActionQueueWithUoW(conn db.DBTX, uow db.UnitOfWork) *SQLiteActionQueue {
	return &SQLiteActionQueue{db: conn, uow: uow}
}

var _ ActionQueue = (*SQLiteActionQueue)(nil)

const actionColumns = `id, type, endpoint, method, user_id, plan_id, payload, timestamp, attempts, last_error`

func (r *SQLiteActionQueue) Enqueue(ctx context.Context, a domain.OfflineAction) (domain.OfflineAction, bool, error) {
	var (
		stored domain.OfflineAction
		kept   bool
	)
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		stored, kept, err = enqueueTx(ctx, tx, a)
		return err
	})
	if err != nil {
		return domain.OfflineAction{}, false, err
	}
	return stored, kept, nil
}

func enqueueTx(ctx context.Context, tx db.DBTX, a domain.OfflineAction) (domain.OfflineAction, bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.PlanID == "" {
		return a, true, insertAction(ctx, tx, a)
	}

	existing, err := getActionByPlan(ctx, tx, a.UserID, a.PlanID)
	switch {
	case errors.Is(err, ErrNotFound):
		return a, true, insertAction(ctx, tx, a)
	case err != nil:
		return domain.OfflineAction{}, false, err
	}

	merged, keep := domain.CollapseActions(*existing, a)
	if !keep {
		if err := deleteAction(ctx, tx, existing.ID); err != nil {
			return domain.OfflineAction{}, false, err
		}
		return domain.OfflineAction{}, false, nil
	}
	merged.ID = existing.ID
	if err := updateAction(ctx, tx, merged); err != nil {
		return domain.OfflineAction{}, false, err
	}
	return merged, true, nil
}

func (r *SQLiteActionQueue) List(ctx context.Context) ([]domain.OfflineAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+actionColumns+` FROM offline_actions ORDER BY seq, timestamp`)
	if err != nil {
		return nil, fmt.Errorf("listing offline actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.OfflineAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating offline actions: %w", err)
	}
	return actions, nil
}

func (r *SQLiteActionQueue) Get(ctx context.Context, id string) (*domain.OfflineAction, error) {
	return getAction(ctx, r.db, id)
}

func (r *SQLiteActionQueue) GetByPlan(ctx context.Context, userID, planID string) (*domain.OfflineAction, error) {
	return getActionByPlan(ctx, r.db, userID, planID)
}

func (r *SQLiteActionQueue) Remove(ctx context.Context, id string) error {
	return deleteAction(ctx, r.db, id)
}

// Ack removes a delivered action unless it was rewritten after delivered
// was read. In that case it reports false and the newer version stays
// queued for the next pass. An action that is already gone counts as acked.
func (r *SQLiteActionQueue) Ack(ctx context.Context, delivered domain.OfflineAction) (bool, error) {
	var acked bool
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		current, err := getAction(ctx, tx, delivered.ID)
		if errors.Is(err, ErrNotFound) {
			acked = true
			return nil
		}
		if err != nil {
			return err
		}
		if !sameDelivery(*current, delivered) {
			return nil
		}
		acked = true
		return deleteAction(ctx, tx, delivered.ID)
	})
	if err != nil {
		return false, err
	}
	return acked, nil
}

func sameDelivery(a, b domain.OfflineAction) bool {
	if a.Type != b.Type || a.PlanID != b.PlanID || a.Timestamp != b.Timestamp {
		return false
	}
	pa, errA := encodePayload(a.Data)
	pb, errB := encodePayload(b.Data)
	return errA == nil && errB == nil && pa == pb
}

func (r *SQLiteActionQueue) Promote(ctx context.Context, id, serverPlanID string) (*domain.OfflineAction, error) {
	var promoted *domain.OfflineAction
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		a, err := getAction(ctx, tx, id)
		if err != nil {
			return err
		}
		a.Type = domain.ActionUpdate
		a.Method = http.MethodPut
		a.Endpoint = domain.PlansEndpoint
		a.PlanID = serverPlanID
		a.Attempts = 0
		a.LastError = ""
		if err := updateAction(ctx, tx, *a); err != nil {
			return err
		}
		promoted = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// RemapPlan readdresses the action queued under fromPlanID to toPlanID,
// collapsing it into any action already queued for toPlanID.
func (r *SQLiteActionQueue) RemapPlan(ctx context.Context, fromPlanID, toPlanID string) error {
	if fromPlanID == toPlanID {
		return nil
	}
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		actions, err := listActionsByPlan(ctx, tx, fromPlanID)
		if err != nil {
			return err
		}
		for _, a := range actions {
			if err := deleteAction(ctx, tx, a.ID); err != nil {
				return err
			}
			a.PlanID = toPlanID
			if a.Type == domain.ActionDelete {
				a.Endpoint = domain.NewDeleteAction(a.UserID, toPlanID, a.Time()).Endpoint
			}
			if _, _, err := enqueueTx(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteActionQueue) RecordFailure(ctx context.Context, id, cause string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE offline_actions SET attempts = attempts + 1, last_error = ? WHERE id = ? RETURNING attempts`,
		cause, id).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("offline action %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("recording failure for %s: %w", id, err)
	}
	return attempts, nil
}

func (r *SQLiteActionQueue) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting offline actions: %w", err)
	}
	return n, nil
}

func (r *SQLiteActionQueue) PlanIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_id FROM offline_actions WHERE plan_id != '' ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing pending plan ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning plan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteActionQueue) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offline_actions`); err != nil {
		return fmt.Errorf("clearing offline actions: %w", err)
	}
	return nil
}

func insertAction(ctx context.Context, tx db.DBTX, a domain.OfflineAction) error {
	payload, err := encodePayload(a.Data)
	if err != nil {
		return err
	}
	query := `INSERT INTO offline_actions (id, type, endpoint, method, user_id, plan_id, payload, timestamp, attempts, last_error, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM offline_actions))`
	_, err = tx.ExecContext(ctx, query,
		a.ID,
		string(a.Type),
		a.Endpoint,
		a.Method,
		a.UserID,
		a.PlanID,
		payload,
		a.Timestamp,
		a.Attempts,
		a.LastError,
	)
	if err != nil {
		return fmt.Errorf("inserting offline action: %w", err)
	}
	return nil
}

// updateAction rewrites a queued action in place; its queue position is kept.
func updateAction(ctx context.Context, tx db.DBTX, a domain.OfflineAction) error {
	payload, err := encodePayload(a.Data)
	if err != nil {
		return err
	}
	query := `UPDATE offline_actions SET type = ?, endpoint = ?, method = ?, user_id = ?, plan_id = ?,
		payload = ?, timestamp = ?, attempts = ?, last_error = ?
		WHERE id = ?`
	res, err := tx.ExecContext(ctx, query,
		string(a.Type),
		a.Endpoint,
		a.Method,
		a.UserID,
		a.PlanID,
		payload,
		a.Timestamp,
		a.Attempts,
		a.LastError,
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating offline action: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("offline action %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

func deleteAction(ctx context.Context, tx db.DBTX, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM offline_actions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting offline action: %w", err)
	}
	return nil
}

func getAction(ctx context.Context, tx db.DBTX, id string) (*domain.OfflineAction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM offline_actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("offline action %s: %w", id, ErrNotFound)
	}
	return a, err
}

func getActionByPlan(ctx context.Context, tx db.DBTX, userID, planID string) (*domain.OfflineAction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM offline_actions WHERE user_id = ? AND plan_id = ? ORDER BY seq DESC LIMIT 1`,
		userID, planID)
	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("offline action for plan %s: %w", planID, ErrNotFound)
	}
	return a, err
}

// listActionsByPlan returns every user's action for planID in queue order.
func listActionsByPlan(ctx context.Context, tx db.DBTX, planID string) ([]domain.OfflineAction, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+actionColumns+` FROM offline_actions WHERE plan_id = ? ORDER BY seq`, planID)
	if err != nil {
		return nil, fmt.Errorf("listing offline actions for plan %s: %w", planID, err)
	}
	defer rows.Close()

	var actions []domain.OfflineAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating offline actions for plan %s: %w", planID, err)
	}
	return actions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*domain.OfflineAction, error) {
	var a domain.OfflineAction
	var typ string
	var payload sql.NullString
	err := row.Scan(
		&a.ID, &typ, &a.Endpoint, &a.Method, &a.UserID, &a.PlanID,
		&payload, &a.Timestamp, &a.Attempts, &a.LastError,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning offline action: %w", err)
	}
	a.Type = domain.ActionType(typ)
	if a.Data, err = decodePayload(payload); err != nil {
		return nil, err
	}
	return &a, nil
}
