package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/store"
)

// requestColumns is the column list used for SELECT statements on the requests table.
const requestColumns = `id, pairing_id, kind, title, description, file_path, command,
	options, recommended, status, approved, selected, created_at, resolved_at, resolved_by`

func (s *PostgresStore) CreateRequest(ctx context.Context, r *model.Request) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (
			id, pairing_id, kind, title, description, file_path, command,
			options, recommended, status, approved, selected, created_at, resolved_at, resolved_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14, $15
		)`,
		r.ID,
		r.PairingID,
		string(r.Kind),
		r.Title,
		nullString(r.Description),
		nullString(r.FilePath),
		nullString(r.Command),
		optionsJSON(r.Options),
		r.Recommended,
		string(r.Status),
		nullBoolPtr(r.Approved),
		nullIntPtr(r.Selected),
		r.CreatedAt,
		nullTimePtr(r.ResolvedAt),
		nullString(r.ResolvedBy),
	)
	return err
}

func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) ListPending(ctx context.Context, pairingID string) ([]*model.Request, error) {
	return s.listRequests(ctx, pairingID, true)
}

func (s *PostgresStore) ListAll(ctx context.Context, pairingID string) ([]*model.Request, error) {
	return s.listRequests(ctx, pairingID, false)
}

func (s *PostgresStore) listRequests(ctx context.Context, pairingID string, pendingOnly bool) ([]*model.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM requests`
	var args []any
	where := ""
	if pairingID != "" {
		where = ` WHERE pairing_id = $1`
		args = append(args, pairingID)
	}
	if pendingOnly {
		if where == "" {
			where = ` WHERE status = 'pending'`
		} else {
			where += ` AND status = 'pending'`
		}
	}
	rows, err := s.db.QueryContext(ctx, q+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResolveRequest applies the first-resolution-wins rule in SQL: the
// UPDATE matches only while the row is still pending, so a competing
// resolution that already landed leaves zero rows affected.
func (s *PostgresStore) ResolveRequest(ctx context.Context, id string, status model.Status, decision *model.Decision) (*model.Request, error) {
	var (
		approved   any
		selected   any
		resolvedBy any
	)
	if decision != nil {
		approved = nullBoolPtr(decision.Approved)
		selected = nullIntPtr(decision.Selected)
		resolvedBy = nullString(decision.By)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE requests
		SET status = $2, approved = $3, selected = $4, resolved_at = $5, resolved_by = $6
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id, string(status), approved, selected, time.Now().UTC(), resolvedBy,
	)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the request does not exist or it already left pending.
		if _, getErr := s.GetRequest(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrAlreadyResolved
	}
	if err != nil {
		return nil, fmt.Errorf("resolve request %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, pairingID string) (*model.SessionState, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pairing_id, active, interrupted, action, session_id, updated_at
		FROM sessions WHERE pairing_id = $1`, pairingID)

	var (
		st        model.SessionState
		action    sql.NullString
		sessionID sql.NullString
	)
	err := row.Scan(&st.PairingID, &st.Active, &st.Interrupted, &action, &sessionID, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSession(pairingID), nil
	}
	if err != nil {
		return nil, err
	}
	st.Action = model.InterruptAction(action.String)
	st.SessionID = sessionID.String
	return &st, nil
}

func (s *PostgresStore) PutSession(ctx context.Context, st *model.SessionState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (pairing_id, active, interrupted, action, session_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pairing_id) DO UPDATE
		SET active = $2, interrupted = $3, action = $4, session_id = $5, updated_at = $6`,
		st.PairingID, st.Active, st.Interrupted,
		nullString(string(st.Action)), nullString(st.SessionID), st.UpdatedAt,
	)
	return err
}

func optionsJSON(opts []model.Option) []byte {
	if len(opts) == 0 {
		return nil
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return nil
	}
	return b
}
