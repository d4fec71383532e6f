package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
)

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRequest(row scannable) (*model.Request, error) {
	var r model.Request
	var (
		description sql.NullString
		filePath    sql.NullString
		command     sql.NullString
		options     []byte
		approved    sql.NullBool
		selected    sql.NullInt64
		resolvedAt  sql.NullTime
		resolvedBy  sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.PairingID,
		&r.Kind,
		&r.Title,
		&description,
		&filePath,
		&command,
		&options,
		&r.Recommended,
		&r.Status,
		&approved,
		&selected,
		&r.CreatedAt,
		&resolvedAt,
		&resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	r.Description = description.String
	r.FilePath = filePath.String
	r.Command = command.String
	r.ResolvedBy = resolvedBy.String

	if len(options) > 0 {
		if err := json.Unmarshal(options, &r.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", r.ID, err)
		}
	}
	if approved.Valid {
		v := approved.Bool
		r.Approved = &v
	}
	if selected.Valid {
		v := int(selected.Int64)
		r.Selected = &v
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}

	return &r, nil
}

// nullTimePtr converts a *time.Time to sql.NullTime; nil is null.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBoolPtr(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullIntPtr(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
