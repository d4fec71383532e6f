package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/fotescodev/claude-watch/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

// requestRowColumns is the column list for scanRequest results.
var requestRowColumns = []string{
	"id", "pairing_id", "kind", "title", "description", "file_path", "command",
	"options", "recommended", "status", "approved", "selected", "created_at", "resolved_at", "resolved_by",
}

func addRequestRow(rows *sqlmock.Rows, id, pairing, kind, title, status string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, pairing, kind, title, nil, nil, nil,
		nil, 0, status, nil, nil, now, nil, nil,
	)
}

func TestCreateRequest(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectExec("INSERT INTO requests").
		WithArgs(
			"cw-1", "p1", "approval", "Run: ls", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), 0, "pending", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := &model.Request{
		ID:        "cw-1",
		PairingID: "p1",
		Kind:      model.KindApproval,
		Title:     "Run: ls",
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateRequest(context.Background(), r); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery("SELECT .+ FROM requests WHERE id = \\$1").
		WithArgs("cw-missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.GetRequest(context.Background(), "cw-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResolveRequestWinsRace(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows(requestRowColumns)
	rows.AddRow("cw-1", "p1", "approval", "Run: ls", nil, nil, nil,
		nil, 0, "approved", true, nil, now, now, "phone")

	mock.ExpectQuery("UPDATE requests").
		WithArgs("cw-1", "approved", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	approved := true
	r, err := s.ResolveRequest(context.Background(), "cw-1", model.StatusApproved,
		&model.Decision{Approved: &approved, By: "phone"})
	if err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}
	if r.Status != model.StatusApproved || r.Approved == nil || !*r.Approved {
		t.Errorf("resolved = %+v", r)
	}
}

func TestResolveRequestAlreadyResolved(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	now := time.Now().UTC()

	// CAS matches zero rows; the follow-up read shows a terminal record.
	mock.ExpectQuery("UPDATE requests").
		WithArgs("cw-1", "rejected", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM requests WHERE id = \\$1").
		WithArgs("cw-1").
		WillReturnRows(addRequestRow(sqlmock.NewRows(requestRowColumns), "cw-1", "p1", "approval", "Run: ls", "approved", now))

	approved := false
	_, err := s.ResolveRequest(context.Background(), "cw-1", model.StatusRejected,
		&model.Decision{Approved: &approved, By: "phone"})
	if !errors.Is(err, store.ErrAlreadyResolved) {
		t.Errorf("err = %v, want ErrAlreadyResolved", err)
	}
}

func TestResolveRequestMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery("UPDATE requests").
		WithArgs("cw-x", "timed_out", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM requests WHERE id = \\$1").
		WithArgs("cw-x").
		WillReturnError(sql.ErrNoRows)

	_, err := s.ResolveRequest(context.Background(), "cw-x", model.StatusTimedOut, nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPending(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}
	now := time.Now().UTC()

	rows := sqlmock.NewRows(requestRowColumns)
	addRequestRow(rows, "cw-1", "p1", "approval", "Run: ls", "pending", now)
	addRequestRow(rows, "cw-2", "p1", "question", "Pick a plan", "pending", now)

	mock.ExpectQuery("SELECT .+ FROM requests WHERE pairing_id = \\$1 AND status = 'pending' ORDER BY created_at ASC").
		WithArgs("p1").
		WillReturnRows(rows)

	got, err := s.ListPending(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 2 || got[0].ID != "cw-1" || got[1].ID != "cw-2" {
		t.Errorf("pending = %+v", got)
	}
}

func TestGetSessionDefaultsToActive(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectQuery("SELECT pairing_id, active, interrupted, action, session_id, updated_at").
		WithArgs("p1").
		WillReturnError(sql.ErrNoRows)

	st, err := s.GetSession(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if !st.Active || st.Interrupted {
		t.Errorf("session = %+v", st)
	}
}

func TestPutSession(t *testing.T) {
	db, mock := newMockDB(t)
	s := &PostgresStore{db: db}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("p1", true, true, "stop", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	st := model.DefaultSession("p1")
	st.Interrupted = true
	st.Action = model.InterruptStop
	if err := s.PutSession(context.Background(), st); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
}
