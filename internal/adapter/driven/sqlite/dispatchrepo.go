package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DispatchStore = (*DispatchRepo)(nil)

// createdAtFormat is fixed width so that created_at sorts chronologically as
// text. RFC3339Nano trims trailing zeros and does not.
const createdAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DispatchRepo is the SQLite implementation of the DispatchStore port.
type DispatchRepo struct {
	db *DB
}

// NewDispatchRepo creates a new DispatchRepo backed by the given DB.
func NewDispatchRepo(db *DB) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// Insert appends d to the audit log. IDs are unique; re-inserting fails.
func (r *DispatchRepo) Insert(ctx context.Context, d model.Dispatch) error {
	const query = `
		INSERT INTO dispatches (id, operation, recipient, body, status_code, response, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		d.ID,
		string(d.Operation),
		d.Recipient,
		d.Body,
		d.StatusCode,
		d.Response,
		d.Error,
		d.Duration.Milliseconds(),
		d.CreatedAt.UTC().Format(createdAtFormat),
	)
	if err != nil {
		return fmt.Errorf("insert dispatch %s: %w", d.ID, err)
	}
	return nil
}

// ListRecent returns at most limit dispatches, newest first. ULIDs break ties
// between rows created in the same instant.
func (r *DispatchRepo) ListRecent(ctx context.Context, limit int) ([]model.Dispatch, error) {
	const query = `
		SELECT id, operation, recipient, body, status_code, response, error, duration_ms, created_at
		FROM dispatches
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []model.Dispatch{}
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}

	return dispatches, nil
}

// Get returns the dispatch with the given ID, or nil if it does not exist.
func (r *DispatchRepo) Get(ctx context.Context, id string) (*model.Dispatch, error) {
	const query = `
		SELECT id, operation, recipient, body, status_code, response, error, duration_ms, created_at
		FROM dispatches
		WHERE id = ?`

	d, err := scanDispatch(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispatch(row rowScanner) (model.Dispatch, error) {
	var (
		d          model.Dispatch
		operation  string
		durationMS int64
		createdAt  string
	)

	err := row.Scan(&d.ID, &operation, &d.Recipient, &d.Body, &d.StatusCode, &d.Response, &d.Error, &durationMS, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, err
	}
	if err != nil {
		return d, fmt.Errorf("scan dispatch: %w", err)
	}

	d.Operation, err = model.ParseOperation(operation)
	if err != nil {
		return d, fmt.Errorf("dispatch %s: %w", d.ID, err)
	}
	d.Duration = time.Duration(durationMS) * time.Millisecond
	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return d, fmt.Errorf("parse created_at for dispatch %s: %w", d.ID, err)
	}

	return d, nil
}
