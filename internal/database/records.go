package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aircraft_logger/internal/models"

	"github.com/mattn/go-sqlite3"
)

// RecordRepository is the object store for aircraft records, keyed by record id
type RecordRepository interface {
	Add(ctx context.Context, rec *models.Record) error
	Update(ctx context.Context, rec *models.Record) error
	GetAll(ctx context.Context) ([]*models.Record, error)
	GetByID(ctx context.Context, id string) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	InsertBatch(ctx context.Context, recs []*models.Record) error
	Count(ctx context.Context) (int, error)
}

type recordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) RecordRepository {
	return &recordRepository{db: db}
}

const recordColumns = `id, aircraft_model, ac_number, mo_number, monument_number,
	start_date, finish_date, issues, notes, pictures, created_at`

const insertRecord = `INSERT INTO records (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertRecord = `INSERT OR REPLACE INTO records (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Add inserts a new record. It fails with ErrDuplicateID if the id is taken.
func (r *recordRepository) Add(ctx context.Context, rec *models.Record) error {
	args, err := recordArgs(rec)
	if err != nil {
		return storageErr("add", err)
	}

	if _, err := r.db.ExecContext(ctx, insertRecord, args...); err != nil {
		if isDuplicateID(err) {
			return fmt.Errorf("failed to add record %s: %w", rec.ID, ErrDuplicateID)
		}
		return storageErr("add", err)
	}
	return nil
}

// Update replaces the record with the same id, inserting it if absent
func (r *recordRepository) Update(ctx context.Context, rec *models.Record) error {
	args, err := recordArgs(rec)
	if err != nil {
		return storageErr("update", err)
	}

	if _, err := r.db.ExecContext(ctx, upsertRecord, args...); err != nil {
		return storageErr("update", err)
	}
	return nil
}

// GetAll returns every record, newest first. Records created in the same
// millisecond are ordered by id.
func (r *recordRepository) GetAll(ctx context.Context) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, storageErr("get all", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("get all", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get all", err)
	}

	return records, nil
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, storageErr("get by id", err)
	}
	return rec, nil
}

// Delete removes the record. Deleting an unknown id is not an error.
func (r *recordRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
		return storageErr("delete", err)
	}
	return nil
}

// InsertBatch inserts one or more new records in a single transaction.
// Nothing is stored if any record fails, including on a duplicate id.
func (r *recordRepository) InsertBatch(ctx context.Context, recs []*models.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("insert batch", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return storageErr("insert batch", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, rec := range recs {
		args, err := recordArgs(rec)
		if err != nil {
			return storageErr("insert batch", err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if isDuplicateID(err) {
				return fmt.Errorf("failed to insert record %s: %w", rec.ID, ErrDuplicateID)
			}
			return storageErr("insert batch", fmt.Errorf("failed to insert record: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("insert batch", fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

func (r *recordRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec       models.Record
		model     string
		pictures  string
		createdAt int64
	)

	if err := s.Scan(
		&rec.ID, &model, &rec.ACNumber, &rec.MONumber, &rec.MonumentNumber,
		&rec.StartDate, &rec.FinishDate, &rec.Issues, &rec.Notes, &pictures, &createdAt,
	); err != nil {
		return nil, err
	}

	rec.AircraftModel = models.AircraftModel(model)
	rec.CreatedAt = time.UnixMilli(createdAt)

	rec.Pictures = []models.Picture{}
	if err := json.Unmarshal([]byte(pictures), &rec.Pictures); err != nil {
		return nil, fmt.Errorf("failed to decode pictures of record %s: %w", rec.ID, err)
	}

	return &rec, nil
}

func recordArgs(rec *models.Record) ([]any, error) {
	pics := rec.Pictures
	if pics == nil {
		pics = []models.Picture{}
	}
	encoded, err := json.Marshal(pics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pictures: %w", err)
	}

	return []any{
		rec.ID,
		string(rec.AircraftModel),
		rec.ACNumber,
		rec.MONumber,
		rec.MonumentNumber,
		rec.StartDate,
		rec.FinishDate,
		rec.Issues,
		rec.Notes,
		string(encoded),
		rec.CreatedAt.UnixMilli(),
	}, nil
}

// isDuplicateID reports a primary key collision; other constraint failures are
// ordinary storage errors
func isDuplicateID(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
