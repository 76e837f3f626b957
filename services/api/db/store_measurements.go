package db

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
)

// Measurement represents a recorded measurement with display metadata.
type Measurement struct {
	ID                int64           `json:"id"`
	SeriesID          int64           `json:"series_id"`
	SeriesName        string          `json:"series_name"`
	TemplateID        int64           `json:"template_id"`
	TemplateName      string          `json:"template_name"`
	Data              json.RawMessage `json:"data"`
	CreatedBy         int64           `json:"created_by"`
	CreatedByUsername string          `json:"created_by_username"`
	CreatedAt         time.Time       `json:"created_at"`
}

// HistoryEntry is one snapshot in a measurement's edit history.
type HistoryEntry struct {
	ID                int64           `json:"id"`
	MeasurementID     int64           `json:"measurement_id"`
	ChangeType        string          `json:"change_type"`
	DataSnapshot      json.RawMessage `json:"data_snapshot"`
	ChangedBy         int64           `json:"changed_by"`
	ChangedByUsername string          `json:"changed_by_username"`
	ChangedAt         time.Time       `json:"changed_at"`
	ChangeDescription *string         `json:"change_description,omitempty"`
}

// MeasurementFilter holds optional search criteria for ListMeasurements.
type MeasurementFilter struct {
	TemplateID *int64
	SeriesID   *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	SearchText string
}

const insertMeasurementSQL = `
    INSERT INTO eln.measurements (series_id, template_id, data, created_by, created_at)
    VALUES ($1, $2, $3, $4, NOW())
    RETURNING id
`

const insertHistorySQL = `
    INSERT INTO eln.measurement_history (measurement_id, change_type, data_snapshot, changed_by, changed_at, change_description)
    VALUES ($1, $2, $3, $4, NOW(), $5)
`

// CreateMeasurement inserts a measurement together with its initial
// "Created" history entry in one transaction.
func (s *Store) CreateMeasurement(ctx context.Context, seriesID, templateID int64, data json.RawMessage, createdBy int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	if err := tx.QueryRow(ctx, insertMeasurementSQL, seriesID, templateID, data, createdBy).Scan(&id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, insertHistorySQL, id, "Created", data, createdBy, "Measurement created"); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

const measurementBaseSQL = `
    SELECT m.id, m.series_id, ser.name, m.template_id, t.name, m.data,
           m.created_by, u.username, m.created_at
    FROM eln.measurements m
    JOIN eln.measurement_series ser ON ser.id = m.series_id
    JOIN eln.templates t ON t.id = m.template_id
    JOIN eln.users u ON u.id = m.created_by
`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	err := row.Scan(
		&m.ID,
		&m.SeriesID,
		&m.SeriesName,
		&m.TemplateID,
		&m.TemplateName,
		&m.Data,
		&m.CreatedBy,
		&m.CreatedByUsername,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMeasurement returns a measurement by id, or nil when absent.
func (s *Store) GetMeasurement(ctx context.Context, id int64) (*Measurement, error) {
	row := s.pool.QueryRow(ctx, measurementBaseSQL+` WHERE m.id = $1`, id)
	m, err := scanMeasurement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListMeasurements returns measurements matching the filter, newest first.
func (s *Store) ListMeasurements(ctx context.Context, filter MeasurementFilter) ([]Measurement, error) {
	sql := measurementBaseSQL + ` WHERE TRUE`
	args := []any{}
	argPos := 1

	if filter.TemplateID != nil {
		sql += ` AND m.template_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.TemplateID)
		argPos++
	}
	if filter.SeriesID != nil {
		sql += ` AND m.series_id = $` + strconv.Itoa(argPos)
		args = append(args, *filter.SeriesID)
		argPos++
	}
	if filter.DateFrom != nil {
		sql += ` AND m.created_at >= $` + strconv.Itoa(argPos)
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		// Include the entire day of DateTo.
		dayAfter := filter.DateTo.Truncate(24 * time.Hour).Add(24 * time.Hour)
		sql += ` AND m.created_at < $` + strconv.Itoa(argPos)
		args = append(args, dayAfter)
		argPos++
	}
	if filter.SearchText != "" {
		placeholder := `$` + strconv.Itoa(argPos)
		sql += ` AND (ser.name ILIKE ` + placeholder +
			` OR t.name ILIKE ` + placeholder +
			` OR u.username ILIKE ` + placeholder + `)`
		args = append(args, "%"+filter.SearchText+"%")
		argPos++
	}

	sql += ` ORDER BY m.created_at DESC`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	measurements := make([]Measurement, 0)
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, *m)
	}
	return measurements, rows.Err()
}

// ListMeasurementsBySeries returns a series' measurements, newest first.
func (s *Store) ListMeasurementsBySeries(ctx context.Context, seriesID int64) ([]Measurement, error) {
	return s.ListMeasurements(ctx, MeasurementFilter{SeriesID: &seriesID})
}

// UpdateMeasurementData replaces a measurement's data wholesale, snapshotting
// the previous data into the history in the same transaction.
func (s *Store) UpdateMeasurementData(ctx context.Context, id int64, data json.RawMessage, changedBy int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var oldData json.RawMessage
	err = tx.QueryRow(ctx, `SELECT data FROM eln.measurements WHERE id = $1 FOR UPDATE`, id).Scan(&oldData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, insertHistorySQL, id, "Updated", oldData, changedBy, "Measurement data updated"); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE eln.measurements SET data = $2 WHERE id = $1`, id, data); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const deleteMeasurementSQL = `DELETE FROM eln.measurements WHERE id = $1`

// DeleteMeasurement removes a measurement and cascades to history/images.
func (s *Store) DeleteMeasurement(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteMeasurementSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listHistorySQL = `
    SELECT h.id, h.measurement_id, h.change_type, h.data_snapshot,
           h.changed_by, u.username, h.changed_at, h.change_description
    FROM eln.measurement_history h
    JOIN eln.users u ON u.id = h.changed_by
    WHERE h.measurement_id = $1
    ORDER BY h.changed_at ASC
`

// ListHistory returns a measurement's history entries, oldest first.
func (s *Store) ListHistory(ctx context.Context, measurementID int64) ([]HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, listHistorySQL, measurementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(
			&h.ID,
			&h.MeasurementID,
			&h.ChangeType,
			&h.DataSnapshot,
			&h.ChangedBy,
			&h.ChangedByUsername,
			&h.ChangedAt,
			&h.ChangeDescription,
		); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
