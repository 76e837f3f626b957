package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/eln-lab/eln-backend/services/api/serieslock"
)

// Series represents a measurement series with its lock state and counts.
type Series struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Description       *string    `json:"description,omitempty"`
	ImportedFrom      *string    `json:"imported_from,omitempty"`
	CreatedBy         int64      `json:"created_by"`
	CreatedByUsername string     `json:"created_by_username"`
	CreatedAt         time.Time  `json:"created_at"`
	MeasurementCount  int64      `json:"measurement_count"`
	IsLocked          bool       `json:"is_locked"`
	LockedBy          *int64     `json:"locked_by,omitempty"`
	LockedByUsername  *string    `json:"locked_by_username,omitempty"`
	LockedAt          *time.Time `json:"locked_at,omitempty"`
}

// LockState converts the persisted columns into the state machine's form.
func (ser Series) LockState() serieslock.State {
	return serieslock.State{Locked: ser.IsLocked, LockedBy: ser.LockedBy, LockedAt: ser.LockedAt}
}

const createSeriesSQL = `
    INSERT INTO eln.measurement_series (name, description, imported_from, created_by, created_at)
    VALUES ($1, $2, $3, $4, NOW())
    RETURNING id
`

// CreateSeries stores a new series and returns its id.
func (s *Store) CreateSeries(ctx context.Context, name string, description, importedFrom *string, createdBy int64) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, createSeriesSQL, name, description, importedFrom, createdBy).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const seriesBaseSQL = `
    SELECT ser.id, ser.name, ser.description, ser.imported_from,
           ser.created_by, cu.username, ser.created_at,
           (SELECT COUNT(*) FROM eln.measurements m WHERE m.series_id = ser.id),
           ser.is_locked, ser.locked_by, lu.username, ser.locked_at
    FROM eln.measurement_series ser
    JOIN eln.users cu ON cu.id = ser.created_by
    LEFT JOIN eln.users lu ON lu.id = ser.locked_by
`

func scanSeries(row pgx.Row) (*Series, error) {
	var ser Series
	err := row.Scan(
		&ser.ID,
		&ser.Name,
		&ser.Description,
		&ser.ImportedFrom,
		&ser.CreatedBy,
		&ser.CreatedByUsername,
		&ser.CreatedAt,
		&ser.MeasurementCount,
		&ser.IsLocked,
		&ser.LockedBy,
		&ser.LockedByUsername,
		&ser.LockedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ser, nil
}

// GetSeries returns a series by id, or nil when absent.
func (s *Store) GetSeries(ctx context.Context, id int64) (*Series, error) {
	row := s.pool.QueryRow(ctx, seriesBaseSQL+` WHERE ser.id = $1`, id)
	ser, err := scanSeries(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ser, nil
}

// ListSeries returns all series, newest first.
func (s *Store) ListSeries(ctx context.Context) ([]Series, error) {
	rows, err := s.pool.Query(ctx, seriesBaseSQL+` ORDER BY ser.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make([]Series, 0)
	for rows.Next() {
		ser, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		series = append(series, *ser)
	}
	return series, rows.Err()
}

const updateSeriesSQL = `
    UPDATE eln.measurement_series
    SET name = $2, description = $3
    WHERE id = $1 AND is_locked = FALSE
`

// UpdateSeries renames/redescribes an unlocked series. Returns ErrNotFound
// for a missing series and serieslock.ErrAlreadyLocked for a locked one.
func (s *Store) UpdateSeries(ctx context.Context, id int64, name string, description *string) error {
	tag, err := s.pool.Exec(ctx, updateSeriesSQL, id, name, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.seriesGuardFailure(ctx, id, true)
	}
	return nil
}

const deleteSeriesSQL = `DELETE FROM eln.measurement_series WHERE id = $1`

// DeleteSeries removes a series and cascades to its measurements.
func (s *Store) DeleteSeries(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteSeriesSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const lockSeriesSQL = `
    UPDATE eln.measurement_series
    SET is_locked = TRUE, locked_by = $2, locked_at = NOW()
    WHERE id = $1 AND is_locked = FALSE
`

// LockSeries performs the guarded Unlocked->Locked transition. The
// WHERE is_locked = FALSE guard makes exactly one of two concurrent lock
// attempts win; the loser sees serieslock.ErrAlreadyLocked.
func (s *Store) LockSeries(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx, lockSeriesSQL, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.seriesGuardFailure(ctx, id, true)
	}
	return nil
}

const unlockSeriesSQL = `
    UPDATE eln.measurement_series
    SET is_locked = FALSE, locked_by = NULL, locked_at = NULL
    WHERE id = $1 AND is_locked = TRUE
`

// UnlockSeries performs the guarded Locked->Unlocked transition.
func (s *Store) UnlockSeries(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, unlockSeriesSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.seriesGuardFailure(ctx, id, false)
	}
	return nil
}

// seriesGuardFailure decides why a guarded series update matched no rows:
// the series is gone, or its lock state failed the precondition.
func (s *Store) seriesGuardFailure(ctx context.Context, id int64, wantUnlocked bool) error {
	ser, err := s.GetSeries(ctx, id)
	if err != nil {
		return err
	}
	if ser == nil {
		return ErrNotFound
	}
	if wantUnlocked {
		return serieslock.ErrAlreadyLocked
	}
	return serieslock.ErrNotLocked
}
