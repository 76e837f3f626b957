package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Image represents an image attachment row. The binary lives in the blob
// store under FileName.
type Image struct {
	ID                 int64     `json:"id"`
	MeasurementID      int64     `json:"measurement_id"`
	FileName           string    `json:"file_name"`
	OriginalFileName   string    `json:"original_file_name"`
	ContentType        string    `json:"content_type"`
	FileSize           int64     `json:"file_size"`
	UploadedBy         int64     `json:"uploaded_by"`
	UploadedByUsername string    `json:"uploaded_by_username"`
	UploadedAt         time.Time `json:"uploaded_at"`
}

const insertImageSQL = `
    INSERT INTO eln.measurement_images (measurement_id, file_name, original_file_name, content_type, file_size, uploaded_by, uploaded_at)
    VALUES ($1, $2, $3, $4, $5, $6, NOW())
    RETURNING id
`

// InsertImage records an uploaded image and returns its id.
func (s *Store) InsertImage(ctx context.Context, img Image) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertImageSQL,
		img.MeasurementID,
		img.FileName,
		img.OriginalFileName,
		img.ContentType,
		img.FileSize,
		img.UploadedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const imageBaseSQL = `
    SELECT i.id, i.measurement_id, i.file_name, i.original_file_name,
           i.content_type, i.file_size, i.uploaded_by, u.username, i.uploaded_at
    FROM eln.measurement_images i
    JOIN eln.users u ON u.id = i.uploaded_by
`

func scanImage(row pgx.Row) (*Image, error) {
	var img Image
	err := row.Scan(
		&img.ID,
		&img.MeasurementID,
		&img.FileName,
		&img.OriginalFileName,
		&img.ContentType,
		&img.FileSize,
		&img.UploadedBy,
		&img.UploadedByUsername,
		&img.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// GetImage returns an image row by id, or nil when absent.
func (s *Store) GetImage(ctx context.Context, id int64) (*Image, error) {
	row := s.pool.QueryRow(ctx, imageBaseSQL+` WHERE i.id = $1`, id)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return img, nil
}

// ListImagesByMeasurement returns all images of a measurement, oldest first.
func (s *Store) ListImagesByMeasurement(ctx context.Context, measurementID int64) ([]Image, error) {
	rows, err := s.pool.Query(ctx, imageBaseSQL+` WHERE i.measurement_id = $1 ORDER BY i.uploaded_at ASC`, measurementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, rows.Err()
}

const deleteImageSQL = `DELETE FROM eln.measurement_images WHERE id = $1`

// DeleteImage removes an image row. Blob cleanup is the caller's job.
func (s *Store) DeleteImage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteImageSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
