package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Template represents a measurement template with its raw schema document.
type Template struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Schema            json.RawMessage `json:"schema"`
	CreatedBy         int64           `json:"created_by"`
	CreatedByUsername string          `json:"created_by_username"`
	CreatedAt         time.Time       `json:"created_at"`
}

const createTemplateSQL = `
    INSERT INTO eln.templates (name, schema, created_by, created_at)
    VALUES ($1, $2, $3, NOW())
    RETURNING id
`

// CreateTemplate stores a new template and returns its id.
func (s *Store) CreateTemplate(ctx context.Context, name string, schema json.RawMessage, createdBy int64) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, createTemplateSQL, name, schema, createdBy).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

const getTemplateSQL = `
    SELECT t.id, t.name, t.schema, t.created_by, u.username, t.created_at
    FROM eln.templates t
    JOIN eln.users u ON u.id = t.created_by
    WHERE t.id = $1
`

// GetTemplate returns a template by id, or nil when absent.
func (s *Store) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	row := s.pool.QueryRow(ctx, getTemplateSQL, id)
	var t Template
	if err := row.Scan(&t.ID, &t.Name, &t.Schema, &t.CreatedBy, &t.CreatedByUsername, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

const listTemplatesSQL = `
    SELECT t.id, t.name, t.schema, t.created_by, u.username, t.created_at
    FROM eln.templates t
    JOIN eln.users u ON u.id = t.created_by
    ORDER BY t.created_at DESC
`

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.pool.Query(ctx, listTemplatesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]Template, 0)
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Schema, &t.CreatedBy, &t.CreatedByUsername, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

const deleteTemplateSQL = `DELETE FROM eln.templates WHERE id = $1`

// DeleteTemplate removes a template. Fails with ErrNotFound when absent.
func (s *Store) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteTemplateSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
