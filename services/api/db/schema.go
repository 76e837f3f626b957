package db

import "context"

// schemaDDL bootstraps the eln schema. Statements are idempotent so the
// API can apply them on every start.
var schemaDDL = []string{
	`CREATE SCHEMA IF NOT EXISTS eln`,
	`CREATE TABLE IF NOT EXISTS eln.users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'Student',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS eln.templates (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		schema JSONB NOT NULL,
		created_by BIGINT NOT NULL REFERENCES eln.users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS eln.measurement_series (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		imported_from TEXT,
		created_by BIGINT NOT NULL REFERENCES eln.users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		locked_by BIGINT REFERENCES eln.users(id),
		locked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS eln.measurements (
		id BIGSERIAL PRIMARY KEY,
		series_id BIGINT NOT NULL REFERENCES eln.measurement_series(id) ON DELETE CASCADE,
		template_id BIGINT NOT NULL REFERENCES eln.templates(id),
		data JSONB NOT NULL,
		created_by BIGINT NOT NULL REFERENCES eln.users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS eln.measurement_history (
		id BIGSERIAL PRIMARY KEY,
		measurement_id BIGINT NOT NULL REFERENCES eln.measurements(id) ON DELETE CASCADE,
		change_type TEXT NOT NULL,
		data_snapshot JSONB NOT NULL,
		changed_by BIGINT NOT NULL REFERENCES eln.users(id),
		changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		change_description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS eln.measurement_images (
		id BIGSERIAL PRIMARY KEY,
		measurement_id BIGINT NOT NULL REFERENCES eln.measurements(id) ON DELETE CASCADE,
		file_name TEXT NOT NULL UNIQUE,
		original_file_name TEXT NOT NULL,
		content_type TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		uploaded_by BIGINT NOT NULL REFERENCES eln.users(id),
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS eln.series_share_links (
		id BIGSERIAL PRIMARY KEY,
		series_id BIGINT NOT NULL REFERENCES eln.measurement_series(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		is_public BOOLEAN NOT NULL,
		allowed_emails JSONB NOT NULL DEFAULT '[]',
		created_by BIGINT NOT NULL REFERENCES eln.users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS measurements_series_idx ON eln.measurements (series_id)`,
	`CREATE INDEX IF NOT EXISTS measurement_history_measurement_idx ON eln.measurement_history (measurement_id)`,
	`CREATE INDEX IF NOT EXISTS measurement_images_measurement_idx ON eln.measurement_images (measurement_id)`,
}

// EnsureSchema creates all tables and indexes if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
