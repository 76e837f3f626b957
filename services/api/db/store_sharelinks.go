package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// ShareLink represents a tokenized read-only share of a series.
type ShareLink struct {
	ID                int64     `json:"id"`
	SeriesID          int64     `json:"series_id"`
	Token             string    `json:"token"`
	IsPublic          bool      `json:"is_public"`
	AllowedEmails     []string  `json:"allowed_emails"`
	CreatedBy         int64     `json:"created_by"`
	CreatedByUsername string    `json:"created_by_username"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	IsActive          bool      `json:"is_active"`
}

const createShareLinkSQL = `
    INSERT INTO eln.series_share_links (series_id, token, is_public, allowed_emails, created_by, created_at, expires_at, is_active)
    VALUES ($1, $2, $3, $4, $5, NOW(), $6, TRUE)
    RETURNING id
`

// CreateShareLink stores a new share link and returns its id.
func (s *Store) CreateShareLink(ctx context.Context, seriesID int64, token string, isPublic bool, allowedEmails []string, createdBy int64, expiresAt time.Time) (int64, error) {
	if allowedEmails == nil {
		allowedEmails = []string{}
	}
	emailsJSON, err := json.Marshal(allowedEmails)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.QueryRow(ctx, createShareLinkSQL, seriesID, token, isPublic, emailsJSON, createdBy, expiresAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

const shareLinkBaseSQL = `
    SELECT l.id, l.series_id, l.token, l.is_public, l.allowed_emails,
           l.created_by, u.username, l.created_at, l.expires_at, l.is_active
    FROM eln.series_share_links l
    JOIN eln.users u ON u.id = l.created_by
`

func scanShareLink(row pgx.Row) (*ShareLink, error) {
	var link ShareLink
	var emailsJSON []byte
	err := row.Scan(
		&link.ID,
		&link.SeriesID,
		&link.Token,
		&link.IsPublic,
		&emailsJSON,
		&link.CreatedBy,
		&link.CreatedByUsername,
		&link.CreatedAt,
		&link.ExpiresAt,
		&link.IsActive,
	)
	if err != nil {
		return nil, err
	}
	link.AllowedEmails = []string{}
	if len(emailsJSON) > 0 {
		if err := json.Unmarshal(emailsJSON, &link.AllowedEmails); err != nil {
			return nil, err
		}
	}
	return &link, nil
}

// GetShareLink returns a share link by id, or nil when absent.
func (s *Store) GetShareLink(ctx context.Context, id int64) (*ShareLink, error) {
	row := s.pool.QueryRow(ctx, shareLinkBaseSQL+` WHERE l.id = $1`, id)
	link, err := scanShareLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

// GetShareLinkByToken returns a share link by its token, or nil when absent.
func (s *Store) GetShareLinkByToken(ctx context.Context, token string) (*ShareLink, error) {
	row := s.pool.QueryRow(ctx, shareLinkBaseSQL+` WHERE l.token = $1`, token)
	link, err := scanShareLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

// ListShareLinks returns all share links for a series, newest first.
func (s *Store) ListShareLinks(ctx context.Context, seriesID int64) ([]ShareLink, error) {
	rows, err := s.pool.Query(ctx, shareLinkBaseSQL+` WHERE l.series_id = $1 ORDER BY l.created_at DESC`, seriesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]ShareLink, 0)
	for rows.Next() {
		link, err := scanShareLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

const deleteShareLinkSQL = `DELETE FROM eln.series_share_links WHERE id = $1`

// DeleteShareLink removes a share link.
func (s *Store) DeleteShareLink(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deleteShareLinkSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const deactivateShareLinkSQL = `UPDATE eln.series_share_links SET is_active = FALSE WHERE id = $1`

// DeactivateShareLink disables a share link without deleting it.
func (s *Store) DeactivateShareLink(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, deactivateShareLinkSQL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
