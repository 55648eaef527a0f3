package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/fundacion-cms/internal/db"
	"github.com/debemdeboas/fundacion-cms/internal/model"
)

type DBMediaRepository struct { // implements MediaRepository
	db db.DB
}

func NewDBMediaRepository(db db.DB) *DBMediaRepository {
	return &DBMediaRepository{db: db}
}

func (r *DBMediaRepository) SaveMedia(m *model.Media) error {
	variants, err := json.Marshal(m.Variants)
	if err != nil {
		return fmt.Errorf("error encoding variants: %w", err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(
		`INSERT INTO media (id, object_key, url, content_type, width, height, size, variants, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Key, m.URL, m.ContentType, m.Width, m.Height, m.Size, string(variants), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving media: %w", err)
	}

	repoLogger.Debug().Str("media_id", string(m.ID)).Str("key", m.Key).Msg("Media saved")
	return nil
}

func (r *DBMediaRepository) GetMedia(id model.MediaID) (*model.Media, error) {
	var m model.Media
	var contentType, variants sql.NullString

	err := r.db.Get().QueryRow(
		`SELECT id, object_key, url, content_type, width, height, size, variants, created_at FROM media WHERE id = ?`, id,
	).Scan(&m.ID, &m.Key, &m.URL, &contentType, &m.Width, &m.Height, &m.Size, &variants, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying media: %w", err)
	}

	m.ContentType = contentType.String
	if variants.Valid && variants.String != "" && variants.String != "null" {
		if err := json.Unmarshal([]byte(variants.String), &m.Variants); err != nil {
			return nil, fmt.Errorf("error decoding variants of %s: %w", id, err)
		}
	}
	return &m, nil
}

func (r *DBMediaRepository) DeleteMedia(id model.MediaID) error {
	res, err := r.db.Exec(`DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMediaNotFound, id)
	}
	return nil
}
