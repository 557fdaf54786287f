// Package audios stores saved synthesis artifacts.
package audios

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
)

const audioColumns = `id, user_id, audio_path, emo_type, created_at, updated_at`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, audio *models.Audio) (*models.Audio, error) {
	query := r.dialect.Rebind(
		`INSERT INTO audios (user_id, audio_path, emo_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		audio.UserID, audio.Path, int64(audio.Emotion), audio.CreatedAt, audio.UpdatedAt).Scan(&audio.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return audio, nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*models.Audio, error) {
	query := r.dialect.Rebind(`SELECT ` + audioColumns + ` FROM audios WHERE id = ?`)

	a, err := scanAudio(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// ListByUser returns the user's artifacts, newest first.
func (r *SQLRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Audio, error) {
	query := r.dialect.Rebind(
		`SELECT ` + audioColumns + ` FROM audios
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Audio, 0)
	for rows.Next() {
		a, err := scanAudio(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM audios WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAudio(s rowScanner) (*models.Audio, error) {
	a := &models.Audio{}
	var emotion int64
	if err := s.Scan(&a.ID, &a.UserID, &a.Path, &emotion, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Emotion = models.Emotion(emotion)
	return a, nil
}
