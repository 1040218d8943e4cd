package repository

import (
	"context"
	"database/sql"

	"watchlist/pkg/models"

	"github.com/google/uuid"
)

type MovieRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Movie, error)
	FindByID(ctx context.Context, id string) (*models.Movie, error)
	Insert(ctx context.Context, m models.Movie) (*models.Movie, error)
	SetWatched(ctx context.Context, id string, watched bool) (*models.Movie, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

type movieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) MovieRepository {
	return &movieRepository{db: db}
}

const movieColumns = `id, title, external_id, image_url, description, watched, owner_id, created_at`

func (r *movieRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Movie, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE owner_id = $1 ORDER BY seq ASC`, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []models.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (r *movieRepository) FindByID(ctx context.Context, id string) (*models.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (r *movieRepository) Insert(ctx context.Context, m models.Movie) (*models.Movie, error) {
	m.ID = uuid.NewString()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO movies (id, title, external_id, image_url, description, watched, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		m.ID, m.Title, m.ExternalID, m.ImageURL, m.Description, m.Watched, m.OwnerID,
	).Scan(&m.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (r *movieRepository) SetWatched(ctx context.Context, id string, watched bool) (*models.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx,
		`UPDATE movies SET watched = $1 WHERE id = $2 RETURNING `+movieColumns,
		watched, id,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (r *movieRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMovie(s scanner) (models.Movie, error) {
	var m models.Movie
	err := s.Scan(&m.ID, &m.Title, &m.ExternalID, &m.ImageURL, &m.Description,
		&m.Watched, &m.OwnerID, &m.CreatedAt)
	return m, err
}
