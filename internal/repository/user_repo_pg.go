package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	RatingOf(ctx context.Context, userID int64) (*domain.RatingSummary, error)
}

type PGUserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db}
}

func (r *PGUserRepository) RatingOf(ctx context.Context, userID int64) (*domain.RatingSummary, error) {
	row := r.db.QueryRow(ctx, `SELECT id, driver_rating, driver_rating_count, passenger_rating, passenger_rating_count FROM users WHERE id=$1`, userID)
	var s domain.RatingSummary
	if err := scanRatingSummary(row, &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
