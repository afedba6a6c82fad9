package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReviewRepository interface {
	Insert(ctx context.Context, review *domain.Review) (*domain.RatingSummary, error)
	PendingFor(ctx context.Context, userID int64) (*domain.PendingReviews, error)
}

type PGReviewRepository struct {
	db *pgxpool.Pool
}

func NewReviewRepository(db *pgxpool.Pool) ReviewRepository {
	return &PGReviewRepository{db: db}
}

// Insert appends the review and recomputes the subject's aggregate for the
// reviewed role inside one transaction. Double reviews are rejected by the
// unique index on (booking_id, type); the stored average and count are
// recomputed from the review rows so they cannot drift.
func (r *PGReviewRepository) Insert(ctx context.Context, review *domain.Review) (*domain.RatingSummary, error) {
	var summary domain.RatingSummary
	err := withTxRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx, `INSERT INTO reviews (booking_id, author_id, subject_id, type, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			review.BookingID, review.AuthorID, review.SubjectID, review.Type, review.Rating, review.Comment).
			Scan(&review.ID, &review.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateReview
			}
			return err
		}

		var (
			avg   float64
			count int
		)
		if err := tx.QueryRow(ctx, `SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM reviews WHERE subject_id=$1 AND type=$2`,
			review.SubjectID, review.Type).Scan(&avg, &count); err != nil {
			return err
		}

		column := "passenger_rating"
		if review.Type == domain.ReviewTypeDriver {
			column = "driver_rating"
		}
		row := tx.QueryRow(ctx, `UPDATE users SET `+column+`=$2, `+column+`_count=$3, updated_at=now() WHERE id=$1
			RETURNING id, driver_rating, driver_rating_count, passenger_rating, passenger_rating_count`,
			review.SubjectID, avg, count)
		if err := scanRatingSummary(row, &summary); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// PendingFor derives the user's unfulfilled review obligations. There is no
// obligation table: an obligation exists for every completed booking on a
// completed trip that has no review row of the owed type yet, which also
// makes obligation materialization on trip completion idempotent for free.
func (r *PGReviewRepository) PendingFor(ctx context.Context, userID int64) (*domain.PendingReviews, error) {
	asDriver, err := r.pending(ctx, `SELECT b.id, b.trip_id, b.passenger_id, t.origin, t.destination, t.departure_time
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE t.driver_id=$1 AND t.status=$2 AND b.status=$3
		AND NOT EXISTS (SELECT 1 FROM reviews r WHERE r.booking_id = b.id AND r.type=$4)
		ORDER BY t.departure_time DESC`,
		userID, domain.ReviewTypePassenger)
	if err != nil {
		return nil, err
	}
	asPassenger, err := r.pending(ctx, `SELECT b.id, b.trip_id, t.driver_id, t.origin, t.destination, t.departure_time
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.passenger_id=$1 AND t.status=$2 AND b.status=$3
		AND NOT EXISTS (SELECT 1 FROM reviews r WHERE r.booking_id = b.id AND r.type=$4)
		ORDER BY t.departure_time DESC`,
		userID, domain.ReviewTypeDriver)
	if err != nil {
		return nil, err
	}
	return &domain.PendingReviews{AsDriver: asDriver, AsPassenger: asPassenger}, nil
}

func (r *PGReviewRepository) pending(ctx context.Context, query string, userID int64, owed domain.ReviewType) ([]domain.Obligation, error) {
	rows, err := r.db.Query(ctx, query, userID, domain.TripStatusCompleted, domain.BookingStatusCompleted, owed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	obligations := make([]domain.Obligation, 0)
	for rows.Next() {
		o := domain.Obligation{Type: owed}
		if err := rows.Scan(&o.BookingID, &o.TripID, &o.CounterpartID, &o.Origin, &o.Destination, &o.DepartureTime); err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

func scanRatingSummary(row pgx.Row, s *domain.RatingSummary) error {
	return row.Scan(&s.UserID, &s.DriverRating, &s.DriverRatingCount, &s.PassengerRating, &s.PassengerRatingCount)
}

var _ ReviewRepository = (*PGReviewRepository)(nil)
