package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]domain.Trip, error)
	ReleaseSeats(ctx context.Context, tripID int64, seats int) error
	Cancel(ctx context.Context, tripID int64) (*domain.Trip, []domain.Booking, error)
	Complete(ctx context.Context, tripID int64, now time.Time) (*domain.Trip, []domain.Booking, error)
}

type PGTripRepository struct {
	db *pgxpool.Pool
}

func NewTripRepository(db *pgxpool.Pool) TripRepository {
	return &PGTripRepository{db: db}
}

const tripColumns = `id, driver_id, origin, destination, departure_time, seats_total, seats_available, price_per_seat_cents, status, created_at, updated_at`

func scanTrip(row pgx.Row, t *domain.Trip) error {
	return row.Scan(&t.ID, &t.DriverID, &t.Origin, &t.Destination, &t.DepartureTime, &t.SeatsTotal, &t.SeatsAvailable, &t.PricePerSeatCents, &t.Status, &t.CreatedAt, &t.UpdatedAt)
}

func (r *PGTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	trip.Status = domain.TripStatusActive
	trip.SeatsAvailable = trip.SeatsTotal
	return r.db.QueryRow(ctx, `INSERT INTO trips (driver_id, origin, destination, departure_time, seats_total, seats_available, price_per_seat_cents, status)
		VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		trip.DriverID, trip.Origin, trip.Destination, trip.DepartureTime, trip.SeatsTotal, trip.PricePerSeatCents, trip.Status).
		Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
}

func (r *PGTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=$1`, id)
	var t domain.Trip
	if err := scanTrip(row, &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGTripRepository) ListUpcoming(ctx context.Context, now time.Time) ([]domain.Trip, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE status=$1 AND departure_time > $2 ORDER BY departure_time`, domain.TripStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := make([]domain.Trip, 0)
	for rows.Next() {
		var t domain.Trip
		if err := scanTrip(rows, &t); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// ReleaseSeats gives seats back to the trip, clamped at capacity so a
// double release can never push seats_available past seats_total.
func (r *PGTripRepository) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE trips SET seats_available = LEAST(seats_total, seats_available + $2), updated_at = now() WHERE id=$1`, tripID, seats)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Cancel transitions an active trip to CANCELLED and, in the same
// transaction, cancels every pending or confirmed booking on it and
// restores their seats. The conditional UPDATE takes the same row lock a
// concurrent reservation contends on, so a reservation can never slip in
// between the status change and the bulk booking cancellation.
func (r *PGTripRepository) Cancel(ctx context.Context, tripID int64) (*domain.Trip, []domain.Booking, error) {
	var (
		trip      domain.Trip
		cancelled []domain.Booking
	)
	err := withTxRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx, `UPDATE trips SET status=$2, updated_at=now() WHERE id=$1 AND status=$3 RETURNING `+tripColumns,
			tripID, domain.TripStatusCancelled, domain.TripStatusActive)
		if err := scanTrip(row, &trip); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.transitionError(ctx, tx, tripID)
			}
			return err
		}

		cancelled, err = updateBookingsForTrip(ctx, tx, tripID, domain.BookingStatusCancelled,
			domain.BookingStatusPending, domain.BookingStatusConfirmed)
		if err != nil {
			return err
		}

		released := 0
		for _, b := range cancelled {
			released += b.Seats
		}
		if released > 0 {
			if _, err := tx.Exec(ctx, `UPDATE trips SET seats_available = LEAST(seats_total, seats_available + $2) WHERE id=$1`, tripID, released); err != nil {
				return err
			}
			trip.SeatsAvailable = min(trip.SeatsTotal, trip.SeatsAvailable+released)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return &trip, cancelled, nil
}

// Complete transitions an active trip past its departure to COMPLETED and
// marks every confirmed booking completed in the same transaction. Review
// obligations are derived from completed bookings, so committing both
// updates together makes completion atomic with obligation materialization.
func (r *PGTripRepository) Complete(ctx context.Context, tripID int64, now time.Time) (*domain.Trip, []domain.Booking, error) {
	var (
		trip      domain.Trip
		completed []domain.Booking
	)
	err := withTxRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx, `UPDATE trips SET status=$2, updated_at=now() WHERE id=$1 AND status=$3 AND departure_time <= $4 RETURNING `+tripColumns,
			tripID, domain.TripStatusCompleted, domain.TripStatusActive, now)
		if err := scanTrip(row, &trip); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.completeError(ctx, tx, tripID, now)
			}
			return err
		}

		completed, err = updateBookingsForTrip(ctx, tx, tripID, domain.BookingStatusCompleted,
			domain.BookingStatusConfirmed)
		if err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return &trip, completed, nil
}

// transitionError reads the trip inside the failed transaction to tell a
// missing row from a terminal status.
func (r *PGTripRepository) transitionError(ctx context.Context, tx pgx.Tx, tripID int64) error {
	var status domain.TripStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM trips WHERE id=$1`, tripID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return domain.ErrInvalidTransition
}

func (r *PGTripRepository) completeError(ctx context.Context, tx pgx.Tx, tripID int64, now time.Time) error {
	var (
		status    domain.TripStatus
		departure time.Time
	)
	err := tx.QueryRow(ctx, `SELECT status, departure_time FROM trips WHERE id=$1`, tripID).Scan(&status, &departure)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if status != domain.TripStatusActive {
		return domain.ErrInvalidTransition
	}
	if departure.After(now) {
		return domain.ErrTooEarly
	}
	return domain.ErrInvalidTransition
}

func updateBookingsForTrip(ctx context.Context, tx pgx.Tx, tripID int64, to domain.BookingStatus, from ...domain.BookingStatus) ([]domain.Booking, error) {
	states := make([]string, 0, len(from))
	for _, s := range from {
		states = append(states, string(s))
	}
	rows, err := tx.Query(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE trip_id=$1 AND status = ANY($3) RETURNING `+bookingColumns, tripID, to, states)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updated []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		updated = append(updated, b)
	}
	return updated, rows.Err()
}

var _ TripRepository = (*PGTripRepository)(nil)
