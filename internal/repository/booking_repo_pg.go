package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	CreateReserved(ctx context.Context, booking *domain.Booking, now time.Time) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListByTrip(ctx context.Context, tripID int64) ([]domain.Booking, error)
	Confirm(ctx context.Context, id int64, paymentStatus string, now time.Time) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64) (*domain.Booking, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, trip_id, passenger_id, seats, token, status, payment_status, expires_at, created_at, updated_at`

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(&b.ID, &b.TripID, &b.PassengerID, &b.Seats, &b.Token, &b.Status, &b.PaymentStatus, &b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt)
}

// CreateReserved reserves seats and records the booking as one atomic unit.
// The seat check-and-decrement is a single conditional UPDATE against the
// trip row, so two concurrent reservations can never both consume the same
// seats: the row lock serializes them and the loser re-evaluates the
// condition against the winner's committed decrement.
func (r *PGBookingRepository) CreateReserved(ctx context.Context, booking *domain.Booking, now time.Time) error {
	return withTxRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		var available int
		err = tx.QueryRow(ctx, `UPDATE trips SET seats_available = seats_available - $2, updated_at = now()
			WHERE id=$1 AND status=$3 AND departure_time > $4 AND seats_available >= $2 AND driver_id <> $5
			RETURNING seats_available`,
			booking.TripID, booking.Seats, domain.TripStatusActive, now, booking.PassengerID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.reserveError(ctx, tx, booking, now)
			}
			return err
		}

		booking.Status = domain.BookingStatusPending
		if err := tx.QueryRow(ctx, `INSERT INTO bookings (trip_id, passenger_id, seats, token, status, payment_status, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`,
			booking.TripID, booking.PassengerID, booking.Seats, booking.Token, booking.Status, booking.PaymentStatus, booking.ExpiresAt).
			Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

// reserveError re-reads the trip inside the failed transaction to report
// why the conditional decrement matched no row.
func (r *PGBookingRepository) reserveError(ctx context.Context, tx pgx.Tx, booking *domain.Booking, now time.Time) error {
	var (
		driverID  int64
		status    domain.TripStatus
		departure time.Time
		available int
	)
	err := tx.QueryRow(ctx, `SELECT driver_id, status, departure_time, seats_available FROM trips WHERE id=$1`, booking.TripID).
		Scan(&driverID, &status, &departure, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	switch {
	case driverID == booking.PassengerID:
		return domain.ErrForbidden
	case status != domain.TripStatusActive || !departure.After(now):
		return domain.ErrTripNotBookable
	case available < booking.Seats:
		return domain.ErrInsufficientCapacity
	default:
		return domain.ErrTripNotBookable
	}
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ListByTrip(ctx context.Context, tripID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE trip_id=$1 ORDER BY created_at`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Confirm flips a pending, unexpired booking to CONFIRMED and records the
// externally settled payment status.
func (r *PGBookingRepository) Confirm(ctx context.Context, id int64, paymentStatus string, now time.Time) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$2, payment_status=$3, updated_at=now()
		WHERE id=$1 AND status=$4 AND expires_at > $5
		RETURNING `+bookingColumns,
		id, domain.BookingStatusConfirmed, paymentStatus, domain.BookingStatusPending, now)
	var b domain.Booking
	if err := scanBooking(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}
	return &b, nil
}

// Cancel transitions a pending or confirmed booking to CANCELLED and gives
// its seats back to the trip in the same transaction. The trip row is
// locked first so booking cancellation takes locks in the same order as
// reservations and trip lifecycle transitions.
func (r *PGBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := withTxRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		var tripID int64
		if err := tx.QueryRow(ctx, `SELECT trip_id FROM bookings WHERE id=$1`, id).Scan(&tripID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `SELECT id FROM trips WHERE id=$1 FOR UPDATE`, tripID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now()
			WHERE id=$1 AND status = ANY($3)
			RETURNING `+bookingColumns,
			id, domain.BookingStatusCancelled,
			[]string{string(domain.BookingStatusPending), string(domain.BookingStatusConfirmed)})
		if err := scanBooking(row, &b); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrInvalidTransition
			}
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE trips SET seats_available = LEAST(seats_total, seats_available + $2), updated_at = now() WHERE id=$1`, tripID, b.Seats); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ExpirePendingBefore cancels pending bookings whose hold lapsed before the
// deadline. Each booking is handled in its own transaction so one failure
// does not keep seats held on unrelated trips.
func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM bookings WHERE status=$1 AND expires_at <= $2`, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []domain.Booking
	for _, id := range ids {
		b, err := r.Cancel(ctx, id)
		if err != nil {
			// Lost the race with a confirmation or another sweep.
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return expired, err
		}
		expired = append(expired, *b)
	}
	return expired, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
