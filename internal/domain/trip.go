package domain

import "time"

type TripStatus string

const (
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

type Trip struct {
	ID                int64
	DriverID          int64
	Origin            string
	Destination       string
	DepartureTime     time.Time
	SeatsTotal        int
	SeatsAvailable    int
	PricePerSeatCents int64
	Status            TripStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Terminal reports whether the trip can no longer change status.
func (t *Trip) Terminal() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}

// Bookable reports whether new reservations are accepted at the given instant.
func (t *Trip) Bookable(now time.Time) bool {
	return t.Status == TripStatusActive && t.DepartureTime.After(now)
}
