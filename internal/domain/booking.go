package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type Booking struct {
	ID          int64
	TripID      int64
	PassengerID int64
	Seats       int
	Token       string
	Status      BookingStatus
	// PaymentStatus is owned by the external payment collaborator and is
	// carried as an opaque string.
	PaymentStatus string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the booking status can no longer change.
func (b *Booking) Terminal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}
