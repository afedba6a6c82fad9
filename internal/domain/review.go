package domain

import "time"

// ReviewType names the role being rated: a DRIVER review rates the trip's
// driver and is authored by the passenger, a PASSENGER review the other way
// around. At most one review exists per (booking, type) pair.
type ReviewType string

const (
	ReviewTypeDriver    ReviewType = "DRIVER"
	ReviewTypePassenger ReviewType = "PASSENGER"
)

const (
	RatingMin = 1
	RatingMax = 5
)

type Review struct {
	ID        int64
	BookingID int64
	AuthorID  int64
	SubjectID int64
	Type      ReviewType
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// RatingSummary is the per-user running mean over received reviews, tracked
// separately for the driver and passenger roles. The stored averages and
// counts are recomputed from the review rows in the same transaction that
// inserts a review, so they never drift from the source data.
type RatingSummary struct {
	UserID               int64
	DriverRating         float64
	DriverRatingCount    int
	PassengerRating      float64
	PassengerRatingCount int
}

// Obligation is one unfulfilled review duty: the owner of the obligation
// still has to rate Counterpart for the given booking. Obligations are
// derived from completed bookings, they are not stored rows.
type Obligation struct {
	BookingID     int64
	TripID        int64
	Type          ReviewType
	CounterpartID int64
	Origin        string
	Destination   string
	DepartureTime time.Time
}

// PendingReviews groups a user's outstanding obligations by the role the
// user held on the trip.
type PendingReviews struct {
	AsDriver    []Obligation `json:"as_driver"`
	AsPassenger []Obligation `json:"as_passenger"`
}

// Count returns the total number of outstanding obligations.
func (p *PendingReviews) Count() int {
	return len(p.AsDriver) + len(p.AsPassenger)
}
