package domain

import "errors"

// Engine error taxonomy. Every error below is expected and recoverable by
// the caller; handlers map each one to a distinct HTTP response so the UI
// can tell "no seats left" from "trip no longer available" from "try again".
var (
	// ErrInvalidRequest covers malformed input such as a non-positive seat
	// count or an out-of-range rating.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrForbidden is returned when the acting user lacks authority for the
	// operation, e.g. cancelling somebody else's trip.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned when a lifecycle rule is violated,
	// e.g. completing an already cancelled trip.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientCapacity is returned when a reservation asks for more
	// seats than the trip has left.
	ErrInsufficientCapacity = errors.New("not enough seats available")

	// ErrTripNotBookable is returned when the trip is not active or its
	// departure has passed.
	ErrTripNotBookable = errors.New("trip is not bookable")

	// ErrTooEarly is returned when a driver tries to complete a trip before
	// its departure time.
	ErrTooEarly = errors.New("trip has not departed yet")

	// ErrDuplicateReview is returned when a review for the same booking and
	// type already exists.
	ErrDuplicateReview = errors.New("review already submitted")

	// ErrConflict is returned after internal retries of a transient storage
	// conflict are exhausted; the client may retry the request.
	ErrConflict = errors.New("conflicting concurrent update, retry")

	ErrNotFound = errors.New("not found")
)
