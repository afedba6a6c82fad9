package notify

import (
	"context"

	"github.com/Domenick1991/carpool/internal/kafka"
	"go.uber.org/zap"
)

// Sender turns engine events into user-facing notices. Delivery is a stub:
// the real channel (push, email) sits outside this repository, so events
// are logged in the shape the delivery service consumes.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	switch event.Type {
	case kafka.EventTripCompleted:
		// Both parties owe a review once the trip completes.
		s.log.Info("review prompt",
			zap.Int64("trip_id", event.TripID),
			zap.Int64("driver_id", event.DriverID))
	case kafka.EventBookingConfirmed, kafka.EventBookingCancelled, kafka.EventBookingExpired:
		s.log.Info("booking notice",
			zap.String("event", event.Type),
			zap.Int64("booking_id", event.BookingID),
			zap.Int64("passenger_id", event.PassengerID))
	default:
		s.log.Debug("event ignored", zap.String("event", event.Type))
	}
	return nil
}
