package booking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error)
	GetByID(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	ListByTrip(ctx context.Context, tripID, actorID int64) ([]domain.Booking, error)
	Confirm(ctx context.Context, bookingID, actorID int64, paymentStatus string) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	InvalidateTrips(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	trips              repository.TripRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	holdTTL            time.Duration
	log                *zap.Logger
	now                func() time.Time
}

type ReserveInput struct {
	TripID      int64 `json:"trip_id"`
	PassengerID int64 `json:"-"`
	Seats       int   `json:"seats"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	trips repository.TripRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	holdTTL time.Duration,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:    bookings,
		trips:       trips,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		holdTTL:     holdTTL,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Reserve books seats on a trip. The seat decrement and the booking insert
// commit together in the repository; on success the seats are already
// taken and no concurrent caller can have consumed them too.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*domain.Booking, error) {
	if input.Seats < 1 {
		return nil, fmt.Errorf("%w: seats must be positive", domain.ErrInvalidRequest)
	}

	now := s.now()
	booking := &domain.Booking{
		TripID:        input.TripID,
		PassengerID:   input.PassengerID,
		Seats:         input.Seats,
		Token:         uuid.NewString(),
		PaymentStatus: "UNPAID",
		ExpiresAt:     now.Add(s.holdTTL),
	}
	if err := s.bookings.CreateReserved(ctx, booking, now); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
	}
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) GetByID(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PassengerID != actorID {
		trip, err := s.trips.GetByID(ctx, booking.TripID)
		if err != nil {
			return nil, err
		}
		if trip.DriverID != actorID {
			return nil, domain.ErrForbidden
		}
	}
	return booking, nil
}

// ListByTrip returns the trip's booking manifest for the owning driver.
func (s *BookingService) ListByTrip(ctx context.Context, tripID, actorID int64) ([]domain.Booking, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != actorID {
		return nil, domain.ErrForbidden
	}
	return s.bookings.ListByTrip(ctx, tripID)
}

func (s *BookingService) Confirm(ctx context.Context, bookingID, actorID int64, paymentStatus string) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.PassengerID != actorID {
		return nil, domain.ErrForbidden
	}
	if current.Status != domain.BookingStatusPending {
		return nil, domain.ErrInvalidTransition
	}

	if paymentStatus == "" {
		paymentStatus = "PAID"
	}
	updated, err := s.bookings.Confirm(ctx, bookingID, paymentStatus, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, kafka.EventBookingConfirmed, updated)
	return updated, nil
}

func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID int64) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.PassengerID != actorID {
		return nil, domain.ErrForbidden
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if current.Status == domain.BookingStatusCompleted {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.bookings.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
	}
	s.publish(ctx, kafka.EventBookingCancelled, updated)
	return updated, nil
}

// ExpirePendingBookings releases seats held by pending bookings that were
// never confirmed within the hold TTL. Invoked by the worker sweep.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpirePendingBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 && s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
	}
	for i := range expired {
		s.publish(ctx, kafka.EventBookingExpired, &expired[i])
	}
	return expired, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.Event{
		Type:        eventType,
		TripID:      booking.TripID,
		BookingID:   booking.ID,
		PassengerID: booking.PassengerID,
		Seats:       booking.Seats,
		Status:      string(booking.Status),
		OccurredAt:  s.now(),
	}
	key := strconv.FormatInt(booking.TripID, 10)
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		s.log.Warn("publish event failed", zap.String("event", eventType), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			s.log.Warn("publish notification failed", zap.String("event", eventType), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
