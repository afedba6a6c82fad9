package trips

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"go.uber.org/zap"
)

type TripUseCase interface {
	Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error)
	List(ctx context.Context) ([]domain.Trip, error)
	GetByID(ctx context.Context, id int64) (*domain.Trip, error)
	Cancel(ctx context.Context, tripID, actorID int64) (*domain.Trip, error)
	Complete(ctx context.Context, tripID, actorID int64) (*domain.Trip, error)
}

type Cache interface {
	GetTrips(ctx context.Context) ([]domain.Trip, error)
	SetTrips(ctx context.Context, trips []domain.Trip) error
	InvalidateTrips(ctx context.Context) error
	InvalidatePendingReviews(ctx context.Context, userIDs ...int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type TripService struct {
	trips              repository.TripRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	log                *zap.Logger
	now                func() time.Time
}

type CreateTripInput struct {
	DriverID          int64     `json:"-"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DepartureTime     time.Time `json:"departure_time"`
	Seats             int       `json:"seats"`
	PricePerSeatCents int64     `json:"price_per_seat_cents"`
}

type TripServiceOption func(*TripService)

func WithNotificationsTopic(topic string) TripServiceOption {
	return func(s *TripService) {
		s.notificationsTopic = topic
	}
}

func NewTripService(
	trips repository.TripRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	log *zap.Logger,
	opts ...TripServiceOption,
) *TripService {
	service := &TripService{
		trips:       trips,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *TripService) Create(ctx context.Context, input CreateTripInput) (*domain.Trip, error) {
	if strings.TrimSpace(input.Origin) == "" || strings.TrimSpace(input.Destination) == "" {
		return nil, fmt.Errorf("%w: origin and destination are required", domain.ErrInvalidRequest)
	}
	if input.Seats < 1 {
		return nil, fmt.Errorf("%w: seats must be positive", domain.ErrInvalidRequest)
	}
	if input.PricePerSeatCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidRequest)
	}
	if !input.DepartureTime.After(s.now()) {
		return nil, fmt.Errorf("%w: departure must be in the future", domain.ErrInvalidRequest)
	}

	trip := &domain.Trip{
		DriverID:          input.DriverID,
		Origin:            strings.TrimSpace(input.Origin),
		Destination:       strings.TrimSpace(input.Destination),
		DepartureTime:     input.DepartureTime,
		SeatsTotal:        input.Seats,
		PricePerSeatCents: input.PricePerSeatCents,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
	}
	return trip, nil
}

func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetTrips(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	trips, err := s.trips.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetTrips(ctx, trips)
	}
	return trips, nil
}

func (s *TripService) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

// Cancel drives an active trip to CANCELLED. Only the owning driver may
// cancel; the repository transition cancels every live booking and restores
// their seats atomically with the status change.
func (s *TripService) Cancel(ctx context.Context, tripID, actorID int64) (*domain.Trip, error) {
	current, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if current.DriverID != actorID {
		return nil, domain.ErrForbidden
	}
	if current.Status != domain.TripStatusActive {
		return nil, domain.ErrInvalidTransition
	}

	trip, cancelled, err := s.trips.Cancel(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
	}
	s.publish(ctx, kafka.Event{
		Type:     kafka.EventTripCancelled,
		TripID:   trip.ID,
		DriverID: trip.DriverID,
		Status:   string(trip.Status),
	})
	for _, b := range cancelled {
		s.publish(ctx, kafka.Event{
			Type:        kafka.EventBookingCancelled,
			TripID:      trip.ID,
			BookingID:   b.ID,
			PassengerID: b.PassengerID,
			Seats:       b.Seats,
			Status:      string(b.Status),
		})
	}
	return trip, nil
}

// Complete drives an active trip past its departure to COMPLETED. The
// repository transition marks confirmed bookings completed in the same
// transaction, which is what materializes the review obligations: once the
// trip is observably completed, every obligation is already derivable.
func (s *TripService) Complete(ctx context.Context, tripID, actorID int64) (*domain.Trip, error) {
	now := s.now()
	current, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if current.DriverID != actorID {
		return nil, domain.ErrForbidden
	}
	if current.Status != domain.TripStatusActive {
		return nil, domain.ErrInvalidTransition
	}
	if current.DepartureTime.After(now) {
		return nil, domain.ErrTooEarly
	}

	trip, completed, err := s.trips.Complete(ctx, tripID, now)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidateTrips(ctx)
		parties := make([]int64, 0, len(completed)+1)
		parties = append(parties, trip.DriverID)
		for _, b := range completed {
			parties = append(parties, b.PassengerID)
		}
		_ = s.cache.InvalidatePendingReviews(ctx, parties...)
	}
	s.publish(ctx, kafka.Event{
		Type:     kafka.EventTripCompleted,
		TripID:   trip.ID,
		DriverID: trip.DriverID,
		Status:   string(trip.Status),
	})
	return trip, nil
}

func (s *TripService) publish(ctx context.Context, event kafka.Event) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event.OccurredAt = s.now()
	key := strconv.FormatInt(event.TripID, 10)
	if err := s.producer.Publish(ctx, s.eventsTopic, key, event); err != nil {
		s.log.Warn("publish event failed", zap.String("event", event.Type), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, key, event); err != nil {
			s.log.Warn("publish notification failed", zap.String("event", event.Type), zap.Error(err))
		}
	}
}

var _ TripUseCase = (*TripService)(nil)
