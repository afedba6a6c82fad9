package reviews

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/kafka"
	"github.com/Domenick1991/carpool/internal/repository"
	"go.uber.org/zap"
)

type ReviewUseCase interface {
	Submit(ctx context.Context, input SubmitReviewInput) (*domain.Review, *domain.RatingSummary, error)
	PendingFor(ctx context.Context, userID int64) (*domain.PendingReviews, error)
	RatingOf(ctx context.Context, userID int64) (*domain.RatingSummary, error)
}

type Cache interface {
	GetPendingReviews(ctx context.Context, userID int64) (*domain.PendingReviews, error)
	SetPendingReviews(ctx context.Context, userID int64, pending *domain.PendingReviews) error
	InvalidatePendingReviews(ctx context.Context, userIDs ...int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type ReviewService struct {
	reviews     repository.ReviewRepository
	bookings    repository.BookingRepository
	trips       repository.TripRepository
	users       repository.UserRepository
	cache       Cache
	producer    Producer
	eventsTopic string
	log         *zap.Logger
	now         func() time.Time
}

type SubmitReviewInput struct {
	BookingID int64             `json:"booking_id"`
	AuthorID  int64             `json:"-"`
	Type      domain.ReviewType `json:"type"`
	Rating    int               `json:"rating"`
	Comment   string            `json:"comment"`
}

func NewReviewService(
	reviews repository.ReviewRepository,
	bookings repository.BookingRepository,
	trips repository.TripRepository,
	users repository.UserRepository,
	cache Cache,
	producer Producer,
	eventsTopic string,
	log *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		bookings:    bookings,
		trips:       trips,
		users:       users,
		cache:       cache,
		producer:    producer,
		eventsTopic: eventsTopic,
		log:         log,
		now:         time.Now,
	}
}

// Submit records a review for a completed booking and returns the subject's
// updated rating aggregate. The author must be the counterpart of the rated
// party on that booking; a second review for the same (booking, type) pair
// fails with ErrDuplicateReview and leaves the aggregate untouched.
func (s *ReviewService) Submit(ctx context.Context, input SubmitReviewInput) (*domain.Review, *domain.RatingSummary, error) {
	if input.Rating < domain.RatingMin || input.Rating > domain.RatingMax {
		return nil, nil, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrInvalidRequest, domain.RatingMin, domain.RatingMax)
	}
	if input.Type != domain.ReviewTypeDriver && input.Type != domain.ReviewTypePassenger {
		return nil, nil, fmt.Errorf("%w: unknown review type %q", domain.ErrInvalidRequest, input.Type)
	}

	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status != domain.BookingStatusCompleted {
		// No obligation exists until the trip completes the booking.
		return nil, nil, domain.ErrInvalidTransition
	}
	trip, err := s.trips.GetByID(ctx, booking.TripID)
	if err != nil {
		return nil, nil, err
	}

	var subjectID int64
	switch input.Type {
	case domain.ReviewTypeDriver:
		if input.AuthorID != booking.PassengerID {
			return nil, nil, domain.ErrForbidden
		}
		subjectID = trip.DriverID
	case domain.ReviewTypePassenger:
		if input.AuthorID != trip.DriverID {
			return nil, nil, domain.ErrForbidden
		}
		subjectID = booking.PassengerID
	}

	review := &domain.Review{
		BookingID: input.BookingID,
		AuthorID:  input.AuthorID,
		SubjectID: subjectID,
		Type:      input.Type,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	summary, err := s.reviews.Insert(ctx, review)
	if err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		_ = s.cache.InvalidatePendingReviews(ctx, input.AuthorID)
	}
	s.publish(ctx, review)
	return review, summary, nil
}

func (s *ReviewService) PendingFor(ctx context.Context, userID int64) (*domain.PendingReviews, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetPendingReviews(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	pending, err := s.reviews.PendingFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetPendingReviews(ctx, userID, pending)
	}
	return pending, nil
}

func (s *ReviewService) RatingOf(ctx context.Context, userID int64) (*domain.RatingSummary, error) {
	return s.users.RatingOf(ctx, userID)
}

func (s *ReviewService) publish(ctx context.Context, review *domain.Review) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.Event{
		Type:       kafka.EventReviewSubmitted,
		BookingID:  review.BookingID,
		Status:     string(review.Type),
		OccurredAt: s.now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, strconv.FormatInt(review.BookingID, 10), event); err != nil {
		s.log.Warn("publish event failed", zap.String("event", event.Type), zap.Error(err))
	}
}

var _ ReviewUseCase = (*ReviewService)(nil)
