package reviews

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Insert(ctx context.Context, review *domain.Review) (*domain.RatingSummary, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingSummary), args.Error(1)
}

func (m *MockReviewRepository) PendingFor(ctx context.Context, userID int64) (*domain.PendingReviews, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingReviews), args.Error(1)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateReserved(ctx context.Context, booking *domain.Booking, now time.Time) error {
	args := m.Called(ctx, booking, now)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByTrip(ctx context.Context, tripID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, tripID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Confirm(ctx context.Context, id int64, paymentStatus string, now time.Time) (*domain.Booking, error) {
	args := m.Called(ctx, id, paymentStatus, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	args := m.Called(ctx, trip)
	return args.Error(0)
}

func (m *MockTripRepository) GetByID(ctx context.Context, id int64) (*domain.Trip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Trip), args.Error(1)
}

func (m *MockTripRepository) ListUpcoming(ctx context.Context, now time.Time) ([]domain.Trip, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Trip), args.Error(1)
}

func (m *MockTripRepository) ReleaseSeats(ctx context.Context, tripID int64, seats int) error {
	args := m.Called(ctx, tripID, seats)
	return args.Error(0)
}

func (m *MockTripRepository) Cancel(ctx context.Context, tripID int64) (*domain.Trip, []domain.Booking, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Trip), args.Get(1).([]domain.Booking), args.Error(2)
}

func (m *MockTripRepository) Complete(ctx context.Context, tripID int64, now time.Time) (*domain.Trip, []domain.Booking, error) {
	args := m.Called(ctx, tripID, now)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Trip), args.Get(1).([]domain.Booking), args.Error(2)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) RatingOf(ctx context.Context, userID int64) (*domain.RatingSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RatingSummary), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetPendingReviews(ctx context.Context, userID int64) (*domain.PendingReviews, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingReviews), args.Error(1)
}

func (m *MockCache) SetPendingReviews(ctx context.Context, userID int64, pending *domain.PendingReviews) error {
	args := m.Called(ctx, userID, pending)
	return args.Error(0)
}

func (m *MockCache) InvalidatePendingReviews(ctx context.Context, userIDs ...int64) error {
	callArgs := make([]interface{}, 0, len(userIDs)+1)
	callArgs = append(callArgs, ctx)
	for _, id := range userIDs {
		callArgs = append(callArgs, id)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type testMocks struct {
	reviews  *MockReviewRepository
	bookings *MockBookingRepository
	trips    *MockTripRepository
	users    *MockUserRepository
	cache    *MockCache
	producer *MockProducer
}

func newTestService() (*ReviewService, *testMocks) {
	m := &testMocks{
		reviews:  &MockReviewRepository{},
		bookings: &MockBookingRepository{},
		trips:    &MockTripRepository{},
		users:    &MockUserRepository{},
		cache:    &MockCache{},
		producer: &MockProducer{},
	}
	svc := NewReviewService(m.reviews, m.bookings, m.trips, m.users, m.cache, m.producer, "booking-events", zap.NewNop())
	return svc, m
}

func TestReviewService_Submit_RatingOutOfRange(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, rating := range []int{0, -1, 6} {
		_, _, err := svc.Submit(ctx, SubmitReviewInput{BookingID: 1, AuthorID: 2, Type: domain.ReviewTypeDriver, Rating: rating})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest, "rating %d", rating)
	}
}

func TestReviewService_Submit_UnknownType(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Submit(context.Background(), SubmitReviewInput{BookingID: 1, AuthorID: 2, Type: "COPILOT", Rating: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestReviewService_Submit_BookingNotCompleted(t *testing.T) {
	statuses := []domain.BookingStatus{
		domain.BookingStatusPending,
		domain.BookingStatusConfirmed,
		domain.BookingStatusCancelled,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			svc, m := newTestService()
			ctx := context.Background()

			booking := &domain.Booking{ID: 1, TripID: 7, PassengerID: 2, Status: status}
			m.bookings.On("GetByID", ctx, int64(1)).Return(booking, nil).Once()

			_, _, err := svc.Submit(ctx, SubmitReviewInput{BookingID: 1, AuthorID: 2, Type: domain.ReviewTypeDriver, Rating: 4})
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			m.reviews.AssertNotCalled(t, "Insert")
		})
	}
}

func TestReviewService_Submit_WrongAuthor(t *testing.T) {
	booking := &domain.Booking{ID: 1, TripID: 7, PassengerID: 2, Status: domain.BookingStatusCompleted}
	trip := &domain.Trip{ID: 7, DriverID: 10}

	testCases := []struct {
		name     string
		authorID int64
		kind     domain.ReviewType
	}{
		{name: "driver review not by the passenger", authorID: 10, kind: domain.ReviewTypeDriver},
		{name: "passenger review not by the driver", authorID: 2, kind: domain.ReviewTypePassenger},
		{name: "outsider", authorID: 99, kind: domain.ReviewTypeDriver},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, m := newTestService()
			ctx := context.Background()

			m.bookings.On("GetByID", ctx, int64(1)).Return(booking, nil).Once()
			m.trips.On("GetByID", ctx, int64(7)).Return(trip, nil).Once()

			_, _, err := svc.Submit(ctx, SubmitReviewInput{BookingID: 1, AuthorID: tc.authorID, Type: tc.kind, Rating: 4})
			assert.ErrorIs(t, err, domain.ErrForbidden)
			m.reviews.AssertNotCalled(t, "Insert")
		})
	}
}

func TestReviewService_Submit_Duplicate(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	booking := &domain.Booking{ID: 1, TripID: 7, PassengerID: 2, Status: domain.BookingStatusCompleted}
	trip := &domain.Trip{ID: 7, DriverID: 10}
	m.bookings.On("GetByID", ctx, int64(1)).Return(booking, nil).Once()
	m.trips.On("GetByID", ctx, int64(7)).Return(trip, nil).Once()
	m.reviews.On("Insert", ctx, mock.AnythingOfType("*domain.Review")).Return(nil, domain.ErrDuplicateReview).Once()

	_, _, err := svc.Submit(ctx, SubmitReviewInput{BookingID: 1, AuthorID: 2, Type: domain.ReviewTypeDriver, Rating: 4})
	assert.ErrorIs(t, err, domain.ErrDuplicateReview)
	m.cache.AssertNotCalled(t, "InvalidatePendingReviews")
}

func TestReviewService_Submit_Success(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	booking := &domain.Booking{ID: 1, TripID: 7, PassengerID: 2, Status: domain.BookingStatusCompleted}
	trip := &domain.Trip{ID: 7, DriverID: 10}
	summary := &domain.RatingSummary{UserID: 10, DriverRating: 4.0, DriverRatingCount: 1}

	m.bookings.On("GetByID", ctx, int64(1)).Return(booking, nil).Once()
	m.trips.On("GetByID", ctx, int64(7)).Return(trip, nil).Once()
	m.reviews.On("Insert", ctx, mock.AnythingOfType("*domain.Review")).Return(summary, nil).Once()
	m.cache.On("InvalidatePendingReviews", ctx, int64(2)).Return(nil).Once()
	m.producer.On("Publish", ctx, "booking-events", "1", mock.Anything).Return(nil).Once()

	review, got, err := svc.Submit(ctx, SubmitReviewInput{
		BookingID: 1,
		AuthorID:  2,
		Type:      domain.ReviewTypeDriver,
		Rating:    4,
		Comment:   "smooth ride",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), review.SubjectID)
	assert.Equal(t, int64(2), review.AuthorID)
	assert.Equal(t, summary, got)
	m.reviews.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.producer.AssertExpectations(t)
}

func TestReviewService_PendingFor_CacheHit(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	cached := &domain.PendingReviews{AsDriver: []domain.Obligation{{BookingID: 1}}}
	m.cache.On("GetPendingReviews", ctx, int64(10)).Return(cached, nil).Once()

	pending, err := svc.PendingFor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, cached, pending)
	m.reviews.AssertNotCalled(t, "PendingFor")
}

func TestReviewService_PendingFor_CacheMiss(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	pending := &domain.PendingReviews{AsPassenger: []domain.Obligation{{BookingID: 2}}}
	m.cache.On("GetPendingReviews", ctx, int64(10)).Return(nil, nil).Once()
	m.reviews.On("PendingFor", ctx, int64(10)).Return(pending, nil).Once()
	m.cache.On("SetPendingReviews", ctx, int64(10), pending).Return(nil).Once()

	got, err := svc.PendingFor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, pending, got)
	m.cache.AssertExpectations(t)
}

// memStore backs the workflow tests below with the same transition rules the
// SQL repositories enforce, so the service stack can be run end to end
// without a database.
type memStore struct {
	mu            sync.Mutex
	trips         map[int64]*domain.Trip
	bookings      map[int64]*domain.Booking
	reviews       map[string]*domain.Review
	nextTripID    int64
	nextBookingID int64
	nextReviewID  int64
}

func newMemStore() *memStore {
	return &memStore{
		trips:    make(map[int64]*domain.Trip),
		bookings: make(map[int64]*domain.Booking),
		reviews:  make(map[string]*domain.Review),
	}
}

func reviewKey(bookingID int64, kind domain.ReviewType) string {
	return fmt.Sprintf("%d/%s", bookingID, kind)
}

func (s *memStore) Create(_ context.Context, trip *domain.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTripID++
	trip.ID = s.nextTripID
	trip.Status = domain.TripStatusActive
	trip.SeatsAvailable = trip.SeatsTotal
	stored := *trip
	s.trips[trip.ID] = &stored
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *trip
	return &out, nil
}

func (s *memStore) ListUpcoming(_ context.Context, now time.Time) ([]domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Trip
	for _, t := range s.trips {
		if t.Status == domain.TripStatusActive && t.DepartureTime.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) ReleaseSeats(_ context.Context, tripID int64, seats int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[tripID]
	if !ok {
		return domain.ErrNotFound
	}
	trip.SeatsAvailable = min(trip.SeatsTotal, trip.SeatsAvailable+seats)
	return nil
}

func (s *memStore) Cancel(_ context.Context, tripID int64) (*domain.Trip, []domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[tripID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if trip.Status != domain.TripStatusActive {
		return nil, nil, domain.ErrInvalidTransition
	}
	trip.Status = domain.TripStatusCancelled
	var cancelled []domain.Booking
	for _, b := range s.bookings {
		if b.TripID == tripID && (b.Status == domain.BookingStatusPending || b.Status == domain.BookingStatusConfirmed) {
			b.Status = domain.BookingStatusCancelled
			trip.SeatsAvailable = min(trip.SeatsTotal, trip.SeatsAvailable+b.Seats)
			cancelled = append(cancelled, *b)
		}
	}
	out := *trip
	return &out, cancelled, nil
}

func (s *memStore) Complete(_ context.Context, tripID int64, now time.Time) (*domain.Trip, []domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[tripID]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if trip.Status != domain.TripStatusActive {
		return nil, nil, domain.ErrInvalidTransition
	}
	if trip.DepartureTime.After(now) {
		return nil, nil, domain.ErrTooEarly
	}
	trip.Status = domain.TripStatusCompleted
	var completed []domain.Booking
	for _, b := range s.bookings {
		if b.TripID == tripID && b.Status == domain.BookingStatusConfirmed {
			b.Status = domain.BookingStatusCompleted
			completed = append(completed, *b)
		}
	}
	out := *trip
	return &out, completed, nil
}

func (s *memStore) CreateReserved(_ context.Context, booking *domain.Booking, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[booking.TripID]
	if !ok {
		return domain.ErrNotFound
	}
	switch {
	case trip.DriverID == booking.PassengerID:
		return domain.ErrForbidden
	case trip.Status != domain.TripStatusActive || !trip.DepartureTime.After(now):
		return domain.ErrTripNotBookable
	case trip.SeatsAvailable < booking.Seats:
		return domain.ErrInsufficientCapacity
	}
	trip.SeatsAvailable -= booking.Seats
	s.nextBookingID++
	booking.ID = s.nextBookingID
	booking.Status = domain.BookingStatusPending
	stored := *booking
	s.bookings[booking.ID] = &stored
	return nil
}

func (s *memStore) GetBookingByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (s *memStore) ListByTrip(_ context.Context, tripID int64) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.TripID == tripID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memStore) Confirm(_ context.Context, id int64, paymentStatus string, now time.Time) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Status != domain.BookingStatusPending || !b.ExpiresAt.After(now) {
		return nil, domain.ErrInvalidTransition
	}
	b.Status = domain.BookingStatusConfirmed
	b.PaymentStatus = paymentStatus
	out := *b
	return &out, nil
}

func (s *memStore) CancelBooking(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if b.Status != domain.BookingStatusPending && b.Status != domain.BookingStatusConfirmed {
		return nil, domain.ErrInvalidTransition
	}
	b.Status = domain.BookingStatusCancelled
	if trip, ok := s.trips[b.TripID]; ok {
		trip.SeatsAvailable = min(trip.SeatsTotal, trip.SeatsAvailable+b.Seats)
	}
	out := *b
	return &out, nil
}

func (s *memStore) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	var ids []int64
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusPending && !b.ExpiresAt.After(deadline) {
			ids = append(ids, b.ID)
		}
	}
	s.mu.Unlock()

	var expired []domain.Booking
	for _, id := range ids {
		b, err := s.CancelBooking(ctx, id)
		if err != nil {
			continue
		}
		expired = append(expired, *b)
	}
	return expired, nil
}

func (s *memStore) Insert(_ context.Context, review *domain.Review) (*domain.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reviewKey(review.BookingID, review.Type)
	if _, exists := s.reviews[key]; exists {
		return nil, domain.ErrDuplicateReview
	}
	s.nextReviewID++
	review.ID = s.nextReviewID
	stored := *review
	s.reviews[key] = &stored
	return s.summarize(review.SubjectID), nil
}

func (s *memStore) PendingFor(_ context.Context, userID int64) (*domain.PendingReviews, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := &domain.PendingReviews{
		AsDriver:    []domain.Obligation{},
		AsPassenger: []domain.Obligation{},
	}
	for _, b := range s.bookings {
		if b.Status != domain.BookingStatusCompleted {
			continue
		}
		trip := s.trips[b.TripID]
		if trip.DriverID == userID {
			if _, done := s.reviews[reviewKey(b.ID, domain.ReviewTypePassenger)]; !done {
				pending.AsDriver = append(pending.AsDriver, domain.Obligation{
					BookingID:     b.ID,
					TripID:        trip.ID,
					Type:          domain.ReviewTypePassenger,
					CounterpartID: b.PassengerID,
					Origin:        trip.Origin,
					Destination:   trip.Destination,
					DepartureTime: trip.DepartureTime,
				})
			}
		}
		if b.PassengerID == userID {
			if _, done := s.reviews[reviewKey(b.ID, domain.ReviewTypeDriver)]; !done {
				pending.AsPassenger = append(pending.AsPassenger, domain.Obligation{
					BookingID:     b.ID,
					TripID:        trip.ID,
					Type:          domain.ReviewTypeDriver,
					CounterpartID: trip.DriverID,
					Origin:        trip.Origin,
					Destination:   trip.Destination,
					DepartureTime: trip.DepartureTime,
				})
			}
		}
	}
	return pending, nil
}

func (s *memStore) RatingOf(_ context.Context, userID int64) (*domain.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarize(userID), nil
}

func (s *memStore) summarize(userID int64) *domain.RatingSummary {
	summary := &domain.RatingSummary{UserID: userID}
	var driverSum, passengerSum int
	for _, r := range s.reviews {
		if r.SubjectID != userID {
			continue
		}
		switch r.Type {
		case domain.ReviewTypeDriver:
			driverSum += r.Rating
			summary.DriverRatingCount++
		case domain.ReviewTypePassenger:
			passengerSum += r.Rating
			summary.PassengerRatingCount++
		}
	}
	if summary.DriverRatingCount > 0 {
		summary.DriverRating = float64(driverSum) / float64(summary.DriverRatingCount)
	}
	if summary.PassengerRatingCount > 0 {
		summary.PassengerRating = float64(passengerSum) / float64(summary.PassengerRatingCount)
	}
	return summary
}

// bookingStore adapts memStore to the booking repository interface, whose
// GetByID and Cancel collide with the trip methods on the shared store.
type bookingStore struct {
	*memStore
}

func (s bookingStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.GetBookingByID(ctx, id)
}

func (s bookingStore) Cancel(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.CancelBooking(ctx, id)
}

func TestReviewWorkflow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	departure := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	before := departure.Add(-time.Hour)
	after := departure.Add(time.Hour)

	trip := &domain.Trip{DriverID: 10, Origin: "Dorms", Destination: "Campus", DepartureTime: departure, SeatsTotal: 2}
	require.NoError(t, store.Create(ctx, trip))

	reserve := func(passengerID int64, seats int) (*domain.Booking, error) {
		b := &domain.Booking{
			TripID:      trip.ID,
			PassengerID: passengerID,
			Seats:       seats,
			Token:       fmt.Sprintf("tok-%d", passengerID),
			ExpiresAt:   before.Add(30 * time.Minute),
		}
		return b, store.CreateReserved(ctx, b, before)
	}

	bookingA, err := reserve(2, 1)
	require.NoError(t, err)

	// One seat left, so a two-seat request must be rejected whole.
	_, err = reserve(3, 2)
	require.ErrorIs(t, err, domain.ErrInsufficientCapacity)

	bookingB, err := reserve(3, 1)
	require.NoError(t, err)

	_, err = store.Confirm(ctx, bookingA.ID, "PAID", before)
	require.NoError(t, err)
	_, err = store.Confirm(ctx, bookingB.ID, "PAID", before)
	require.NoError(t, err)

	_, completed, err := store.Complete(ctx, trip.ID, after)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	svc := NewReviewService(store, bookingStore{store}, store, store, nil, nil, "", zap.NewNop())

	// Completion materialized one obligation per counterpart on each side.
	pending, err := svc.PendingFor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, pending.Count())
	assert.Len(t, pending.AsDriver, 2)

	pendingA, err := svc.PendingFor(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pendingA.AsPassenger, 1)
	assert.Equal(t, int64(10), pendingA.AsPassenger[0].CounterpartID)
	assert.Equal(t, domain.ReviewTypeDriver, pendingA.AsPassenger[0].Type)

	review, summary, err := svc.Submit(ctx, SubmitReviewInput{
		BookingID: bookingA.ID,
		AuthorID:  10,
		Type:      domain.ReviewTypePassenger,
		Rating:    4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), review.SubjectID)
	assert.Equal(t, 4.0, summary.PassengerRating)
	assert.Equal(t, 1, summary.PassengerRatingCount)

	pending, err = svc.PendingFor(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Count())
	assert.Equal(t, bookingB.ID, pending.AsDriver[0].BookingID)

	_, _, err = svc.Submit(ctx, SubmitReviewInput{
		BookingID: bookingA.ID,
		AuthorID:  10,
		Type:      domain.ReviewTypePassenger,
		Rating:    5,
	})
	require.ErrorIs(t, err, domain.ErrDuplicateReview)

	rating, err := svc.RatingOf(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.PassengerRating)
}

func TestReviewWorkflow_RatingAverages(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	departure := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	before := departure.Add(-time.Hour)
	after := departure.Add(time.Hour)

	trip := &domain.Trip{DriverID: 10, Origin: "Dorms", Destination: "Airport", DepartureTime: departure, SeatsTotal: 3}
	require.NoError(t, store.Create(ctx, trip))

	passengers := []int64{2, 3, 4}
	bookingIDs := make(map[int64]int64)
	for _, p := range passengers {
		b := &domain.Booking{TripID: trip.ID, PassengerID: p, Seats: 1, Token: fmt.Sprintf("tok-%d", p), ExpiresAt: before.Add(time.Hour)}
		require.NoError(t, store.CreateReserved(ctx, b, before))
		_, err := store.Confirm(ctx, b.ID, "PAID", before)
		require.NoError(t, err)
		bookingIDs[p] = b.ID
	}
	_, _, err := store.Complete(ctx, trip.ID, after)
	require.NoError(t, err)

	svc := NewReviewService(store, bookingStore{store}, store, store, nil, nil, "", zap.NewNop())

	ratings := map[int64]int{2: 5, 3: 3, 4: 4}
	wantAverages := []float64{5.0, 4.0, 4.0}
	for i, p := range passengers {
		_, summary, err := svc.Submit(ctx, SubmitReviewInput{
			BookingID: bookingIDs[p],
			AuthorID:  p,
			Type:      domain.ReviewTypeDriver,
			Rating:    ratings[p],
		})
		require.NoError(t, err)
		assert.Equal(t, wantAverages[i], summary.DriverRating)
		assert.Equal(t, i+1, summary.DriverRatingCount)
	}

	rating, err := svc.RatingOf(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 4.0, rating.DriverRating)
	assert.Equal(t, 3, rating.DriverRatingCount)
	assert.Equal(t, 0, rating.PassengerRatingCount)
}
