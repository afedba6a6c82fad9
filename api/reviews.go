package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/middleware"
	"github.com/Domenick1991/carpool/internal/service/reviews"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	service reviews.ReviewUseCase
}

type submitReviewRequest struct {
	BookingID int64  `json:"booking_id"`
	Type      string `json:"type"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type reviewResponse struct {
	ID        int64         `json:"id"`
	BookingID int64         `json:"booking_id"`
	SubjectID int64         `json:"subject_id"`
	Type      string        `json:"type"`
	Rating    int           `json:"rating"`
	Comment   string        `json:"comment,omitempty"`
	CreatedAt string        `json:"created_at"`
	Subject   ratingPayload `json:"subject_rating"`
}

type ratingPayload struct {
	UserID               int64   `json:"user_id"`
	DriverRating         float64 `json:"driver_rating"`
	DriverRatingCount    int     `json:"driver_rating_count"`
	PassengerRating      float64 `json:"passenger_rating"`
	PassengerRatingCount int     `json:"passenger_rating_count"`
}

func NewReviewHandler(service reviews.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) Register(public, private *gin.RouterGroup) {
	public.GET("/users/:id/rating", h.rating)
	private.POST("/reviews", h.submit)
	private.GET("/reviews/pending", h.pending)
}

func (h *ReviewHandler) submit(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, summary, err := h.service.Submit(c.Request.Context(), reviews.SubmitReviewInput{
		BookingID: req.BookingID,
		AuthorID:  middleware.UserID(c),
		Type:      domain.ReviewType(req.Type),
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reviewResponse{
		ID:        review.ID,
		BookingID: review.BookingID,
		SubjectID: review.SubjectID,
		Type:      string(review.Type),
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt.Format(time.RFC3339),
		Subject:   toRatingPayload(summary),
	})
}

// pending is what the UI polls to surface review prompts.
func (h *ReviewHandler) pending(c *gin.Context) {
	pending, err := h.service.PendingFor(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":        pending.Count(),
		"as_driver":    pending.AsDriver,
		"as_passenger": pending.AsPassenger,
	})
}

func (h *ReviewHandler) rating(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	summary, err := h.service.RatingOf(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRatingPayload(summary))
}

func toRatingPayload(s *domain.RatingSummary) ratingPayload {
	return ratingPayload{
		UserID:               s.UserID,
		DriverRating:         s.DriverRating,
		DriverRatingCount:    s.DriverRatingCount,
		PassengerRating:      s.PassengerRating,
		PassengerRatingCount: s.PassengerRatingCount,
	}
}
