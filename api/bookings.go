package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/middleware"
	"github.com/Domenick1991/carpool/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type reserveRequest struct {
	TripID int64 `json:"trip_id"`
	Seats  int   `json:"seats"`
}

type confirmRequest struct {
	PaymentStatus string `json:"payment_status"`
}

type bookingResponse struct {
	ID            int64  `json:"id"`
	TripID        int64  `json:"trip_id"`
	PassengerID   int64  `json:"passenger_id"`
	Seats         int    `json:"seats"`
	Token         string `json:"token"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	ExpiresAt     string `json:"expires_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(private *gin.RouterGroup) {
	private.POST("/bookings", h.reserve)
	private.GET("/bookings/:id", h.get)
	private.PUT("/bookings/:id/confirm", h.confirm)
	private.DELETE("/bookings/:id", h.cancel)
	private.GET("/trips/:id/bookings", h.listByTrip)
}

func (h *BookingHandler) reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Reserve(c.Request.Context(), booking.ReserveInput{
		TripID:      req.TripID,
		PassengerID: middleware.UserID(c),
		Seats:       req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	found, err := h.service.GetByID(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Confirm(c.Request.Context(), id, middleware.UserID(c), req.PaymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	updated, err := h.service.Cancel(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) listByTrip(c *gin.Context) {
	tripID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := h.service.ListByTrip(c.Request.Context(), tripID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBookingResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		TripID:        b.TripID,
		PassengerID:   b.PassengerID,
		Seats:         b.Seats,
		Token:         b.Token,
		Status:        string(b.Status),
		PaymentStatus: b.PaymentStatus,
		ExpiresAt:     b.ExpiresAt.Format(time.RFC3339),
	}
}
