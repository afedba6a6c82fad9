package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/carpool/internal/domain"
	"github.com/Domenick1991/carpool/internal/middleware"
	"github.com/Domenick1991/carpool/internal/service/trips"
	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	service trips.TripUseCase
}

type createTripRequest struct {
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	DepartureTime     time.Time `json:"departure_time"`
	Seats             int       `json:"seats"`
	PricePerSeatCents int64     `json:"price_per_seat_cents"`
}

type tripResponse struct {
	ID                int64  `json:"id"`
	DriverID          int64  `json:"driver_id"`
	Origin            string `json:"origin"`
	Destination       string `json:"destination"`
	DepartureTime     string `json:"departure_time"`
	SeatsTotal        int    `json:"seats_total"`
	SeatsAvailable    int    `json:"seats_available"`
	PricePerSeatCents int64  `json:"price_per_seat_cents"`
	Status            string `json:"status"`
}

func NewTripHandler(service trips.TripUseCase) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) Register(public, private *gin.RouterGroup) {
	public.GET("/trips", h.list)
	public.GET("/trips/:id", h.get)
	private.POST("/trips", h.create)
	private.DELETE("/trips/:id", h.cancel)
	private.PUT("/trips/:id/complete", h.complete)
}

func (h *TripHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]tripResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTripResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TripHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	trip, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func (h *TripHandler) create(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trip, err := h.service.Create(c.Request.Context(), trips.CreateTripInput{
		DriverID:          middleware.UserID(c),
		Origin:            req.Origin,
		Destination:       req.Destination,
		DepartureTime:     req.DepartureTime,
		Seats:             req.Seats,
		PricePerSeatCents: req.PricePerSeatCents,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTripResponse(trip))
}

func (h *TripHandler) cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	trip, err := h.service.Cancel(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func (h *TripHandler) complete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	trip, err := h.service.Complete(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTripResponse(trip))
}

func toTripResponse(t *domain.Trip) tripResponse {
	return tripResponse{
		ID:                t.ID,
		DriverID:          t.DriverID,
		Origin:            t.Origin,
		Destination:       t.Destination,
		DepartureTime:     t.DepartureTime.Format(time.RFC3339),
		SeatsTotal:        t.SeatsTotal,
		SeatsAvailable:    t.SeatsAvailable,
		PricePerSeatCents: t.PricePerSeatCents,
		Status:            string(t.Status),
	}
}
