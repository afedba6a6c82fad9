package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/carpool/api"
	"github.com/Domenick1991/carpool/config"
	"github.com/Domenick1991/carpool/internal/middleware"
	"github.com/Domenick1991/carpool/internal/service/booking"
	"github.com/Domenick1991/carpool/internal/service/reviews"
	"github.com/Domenick1991/carpool/internal/service/trips"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func Run(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	tripSvc trips.TripUseCase,
	bookingSvc booking.BookingUseCase,
	reviewSvc reviews.ReviewUseCase,
) error {
	router := newRouter(cfg, log, tripSvc, bookingSvc, reviewSvc)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(
	cfg *config.Config,
	log *zap.Logger,
	tripSvc trips.TripUseCase,
	bookingSvc booking.BookingUseCase,
	reviewSvc reviews.ReviewUseCase,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(log))

	v1 := router.Group("/api/v1")
	authed := v1.Group("", middleware.Auth([]byte(cfg.Auth.JWTSecret)))

	api.NewTripHandler(tripSvc).Register(v1, authed)
	api.NewBookingHandler(bookingSvc).Register(authed)
	api.NewReviewHandler(reviewSvc).Register(v1, authed)

	return router
}
