package api

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"castrelay/internal/infrastructure/configs"
	"castrelay/internal/infrastructure/logging"
	"castrelay/internal/infrastructure/ratelimiter"
	healthHandler "castrelay/internal/presentation/handler/health"
	roomHandler "castrelay/internal/presentation/handler/rooms"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Application struct {
	config        configs.Config
	roomHandler   *roomHandler.Handler
	healthHandler *healthHandler.Handler
	socketHandler http.Handler
	logger        logging.Logger
	ratelimiter   ratelimiter.Limiter
}

func NewApplication(
	config configs.Config,
	roomHandler *roomHandler.Handler,
	healthHandler *healthHandler.Handler,
	socketHandler http.Handler,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
) *Application {
	return &Application{
		config:        config,
		roomHandler:   roomHandler,
		healthHandler: healthHandler,
		socketHandler: socketHandler,
		logger:        logger,
		ratelimiter:   ratelimiter,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)

	// The socket route stays outside the timeout group: a relay connection
	// is expected to outlive any request deadline.
	r.Handle("/socket", app.socketHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(app.rateLimiterMiddleware)
		r.Use(app.requireAPIKey)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", app.roomHandler.ListRoomsHandler)
			r.Post("/", app.roomHandler.CreateRoomHandler)
			r.Get("/{roomId}", app.roomHandler.GetRoomHandler)
			r.Get("/{roomId}/audit", app.roomHandler.GetRoomAuditHandler)
		})
	})

	r.Get("/health", app.healthHandler.GetHealth)
	r.Get("/healthz", app.healthHandler.GetHealth)
	r.Get("/ready", app.healthHandler.GetHealth)
	r.Get("/live", app.healthHandler.GetHealth)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	return r
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      otelhttp.NewHandler(mux, "castrelay-http"),
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		healthHandler.SetUnhealthy()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
