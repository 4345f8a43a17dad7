package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	datahandler "github.com/de-tools/promo-lab/pkg/handlers/data"
	optimizationhandler "github.com/de-tools/promo-lab/pkg/handlers/optimization"
	postmortemhandler "github.com/de-tools/promo-lab/pkg/handlers/postmortem"
	"github.com/de-tools/promo-lab/pkg/handlers/response"
	scenariohandler "github.com/de-tools/promo-lab/pkg/handlers/scenario"
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/services/scenario"

	promomiddleware "github.com/de-tools/promo-lab/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Scenarios scenario.Service
	Data      datahandler.Service
	Learner   datahandler.Learner
	Logger    zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	scenarioHandler := scenariohandler.NewHandler(deps.Scenarios)
	optimizationHandler := optimizationhandler.NewHandler(deps.Scenarios)
	postmortemHandler := postmortemhandler.NewHandler(deps.Scenarios)
	dataHandler := datahandler.NewHandler(deps.Data, deps.Learner)

	logger := deps.Logger

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(promomiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health)

		r.Route("/scenarios", func(r chi.Router) {
			r.Post("/create", scenarioHandler.Create)
			r.Post("/evaluate", scenarioHandler.Evaluate)
			r.Post("/validate", scenarioHandler.Validate)
			r.Post("/compare", scenarioHandler.Compare)
			r.Get("/{id}", scenarioHandler.Get)
			r.Delete("/{id}", scenarioHandler.Delete)
			r.Post("/{id}/evaluate", scenarioHandler.Reevaluate)
		})

		r.Route("/optimization", func(r chi.Router) {
			r.Post("/generate", optimizationHandler.Generate)
			r.Post("/frontier", optimizationHandler.Frontier)
		})

		r.Route("/postmortem", func(r chi.Router) {
			r.Post("/analyze", postmortemHandler.Analyze)
			r.Get("/{scenario_id}", postmortemHandler.Get)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/baseline", dataHandler.Baseline)
			r.Get("/uplift-model", dataHandler.UpliftModel)
			if deps.Learner != nil {
				r.Post("/uplift-model/learn", dataHandler.Learn)
			}
			r.Get("/segments", dataHandler.Segments)
			r.Get("/gaps", dataHandler.Gaps)
			r.Get("/months", dataHandler.Months)
			r.Get("/quality", dataHandler.Quality)
		})
	})

	return router
}

func health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, api.Health{Status: "ok"})
}

func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	config.Dependencies.Logger = logger
	router := ConfigureRouter(config)

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router:          router,
		logger:          &logger,
		shutdownTimeout: timeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
