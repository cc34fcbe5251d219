package api

import (
	"net/http"
	"time"

	handlers "tracker/src/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
}

func NewServer(handler *handlers.Handler) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handler,
	}
	server.InitRoutes()
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler)

	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api", func(r chi.Router) {
		r.Get("/etfs", s.Handler.GetETFs)
		r.Get("/timeseries", s.Handler.GetTimeSeries)
		r.Get("/timeseries.html", s.Handler.GetTimeSeriesChart)
		r.Get("/dates", s.Handler.GetAvailableDates)
		r.Get("/stats", s.Handler.GetStats)
		r.Get("/runs", s.Handler.GetRuns)

		r.Route("/holdings/{code}", func(r chi.Router) {
			r.Get("/", s.Handler.GetSnapshot)
			r.Get("/latest", s.Handler.GetLatestSnapshot)
			r.Get("/top", s.Handler.GetTopHoldings)
			r.Get("/exposure", s.Handler.GetExposure)
			r.Get("/exposure.html", s.Handler.GetExposureChart)
			r.Get("/allocation.html", s.Handler.GetAllocationChart)
			r.Get("/compare", s.Handler.GetComparison)
			r.Get("/snapshot.xlsx", s.Handler.GetSnapshotXLSX)
		})
	})
}

func NewHTTPServer(server *Server, port string) *http.Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Handler:      server,
	}
	return httpServer
}
