// Package api exposes the adaptor operations as a JSON-over-HTTP tool
// surface, plus a plain-text resource rendering for clients that want a
// readable snapshot instead of structured output.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/influxgate/influxgate"
	"github.com/influxgate/influxgate/client"
)

// Service is the operation surface the HTTP layer dispatches to. *Adaptor
// satisfies it; tests substitute fakes.
type Service interface {
	BackendVersion() string
	Healthy(ctx context.Context) bool
	ListContainers(ctx context.Context) ([]client.ContainerInfo, error)
	ListMeasurements(ctx context.Context, target string) ([]influxgate.MeasurementInfo, error)
	ListFields(ctx context.Context, target, measurement string) ([]influxgate.FieldInfo, error)
	ListTags(ctx context.Context, target, measurement string) ([]influxgate.TagInfo, error)
	QueryTimeseries(ctx context.Context, req influxgate.TimeseriesRequest) (*influxgate.TimeseriesResponse, error)
	LastPoint(ctx context.Context, req influxgate.LastPointRequest) (*influxgate.LastPointResponse, error)
	WritePoint(ctx context.Context, req influxgate.WritePointRequest) (*influxgate.WritePointResponse, error)
	WindowStats(ctx context.Context, req influxgate.WindowStatsRequest) (*influxgate.WindowStatsResponse, error)
}

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "influxgate",
	Name:      "requests_total",
	Help:      "Tool operations by name and outcome.",
}, []string{"op", "outcome"})

// Server routes HTTP requests to a Service.
type Server struct {
	service Service
	logger  zerolog.Logger
}

func NewServer(service Service, logger zerolog.Logger) *Server {
	return &Server{service: service, logger: logger}
}

// Handler builds the chi router with the full route table.
func (receiver *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(receiver.logger))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", receiver.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/containers", receiver.handleListContainers)
		r.Get("/measurements", receiver.handleListMeasurements)
		r.Get("/fields", receiver.handleListFields)
		r.Get("/tags", receiver.handleListTags)
		r.Post("/query", receiver.handleQuery)
		r.Post("/last", receiver.handleLastPoint)
		r.Post("/window-stats", receiver.handleWindowStats)
		r.Post("/write", receiver.handleWrite)
		r.Get("/resource/{target}/{measurement}", receiver.handleResource)
	})
	return r
}

func (receiver *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	healthy := receiver.service.Healthy(req.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status":  statusWord(healthy),
		"backend": receiver.service.BackendVersion(),
	})
}

func statusWord(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "degraded"
}
