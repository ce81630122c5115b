package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"noteface-service/artifacts"
	"noteface-service/catalog"
	"noteface-service/db"
	"noteface-service/middleware"
	"noteface-service/pipeline"
	"noteface-service/stats"
	"noteface-service/tracking"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the process-wide components the routes share
type Deps struct {
	Store      db.Store
	Catalog    *catalog.Catalog
	Dispatcher *pipeline.Dispatcher
	Emitter    *tracking.Emitter
	Stats      *stats.Aggregator
	Artifacts  artifacts.Store
	Auth       *middleware.Authenticator

	// QueueState reports the queue circuit breaker state
	QueueState func() string
	// RateLimit is applied to every route except health checks; nil disables it
	RateLimit func(http.Handler) http.Handler
	// TrustedProxies may set the client address through forwarding headers
	TrustedProxies []netip.Prefix

	SessionCookie string
	SessionMaxAge time.Duration
	SecureCookie  bool
	ErrorRedirect string
}

func NewRouter(d Deps) http.Handler {
	fail := failer{errorURL: d.ErrorRedirect}

	r := chi.NewRouter()
	r.Use(middleware.TrustedRealIP(d.TrustedProxies))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", Health())
	r.Get("/ready", Readiness(d.Store, d.QueueState))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}

		r.Post("/receive_push/{secret}", ReceivePush(d.Dispatcher))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(d.SessionCookie, d.SessionMaxAge, d.SecureCookie))
			download := Download(d.Catalog, d.Emitter, d.Artifacts, d.Auth, fail)
			r.Get("/dl/latest/{file}", download)
			r.Get("/dl/{sha}/{file}", download)
		})

		r.With(middleware.PublicCORS()).Get("/documents.json", Documents(d.Catalog, fail))
		r.With(middleware.PublicCORS()).Options("/documents.json", func(w http.ResponseWriter, r *http.Request) {})

		r.With(d.Auth.Protect).Get("/dash/stats.json", Stats(d.Stats, fail))
	})

	r.NotFound(fail.notFound)
	return r
}
