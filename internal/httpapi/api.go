// Package httpapi is the HTTP surface described in SPEC_FULL.md §6: chi
// router, RBAC middleware layers, and the handlers that translate
// requests into internal/auth, internal/store, and internal/scheduler
// calls.
package httpapi

import (
	"time"

	"autograder/internal/auth"
	"autograder/internal/config"
	"autograder/internal/events"
	"autograder/internal/metrics"
	"autograder/internal/scheduler"
	"autograder/internal/store"
	"autograder/pkg/logger"
	"autograder/pkg/validation"

	"github.com/go-chi/chi/v5"
)

// RateLimiter is the rate-limiter surface handlers consult for
// /login and /signup. *ratelimit.MemoryRateLimiter and
// *ratelimit.RedisRateLimiter both satisfy it.
type RateLimiter interface {
	AllowLogin(clientIP string) (bool, time.Duration, error)
	AllowRegister(clientIP string) (bool, time.Duration, error)
}

// API holds every dependency the handlers need and owns the chi router.
type API struct {
	auth       *auth.Store
	store      *store.Store
	dispatcher *scheduler.Dispatcher
	events     *events.Publisher
	limiter    RateLimiter
	validator  *validation.Validator
	log        *logger.Logger
	cfg        *config.Config
	metrics    *metrics.Collector
	router     chi.Router
}

// New wires an API and builds its route table.
func New(
	authStore *auth.Store,
	st *store.Store,
	dispatcher *scheduler.Dispatcher,
	pub *events.Publisher,
	limiter RateLimiter,
	validator *validation.Validator,
	log *logger.Logger,
	cfg *config.Config,
) *API {
	a := &API{
		auth:       authStore,
		store:      st,
		dispatcher: dispatcher,
		events:     pub,
		limiter:    limiter,
		validator:  validator,
		log:        log,
		cfg:        cfg,
		metrics:    metrics.NewCollector(),
	}
	a.router = a.newRouter()
	return a
}

// Router returns the built chi.Router for use with http.Server.
func (a *API) Router() chi.Router {
	return a.router
}
