package server

import (
	"net"
	"net/http"
	"time"

	"github.com/xueqianLu/dappdash/internal/config"
	"github.com/xueqianLu/dappdash/internal/middleware"
)

// Routes are the handlers mounted by NewRouter.
type Routes struct {
	Health        http.Handler
	Metrics       http.Handler
	Accounts      http.Handler
	CreateAccount http.Handler
	ListActions   http.Handler
	Action        http.Handler
}

// NewRouter mounts the routes. Account and action routes require HMAC
// authentication; every route goes through the rate limiter.
func NewRouter(rt Routes, auth *middleware.AuthMiddleware, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /health", rt.Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}
	mux.Handle("GET /accounts", auth.Wrap(rt.Accounts))
	mux.Handle("POST /accounts", auth.Wrap(rt.CreateAccount))
	mux.Handle("GET /actions", auth.Wrap(rt.ListActions))
	mux.Handle("POST /actions/{action}", auth.Wrap(rt.Action))
	return limiter.Wrap(mux)
}

// NewServer creates and configures an HTTP server. The write timeout leaves
// room for a transaction to be mined within callTimeout.
func NewServer(handler http.Handler, cfg config.ServerConfig, callTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Address, cfg.Port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: callTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
