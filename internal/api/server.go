package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/levelfi-io/referral-orchestrator/internal/config"
)

type Server struct {
	cfg    *config.HTTPConfig
	server *http.Server
}

func NewServer(cfg *config.HTTPConfig, handler *Handler) *Server {
	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.ListenAddr(),
			Handler:           Routes(cfg, handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Routes assembles the admin router. Split out from the server so tests can
// drive it with httptest directly.
func Routes(cfg *config.HTTPConfig, handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(newCallerLimiter(cfg.RatePerMinute, cfg.RateBurst).middleware)
	if cfg.APIKey != "" {
		r.Use(apiKeyAuth(cfg.APIKey))
	}

	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = "/"
	}

	r.Route(prefix, func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Get("/status", handler.Status)
		r.Get("/stats", handler.Stats)

		r.Get("/eligible-users", handler.ListEligible)
		r.Get("/eligible-users/check/{address}", handler.CheckEligible)
		r.Post("/eligible-users/add", handler.AddEligible)
		r.Post("/eligible-users/remove", handler.RemoveEligible)

		r.Get("/global-pool/stats", handler.PoolStats)
		r.Post("/global-pool/distribute", handler.Distribute)

		r.Get("/referrals/{address}", handler.ReferralView)
		r.Get("/income-history/{address}", handler.IncomeHistory)

		r.Post("/pause", handler.Pause)
		r.Post("/unpause", handler.Unpause)
	})

	return r
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting admin api server")
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
