package web

import (
	"net/http"

	"eduplatform/internal/infra/api"
	"eduplatform/internal/infra/metrics"
	"eduplatform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server is the operator-facing admin API.
type Server struct {
	adminUC usecase.PromoAdminUseCase
	statsUC usecase.StatsUseCase
	apiKey  string
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(
	adminUC usecase.PromoAdminUseCase,
	statsUC usecase.StatsUseCase,
	apiKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminAPI").Logger()
	return &Server{
		adminUC: adminUC,
		statsUC: statsUC,
		apiKey:  apiKey,
		auth:    auth,
		log:     &l,
	}
}

// Router mounts every admin route under /api/v1/admin.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Post("/auth/login", s.handleLogin)
		ar.Post("/auth/logout", s.handleLogout)

		ar.Group(func(pr chi.Router) {
			pr.Use(s.authMiddleware)
			pr.Get("/stats", s.handleStats)
			pr.Post("/users", s.handleUpsertUser)

			pr.Get("/promo-codes", s.handleListPromoCodes)
			pr.Post("/promo-codes", s.handleCreatePromoCode)
			pr.Get("/promo-codes/{code}", s.handleGetPromoCode)
			pr.Post("/promo-codes/{code}/activate", s.handleSetActive(true))
			pr.Post("/promo-codes/{code}/deactivate", s.handleSetActive(false))
			pr.Get("/promo-codes/{code}/redemptions", s.handleListRedemptions)
		})
	})
	return api.Chain(r, api.TraceID(), api.RequestLog(s.log), api.Recover(s.log))
}

// authMiddleware accepts a JWT minted by /auth/login, as bearer or cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("admin auth is not configured")
			metrics.IncAdminRequest("auth", "unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			metrics.IncAdminRequest("auth", "unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
