package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"eduplatform/internal/config"
	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/infra/logging"
	"eduplatform/internal/infra/metrics"
	"eduplatform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 16

var validate = validator.New()

// Pinger is a readiness dependency (*pgxpool.Pool, *redis.Client).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the public promo-code HTTP API.
type Server struct {
	promoUC usecase.PromoUseCase
	limiter Limiter
	ready   map[string]Pinger
	trusted []netip.Prefix
	cfg     config.HTTPConfig
	log     *zerolog.Logger
}

// NewServer builds the public API. limiter may be nil to disable rate limiting.
func NewServer(
	promoUC usecase.PromoUseCase,
	limiter Limiter,
	ready map[string]Pinger,
	cfg config.HTTPConfig,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "PublicAPI").Logger()
	return &Server{
		promoUC: promoUC,
		limiter: limiter,
		ready:   ready,
		trusted: ParseTrustedProxies(cfg.TrustedProxies),
		cfg:     cfg,
		log:     &l,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Metrics())
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", traceHeader},
			ExposedHeaders: []string{traceHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/promo-codes", func(pr chi.Router) {
		pr.Use(Timeout(s.cfg.RequestTimeout))
		pr.With(s.rateLimit("validate")...).Post("/validate", s.handleValidate)
		pr.With(s.rateLimit("apply")...).Post("/apply", s.handleApply)
	})
	return r
}

func (s *Server) rateLimit(route string) []func(http.Handler) http.Handler {
	if s.limiter == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{RateLimit(s.limiter, route, s.trusted, s.log)}
}

// ===== DTOs =====

type validateRequest struct {
	Code string `json:"code" validate:"required"`
}

type applyRequest struct {
	Code   string `json:"code" validate:"required"`
	UserID string `json:"userId" validate:"required"`
}

type validateResponse struct {
	Valid             bool               `json:"valid"`
	Code              string             `json:"code"`
	FreeDays          int                `json:"free_days"`
	RemainingUses     int                `json:"remaining_uses"`
	Description       string             `json:"description"`
	AccessDescription string             `json:"access_description"`
	Restrictions      model.Restrictions `json:"restrictions"`
}

type applyResponse struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	FreeDays          int                `json:"free_days"`
	TrialExpiresAt    time.Time          `json:"trial_expires_at"`
	Restrictions      model.Restrictions `json:"restrictions"`
	AccessDescription string             `json:"access_description"`
}

type errorBody struct {
	Valid *bool  `json:"valid,omitempty"`
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ===== handlers =====

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveValidation(string(domain.KindOf(err)))
		s.writeError(w, r, err, true)
		return
	}

	res, err := s.promoUC.Validate(r.Context(), req.Code)
	if err != nil {
		metrics.ObserveValidation(string(domain.KindOf(err)))
		s.writeError(w, r, err, true)
		return
	}
	metrics.ObserveValidation("ok")
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:             true,
		Code:              res.Code,
		FreeDays:          res.FreeDays,
		RemainingUses:     res.RemainingUses,
		Description:       res.Description,
		AccessDescription: res.AccessDescription,
		Restrictions:      res.Restrictions,
	})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req applyRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveRedemption(string(domain.KindOf(err)), time.Since(start))
		s.writeError(w, r, err, false)
		return
	}

	res, err := s.promoUC.Redeem(r.Context(), req.Code, req.UserID)
	if err != nil {
		metrics.ObserveRedemption(string(domain.KindOf(err)), time.Since(start))
		s.writeError(w, r, err, false)
		return
	}
	metrics.ObserveRedemption("ok", time.Since(start))
	writeJSON(w, http.StatusOK, applyResponse{
		Success:           true,
		Message:           fmt.Sprintf("Promo code applied! You have %d days of free access.", res.FreeDays),
		FreeDays:          res.FreeDays,
		TrialExpiresAt:    res.TrialExpiresAt,
		Restrictions:      res.Restrictions,
		AccessDescription: res.AccessDescription,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, p := range s.ready {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		l := logging.With(r.Context(), s.log)
		l.Warn().Interface("failed", failed).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// decode reads a JSON body into dst and validates it. Failures come back as
// InvalidArgument promo errors.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return &domain.PromoError{Kind: domain.KindInvalidArgument, Message: "Invalid request body"}
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 && ve[0].Field() == "UserID" {
			return domain.ErrPromoInvalidUser
		}
		return domain.ErrPromoInvalidCode
	}
	return nil
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidArgument, domain.KindInactive, domain.KindExpired:
		return http.StatusBadRequest
	case domain.KindNotFound, domain.KindUserNotFound:
		return http.StatusNotFound
	case domain.KindCapacityExhausted, domain.KindAlreadyRedeemed:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, withValid bool) {
	kind := domain.KindOf(err)
	if kind == domain.KindStoreUnavailable {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
	}
	body := errorBody{Error: domain.PublicMessage(err), Kind: string(kind)}
	if withValid {
		f := false
		body.Valid = &f
	}
	writeJSON(w, statusFor(kind), body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
