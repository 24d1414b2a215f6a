package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"eduplatform/internal/domain"
	"eduplatform/internal/domain/model"
	"eduplatform/internal/infra/logging"
	"eduplatform/internal/infra/metrics"
	"eduplatform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type loginRequest struct {
	Key string `json:"key" validate:"required"`
}

type createPromoCodeRequest struct {
	Code        string     `json:"code" validate:"required,max=64"`
	FreeDays    int        `json:"free_days" validate:"gt=0,lte=3650"`
	MaxUses     int        `json:"max_uses" validate:"gt=0"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ContentType *string    `json:"content_type" validate:"omitempty,max=64"`
	Level       *string    `json:"level" validate:"omitempty,max=64"`
	Language    *string    `json:"language" validate:"omitempty,max=64"`
	Description string     `json:"description" validate:"max=500"`
}

type upsertUserRequest struct {
	ID    string `json:"id" validate:"required,max=128"`
	Email string `json:"email" validate:"omitempty,email"`
}

type promoCodeDTO struct {
	ID                string             `json:"id"`
	Code              string             `json:"code"`
	Description       string             `json:"description"`
	Active            bool               `json:"active"`
	State             string             `json:"state"`
	FreeDays          int                `json:"free_days"`
	MaxUses           int                `json:"max_uses"`
	CurrentUses       int                `json:"current_uses"`
	RemainingUses     int                `json:"remaining_uses"`
	ExpiresAt         *time.Time         `json:"expires_at"`
	Restrictions      model.Restrictions `json:"restrictions"`
	AccessDescription string             `json:"access_description"`
	CreatedAt         time.Time          `json:"created_at"`
}

func toPromoCodeDTO(p *model.PromoCode, now time.Time) promoCodeDTO {
	return promoCodeDTO{
		ID:                p.ID,
		Code:              p.Code,
		Description:       p.Description,
		Active:            p.Active,
		State:             string(p.State(now)),
		FreeDays:          p.FreeDays,
		MaxUses:           p.MaxUses,
		CurrentUses:       p.CurrentUses,
		RemainingUses:     p.RemainingUses(),
		ExpiresAt:         p.ExpiresAt,
		Restrictions:      p.Restrictions,
		AccessDescription: p.Restrictions.Describe(),
		CreatedAt:         p.CreatedAt,
	}
}

type redemptionDTO struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	Code           string             `json:"code"`
	FreeDays       int                `json:"free_days"`
	TrialExpiresAt time.Time          `json:"trial_expires_at"`
	Restrictions   model.Restrictions `json:"restrictions"`
	RedeemedAt     time.Time          `json:"redeemed_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || !keyMatches(req.Key, s.apiKey) || s.auth == nil {
		metrics.IncAdminRequest("login", "unauthorized")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := s.auth.Mint(w); err != nil {
		metrics.IncAdminRequest("login", "error")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	metrics.IncAdminRequest("login", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	if s.auth != nil {
		s.auth.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.statsUC.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, "stats", err)
		return
	}
	byState := make(map[string]int, len(st.CodesByState))
	for k, v := range st.CodesByState {
		byState[string(k)] = v
	}
	metrics.IncAdminRequest("stats", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"codes_by_state": byState,
		"remaining_uses": st.RemainingUses,
		"active_trials":  st.ActiveTrials,
		"taken_at":       st.TakenAt,
	})
}

func (s *Server) handleUpsertUser(w http.ResponseWriter, r *http.Request) {
	var req upsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "upsert_user", err)
		return
	}
	u, err := s.adminUC.UpsertUser(r.Context(), req.ID, req.Email)
	if err != nil {
		s.fail(w, r, "upsert_user", err)
		return
	}
	metrics.IncAdminRequest("upsert_user", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"id": u.ID, "email": u.Email})
}

func (s *Server) handleCreatePromoCode(w http.ResponseWriter, r *http.Request) {
	var req createPromoCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, "create_promo", err)
		return
	}
	p, err := s.adminUC.CreatePromoCode(r.Context(), usecase.NewPromoCodeInput{
		Code:        req.Code,
		FreeDays:    req.FreeDays,
		MaxUses:     req.MaxUses,
		ExpiresAt:   req.ExpiresAt,
		ContentType: req.ContentType,
		Level:       req.Level,
		Language:    req.Language,
		Description: req.Description,
	})
	if err != nil {
		s.fail(w, r, "create_promo", err)
		return
	}
	metrics.IncAdminRequest("create_promo", "ok")
	writeJSON(w, http.StatusCreated, toPromoCodeDTO(p, time.Now()))
}

// handleListPromoCodes accepts 'offset' and 'limit' query parameters.
func (s *Server) handleListPromoCodes(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	codes, err := s.adminUC.ListPromoCodes(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, r, "list_promos", err)
		return
	}
	now := time.Now()
	out := make([]promoCodeDTO, 0, len(codes))
	for _, p := range codes {
		out = append(out, toPromoCodeDTO(p, now))
	}
	metrics.IncAdminRequest("list_promos", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "offset": offset, "limit": limit})
}

func (s *Server) handleGetPromoCode(w http.ResponseWriter, r *http.Request) {
	p, err := s.adminUC.GetPromoCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.fail(w, r, "get_promo", err)
		return
	}
	metrics.IncAdminRequest("get_promo", "ok")
	writeJSON(w, http.StatusOK, toPromoCodeDTO(p, time.Now()))
}

func (s *Server) handleSetActive(active bool) http.HandlerFunc {
	action := "deactivate_promo"
	if active {
		action = "activate_promo"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.adminUC.SetActive(r.Context(), chi.URLParam(r, "code"), active)
		if err != nil {
			s.fail(w, r, action, err)
			return
		}
		metrics.IncAdminRequest(action, "ok")
		writeJSON(w, http.StatusOK, toPromoCodeDTO(p, time.Now()))
	}
}

func (s *Server) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.adminUC.ListRedemptions(r.Context(), chi.URLParam(r, "code"), limit)
	if err != nil {
		s.fail(w, r, "list_redemptions", err)
		return
	}
	out := make([]redemptionDTO, 0, len(list))
	for _, rd := range list {
		out = append(out, redemptionDTO{
			ID:             rd.ID,
			UserID:         rd.UserID,
			Code:           rd.Code,
			FreeDays:       rd.FreeDays,
			TrialExpiresAt: rd.TrialExpiresAt,
			Restrictions:   rd.Restrictions,
			RedeemedAt:     rd.RedeemedAt,
		})
	}
	metrics.IncAdminRequest("list_redemptions", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// ===== helpers =====

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.ErrInvalidArgument
	}
	if err := validate.Struct(dst); err != nil {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncAdminRequest(action, "invalid")
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, domain.ErrNotFound):
		metrics.IncAdminRequest(action, "not_found")
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		metrics.IncAdminRequest(action, "conflict")
		writeError(w, http.StatusConflict, "promo code already exists")
	default:
		metrics.IncAdminRequest(action, "error")
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("action", action).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
